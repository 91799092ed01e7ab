package controllers

import (
	"net/http"
	"time"

	"github.com/agrilink/agrilink-backend/api/middleware"
	"github.com/agrilink/agrilink-backend/api/responses"
	"github.com/agrilink/agrilink-backend/api/validators"
	"github.com/agrilink/agrilink-backend/internal/users"
	pkgAuth "github.com/agrilink/agrilink-backend/pkg/auth"
	"github.com/agrilink/agrilink-backend/pkg/auth/session"
	"github.com/agrilink/agrilink-backend/pkg/config"
	"github.com/agrilink/agrilink-backend/pkg/enums"
	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
	"github.com/agrilink/agrilink-backend/pkg/logger"
)

type registerRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8"`
	Name        string   `json:"name" validate:"required"`
	Role        string   `json:"role" validate:"required"`
	Phone       string   `json:"phone,omitempty"`
	Location    string   `json:"location,omitempty"`
	FarmSize    string   `json:"farm_size,omitempty"`
	Crops       []string `json:"crops,omitempty"`
	CompanyName string   `json:"company_name,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type authResult struct {
	User         *users.UserProfile `json:"user"`
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
}

// Register handles account signup and signs the new user in.
func Register(svc users.Service, sessions *session.Manager, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body registerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}

		profile, err := svc.Register(r.Context(), users.RegisterInput{
			Email:       body.Email,
			Password:    body.Password,
			Name:        body.Name,
			Role:        role,
			Phone:       body.Phone,
			Location:    body.Location,
			FarmSize:    body.FarmSize,
			Crops:       body.Crops,
			CompanyName: body.CompanyName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := startSession(r, sessions, jwtCfg, profile)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// Login verifies credentials, mints an access token, and records the session.
func Login(svc users.Service, sessions *session.Manager, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Authenticate(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := startSession(r, sessions, jwtCfg, profile)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Logout revokes the caller's session.
func Logout(sessions *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session context missing"))
			return
		}
		if err := sessions.Revoke(r.Context(), accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
			return
		}
		responses.WriteSuccess(w, map[string]bool{"logged_out": true})
	}
}

// Refresh rotates the refresh token and reissues an access token. Expired
// access tokens are accepted; the refresh token carries the proof.
func Refresh(sessions *session.Manager, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		claims, err := pkgAuth.ParseAccessTokenAllowExpired(jwtCfg, body.AccessToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}

		newAccessID, newRefresh, err := sessions.Rotate(r.Context(), claims.ID, body.RefreshToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "rotate session"))
			return
		}

		token, err := pkgAuth.MintAccessToken(jwtCfg, time.Now(), pkgAuth.AccessTokenPayload{
			UserID: claims.UserID,
			Role:   claims.Role,
			JTI:    newAccessID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token"))
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"access_token":  token,
			"refresh_token": newRefresh,
		})
	}
}

func startSession(r *http.Request, sessions *session.Manager, jwtCfg config.JWTConfig, profile *users.UserProfile) (*authResult, error) {
	accessID := session.NewAccessID()
	token, err := pkgAuth.MintAccessToken(jwtCfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: profile.ID,
		Role:   profile.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}
	refresh, err := sessions.Generate(r.Context(), accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record session")
	}
	return &authResult{User: profile, AccessToken: token, RefreshToken: refresh}, nil
}
