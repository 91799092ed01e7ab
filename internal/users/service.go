package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrilink/agrilink-backend/pkg/config"
	"github.com/agrilink/agrilink-backend/pkg/enums"
	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
	"github.com/agrilink/agrilink-backend/pkg/security"
)

// Service exposes account registration, authentication, and profile reads.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*UserProfile, error)
	Authenticate(ctx context.Context, email, password string) (*UserProfile, error)
	Profile(ctx context.Context, userID uuid.UUID) (*ProfileView, error)
}

type service struct {
	repo        *Repository
	passwordCfg config.PasswordConfig
	clock       func() time.Time
}

// NewService constructs the user service.
func NewService(repo *Repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg, clock: time.Now}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*UserProfile, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	profile := &UserProfile{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		Role:      input.Role,
		Phone:     strings.TrimSpace(input.Phone),
		Location:  strings.TrimSpace(input.Location),
		CreatedAt: s.clock().UTC(),
	}

	// Claim the email first; the credential key is the uniqueness anchor.
	if err := s.repo.CreateCredential(ctx, email, &Credential{UserID: profile.ID, PasswordHash: hash}); err != nil {
		return nil, err
	}
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	switch input.Role {
	case enums.RoleFarmer:
		farmer := &FarmerProfile{
			UserID:         profile.ID,
			FarmSize:       strings.TrimSpace(input.FarmSize),
			Crops:          input.Crops,
			Certifications: []string{},
		}
		if farmer.Crops == nil {
			farmer.Crops = []string{}
		}
		if err := s.repo.SaveFarmerProfile(ctx, farmer); err != nil {
			return nil, err
		}
	case enums.RoleBusiness, enums.RoleNGO:
		business := &BusinessProfile{
			UserID:            profile.ID,
			CompanyName:       strings.TrimSpace(input.CompanyName),
			PreferredProducts: []string{},
		}
		if err := s.repo.SaveBusinessProfile(ctx, business); err != nil {
			return nil, err
		}
	}

	return profile, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*UserProfile, error) {
	cred, err := s.repo.FindCredentialByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(password, cred.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	profile, err := s.repo.FindProfileByID(ctx, cred.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return profile, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*ProfileView, error) {
	profile, err := s.repo.FindProfileByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}

	view := &ProfileView{UserProfile: *profile}
	switch profile.Role {
	case enums.RoleFarmer:
		farmer, err := s.repo.FindFarmerProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		view.Farmer = farmer
	case enums.RoleBusiness, enums.RoleNGO:
		business, err := s.repo.FindBusinessProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		view.Business = business
	}
	return view, nil
}
