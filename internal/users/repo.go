package users

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/agrilink/agrilink-backend/pkg/enums"
	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
	"github.com/agrilink/agrilink-backend/pkg/kv"
)

const (
	profilePrefix  = "user_profile:"
	credPrefix     = "user_cred:"
	farmerPrefix   = "farmer_profile:"
	businessPrefix = "business_profile:"
)

func profileKey(id uuid.UUID) string  { return profilePrefix + id.String() }
func credKey(email string) string     { return credPrefix + strings.ToLower(strings.TrimSpace(email)) }
func farmerKey(id uuid.UUID) string   { return farmerPrefix + id.String() }
func businessKey(id uuid.UUID) string { return businessPrefix + id.String() }

// Repository persists account records through the key-value store.
type Repository struct {
	store kv.Store
}

// NewRepository wires the repository to its store.
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) SaveProfile(ctx context.Context, profile *UserProfile) error {
	if err := r.store.Set(ctx, profileKey(profile.ID), profile); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: save profile")
	}
	return nil
}

func (r *Repository) FindProfileByID(ctx context.Context, id uuid.UUID) (*UserProfile, error) {
	var profile UserProfile
	found, err := r.store.Get(ctx, profileKey(id), &profile)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: load profile")
	}
	if !found {
		return nil, nil
	}
	return &profile, nil
}

// CreateCredential claims the email for cred. The existence check and the
// write share one check-and-set on the credential key, so concurrent
// registrations of the same address cannot both succeed.
func (r *Repository) CreateCredential(ctx context.Context, email string, cred *Credential) error {
	err := r.store.Update(ctx, credKey(email), func(raw []byte) (any, error) {
		if raw != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email already registered")
		}
		return cred, nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: create credential")
	}
	return nil
}

func (r *Repository) FindCredentialByEmail(ctx context.Context, email string) (*Credential, error) {
	var cred Credential
	found, err := r.store.Get(ctx, credKey(email), &cred)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: load credential")
	}
	if !found {
		return nil, nil
	}
	return &cred, nil
}

func (r *Repository) SaveFarmerProfile(ctx context.Context, profile *FarmerProfile) error {
	if err := r.store.Set(ctx, farmerKey(profile.UserID), profile); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: save farmer profile")
	}
	return nil
}

func (r *Repository) FindFarmerProfile(ctx context.Context, id uuid.UUID) (*FarmerProfile, error) {
	var profile FarmerProfile
	found, err := r.store.Get(ctx, farmerKey(id), &profile)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: load farmer profile")
	}
	if !found {
		return nil, nil
	}
	return &profile, nil
}

func (r *Repository) SaveBusinessProfile(ctx context.Context, profile *BusinessProfile) error {
	if err := r.store.Set(ctx, businessKey(profile.UserID), profile); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: save business profile")
	}
	return nil
}

func (r *Repository) FindBusinessProfile(ctx context.Context, id uuid.UUID) (*BusinessProfile, error) {
	var profile BusinessProfile
	found, err := r.store.Get(ctx, businessKey(id), &profile)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: load business profile")
	}
	if !found {
		return nil, nil
	}
	return &profile, nil
}

// AdjustActiveListings bumps the farmer's active listing counter by delta,
// flooring at zero.
func (r *Repository) AdjustActiveListings(ctx context.Context, id uuid.UUID, delta int) error {
	err := r.store.Update(ctx, farmerKey(id), func(raw []byte) (any, error) {
		if raw == nil {
			return nil, fmt.Errorf("farmer profile %s missing", id)
		}
		var profile FarmerProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			return nil, fmt.Errorf("decode farmer profile: %w", err)
		}
		profile.ActiveListings += delta
		if profile.ActiveListings < 0 {
			profile.ActiveListings = 0
		}
		return &profile, nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: adjust active listings")
	}
	return nil
}

// RecordSale bumps the farmer's lifetime sale counter after a delivery.
func (r *Repository) RecordSale(ctx context.Context, id uuid.UUID) error {
	err := r.store.Update(ctx, farmerKey(id), func(raw []byte) (any, error) {
		if raw == nil {
			return nil, fmt.Errorf("farmer profile %s missing", id)
		}
		var profile FarmerProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			return nil, fmt.Errorf("decode farmer profile: %w", err)
		}
		profile.TotalSales++
		return &profile, nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: record sale")
	}
	return nil
}

// CountByRole scans every profile and tallies per-role totals.
func (r *Repository) CountByRole(ctx context.Context) (map[enums.Role]int, error) {
	raws, err := r.store.GetByPrefix(ctx, profilePrefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: scan profiles")
	}
	counts := make(map[enums.Role]int, len(raws))
	for _, raw := range raws {
		var profile UserProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			continue
		}
		counts[profile.Role]++
	}
	return counts, nil
}
