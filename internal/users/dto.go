package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/agrilink/agrilink-backend/pkg/enums"
)

// UserProfile is the public account record.
type UserProfile struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	Role              enums.Role `json:"role"`
	Phone             string     `json:"phone,omitempty"`
	Location          string     `json:"location,omitempty"`
	Verified          bool       `json:"verified"`
	Rating            float64    `json:"rating"`
	TotalTransactions int        `json:"total_transactions"`
	CreatedAt         time.Time  `json:"created_at"`
}

// FarmerProfile carries farm-specific fields for farmer accounts.
type FarmerProfile struct {
	UserID         uuid.UUID `json:"user_id"`
	FarmSize       string    `json:"farm_size,omitempty"`
	Crops          []string  `json:"crops"`
	Certifications []string  `json:"certifications"`
	TotalSales     int       `json:"total_sales"`
	ActiveListings int       `json:"active_listings"`
}

// BusinessProfile carries procurement fields for business and NGO accounts.
type BusinessProfile struct {
	UserID            uuid.UUID `json:"user_id"`
	CompanyName       string    `json:"company_name"`
	BusinessType      string    `json:"business_type,omitempty"`
	PurchaseVolume    int       `json:"purchase_volume"`
	PreferredProducts []string  `json:"preferred_products"`
}

// Credential binds an email to its password hash and owning user.
type Credential struct {
	UserID       uuid.UUID `json:"user_id"`
	PasswordHash string    `json:"password_hash"`
}

// RegisterInput is the validated signup payload.
type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	Role        enums.Role
	Phone       string
	Location    string
	FarmSize    string
	Crops       []string
	CompanyName string
}

// ProfileView is a profile joined with its role-specific record.
type ProfileView struct {
	UserProfile
	Farmer   *FarmerProfile   `json:"farmer_profile,omitempty"`
	Business *BusinessProfile `json:"business_profile,omitempty"`
}
