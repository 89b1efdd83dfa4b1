// Package models contains data structures for the application's domain models.
package models

import "time"

// Role identifies what a user may do on the marketplace.
type Role string

const (
	// RoleClient submits applications to services.
	RoleClient Role = "client"
	// RoleExpert publishes services and answers applications.
	RoleExpert Role = "expert"
	// RoleAdmin administers user accounts.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleExpert, RoleAdmin:
		return true
	}
	return false
}

// Address is a postal location shared by users and services.
type Address struct {
	Address string `gorm:"size:255" json:"address,omitempty"`
	City    string `gorm:"size:100" json:"city,omitempty"`
	State   string `gorm:"size:100" json:"state,omitempty"`
	Country string `gorm:"size:100" json:"country,omitempty"`
}

// User represents a marketplace account.
type User struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	FirstName      string   `gorm:"size:50;not null" json:"first_name"`
	LastName       string   `gorm:"size:50;not null" json:"last_name"`
	Email          string   `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password       string   `gorm:"not null" json:"-"`
	Role           Role     `gorm:"type:varchar(20);not null;default:'client';index" json:"role"`
	ProfileImage   string   `json:"profile_image,omitempty"`
	Bio            string   `gorm:"size:500" json:"bio,omitempty"`
	Phone          string   `gorm:"size:32" json:"phone,omitempty"`
	Location       Address  `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Skills         []string `gorm:"serializer:json;type:text" json:"skills,omitempty"`
	Certifications []string `gorm:"serializer:json;type:text" json:"certifications,omitempty"`

	IsVerified                 bool       `gorm:"not null;default:false" json:"is_verified"`
	EmailVerificationToken     string     `gorm:"size:64;index" json:"-"`
	EmailVerificationExpiresAt *time.Time `json:"-"`
	EmailVerifiedAt            *time.Time `json:"email_verified_at,omitempty"`
	PasswordResetToken         string     `gorm:"size:64;index" json:"-"`
	PasswordResetExpires       *time.Time `json:"-"`
	TokenVersion               int        `gorm:"not null;default:0" json:"-"`

	IsActive     bool       `gorm:"not null;index" json:"is_active"`
	Rating       float64    `gorm:"not null;default:0" json:"rating"`
	TotalReviews int        `gorm:"not null;default:0" json:"total_reviews"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// PublicProfile is the subset of a user shown to other marketplace members.
type PublicProfile struct {
	ID             uint     `json:"id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	ProfileImage   string   `json:"profile_image,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	Rating         float64  `json:"rating"`
	TotalReviews   int      `json:"total_reviews"`
	IsVerified     bool     `json:"is_verified"`
	Location       Address  `json:"location"`
	Skills         []string `json:"skills,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
}

// Public returns the user's public profile, or nil for a nil user.
func (u *User) Public() *PublicProfile {
	if u == nil {
		return nil
	}
	return &PublicProfile{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfileImage:   u.ProfileImage,
		Bio:            u.Bio,
		Rating:         u.Rating,
		TotalReviews:   u.TotalReviews,
		IsVerified:     u.IsVerified,
		Location:       u.Location,
		Skills:         u.Skills,
		Certifications: u.Certifications,
	}
}
