package models

import (
	"strings"
	"time"
)

// ServiceCategory is the closed set of categories a service can be listed under.
type ServiceCategory string

const (
	CategoryWebDevelopment    ServiceCategory = "web development"
	CategoryMobileDevelopment ServiceCategory = "mobile development"
	CategoryGraphicDesign     ServiceCategory = "graphic design"
	CategoryContentWriting    ServiceCategory = "content writing"
	CategoryDigitalMarketing  ServiceCategory = "digital marketing"
	CategoryVideoEditing      ServiceCategory = "video editing"
	CategoryConsulting        ServiceCategory = "consulting"
	CategoryLegal             ServiceCategory = "legal"
	CategoryAccounting        ServiceCategory = "accounting"
	CategoryTutoring          ServiceCategory = "tutoring"
	CategoryOther             ServiceCategory = "other"
)

// ServiceCategories lists every valid category.
var ServiceCategories = []ServiceCategory{
	CategoryWebDevelopment,
	CategoryMobileDevelopment,
	CategoryGraphicDesign,
	CategoryContentWriting,
	CategoryDigitalMarketing,
	CategoryVideoEditing,
	CategoryConsulting,
	CategoryLegal,
	CategoryAccounting,
	CategoryTutoring,
	CategoryOther,
}

// Valid reports whether c is a known category.
func (c ServiceCategory) Valid() bool {
	for _, known := range ServiceCategories {
		if c == known {
			return true
		}
	}
	return false
}

// PricingType describes how an expert charges for a service.
type PricingType string

const (
	PricingFixed      PricingType = "fixed"
	PricingHourly     PricingType = "hourly"
	PricingNegotiable PricingType = "negotiable"
)

// LocationType describes where a service is delivered.
type LocationType string

const (
	LocationRemote LocationType = "remote"
	LocationOnsite LocationType = "onsite"
	LocationHybrid LocationType = "hybrid"
)

// ServiceStatus is the listing state of a service.
type ServiceStatus string

const (
	// ServiceStatusActive services accept applications.
	ServiceStatusActive ServiceStatus = "active"
	// ServiceStatusPaused services are hidden from new applications.
	ServiceStatusPaused ServiceStatus = "paused"
	// ServiceStatusCompleted services have been delivered.
	ServiceStatusCompleted ServiceStatus = "completed"
	// ServiceStatusCancelled services were withdrawn by the expert.
	ServiceStatusCancelled ServiceStatus = "cancelled"
)

// Valid reports whether s is a known service status.
func (s ServiceStatus) Valid() bool {
	switch s {
	case ServiceStatusActive, ServiceStatusPaused, ServiceStatusCompleted, ServiceStatusCancelled:
		return true
	}
	return false
}

// Pricing is how much an expert asks for a service.
type Pricing struct {
	Type     PricingType `gorm:"type:varchar(20);not null;default:'fixed'" json:"type"`
	Amount   *float64    `gorm:"index" json:"amount,omitempty"`
	Currency string      `gorm:"size:3;not null;default:'USD'" json:"currency"`
}

// Validate enforces that every non-negotiable price carries an amount.
func (p Pricing) Validate() error {
	switch p.Type {
	case PricingFixed, PricingHourly, PricingNegotiable:
	default:
		return NewFieldValidationError("Invalid pricing", map[string]string{
			"pricing.type": "Pricing must be fixed, hourly or negotiable",
		})
	}
	if p.Amount != nil && *p.Amount < 0 {
		return NewFieldValidationError("Invalid pricing", map[string]string{
			"pricing.amount": "Amount cannot be negative",
		})
	}
	if p.Type != PricingNegotiable && p.Amount == nil {
		return NewFieldValidationError("Invalid pricing", map[string]string{
			"pricing.amount": "Amount is required for fixed and hourly pricing",
		})
	}
	return nil
}

// Normalize fills defaults and canonicalizes the currency code.
func (p *Pricing) Normalize() {
	if p.Type == "" {
		p.Type = PricingFixed
	}
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.Currency == "" {
		p.Currency = "USD"
	}
}

// ServiceLocation says where the work happens.
type ServiceLocation struct {
	Type    LocationType `gorm:"type:varchar(20);not null;default:'remote';index" json:"type"`
	Address string       `gorm:"size:255" json:"address,omitempty"`
	City    string       `gorm:"size:100" json:"city,omitempty"`
	State   string       `gorm:"size:100" json:"state,omitempty"`
	Country string       `gorm:"size:100" json:"country,omitempty"`
}

// Service is a unit of work offered by an expert.
type Service struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	ExpertID          uint            `gorm:"not null;index" json:"expert_id"`
	Expert            *User           `gorm:"foreignKey:ExpertID" json:"-"`
	Title             string          `gorm:"size:100;not null" json:"title"`
	Description       string          `gorm:"type:text;not null" json:"description"`
	Category          ServiceCategory `gorm:"type:varchar(40);not null;index" json:"category"`
	Subcategory       string          `gorm:"size:100" json:"subcategory,omitempty"`
	Pricing           Pricing         `gorm:"embedded;embeddedPrefix:pricing_" json:"pricing"`
	Duration          string          `gorm:"size:100;not null" json:"duration"`
	Requirements      []string        `gorm:"serializer:json;type:text" json:"requirements,omitempty"`
	Tags              []string        `gorm:"serializer:json;type:text" json:"tags,omitempty"`
	Images            []string        `gorm:"serializer:json;type:text" json:"images,omitempty"`
	Status            ServiceStatus   `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Location          ServiceLocation `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	ApplicationsCount int             `gorm:"not null;default:0" json:"applications_count"`
	ViewsCount        int             `gorm:"not null;default:0" json:"views_count"`
	IsFeatured        bool            `gorm:"not null;default:false" json:"is_featured"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	Applications      []Application   `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OwnedBy reports whether userID is the expert who published the service.
func (s *Service) OwnedBy(userID uint) bool {
	return s != nil && s.ExpertID == userID
}

// ServiceView is a service with its expert's public profile.
type ServiceView struct {
	*Service
	Expert *PublicProfile `json:"expert,omitempty"`
}

// View wraps the service for JSON output.
func (s *Service) View() ServiceView {
	return ServiceView{Service: s, Expert: s.Expert.Public()}
}

// ServiceDetail is a service as returned from the detail endpoint.
type ServiceDetail struct {
	ServiceView
	PendingApplications []ApplicationSummary `json:"pending_applications"`
}
