package models

import "time"

// ApplicationStatus is a state in the application lifecycle.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

// Valid reports whether s is a known application status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected || s == ApplicationWithdrawn
}

// CanTransition reports whether the lifecycle permits moving from s to next.
// Only pending applications move, and only to a terminal state.
func (s ApplicationStatus) CanTransition(next ApplicationStatus) bool {
	return s == ApplicationPending && next.IsTerminal()
}

// IsExpertResponse reports whether s is a status an expert may answer with.
func (s ApplicationStatus) IsExpertResponse() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

// ExpertResponse is the expert's optional note when accepting or rejecting.
type ExpertResponse struct {
	Message     string     `gorm:"size:1000" json:"message,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// Application is a client's proposal against a service.
type Application struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	ServiceID        uint              `gorm:"not null;uniqueIndex:idx_application_service_client" json:"service_id"`
	Service          *Service          `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	ClientID         uint              `gorm:"not null;uniqueIndex:idx_application_service_client;index" json:"client_id"`
	Client           *User             `gorm:"foreignKey:ClientID" json:"-"`
	ExpertID         uint              `gorm:"not null;index" json:"expert_id"`
	Expert           *User             `gorm:"foreignKey:ExpertID" json:"-"`
	Message          string            `gorm:"size:1000;not null" json:"message"`
	ProposedPrice    *float64          `json:"proposed_price,omitempty"`
	ProposedTimeline string            `gorm:"size:255" json:"proposed_timeline,omitempty"`
	Attachments      []string          `gorm:"serializer:json;type:text" json:"attachments,omitempty"`
	Status           ApplicationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ExpertResponse   ExpertResponse    `gorm:"embedded;embeddedPrefix:expert_response_" json:"expert_response"`
	CreatedAt        time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ApplicationSummary is what a service page shows about a pending application.
type ApplicationSummary struct {
	ID               uint           `json:"id"`
	Client           *PublicProfile `json:"client,omitempty"`
	Message          string         `json:"message"`
	ProposedPrice    *float64       `json:"proposed_price,omitempty"`
	ProposedTimeline string         `json:"proposed_timeline,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Summary projects the application onto the fields other viewers may see.
func (a *Application) Summary() ApplicationSummary {
	return ApplicationSummary{
		ID:               a.ID,
		Client:           a.Client.Public(),
		Message:          a.Message,
		ProposedPrice:    a.ProposedPrice,
		ProposedTimeline: a.ProposedTimeline,
		CreatedAt:        a.CreatedAt,
	}
}

// ApplicationView is an application with the public profiles of both parties.
type ApplicationView struct {
	*Application
	Client *PublicProfile `json:"client,omitempty"`
	Expert *PublicProfile `json:"expert,omitempty"`
}

// View wraps the application for JSON output.
func (a *Application) View() ApplicationView {
	return ApplicationView{
		Application: a,
		Client:      a.Client.Public(),
		Expert:      a.Expert.Public(),
	}
}
