package eventbus

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReportCreated       = "report.created"
	ReportUpdated       = "report.updated"
	ReportStatusChanged = "report.status_changed"
	ReportDeleted       = "report.deleted"
	ReferenceAssigned   = "reference.assigned"
	UserLoggedIn        = "user.logged_in"
	TemplateUploaded    = "template.uploaded"
	FileUploaded        = "file.uploaded"
)

// Event is something that happened to an entity of an organization.
type Event struct {
	ID             string
	Type           string
	OrganizationID string
	UserID         string
	EntityType     string
	EntityID       string
	Summary        string
	OccurredAt     time.Time
}

func NewEvent(typ, org, user, entityType, entityID, summary string) Event {
	return Event{
		ID:             uuid.NewString(),
		Type:           typ,
		OrganizationID: org,
		UserID:         user,
		EntityType:     entityType,
		EntityID:       entityID,
		Summary:        summary,
		OccurredAt:     time.Now().UTC(),
	}
}
