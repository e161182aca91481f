package storage

import "time"

type Organization struct {
	ID                int64     `json:"id"`
	ShortName         string    `json:"shortName"`
	Name              string    `json:"name"`
	ReferenceInitials string    `json:"referenceInitials"`
	ReferenceCounter  int64     `json:"referenceCounter"`
	IsActive          bool      `json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
}

type User struct {
	ID           int64     `json:"id"`
	OrgShortName string    `json:"orgShortName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Roles        []string  `json:"roles"`
	Permissions  []string  `json:"permissions"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ActivityEntry is one line of the organization activity log.
type ActivityEntry struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	UserID         string    `json:"userId"`
	Action         string    `json:"action"`
	EntityType     string    `json:"entityType"`
	EntityID       string    `json:"entityId"`
	Summary        string    `json:"summary"`
	OccurredAt     time.Time `json:"occurredAt"`
}
