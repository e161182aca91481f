package storage

import (
	"time"

	"valuation-backend/internal/catalog"
)

type ReportStatus string

const (
	StatusDraft     ReportStatus = "draft"
	StatusSubmitted ReportStatus = "submitted"
	StatusReviewed  ReportStatus = "reviewed"
	StatusApproved  ReportStatus = "approved"
	StatusRejected  ReportStatus = "rejected"
)

// transitions lists the statuses reachable from each status. Rejection is the
// only way back to draft.
var transitions = map[ReportStatus][]ReportStatus{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusReviewed, StatusRejected},
	StatusReviewed:  {StatusApproved, StatusRejected},
	StatusRejected:  {StatusDraft},
}

func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusReviewed, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Report struct {
	ID              string                        `json:"reportId" bson:"_id"`
	OrganizationID  string                        `json:"organizationId" bson:"organizationId"`
	ReferenceNumber string                        `json:"referenceNumber" bson:"referenceNumber"`
	BankCode        string                        `json:"bankCode" bson:"bankCode"`
	PropertyType    string                        `json:"propertyType" bson:"propertyType"`
	TemplateID      string                        `json:"templateId" bson:"templateId"`
	Status          ReportStatus                  `json:"status" bson:"status"`
	Values          map[string]any                `json:"values" bson:"values"`
	TableStates     map[string]catalog.TableState `json:"tableStates,omitempty" bson:"tableStates,omitempty"`
	Version         int64                         `json:"version" bson:"version"`
	CreatedBy       string                        `json:"createdBy" bson:"createdBy"`
	UpdatedBy       string                        `json:"updatedBy" bson:"updatedBy"`
	CreatedAt       time.Time                     `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time                     `json:"updatedAt" bson:"updatedAt"`
}

type ReportFilter struct {
	Status       ReportStatus
	BankCode     string
	PropertyType string
	CreatedBy    string
	Limit        int64
	Offset       int64
}
