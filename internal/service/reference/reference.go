// Package reference assigns the organization-scoped reference numbers that
// identify reports outside the system.
package reference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"valuation-backend/internal/storage"
)

type OrganizationStorage interface {
	GetOrganization(ctx context.Context, shortName string) (*storage.Organization, error)
	// IncrementReferenceCounter atomically increments the counter and returns
	// the new value.
	IncrementReferenceCounter(ctx context.Context, shortName string) (int64, error)
}

type Service struct {
	storage OrganizationStorage
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(storage OrganizationStorage, opts ...Option) *Service {
	s := &Service{storage: storage, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Next returns the organization's next reference number,
// INITIALS-YYYYMMDD-NNNN with the date in UTC. An organization without
// initials fails with storage.ErrConfiguration; no number is invented.
func (s *Service) Next(ctx context.Context, orgShortName string) (string, error) {
	const op = "service.reference.Next"

	org, err := s.storage.GetOrganization(ctx, orgShortName)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	initials := strings.TrimSpace(org.ReferenceInitials)
	if initials == "" {
		return "", fmt.Errorf("%s: organization %s has no reference initials: %w", op, orgShortName, storage.ErrConfiguration)
	}

	counter, err := s.storage.IncrementReferenceCounter(ctx, orgShortName)
	if err != nil {
		return "", fmt.Errorf("%s: increment counter: %w", op, err)
	}

	return Format(initials, s.now(), counter), nil
}

func Format(initials string, at time.Time, counter int64) string {
	return fmt.Sprintf("%s-%s-%04d", initials, at.UTC().Format("20060102"), counter)
}
