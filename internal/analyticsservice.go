package internal

import (
	"net/http"

	"github.com/derWhity/eventdesk/internal/ctxhelper"
	"github.com/derWhity/eventdesk/internal/log"
	"github.com/derWhity/eventdesk/internal/models"
	"github.com/derWhity/eventdesk/internal/repos"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// AnalyticsService computes the on-demand analytics snapshots
type AnalyticsService interface {
	// EventSummary returns the analytics snapshot of a single event. Only the owning
	// organizer and admins may read it; it keeps working for deleted events so the
	// history of past events stays available.
	EventSummary(ctx context.Context, eventID string) (*models.EventSummary, error)
	// PlatformSummary returns the platform-wide rollup over all live events - admin only
	PlatformSummary(ctx context.Context) (*models.PlatformSummary, error)
}

type analyticsService struct {
	repo   repos.EventRepo
	logger *logrus.Entry
}

// NewAnalyticsService creates a new analytics service instance
func NewAnalyticsService(repo repos.EventRepo, logger *logrus.Entry) AnalyticsService {
	return &analyticsService{
		repo:   repo,
		logger: logger,
	}
}

// EventSummary returns the analytics snapshot of a single event
func (s *analyticsService) EventSummary(ctx context.Context, eventID string) (*models.EventSummary, error) {
	caller := ctxhelper.Identity(ctx)
	if !caller.IsOrganizer() {
		return nil, ErrOrganizerRequired
	}
	sum, err := s.repo.Summarize(eventID)
	if err != nil {
		return nil, mapRepoError(err, eventID)
	}
	if !caller.Owns(sum.OrganizerID) {
		return nil, ErrNotEventOwner
	}
	return sum, nil
}

// PlatformSummary returns the platform-wide rollup over all live events
func (s *analyticsService) PlatformSummary(ctx context.Context) (*models.PlatformSummary, error) {
	caller := ctxhelper.Identity(ctx)
	if !caller.IsAdmin() {
		return nil, ErrAdminRequired
	}
	s.logger.WithField(log.FldUser, caller.UserID).Debug("Computing platform summary")
	sum, err := s.repo.SummarizePlatform()
	if err != nil {
		return nil, MakeErrorWithData(http.StatusInternalServerError, ErrCodeRepoError,
			"Error while aggregating platform analytics", err,
		)
	}
	return sum, nil
}
