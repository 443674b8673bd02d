package internal

import (
	"net/http"

	"github.com/derWhity/eventdesk/internal/ctxhelper"
	"github.com/derWhity/eventdesk/internal/log"
	"github.com/derWhity/eventdesk/internal/repos"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// DiscoveryService answers the public filtered, sorted and paginated event search
type DiscoveryService interface {
	// Search returns one page of events matching the request plus the total match count
	Search(ctx context.Context, req EventSearch) (*EventPage, error)
}

type discoveryService struct {
	repo   repos.EventRepo
	cs     ConfigService
	logger *logrus.Entry
}

// NewDiscoveryService creates a new discovery service instance
func NewDiscoveryService(repo repos.EventRepo, cs ConfigService, logger *logrus.Entry) DiscoveryService {
	return &discoveryService{
		repo:   repo,
		cs:     cs,
		logger: logger,
	}
}

// sortOrder validates the requested sorting and falls back to the default ordering
// (start time, newest first) for an unknown sort attribute
func sortOrder(req EventSearch) (repos.SortOrder, error) {
	order := repos.SortOrder{Field: repos.SortByStartTime}
	switch req.SortDir {
	case "", "desc":
		order.Ascending = false
	case "asc":
		order.Ascending = true
	default:
		return order, MakeError(http.StatusBadRequest, ErrCodeValidationFailed,
			"The sort direction has to be 'asc' or 'desc'",
		)
	}
	if field := repos.SortField(req.SortBy); field.Valid() {
		order.Field = field
	}
	return order, nil
}

// Search returns one page of events matching the request plus the total match count
func (s *discoveryService) Search(ctx context.Context, req EventSearch) (*EventPage, error) {
	logger := ctxhelper.Logger(ctx)
	status, err := parseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	order, err := sortOrder(req)
	if err != nil {
		return nil, err
	}
	conf := s.cs.GetConfig(ctx).Pagination
	offset, limit, err := req.bounds(conf)
	if err != nil {
		return nil, err
	}
	filter := repos.EventFilter{
		Query:    req.Query,
		Category: req.Category,
		Location: req.Location,
		Status:   status,
		Tags:     req.Tags,
		From:     req.From,
		To:       req.To,
		// Archived events never show up in public discovery
		IncludeArchived: false,
	}
	logger.WithFields(logrus.Fields{
		log.FldSearch:   req.Query,
		log.FldCategory: req.Category,
		log.FldPage:     req.Page,
		log.FldPageSize: req.PageSize,
	}).Debug("Discovery search")
	items, total, err := s.repo.Find(filter, order, offset, limit)
	if err != nil {
		return nil, MakeErrorWithData(http.StatusInternalServerError, ErrCodeRepoError,
			"Error while searching events", err,
		)
	}
	page := req.Page
	if page == 0 {
		page = 1
	}
	size := req.PageSize
	if size == 0 {
		size = int(conf.DefaultPageSize)
	}
	return &EventPage{Total: total, Page: page, PageSize: size, Items: items}, nil
}
