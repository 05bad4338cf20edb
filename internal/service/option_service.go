package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/mas-api/internal/models"
	appErrors "github.com/noah-isme/mas-api/pkg/errors"
)

type optionCatalog interface {
	GetBuilding(ctx context.Context, id string) (*models.Building, error)
	ListBuildings(ctx context.Context, projectID string) ([]models.Building, error)
	ListServices(ctx context.Context, ids []string) ([]models.Service, error)
	ListItems(ctx context.Context, serviceID string) ([]models.Item, error)
	ListMakes(ctx context.Context, itemID string) ([]models.ItemMake, error)
}

type optionAssignments interface {
	VendorAssignment(ctx context.Context, userID, projectID string) (*models.VendorAssignment, error)
}

type latestItemReader interface {
	LatestItemIDs(ctx context.Context, creatorID, projectID string) ([]string, error)
}

// OptionService serves the vendor submission form lookups.
type OptionService struct {
	catalog     optionCatalog
	assignments optionAssignments
	mas         latestItemReader
	cache       *CacheService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewOptionService constructs the lookup service. cache may be nil.
func NewOptionService(catalog optionCatalog, assignments optionAssignments, mas latestItemReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *OptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &OptionService{catalog: catalog, assignments: assignments, mas: mas, cache: cache, ttl: ttl, logger: logger}
}

// Buildings lists the assigned building, or every project building when the
// vendor is not pinned to one.
func (s *OptionService) Buildings(ctx context.Context, actor *models.JWTClaims, projectID string) ([]models.Option, error) {
	if projectID == "" {
		return nil, appErrors.FieldError("project", "project is required")
	}
	assignment, err := s.assignment(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if assignment != nil && assignment.BuildingID != nil {
		building, err := s.catalog.GetBuilding(ctx, *assignment.BuildingID)
		if err != nil {
			return nil, lookupFailure(err, "building")
		}
		return []models.Option{{ID: building.ID, Name: building.Name}}, nil
	}
	buildings, err := s.catalog.ListBuildings(ctx, projectID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list buildings")
	}
	options := make([]models.Option, 0, len(buildings))
	for _, b := range buildings {
		options = append(options, models.Option{ID: b.ID, Name: b.Name})
	}
	return options, nil
}

// Services lists the assigned services, or every service when none are assigned.
func (s *OptionService) Services(ctx context.Context, actor *models.JWTClaims, projectID string) ([]models.Option, error) {
	if projectID == "" {
		return nil, appErrors.FieldError("project", "project is required")
	}
	assignment, err := s.assignment(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	var ids []string
	if assignment != nil {
		ids = assignment.ServiceIDs
	}
	services, err := s.catalog.ListServices(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list services")
	}
	options := make([]models.Option, 0, len(services))
	for _, svc := range services {
		options = append(options, models.Option{ID: svc.ID, Name: svc.DisplayName()})
	}
	return options, nil
}

// Items lists a service's items, leaving out items the vendor already holds a
// latest MAS for in the project.
func (s *OptionService) Items(ctx context.Context, actor *models.JWTClaims, projectID, serviceID string) ([]models.Option, error) {
	if serviceID == "" {
		return nil, appErrors.FieldError("service", "service is required")
	}
	if projectID == "" {
		return nil, appErrors.FieldError("project", "project is required")
	}

	key := itemOptionsCacheKey(actor.UserID, projectID, serviceID)
	return loadThrough(ctx, s.cache, key, s.ttl, func() ([]models.Option, error) {
		return s.availableItems(ctx, actor.UserID, projectID, serviceID)
	})
}

func (s *OptionService) availableItems(ctx context.Context, vendorID, projectID, serviceID string) ([]models.Option, error) {
	items, err := s.catalog.ListItems(ctx, serviceID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list items")
	}
	taken, err := s.mas.LatestItemIDs(ctx, vendorID, projectID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list submitted items")
	}
	excluded := mapset.NewThreadUnsafeSet(taken...)

	options := make([]models.Option, 0, len(items))
	for _, item := range items {
		if excluded.Contains(item.ID) {
			continue
		}
		options = append(options, models.Option{ID: item.ID, Name: item.Name})
	}
	return options, nil
}

// Makes lists an item's makes followed by the free-text "Other" choice.
func (s *OptionService) Makes(ctx context.Context, itemID string) ([]models.Option, error) {
	if itemID == "" {
		return nil, appErrors.FieldError("item", "item is required")
	}
	makes, err := s.catalog.ListMakes(ctx, itemID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list makes")
	}
	options := make([]models.Option, 0, len(makes)+1)
	for _, m := range makes {
		options = append(options, models.Option{ID: m.ID, Name: m.Name})
	}
	return append(options, models.Option{ID: models.MakeOther, Name: "Other"}), nil
}

// assignment returns nil without error when the vendor has no assignment.
func (s *OptionService) assignment(ctx context.Context, actor *models.JWTClaims, projectID string) (*models.VendorAssignment, error) {
	assignment, err := s.assignments.VendorAssignment(ctx, actor.UserID, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load vendor assignment")
	}
	return assignment, nil
}
