package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-edu/registrar-api/internal/models"
	appErrors "github.com/san-edu/registrar-api/pkg/errors"
)

type catalogRepository interface {
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
	ListCatalog(ctx context.Context, filter models.CourseFilter) ([]models.CatalogEntry, int, error)
	UpdateCapacity(ctx context.Context, id string, capacity int) (bool, error)
}

// UpdateCapacityRequest is the admin payload for resizing a section.
type UpdateCapacityRequest struct {
	Capacity int `json:"capacity" validate:"required,min=1"`
}

const catalogCachePrefix = "catalog:"

type catalogPage struct {
	Entries []models.CatalogEntry `json:"entries"`
	Total   int                   `json:"total"`
}

// CatalogService serves course listings with seat availability and handles
// capacity changes. Listings are cached; any capacity change invalidates the
// whole catalog prefix.
type CatalogService struct {
	repo   catalogRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo catalogRepository, cache *CacheService, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, logger: logger}
}

// List returns catalog entries with pagination metadata.
func (s *CatalogService) List(ctx context.Context, filter models.CourseFilter) ([]models.CatalogEntry, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	key := fmt.Sprintf("%s%s:%s:%d:%d", catalogCachePrefix, filter.Department, filter.Term, page, size)
	var cached catalogPage
	if s.cache.Get(ctx, key, &cached) {
		return cached.Entries, &models.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}, nil
	}

	entries, total, err := s.repo.ListCatalog(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalog")
	}

	s.cache.Set(ctx, key, catalogPage{Entries: entries, Total: total}, 0)
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one offering by ID.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.CourseOffering, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// UpdateCapacity resizes a section. Shrinking below the current enrolled
// count is refused so committed seats are never invalidated.
func (s *CatalogService) UpdateCapacity(ctx context.Context, id string, req UpdateCapacityRequest) (*models.CourseOffering, error) {
	if req.Capacity < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "capacity must be at least 1")
	}

	updated, err := s.repo.UpdateCapacity(ctx, id, req.Capacity)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update capacity")
	}
	if !updated {
		course, findErr := s.repo.FindByID(ctx, id)
		if findErr != nil {
			if findErr == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("capacity %d is below the current enrolled count %d", req.Capacity, course.EnrolledCount))
	}

	s.cache.Invalidate(ctx, catalogCachePrefix+"*")
	s.logger.Info("capacity updated", zap.String("course_id", id), zap.Int("capacity", req.Capacity))

	return s.Get(ctx, id)
}
