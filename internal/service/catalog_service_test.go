package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/san-edu/registrar-api/internal/models"
)

type stubCatalogRepo struct {
	entries      []models.CatalogEntry
	total        int
	course       *models.CourseOffering
	updateOK     bool
	updateCalled bool
	listCalls    int
}

func (s *stubCatalogRepo) FindByID(_ context.Context, _ string) (*models.CourseOffering, error) {
	if s.course == nil {
		return nil, sql.ErrNoRows
	}
	return s.course, nil
}

func (s *stubCatalogRepo) ListCatalog(_ context.Context, _ models.CourseFilter) ([]models.CatalogEntry, int, error) {
	s.listCalls++
	return s.entries, s.total, nil
}

func (s *stubCatalogRepo) UpdateCapacity(_ context.Context, _ string, _ int) (bool, error) {
	s.updateCalled = true
	return s.updateOK, nil
}

func TestCatalogListWithoutCache(t *testing.T) {
	repo := &stubCatalogRepo{
		entries: []models.CatalogEntry{{
			CourseOffering: models.CourseOffering{ID: "c1", Code: "CSE101", Capacity: 40, EnrolledCount: 12},
			Seats:          28,
		}},
		total: 1,
	}
	svc := NewCatalogService(repo, NewCacheService(nil, nil, 0, zap.NewNop(), false), zap.NewNop())

	entries, pagination, err := svc.List(context.Background(), models.CourseFilter{Department: "CSE"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 28, entries[0].Seats)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, repo.listCalls)
}

func TestUpdateCapacityRefusedBelowEnrolled(t *testing.T) {
	repo := &stubCatalogRepo{
		course:   &models.CourseOffering{ID: "c1", Code: "CSE101", Capacity: 40, EnrolledCount: 35},
		updateOK: false,
	}
	svc := NewCatalogService(repo, NewCacheService(nil, nil, 0, zap.NewNop(), false), zap.NewNop())

	_, err := svc.UpdateCapacity(context.Background(), "c1", UpdateCapacityRequest{Capacity: 30})
	require.Error(t, err)
	typed := appError(t, err)
	assert.Equal(t, "PRECONDITION_FAILED", typed.Code)
	assert.Contains(t, typed.Message, "35")
	assert.True(t, repo.updateCalled)
}

func TestUpdateCapacityNotFound(t *testing.T) {
	repo := &stubCatalogRepo{updateOK: false}
	svc := NewCatalogService(repo, NewCacheService(nil, nil, 0, zap.NewNop(), false), zap.NewNop())

	_, err := svc.UpdateCapacity(context.Background(), "missing", UpdateCapacityRequest{Capacity: 30})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appError(t, err).Code)
}

func TestUpdateCapacity(t *testing.T) {
	repo := &stubCatalogRepo{
		course:   &models.CourseOffering{ID: "c1", Code: "CSE101", Capacity: 50, EnrolledCount: 35},
		updateOK: true,
	}
	svc := NewCatalogService(repo, NewCacheService(nil, nil, 0, zap.NewNop(), false), zap.NewNop())

	course, err := svc.UpdateCapacity(context.Background(), "c1", UpdateCapacityRequest{Capacity: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, course.Capacity)
}
