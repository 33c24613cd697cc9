package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/san-edu/registrar-api/internal/models"
)

type stubWindowRepo struct {
	windows []models.AdvisingWindow
	created []*models.AdvisingWindow
	deleted []string
}

func (s *stubWindowRepo) List(_ context.Context) ([]models.AdvisingWindow, error) {
	return s.windows, nil
}

func (s *stubWindowRepo) Create(_ context.Context, window *models.AdvisingWindow) error {
	window.ID = "win-1"
	s.created = append(s.created, window)
	return nil
}

func (s *stubWindowRepo) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubCreditsReader struct {
	completed float64
}

func (s *stubCreditsReader) SumCompletedCredits(_ context.Context, _ string) (float64, error) {
	return s.completed, nil
}

func newAdvisingService(windows *stubWindowRepo, completed float64, now time.Time) *AdvisingService {
	svc := NewAdvisingService(windows, &stubCreditsReader{completed: completed}, nil, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestCheckAccessOpenWindow(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	windows := &stubWindowRepo{windows: []models.AdvisingWindow{
		{ID: "w1", MinCredits: 0, MaxCredits: 30, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)},
		{ID: "w2", MinCredits: 31, MaxCredits: 60, StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(26 * time.Hour)},
	}}
	svc := newAdvisingService(windows, 24, now)

	access, err := svc.CheckAccess(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.True(t, access.Allowed)
	assert.Equal(t, 24.0, access.CompletedCredits)
}

func TestCheckAccessFutureWindow(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	opens := now.Add(48 * time.Hour)
	windows := &stubWindowRepo{windows: []models.AdvisingWindow{
		{ID: "w1", MinCredits: 0, MaxCredits: 30, StartsAt: opens, EndsAt: opens.Add(2 * time.Hour)},
	}}
	svc := newAdvisingService(windows, 12, now)

	access, err := svc.CheckAccess(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, access.Allowed)
	require.NotNil(t, access.OpensAt)
	assert.True(t, access.OpensAt.Equal(opens))
}

func TestCheckAccessCreditGroupMismatch(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	windows := &stubWindowRepo{windows: []models.AdvisingWindow{
		{ID: "w1", MinCredits: 0, MaxCredits: 30, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)},
	}}
	// 75 completed credits fits no configured window.
	svc := newAdvisingService(windows, 75, now)

	access, err := svc.CheckAccess(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, access.Allowed)
	assert.Nil(t, access.OpensAt)
	assert.NotEmpty(t, access.Message)
}

func TestCheckAccessExpiredWindow(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	windows := &stubWindowRepo{windows: []models.AdvisingWindow{
		{ID: "w1", MinCredits: 0, MaxCredits: 30, StartsAt: now.Add(-4 * time.Hour), EndsAt: now.Add(-2 * time.Hour)},
	}}
	svc := newAdvisingService(windows, 12, now)

	access, err := svc.CheckAccess(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, access.Allowed)
}

func TestCreateWindowValidatesRange(t *testing.T) {
	windows := &stubWindowRepo{}
	svc := NewAdvisingService(windows, &stubCreditsReader{}, nil, zap.NewNop())

	_, err := svc.CreateWindow(context.Background(), CreateAdvisingWindowRequest{
		MinCredits: 30,
		MaxCredits: 10,
		StartsAt:   time.Now(),
		EndsAt:     time.Now().Add(time.Hour),
	})
	require.Error(t, err)
	assert.Empty(t, windows.created)
}

func TestCreateWindow(t *testing.T) {
	windows := &stubWindowRepo{}
	svc := NewAdvisingService(windows, &stubCreditsReader{}, nil, zap.NewNop())

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	window, err := svc.CreateWindow(context.Background(), CreateAdvisingWindowRequest{
		MinCredits: 0,
		MaxCredits: 30,
		StartsAt:   start,
		EndsAt:     start.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "win-1", window.ID)
	require.Len(t, windows.created, 1)
}
