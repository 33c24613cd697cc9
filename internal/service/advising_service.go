package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/san-edu/registrar-api/internal/models"
	appErrors "github.com/san-edu/registrar-api/pkg/errors"
)

type advisingRepository interface {
	List(ctx context.Context) ([]models.AdvisingWindow, error)
	Create(ctx context.Context, window *models.AdvisingWindow) error
	Delete(ctx context.Context, id string) error
}

type completedCreditsReader interface {
	SumCompletedCredits(ctx context.Context, studentID string) (float64, error)
}

// CreateAdvisingWindowRequest is the admin payload for opening a window.
type CreateAdvisingWindowRequest struct {
	MinCredits float64   `json:"min_credits" validate:"min=0"`
	MaxCredits float64   `json:"max_credits" validate:"required,gtfield=MinCredits"`
	StartsAt   time.Time `json:"starts_at" validate:"required"`
	EndsAt     time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

// AdvisingService gates registration on advising windows. Students are
// bucketed by completed credits; a window admits the bucket between its start
// and end times.
type AdvisingService struct {
	windows   advisingRepository
	credits   completedCreditsReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAdvisingService constructs AdvisingService.
func NewAdvisingService(windows advisingRepository, credits completedCreditsReader, validate *validator.Validate, logger *zap.Logger) *AdvisingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisingService{windows: windows, credits: credits, validator: validate, logger: logger, now: time.Now}
}

// CheckAccess reports whether a student may register right now. If no window
// is currently open for the student's credit bucket but a future one exists,
// the verdict carries its opening time.
func (s *AdvisingService) CheckAccess(ctx context.Context, studentID string) (*models.AdvisingAccess, error) {
	completed, err := s.credits.SumCompletedCredits(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total completed credits")
	}

	windows, err := s.windows.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advising windows")
	}

	now := s.now()
	var nextOpening *time.Time
	for _, window := range windows {
		if completed < window.MinCredits || completed > window.MaxCredits {
			continue
		}
		if !now.Before(window.StartsAt) && now.Before(window.EndsAt) {
			return &models.AdvisingAccess{
				Allowed:          true,
				CompletedCredits: completed,
				Message:          "advising window is open",
			}, nil
		}
		if now.Before(window.StartsAt) && (nextOpening == nil || window.StartsAt.Before(*nextOpening)) {
			opensAt := window.StartsAt
			nextOpening = &opensAt
		}
	}

	access := &models.AdvisingAccess{CompletedCredits: completed}
	if nextOpening != nil {
		access.OpensAt = nextOpening
		access.Message = fmt.Sprintf("advising opens at %s for your credit group", nextOpening.Format(time.RFC3339))
	} else {
		access.Message = "no advising window is scheduled for your credit group"
	}
	return access, nil
}

// ListWindows returns all advising windows.
func (s *AdvisingService) ListWindows(ctx context.Context) ([]models.AdvisingWindow, error) {
	windows, err := s.windows.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advising windows")
	}
	return windows, nil
}

// CreateWindow opens a new advising window.
func (s *AdvisingService) CreateWindow(ctx context.Context, req CreateAdvisingWindowRequest) (*models.AdvisingWindow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid advising window payload")
	}

	window := &models.AdvisingWindow{
		MinCredits: req.MinCredits,
		MaxCredits: req.MaxCredits,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
	}
	if err := s.windows.Create(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create advising window")
	}

	s.logger.Info("advising window created",
		zap.String("window_id", window.ID),
		zap.Float64("min_credits", window.MinCredits),
		zap.Float64("max_credits", window.MaxCredits))
	return window, nil
}

// DeleteWindow removes an advising window.
func (s *AdvisingService) DeleteWindow(ctx context.Context, id string) error {
	if err := s.windows.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete advising window")
	}
	return nil
}
