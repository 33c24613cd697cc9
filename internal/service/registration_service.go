package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/san-edu/registrar-api/internal/models"
	"github.com/san-edu/registrar-api/internal/schedule"
	"github.com/san-edu/registrar-api/pkg/config"
	appErrors "github.com/san-edu/registrar-api/pkg/errors"
)

type courseStore interface {
	FindByID(ctx context.Context, id string) (*models.CourseOffering, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.CourseOffering, error)
	IncrementEnrolled(ctx context.Context, ext sqlx.ExtContext, id string) (bool, error)
	DecrementEnrolled(ctx context.Context, ext sqlx.ExtContext, id string) error
}

type enrollmentStore interface {
	ListActiveCoursesByStudent(ctx context.Context, studentID string) ([]models.CourseOffering, error)
	FindByStudentAndCourse(ctx context.Context, ext sqlx.ExtContext, studentID, courseID string) (*models.Enrollment, error)
	Create(ctx context.Context, ext sqlx.ExtContext, enrollment *models.Enrollment) error
	Reactivate(ctx context.Context, ext sqlx.ExtContext, id string) error
	MarkDropped(ctx context.Context, ext sqlx.ExtContext, id string, droppedAt time.Time) error
	DropAllActive(ctx context.Context, ext sqlx.ExtContext, studentID string, droppedAt time.Time) ([]string, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// RegisterRequest is a batch of course offerings a student wants to take.
// Order matters: candidates are validated front to back and the first
// rejection aborts the whole batch.
type RegisterRequest struct {
	CourseIDs []string `json:"course_ids" validate:"required,min=1,dive,required"`
}

// RegistrationResult reports a committed batch.
type RegistrationResult struct {
	Registered      []string `json:"registered"`
	AlreadyEnrolled []string `json:"already_enrolled,omitempty"`
	TotalCredits    float64  `json:"total_credits"`
}

// RegistrationService runs the registration workflows: batch register with
// all-or-nothing commit, single-candidate preview, drop and semester drop.
type RegistrationService struct {
	db          txProvider
	courses     courseStore
	enrollments enrollmentStore
	schedules   *schedule.Validator
	cfg         config.RegistrationConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(db txProvider, courses courseStore, enrollments enrollmentStore, schedules *schedule.Validator, cfg config.RegistrationConfig, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		db:          db,
		courses:     courses,
		enrollments: enrollments,
		schedules:   schedules,
		cfg:         cfg,
		validator:   validate,
		logger:      logger,
	}
}

// Register validates the whole batch against the student's current schedule
// and, only if every candidate passes, commits it in a single transaction.
// Each validated candidate joins the baseline for the ones after it, so two
// mutually conflicting courses in one request are caught even when neither
// conflicts with anything already held. The resulting load must land within
// the configured credit band. Seat counters are re-checked inside the
// transaction; a section that filled up since validation rolls the whole
// batch back.
func (s *RegistrationService) Register(ctx context.Context, studentID string, req RegisterRequest) (*RegistrationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	baseline, err := s.enrollments.ListActiveCoursesByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current enrollments")
	}

	candidates, err := s.loadCandidates(ctx, req.CourseIDs)
	if err != nil {
		return nil, err
	}

	enrolledIDs := make(map[string]bool, len(baseline))
	load := 0.0
	for _, held := range baseline {
		enrolledIDs[held.ID] = true
		load += held.Credits
	}

	result := &RegistrationResult{}
	running := baseline
	var accepted []models.CourseOffering
	for _, candidate := range candidates {
		if enrolledIDs[candidate.ID] {
			result.AlreadyEnrolled = append(result.AlreadyEnrolled, candidate.ID)
			continue
		}
		if decision := s.schedules.Validate(candidate, running); !decision.Allowed {
			return nil, decisionError(candidate, decision)
		}
		load += candidate.Credits
		if load > s.cfg.MaxCredits {
			return nil, appErrors.Clone(appErrors.ErrCreditLimit,
				fmt.Sprintf("adding %s brings the load to %.1f credits, above the %.1f maximum", candidate.Code, load, s.cfg.MaxCredits)).
				WithDetails(map[string]string{"failed_course_id": candidate.ID})
		}
		running = append(running, candidate)
		accepted = append(accepted, candidate)
	}

	if len(accepted) > 0 {
		if load < s.cfg.MinCredits {
			return nil, appErrors.Clone(appErrors.ErrCreditLimit,
				fmt.Sprintf("total load %.1f credits is below the %.1f minimum", load, s.cfg.MinCredits))
		}
		if err := s.commit(ctx, studentID, accepted); err != nil {
			return nil, err
		}
		for _, course := range accepted {
			result.Registered = append(result.Registered, course.ID)
		}
	}
	result.TotalCredits = load

	if len(result.Registered) == 0 {
		s.logger.Info("registration batch skipped, nothing new to commit",
			zap.String("student_id", studentID),
			zap.Int("already_enrolled", len(result.AlreadyEnrolled)))
		return result, nil
	}
	s.logger.Info("registration batch committed",
		zap.String("student_id", studentID),
		zap.Int("registered", len(result.Registered)),
		zap.Int("already_enrolled", len(result.AlreadyEnrolled)),
		zap.Float64("total_credits", load))
	return result, nil
}

// loadCandidates resolves course IDs into offerings, preserving request order.
func (s *RegistrationService) loadCandidates(ctx context.Context, courseIDs []string) ([]models.CourseOffering, error) {
	fetched, err := s.courses.FindByIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	byID := make(map[string]models.CourseOffering, len(fetched))
	for _, course := range fetched {
		byID[course.ID] = course
	}

	candidates := make([]models.CourseOffering, 0, len(courseIDs))
	seen := make(map[string]bool, len(courseIDs))
	for _, id := range courseIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		course, ok := byID[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", id))
		}
		candidates = append(candidates, course)
	}
	return candidates, nil
}

func (s *RegistrationService) commit(ctx context.Context, studentID string, accepted []models.CourseOffering) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin registration transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, course := range accepted {
		ok, incErr := s.courses.IncrementEnrolled(ctx, tx, course.ID)
		if incErr != nil {
			err = appErrors.Wrap(incErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
			return err
		}
		if !ok {
			err = appErrors.Clone(appErrors.ErrCourseFull,
				fmt.Sprintf("%s filled up while the registration was being processed", course.Code)).
				WithDetails(map[string]string{"failed_course_id": course.ID})
			return err
		}

		existing, findErr := s.enrollments.FindByStudentAndCourse(ctx, tx, studentID, course.ID)
		if findErr != nil {
			err = appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment record")
			return err
		}
		if existing == nil {
			record := &models.Enrollment{StudentID: studentID, CourseID: course.ID}
			if createErr := s.enrollments.Create(ctx, tx, record); createErr != nil {
				err = appErrors.Wrap(createErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
				return err
			}
		} else {
			if reactErr := s.enrollments.Reactivate(ctx, tx, existing.ID); reactErr != nil {
				err = appErrors.Wrap(reactErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate enrollment")
				return err
			}
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = appErrors.Wrap(commitErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit registration")
		return err
	}
	return nil
}

// ValidateCandidate previews the decision for one course against the
// student's current schedule without committing anything.
func (s *RegistrationService) ValidateCandidate(ctx context.Context, studentID, courseID string) (*schedule.Decision, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	baseline, err := s.enrollments.ListActiveCoursesByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current enrollments")
	}

	decision := s.schedules.Validate(*course, baseline)
	return &decision, nil
}

// Drop removes one course from the student's schedule. A drop that would
// leave the enrolled load below the configured minimum is refused; use
// DropSemester to clear the schedule entirely.
func (s *RegistrationService) Drop(ctx context.Context, studentID, courseID string) (err error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	baseline, err := s.enrollments.ListActiveCoursesByStudent(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current enrollments")
	}
	enrolled := false
	load := 0.0
	for _, held := range baseline {
		load += held.Credits
		if held.ID == courseID {
			enrolled = true
		}
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("not enrolled in %s", course.Code))
	}
	if remaining := load - course.Credits; remaining < s.cfg.MinCredits {
		return appErrors.Clone(appErrors.ErrCreditLimit,
			fmt.Sprintf("dropping %s leaves %.1f credits, below the %.1f minimum", course.Code, remaining, s.cfg.MinCredits))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin drop transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record, err := s.enrollments.FindByStudentAndCourse(ctx, tx, studentID, courseID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment record")
		return err
	}
	if record == nil || record.Status != models.EnrollmentStatusEnrolled {
		err = appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("not enrolled in %s", course.Code))
		return err
	}

	if err = s.enrollments.MarkDropped(ctx, tx, record.ID, time.Now().UTC()); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
		return err
	}
	if err = s.courses.DecrementEnrolled(ctx, tx, courseID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release seat")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit drop")
		return err
	}

	s.logger.Info("course dropped",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID))
	return nil
}

// DropSemester drops every enrolled course and releases all seats in one
// transaction. It returns the number of courses dropped.
func (s *RegistrationService) DropSemester(ctx context.Context, studentID string) (dropped int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin drop transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	courseIDs, err := s.enrollments.DropAllActive(ctx, tx, studentID, time.Now().UTC())
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollments")
		return 0, err
	}
	for _, courseID := range courseIDs {
		if err = s.courses.DecrementEnrolled(ctx, tx, courseID); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release seat")
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit semester drop")
		return 0, err
	}

	s.logger.Info("semester dropped",
		zap.String("student_id", studentID),
		zap.Int("courses", len(courseIDs)))
	return len(courseIDs), nil
}

// decisionError maps a validator rejection onto the matching typed error,
// keeping the human-readable detail and identifying the rejected candidate
// (and the enrollment it clashed with) in machine-readable form.
func decisionError(candidate models.CourseOffering, decision schedule.Decision) *appErrors.Error {
	var base *appErrors.Error
	switch decision.Reason {
	case schedule.ReasonDuplicateCourse:
		base = appErrors.ErrDuplicateCourse
	case schedule.ReasonCourseFull:
		base = appErrors.ErrCourseFull
	case schedule.ReasonTimeConflict:
		base = appErrors.ErrTimeConflict
	default:
		base = appErrors.ErrConflict
	}

	details := map[string]string{"failed_course_id": candidate.ID}
	if decision.ConflictingID != "" {
		details["conflicting_course_id"] = decision.ConflictingID
	}
	return appErrors.Clone(base, decision.Detail).WithDetails(details)
}
