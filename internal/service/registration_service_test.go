package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-edu/registrar-api/internal/models"
	"github.com/san-edu/registrar-api/internal/schedule"
	"github.com/san-edu/registrar-api/pkg/config"
	appErrors "github.com/san-edu/registrar-api/pkg/errors"
)

type stubCourseStore struct {
	courses     map[string]models.CourseOffering
	fullIDs     map[string]bool
	incremented []string
	decremented []string
}

func (s *stubCourseStore) FindByID(_ context.Context, id string) (*models.CourseOffering, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (s *stubCourseStore) FindByIDs(_ context.Context, ids []string) ([]models.CourseOffering, error) {
	var out []models.CourseOffering
	for _, id := range ids {
		if course, ok := s.courses[id]; ok {
			out = append(out, course)
		}
	}
	return out, nil
}

func (s *stubCourseStore) IncrementEnrolled(_ context.Context, _ sqlx.ExtContext, id string) (bool, error) {
	if s.fullIDs[id] {
		return false, nil
	}
	s.incremented = append(s.incremented, id)
	return true, nil
}

func (s *stubCourseStore) DecrementEnrolled(_ context.Context, _ sqlx.ExtContext, id string) error {
	s.decremented = append(s.decremented, id)
	return nil
}

type stubEnrollmentStore struct {
	active      []models.CourseOffering
	records     map[string]*models.Enrollment
	created     []*models.Enrollment
	reactivated []string
	dropped     []string
	dropAllIDs  []string
}

func (s *stubEnrollmentStore) ListActiveCoursesByStudent(_ context.Context, _ string) ([]models.CourseOffering, error) {
	return s.active, nil
}

func (s *stubEnrollmentStore) FindByStudentAndCourse(_ context.Context, _ sqlx.ExtContext, _, courseID string) (*models.Enrollment, error) {
	if s.records == nil {
		return nil, nil
	}
	return s.records[courseID], nil
}

func (s *stubEnrollmentStore) Create(_ context.Context, _ sqlx.ExtContext, enrollment *models.Enrollment) error {
	s.created = append(s.created, enrollment)
	return nil
}

func (s *stubEnrollmentStore) Reactivate(_ context.Context, _ sqlx.ExtContext, id string) error {
	s.reactivated = append(s.reactivated, id)
	return nil
}

func (s *stubEnrollmentStore) MarkDropped(_ context.Context, _ sqlx.ExtContext, id string, _ time.Time) error {
	s.dropped = append(s.dropped, id)
	return nil
}

func (s *stubEnrollmentStore) DropAllActive(_ context.Context, _ sqlx.ExtContext, _ string, _ time.Time) ([]string, error) {
	return s.dropAllIDs, nil
}

func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func testOffering(id, code string, credits float64, days, timeRange string) models.CourseOffering {
	return models.CourseOffering{
		ID:         id,
		Code:       code,
		Credits:    credits,
		Capacity:   40,
		TheoryDays: days,
		TheoryTime: timeRange,
	}
}

func newRegistrationService(db *sqlx.DB, courses *stubCourseStore, enrollments *stubEnrollmentStore) *RegistrationService {
	validator := schedule.NewValidator(schedule.NewNormalizer(schedule.DefaultRules(), zap.NewNop()))
	cfg := config.RegistrationConfig{MinCredits: 9, MaxCredits: 15}
	return NewRegistrationService(db, courses, enrollments, validator, cfg, nil, zap.NewNop())
}

func appError(t *testing.T, err error) *appErrors.Error {
	t.Helper()
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	return typed
}

func TestRegisterCommitsBatch(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	courses := &stubCourseStore{courses: map[string]models.CourseOffering{
		"c1": testOffering("c1", "CSE101", 4.5, "MW", "08:30 - 10:00"),
		"c2": testOffering("c2", "CSE203", 4.5, "ST", "11:20 - 12:50"),
	}}
	enrollments := &stubEnrollmentStore{}
	svc := newRegistrationService(db, courses, enrollments)

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Register(context.Background(), "stu-1", RegisterRequest{CourseIDs: []string{"c1", "c2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, result.Registered)
	assert.Equal(t, 9.0, result.TotalCredits)
	assert.Equal(t, []string{"c1", "c2"}, courses.incremented)
	require.Len(t, enrollments.created, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterAbortsWhenBatchConflictsInternally(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	// Neither course conflicts with anything already held, but they
	// conflict with each other.
	courses := &stubCourseStore{courses: map[string]models.CourseOffering{
		"c1": testOffering("c1", "CSE101", 3, "MW", "08:30 - 10:00"),
		"c2": testOffering("c2", "CSE203", 3, "MW", "09:30 - 11:00"),
	}}
	enrollments := &stubEnrollmentStore{}
	svc := newRegistrationService(db, courses, enrollments)

	_, err := svc.Register(context.Background(), "stu-1", RegisterRequest{CourseIDs: []string{"c1", "c2"}})
	require.Error(t, err)
	typed := appError(t, err)
	assert.Equal(t, "TIME_CONFLICT", typed.Code)
	assert.Contains(t, typed.Message, "CSE203")
	assert.Contains(t, typed.Message, "CSE101")
	assert.Equal(t, "c2", typed.Details["failed_course_id"])
	assert.Equal(t, "c1", typed.Details["conflicting_course_id"])
	assert.Empty(t, courses.incremented)
	assert.Empty(t, enrollments.created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsDuplicateAgainstCurrentSchedule(t *testing.T) {
	db, _, cleanup := newTxMock(t)
	defer cleanup()
	held := testOffering("c1", "CSE101", 3, "MW", "08:30 - 10:00")
	courses := &stubCourseStore{courses: map[string]models.CourseOffering{
		"c9": testOffering("c9", "CSE101", 3, "TR", "14:00 - 15:30"),
	}}
	enrollments := &stubEnrollmentStore{active: []models.CourseOffering{held}}
	svc := newRegistrationService(db, courses, enrollments)

	_, err := svc.Register(context.Background(), "stu-1", RegisterRequest{CourseIDs: []string{"c9"}})
	require.Error(t, err)
	typed := appError(t, err)
	assert.Equal(t, "DUPLICATE_COURSE", typed.Code)
	assert.Equal(t, "c9", typed.Details["failed_course_id"])
	assert.Equal(t, "c1", typed.Details["conflicting_course_id"])
}

func TestRegisterRejectsFullCourse(t *testing.T) {
	db, _, cleanup := newTxMock(t)
	defer cleanup()
	full := testOffering("c1", "CSE101", 3, "MW", "08:30 - 10:00")
	full.EnrolledCount = full.Capacity
	courses := &stubCourseStore{courses: map[string]models.CourseOffering{"c1": full}}
	enrollments := &stubEnrollmentStore{}
	svc := newRegistrationService(db, courses, enrollments)

	_, err := svc.Register(context.Background(), "stu-1", RegisterRequest{CourseIDs: []string{"c1"}})
	require.Error(t, err)
	assert.Equal(t, "COURSE_FULL", appError(t, err).Code)
}

func TestRegisterRejectsCreditOverload(t *testing.T) {
	db, _, cleanup := newTxMock(t)
	defer cleanup()
	courses := &stubCourseStore{courses: map[string]models.CourseOffering{
		"c2": testOffering("c2", "CSE203", 4.5, "ST", "11:20 - 12:50"),
	}}
	enrollments := &stubEnrollmentStore{active: []models.CourseOffering{
		testOffering("c1", "CSE101", 12, "MW", "08:30 - 10:00"),
	}}
	svc := newRegistrationService(db, courses, enrollments)

	_, err := svc.Register(context.Background(), "stu-1", RegisterRequest{CourseIDs: []string{"c2"}})
	require.Error(t, err)
	typed := appError(t, err)
	assert.Equal(t, "CREDIT_LIMIT_EXCEEDED", typed.Code)
	assert.Equal(t, "c2", typed.Details["failed_course_id"])
	assert.Empty(t, courses.incremented)
}

func TestRegisterRejectsCreditUnderload(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	courses := &stubCourseStore{courses: map[string]models.CourseOffering{
		"c1": testOffering("c1", "CSE101", 3, "MW", "08:30 - 10:00"),
	}}
	enrollments := &stubEnrollmentStore{}
	svc := newRegistrationService(db, courses, enrollments)

	// 3 credits total is below the 9 minimum, so nothing is committed.
	_, err := svc.Register(context.Background(), "stu-1", RegisterRequest{CourseIDs: []string{"c1"}})
	require.Error(t, err)
	assert.Equal(t, "CREDIT_LIMIT_EXCEEDED", appError(t, err).Code)
	assert.Empty(t, courses.incremented)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterAlreadyEnrolledIsNoOp(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	held := testOffering("c1", "CSE101", 3, "MW", "08:30 - 10:00")
	courses := &stubCourseStore{courses: map[string]models.CourseOffering{"c1": held}}
	enrollments := &stubEnrollmentStore{active: []models.CourseOffering{held}}
	core, logs := observer.New(zap.InfoLevel)
	validator := schedule.NewValidator(schedule.NewNormalizer(schedule.DefaultRules(), zap.NewNop()))
	cfg := config.RegistrationConfig{MinCredits: 9, MaxCredits: 15}
	svc := NewRegistrationService(db, courses, enrollments, validator, cfg, nil, zap.New(core))

	// Nothing to commit, so no transaction is opened at all.
	result, err := svc.Register(context.Background(), "stu-1", RegisterRequest{CourseIDs: []string{"c1"}})
	require.NoError(t, err)
	assert.Empty(t, result.Registered)
	assert.Equal(t, []string{"c1"}, result.AlreadyEnrolled)
	assert.Empty(t, courses.incremented)
	assert.Empty(t, logs.FilterMessage("registration batch committed").All())
	assert.Len(t, logs.FilterMessage("registration batch skipped, nothing new to commit").All(), 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRollsBackWhenSeatTakenAtCommit(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	courses := &stubCourseStore{
		courses: map[string]models.CourseOffering{
			"c1": testOffering("c1", "CSE101", 4.5, "MW", "08:30 - 10:00"),
			"c2": testOffering("c2", "CSE203", 4.5, "ST", "11:20 - 12:50"),
		},
		// c2 looks open during validation but its guarded increment fails.
		fullIDs: map[string]bool{"c2": true},
	}
	enrollments := &stubEnrollmentStore{}
	svc := newRegistrationService(db, courses, enrollments)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Register(context.Background(), "stu-1", RegisterRequest{CourseIDs: []string{"c1", "c2"}})
	require.Error(t, err)
	typed := appError(t, err)
	assert.Equal(t, "COURSE_FULL", typed.Code)
	assert.Contains(t, typed.Message, "CSE203")
	assert.Equal(t, "c2", typed.Details["failed_course_id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterReactivatesDroppedRecord(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	courses := &stubCourseStore{courses: map[string]models.CourseOffering{
		"c1": testOffering("c1", "CSE101", 3, "MW", "08:30 - 10:00"),
	}}
	enrollments := &stubEnrollmentStore{
		active: []models.CourseOffering{
			testOffering("c5", "CSE203", 4.5, "ST", "11:20 - 12:50"),
			testOffering("c6", "MAT201", 3, "TR", "14:00 - 15:30"),
		},
		records: map[string]*models.Enrollment{
			"c1": {ID: "enr-1", StudentID: "stu-1", CourseID: "c1", Status: models.EnrollmentStatusDropped},
		},
	}
	svc := newRegistrationService(db, courses, enrollments)

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.Register(context.Background(), "stu-1", RegisterRequest{CourseIDs: []string{"c1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"enr-1"}, enrollments.reactivated)
	assert.Empty(t, enrollments.created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterUnknownCourse(t *testing.T) {
	db, _, cleanup := newTxMock(t)
	defer cleanup()
	svc := newRegistrationService(db, &stubCourseStore{courses: map[string]models.CourseOffering{}}, &stubEnrollmentStore{})

	_, err := svc.Register(context.Background(), "stu-1", RegisterRequest{CourseIDs: []string{"nope"}})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appError(t, err).Code)
}

func TestRegisterEmptyBatchRejected(t *testing.T) {
	db, _, cleanup := newTxMock(t)
	defer cleanup()
	svc := newRegistrationService(db, &stubCourseStore{}, &stubEnrollmentStore{})

	_, err := svc.Register(context.Background(), "stu-1", RegisterRequest{})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appError(t, err).Code)
}

func TestValidateCandidatePreviewsWithoutCommitting(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	courses := &stubCourseStore{courses: map[string]models.CourseOffering{
		"c2": testOffering("c2", "CSE203", 3, "MW", "09:30 - 11:00"),
	}}
	enrollments := &stubEnrollmentStore{active: []models.CourseOffering{
		testOffering("c1", "CSE101", 3, "MW", "08:30 - 10:00"),
	}}
	svc := newRegistrationService(db, courses, enrollments)

	decision, err := svc.ValidateCandidate(context.Background(), "stu-1", "c2")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, schedule.ReasonTimeConflict, decision.Reason)
	assert.Empty(t, courses.incremented)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDropRefusedBelowMinimumLoad(t *testing.T) {
	db, _, cleanup := newTxMock(t)
	defer cleanup()
	held := testOffering("c1", "CSE101", 3, "MW", "08:30 - 10:00")
	courses := &stubCourseStore{courses: map[string]models.CourseOffering{"c1": held}}
	enrollments := &stubEnrollmentStore{active: []models.CourseOffering{
		held,
		testOffering("c2", "CSE203", 4.5, "ST", "11:20 - 12:50"),
		testOffering("c3", "MAT201", 3, "TR", "14:00 - 15:30"),
	}}
	svc := newRegistrationService(db, courses, enrollments)

	// 10.5 credits enrolled; dropping 3 leaves 7.5, below the 9 minimum.
	err := svc.Drop(context.Background(), "stu-1", "c1")
	require.Error(t, err)
	assert.Equal(t, "CREDIT_LIMIT_EXCEEDED", appError(t, err).Code)
	assert.Empty(t, enrollments.dropped)
}

func TestDropReleasesSeat(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	held := testOffering("c1", "CSE101", 3, "MW", "08:30 - 10:00")
	courses := &stubCourseStore{courses: map[string]models.CourseOffering{"c1": held}}
	enrollments := &stubEnrollmentStore{
		active: []models.CourseOffering{
			held,
			testOffering("c2", "CSE203", 4.5, "ST", "11:20 - 12:50"),
			testOffering("c3", "MAT201", 3, "TR", "14:00 - 15:30"),
			testOffering("c4", "PHY110", 3, "SR", "10:10 - 11:40"),
		},
		records: map[string]*models.Enrollment{
			"c1": {ID: "enr-1", StudentID: "stu-1", CourseID: "c1", Status: models.EnrollmentStatusEnrolled},
		},
	}
	svc := newRegistrationService(db, courses, enrollments)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := svc.Drop(context.Background(), "stu-1", "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"enr-1"}, enrollments.dropped)
	assert.Equal(t, []string{"c1"}, courses.decremented)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDropSemesterReleasesAllSeats(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	courses := &stubCourseStore{}
	enrollments := &stubEnrollmentStore{dropAllIDs: []string{"c1", "c2", "c3"}}
	svc := newRegistrationService(db, courses, enrollments)

	mock.ExpectBegin()
	mock.ExpectCommit()

	dropped, err := svc.DropSemester(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 3, dropped)
	assert.Equal(t, []string{"c1", "c2", "c3"}, courses.decremented)
	require.NoError(t, mock.ExpectationsWereMet())
}
