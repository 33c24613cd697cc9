package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/san-edu/registrar-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListActiveCoursesByStudent returns the offerings a student is currently
// enrolled in. This is the baseline the schedule validator checks candidates
// against.
func (r *EnrollmentRepository) ListActiveCoursesByStudent(ctx context.Context, studentID string) ([]models.CourseOffering, error) {
	const query = `SELECT c.id, c.code, c.title, c.department, c.section, c.credits, c.capacity, c.enrolled_count,
        c.term, c.instructor, c.room, c.theory_days, c.theory_time, c.lab_day, c.lab_time, c.created_at, c.updated_at
        FROM enrollments e
        JOIN course_offerings c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.status = $2
        ORDER BY c.code`
	var courses []models.CourseOffering
	if err := r.db.SelectContext(ctx, &courses, query, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list active courses: %w", err)
	}
	return courses, nil
}

// ListDetailsByStudent returns a student's active enrollments with offering
// info, for schedule views and exports.
func (r *EnrollmentRepository) ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.status, e.enrolled_at, e.dropped_at,
        c.code AS course_code, c.title AS course_title, c.credits, c.theory_days, c.theory_time
        FROM enrollments e
        JOIN course_offerings c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.status = $2
        ORDER BY c.code`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list enrollment details: %w", err)
	}
	return details, nil
}

// FindByStudentAndCourse returns the enrollment record for a (student, course)
// pair, or nil when none exists. At most one record exists per pair; a dropped
// record is reactivated on re-registration rather than duplicated.
func (r *EnrollmentRepository) FindByStudentAndCourse(ctx context.Context, ext sqlx.ExtContext, studentID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, status, enrolled_at, dropped_at
        FROM enrollments WHERE student_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, ext, &enrollment, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, ext sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, status, enrolled_at, dropped_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := ext.ExecContext(ctx, query,
		enrollment.ID, enrollment.StudentID, enrollment.CourseID,
		enrollment.Status, enrollment.EnrolledAt, enrollment.DroppedAt); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Reactivate flips a dropped record back to enrolled with a fresh timestamp.
func (r *EnrollmentRepository) Reactivate(ctx context.Context, ext sqlx.ExtContext, id string) error {
	const query = `UPDATE enrollments SET status = $2, enrolled_at = NOW(), dropped_at = NULL WHERE id = $1`
	if _, err := ext.ExecContext(ctx, query, id, models.EnrollmentStatusEnrolled); err != nil {
		return fmt.Errorf("reactivate enrollment: %w", err)
	}
	return nil
}

// MarkDropped flips an enrolled record to dropped.
func (r *EnrollmentRepository) MarkDropped(ctx context.Context, ext sqlx.ExtContext, id string, droppedAt time.Time) error {
	const query = `UPDATE enrollments SET status = $2, dropped_at = $3 WHERE id = $1`
	if _, err := ext.ExecContext(ctx, query, id, models.EnrollmentStatusDropped, droppedAt); err != nil {
		return fmt.Errorf("mark enrollment dropped: %w", err)
	}
	return nil
}

// DropAllActive drops every active enrollment for a student and returns the
// affected course IDs so seat counts can be released in the same transaction.
func (r *EnrollmentRepository) DropAllActive(ctx context.Context, ext sqlx.ExtContext, studentID string, droppedAt time.Time) ([]string, error) {
	const query = `UPDATE enrollments SET status = $2, dropped_at = $3
        WHERE student_id = $1 AND status = $4
        RETURNING course_id`
	rows, err := ext.QueryxContext(ctx, query, studentID, models.EnrollmentStatusDropped, droppedAt, models.EnrollmentStatusEnrolled)
	if err != nil {
		return nil, fmt.Errorf("drop semester: %w", err)
	}
	defer rows.Close()

	var courseIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan dropped course id: %w", err)
		}
		courseIDs = append(courseIDs, id)
	}
	return courseIDs, rows.Err()
}

// SumCompletedCredits totals the credits of a student's completed courses.
// This is the figure advising windows gate on.
func (r *EnrollmentRepository) SumCompletedCredits(ctx context.Context, studentID string) (float64, error) {
	const query = `SELECT COALESCE(SUM(c.credits), 0)
        FROM enrollments e
        JOIN course_offerings c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.status = $2`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, studentID, models.EnrollmentStatusCompleted); err != nil {
		return 0, fmt.Errorf("sum completed credits: %w", err)
	}
	return total, nil
}
