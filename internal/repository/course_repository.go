package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/san-edu/registrar-api/internal/models"
)

const courseColumns = `id, code, title, department, section, credits, capacity, enrolled_count,
        term, instructor, room, theory_days, theory_time, lab_day, lab_time, created_at, updated_at`

// CourseRepository handles persistence of course offerings.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course offering by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.CourseOffering, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_offerings WHERE id = $1`, courseColumns)
	var course models.CourseOffering
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByIDs returns the offerings for the given IDs, in no particular order.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]models.CourseOffering, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM course_offerings WHERE id IN (%s)`,
		courseColumns, strings.Join(placeholders, ","))
	var courses []models.CourseOffering
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("find courses by ids: %w", err)
	}
	return courses, nil
}

// ListCatalog returns course offerings with derived seat availability,
// filtered and paginated.
func (r *CourseRepository) ListCatalog(ctx context.Context, filter models.CourseFilter) ([]models.CatalogEntry, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, GREATEST(capacity - enrolled_count, 0) AS seats_available
        FROM course_offerings%s ORDER BY code, section LIMIT %d OFFSET %d`,
		courseColumns, clause, size, offset)

	var entries []models.CatalogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list catalog: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM course_offerings" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count catalog: %w", err)
	}
	return entries, total, nil
}

// UpdateCapacity sets a new seat capacity. The guard in the WHERE clause
// refuses to shrink capacity below the current enrolled count; it reports
// whether a row was updated so the caller can tell a refused shrink (or a
// missing offering) apart from success.
func (r *CourseRepository) UpdateCapacity(ctx context.Context, id string, capacity int) (bool, error) {
	const query = `UPDATE course_offerings SET capacity = $2, updated_at = NOW()
        WHERE id = $1 AND enrolled_count <= $2`
	result, err := r.db.ExecContext(ctx, query, id, capacity)
	if err != nil {
		return false, fmt.Errorf("update capacity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update capacity rows: %w", err)
	}
	return affected > 0, nil
}

// IncrementEnrolled bumps the enrolled count by one, guarded against
// oversubscription. It reports false when the section is already full, which
// callers inside a transaction must treat as a reason to roll back.
func (r *CourseRepository) IncrementEnrolled(ctx context.Context, ext sqlx.ExtContext, id string) (bool, error) {
	const query = `UPDATE course_offerings SET enrolled_count = enrolled_count + 1, updated_at = NOW()
        WHERE id = $1 AND enrolled_count < capacity`
	result, err := ext.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("increment enrolled count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment enrolled rows: %w", err)
	}
	return affected > 0, nil
}

// DecrementEnrolled lowers the enrolled count by one, clamped at zero.
func (r *CourseRepository) DecrementEnrolled(ctx context.Context, ext sqlx.ExtContext, id string) error {
	const query = `UPDATE course_offerings SET enrolled_count = GREATEST(enrolled_count - 1, 0), updated_at = NOW()
        WHERE id = $1`
	if _, err := ext.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("decrement enrolled count: %w", err)
	}
	return nil
}
