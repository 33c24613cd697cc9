package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/san-edu/registrar-api/internal/models"
	"github.com/san-edu/registrar-api/internal/schedule"
	appErrors "github.com/san-edu/registrar-api/pkg/errors"
	"github.com/san-edu/registrar-api/pkg/export"
)

type activeCoursesReader interface {
	ListActiveCoursesByStudent(ctx context.Context, studentID string) ([]models.CourseOffering, error)
}

// ExportFormat selects the rendered file type.
type ExportFormat string

// Supported export formats.
const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult carries the rendered document and its HTTP metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

var dayOrder = map[schedule.Day]int{
	schedule.Sunday:    0,
	schedule.Monday:    1,
	schedule.Tuesday:   2,
	schedule.Wednesday: 3,
	schedule.Thursday:  4,
	schedule.Friday:    5,
	schedule.Saturday:  6,
}

// ScheduleExportService renders a student's weekly schedule to CSV or PDF.
type ScheduleExportService struct {
	enrollments activeCoursesReader
	normalizer  *schedule.Normalizer
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewScheduleExportService constructs ScheduleExportService.
func NewScheduleExportService(enrollments activeCoursesReader, normalizer *schedule.Normalizer, logger *zap.Logger) *ScheduleExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleExportService{
		enrollments: enrollments,
		normalizer:  normalizer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Export renders the student's schedule, one row per weekly meeting block,
// sorted by day then start time.
func (s *ScheduleExportService) Export(ctx context.Context, studentID string, format ExportFormat) (*ExportResult, error) {
	courses, err := s.enrollments.ListActiveCoursesByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current enrollments")
	}

	type scheduleRow struct {
		course  models.CourseOffering
		segment schedule.Segment
	}
	var rows []scheduleRow
	for _, course := range courses {
		for _, segment := range s.normalizer.Normalize(course) {
			rows = append(rows, scheduleRow{course: course, segment: segment})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if dayOrder[rows[i].segment.Day] != dayOrder[rows[j].segment.Day] {
			return dayOrder[rows[i].segment.Day] < dayOrder[rows[j].segment.Day]
		}
		return rows[i].segment.StartMinute < rows[j].segment.StartMinute
	})

	dataset := export.Dataset{
		Headers: []string{"Day", "Time", "Course", "Title", "Type", "Room", "Instructor"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":        string(row.segment.Day),
			"Time":       row.segment.Window(),
			"Course":     row.course.Code,
			"Title":      row.course.Title,
			"Type":       string(row.segment.Kind),
			"Room":       row.course.Room,
			"Instructor": row.course.Instructor,
		})
	}

	switch format {
	case FormatCSV:
		content, renderErr := s.csv.Render(dataset)
		if renderErr != nil {
			return nil, appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("schedule-%s.csv", studentID),
		}, nil
	case FormatPDF:
		content, renderErr := s.pdf.Render(dataset, "Weekly Schedule")
		if renderErr != nil {
			return nil, appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("schedule-%s.pdf", studentID),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("unsupported export format %q, expected %s", strings.TrimSpace(string(format)), "csv or pdf"))
	}
}
