package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/san-edu/registrar-api/internal/models"
	"github.com/san-edu/registrar-api/internal/schedule"
)

type stubActiveCourses struct {
	courses []models.CourseOffering
}

func (s *stubActiveCourses) ListActiveCoursesByStudent(_ context.Context, _ string) ([]models.CourseOffering, error) {
	return s.courses, nil
}

func newExportService(courses ...models.CourseOffering) *ScheduleExportService {
	normalizer := schedule.NewNormalizer(schedule.DefaultRules(), zap.NewNop())
	return NewScheduleExportService(&stubActiveCourses{courses: courses}, normalizer, zap.NewNop())
}

func TestExportCSVSortedByDayAndTime(t *testing.T) {
	svc := newExportService(
		testOffering("c2", "CSE203", 4.5, "ST", "11:20 - 12:50"),
		testOffering("c1", "CSE101", 3, "MW", "08:30 - 10:00"),
	)

	result, err := svc.Export(context.Background(), "stu-1", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "schedule-stu-1.csv", result.Filename)

	lines := strings.Split(strings.TrimSpace(string(result.Content)), "\n")
	// Header plus four meeting blocks: Sun, Mon, Tue, Wed.
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[1], "Sun,"))
	assert.True(t, strings.HasPrefix(lines[2], "Mon,"))
	assert.True(t, strings.HasPrefix(lines[3], "Tue,"))
	assert.True(t, strings.HasPrefix(lines[4], "Wed,"))
	assert.Contains(t, lines[1], "CSE203")
	assert.Contains(t, lines[2], "CSE101")
}

func TestExportPDF(t *testing.T) {
	svc := newExportService(testOffering("c1", "CSE101", 3, "MW", "08:30 - 10:00"))

	result, err := svc.Export(context.Background(), "stu-1", FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := newExportService()

	_, err := svc.Export(context.Background(), "stu-1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appError(t, err).Code)
}

func TestExportEmptyScheduleStillRenders(t *testing.T) {
	svc := newExportService()

	result, err := svc.Export(context.Background(), "stu-1", FormatCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(result.Content)), "\n")
	require.Len(t, lines, 1)
}
