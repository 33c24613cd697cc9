package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/san-edu/registrar-api/internal/models"
)

// SegmentKind distinguishes theory and lab meeting blocks.
type SegmentKind string

// Segment kinds.
const (
	KindTheory SegmentKind = "theory"
	KindLab    SegmentKind = "lab"
)

// Segment is one normalized weekly meeting block of a course offering.
type Segment struct {
	Day         Day
	StartMinute int
	EndMinute   int
	Kind        SegmentKind
}

// Overlaps reports whether two segments collide. Intervals are half-open:
// a block ending at 10:00 does not collide with one starting at 10:00.
func (s Segment) Overlaps(other Segment) bool {
	return s.Day == other.Day &&
		s.StartMinute < other.EndMinute &&
		s.EndMinute > other.StartMinute
}

// Window renders the segment's time range for diagnostics, e.g. "08:30 - 10:00".
func (s Segment) Window() string {
	return fmt.Sprintf("%s - %s", FormatMinutes(s.StartMinute), FormatMinutes(s.EndMinute))
}

// TimeRange is a decoded "HH:MM - HH:MM" pair in minutes since midnight.
type TimeRange struct {
	StartMinute int
	EndMinute   int
}

// ParseTimeRange decodes a raw time-range token. It accepts "HH:MM - HH:MM"
// and the slot-prefixed form "Slot N: HH:MM - HH:MM" (everything through the
// first colon is dropped). It returns nil when the token does not contain
// exactly one "-" separator or either side fails to parse; callers must treat
// nil as "cannot determine conflict" and fail open, since malformed schedule
// strings are a data-entry defect, not a reason to block registration.
func ParseTimeRange(raw string) *TimeRange {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "Slot") {
		if idx := strings.Index(raw, ":"); idx >= 0 {
			raw = raw[idx+1:]
		}
	}

	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return nil
	}

	start, ok := parseClock(parts[0])
	if !ok {
		return nil
	}
	end, ok := parseClock(parts[1])
	if !ok {
		return nil
	}

	return &TimeRange{StartMinute: start, EndMinute: end}
}

// parseClock converts one side of a range into minutes since midnight.
// Campus slots never start between 1:00 and 7:59 AM, so bare hours 1-7 are
// read as afternoon ("01:30" means 13:30). An explicit am marker on hour 12
// means midnight.
func parseClock(side string) (int, bool) {
	side = strings.ToLower(strings.TrimSpace(side))
	isAM := strings.Contains(side, "am")
	isPM := strings.Contains(side, "pm")
	side = strings.TrimSpace(strings.NewReplacer("am", "", "pm", "").Replace(side))

	pieces := strings.SplitN(side, ":", 2)
	hour, err := strconv.Atoi(strings.TrimSpace(pieces[0]))
	if err != nil {
		return 0, false
	}
	minute := 0
	if len(pieces) == 2 {
		minute, err = strconv.Atoi(strings.TrimSpace(pieces[1]))
		if err != nil {
			return 0, false
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}

	switch {
	case isAM && hour == 12:
		hour = 0
	case isPM && hour < 12:
		hour += 12
	case !isAM && hour >= 1 && hour <= 7:
		hour += 12
	}

	return hour*60 + minute, true
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Normalizer turns the heterogeneous day/time tokens on a CourseOffering into
// canonical segments.
type Normalizer struct {
	rules  Rules
	logger *zap.Logger
}

// NewNormalizer constructs a Normalizer. A nil logger is replaced by a no-op.
func NewNormalizer(rules Rules, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{rules: rules, logger: logger}
}

// Normalize emits one segment per decoded day for the theory pair and, when
// present, the lab pair. Unparseable or missing schedule data yields zero
// segments for that side and a data-quality warning, never an error.
func (n *Normalizer) Normalize(course models.CourseOffering) []Segment {
	var segments []Segment

	if course.TheoryDays == "" || course.TheoryTime == "" {
		n.logger.Warn("course offering has no theory schedule",
			zap.String("course_id", course.ID),
			zap.String("code", course.Code))
	} else {
		segments = append(segments, n.expand(course, course.TheoryDays, course.TheoryTime, KindTheory)...)
	}

	if course.HasLab() {
		segments = append(segments, n.expand(course, course.LabDay, course.LabTime, KindLab)...)
	}

	return segments
}

func (n *Normalizer) expand(course models.CourseOffering, dayToken, timeToken string, kind SegmentKind) []Segment {
	tr := ParseTimeRange(timeToken)
	if tr == nil {
		n.logger.Warn("unparseable schedule time range",
			zap.String("course_id", course.ID),
			zap.String("code", course.Code),
			zap.String("kind", string(kind)),
			zap.String("raw", timeToken))
		return nil
	}

	days := n.rules.DecodeDays(dayToken)
	segments := make([]Segment, 0, len(days))
	for _, day := range days {
		segments = append(segments, Segment{
			Day:         day,
			StartMinute: tr.StartMinute,
			EndMinute:   tr.EndMinute,
			Kind:        kind,
		})
	}
	return segments
}
