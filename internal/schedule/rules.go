package schedule

import "strings"

// Day is a canonical three-letter day token.
type Day string

// Canonical day tokens.
const (
	Sunday    Day = "Sun"
	Monday    Day = "Mon"
	Tuesday   Day = "Tue"
	Wednesday Day = "Wed"
	Thursday  Day = "Thu"
	Friday    Day = "Fri"
	Saturday  Day = "Sat"
)

// Rules holds the day-code decoding tables. They are passed explicitly so the
// normalizer stays pure and testable against synthetic rule sets instead of
// reading module-level state.
type Rules struct {
	// CompositeDays maps catalog day codes to their expanded day pairs.
	CompositeDays map[string][]Day
	// DayAliases maps single letters and full names onto canonical tokens.
	DayAliases map[string]Day
}

// DefaultRules returns the campus day-code conventions.
//
// Single letters follow the composite codes: T means Tuesday, R Thursday, and
// S Sunday (not Saturday) because ST/SR pair Sunday with Tuesday/Thursday.
// The oddity is deliberate and must match the composite table.
func DefaultRules() Rules {
	return Rules{
		CompositeDays: map[string][]Day{
			"MW": {Monday, Wednesday},
			"ST": {Sunday, Tuesday},
			"SR": {Sunday, Thursday},
			"TR": {Tuesday, Thursday},
		},
		DayAliases: map[string]Day{
			"S": Sunday, "Sun": Sunday, "Sunday": Sunday,
			"M": Monday, "Mon": Monday, "Monday": Monday,
			"T": Tuesday, "Tue": Tuesday, "Tuesday": Tuesday,
			"W": Wednesday, "Wed": Wednesday, "Wednesday": Wednesday,
			"R": Thursday, "Thu": Thursday, "Thursday": Thursday,
			"F": Friday, "Fri": Friday, "Friday": Friday,
			"Sat": Saturday, "Saturday": Saturday,
		},
	}
}

// DecodeDays expands a day-code token into canonical day tokens. Composite
// codes win; otherwise the token is treated as a comma-separated list and each
// entry mapped through the alias table. Unknown entries fall back to their
// first three characters so malformed data yields a segment that matches
// nothing rather than an error.
func (r Rules) DecodeDays(token string) []Day {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	if expanded, ok := r.CompositeDays[strings.ToUpper(token)]; ok {
		days := make([]Day, len(expanded))
		copy(days, expanded)
		return days
	}

	var days []Day
	for _, part := range strings.Split(token, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if day, ok := r.DayAliases[canonicalToken(part)]; ok {
			days = append(days, day)
			continue
		}
		days = append(days, fallbackDay(part))
	}
	return days
}

// canonicalToken normalises casing so "monday" and "MONDAY" hit the alias
// table ("Monday").
func canonicalToken(part string) string {
	if len(part) == 1 {
		return strings.ToUpper(part)
	}
	return strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
}

// fallbackDay clips an unrecognised token to its first three characters.
func fallbackDay(part string) Day {
	if len(part) > 3 {
		part = part[:3]
	}
	return Day(strings.ToUpper(part[:1]) + strings.ToLower(part[1:]))
}
