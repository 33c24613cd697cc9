package schedule

import (
	"fmt"

	"github.com/san-edu/registrar-api/internal/models"
)

// RejectReason identifies why a candidate offering was refused.
type RejectReason string

// Rejection reasons, in the order the checks run.
const (
	ReasonDuplicateCourse RejectReason = "DUPLICATE_COURSE"
	ReasonCourseFull      RejectReason = "COURSE_FULL"
	ReasonTimeConflict    RejectReason = "TIME_CONFLICT"
)

// Decision is the validator verdict for one candidate against a baseline.
// It is always a value, never an error: rejections are ordinary outcomes.
type Decision struct {
	Allowed       bool
	Reason        RejectReason
	Detail        string
	ConflictingID string
}

// Accept is the positive decision.
var Accept = Decision{Allowed: true}

// Validator checks one candidate offering against a baseline of offerings the
// student already holds (current enrollments plus anything accepted earlier in
// the same registration batch).
type Validator struct {
	normalizer *Normalizer
}

// NewValidator constructs a Validator over the given normalizer.
func NewValidator(normalizer *Normalizer) *Validator {
	return &Validator{normalizer: normalizer}
}

// Validate runs the checks in order, first failure wins:
//
//  1. baseline entries with the candidate's own id are skipped (re-adding a
//     held course is a no-op at the caller's discretion, not a conflict)
//  2. another section of the same catalog code rejects as DuplicateCourse
//  3. a full section rejects as CourseFull
//  4. any segment pair on the same day with overlapping minute ranges rejects
//     as TimeConflict, naming both courses, the day and both windows
func (v *Validator) Validate(candidate models.CourseOffering, baseline []models.CourseOffering) Decision {
	others := make([]models.CourseOffering, 0, len(baseline))
	for _, held := range baseline {
		if held.ID == candidate.ID {
			continue
		}
		others = append(others, held)
	}

	for _, held := range others {
		if held.Code == candidate.Code {
			return Decision{
				Reason:        ReasonDuplicateCourse,
				Detail:        fmt.Sprintf("%s section %d is already held; a student may not take two sections of %s", held.Code, held.Section, candidate.Code),
				ConflictingID: held.ID,
			}
		}
	}

	if candidate.EnrolledCount >= candidate.Capacity {
		return Decision{
			Reason: ReasonCourseFull,
			Detail: fmt.Sprintf("%s is full (%d/%d seats taken)", candidate.Code, candidate.EnrolledCount, candidate.Capacity),
		}
	}

	candidateSegments := v.normalizer.Normalize(candidate)
	for _, held := range others {
		for _, heldSegment := range v.normalizer.Normalize(held) {
			for _, candidateSegment := range candidateSegments {
				if candidateSegment.Overlaps(heldSegment) {
					return Decision{
						Reason: ReasonTimeConflict,
						Detail: fmt.Sprintf("%s (%s %s) overlaps %s (%s %s)",
							candidate.Code, candidateSegment.Day, candidateSegment.Window(),
							held.Code, heldSegment.Day, heldSegment.Window()),
						ConflictingID: held.ID,
					}
				}
			}
		}
	}

	return Accept
}
