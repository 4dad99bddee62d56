package priority

import (
	"math"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// Validate rejects inputs outside the scorer's domain. Callers check before
// scoring; Score itself never fails.
func Validate(in Input) error {
	details := map[string]any{}
	if in.ReportCount < 1 {
		details["report_count"] = "must be at least 1"
	}
	if in.DaysOpen < 0 {
		details["days_open"] = "must not be negative"
	}
	if in.SocialMentions < 0 {
		details["social_mentions"] = "must not be negative"
	}
	if math.IsNaN(in.HoursUntilBreach) {
		details["hours_until_breach"] = "must be a number"
	}
	if in.LocationClass != "" {
		if _, ok := locationScores[in.LocationClass]; !ok {
			details["location_class"] = "unknown location class"
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid priority input", details)
	}
	return nil
}

// ParseLocationClass normalizes a free-form class, falling back to unknown.
func ParseLocationClass(raw string) domain.LocationClass {
	class := domain.LocationClass(raw)
	if _, ok := locationScores[class]; ok {
		return class
	}
	return domain.LocationUnknown
}
