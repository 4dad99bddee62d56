// Package stub holds offline collaborator implementations used in
// development and tests.
package stub

import (
	"context"
	"strings"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// subcategoryHints maps description phrases to scored subcategories. Longer
// phrases are listed first so they win over their substrings.
var subcategoryHints = []struct {
	phrase      string
	subcategory string
}{
	{"open manhole", "open_manhole"},
	{"sewage overflow", "sewage_overflow"},
	{"burst pipe", "burst_pipe_flooding"},
	{"no water", "no_water_supply"},
	{"dirty water", "dirty_water"},
	{"low pressure", "low_pressure"},
	{"dead animal", "dead_animal_carcass"},
	{"dog bite", "stray_dog_bite"},
	{"mosquito", "mosquito_breeding"},
	{"overflowing bin", "overflowing_bin"},
	{"dumping", "illegal_dumping_large"},
	{"garbage", "missed_collection_once"},
	{"spark", "electrical_spark_hazard"},
	{"lights out", "multiple_lights_out"},
	{"street light", "street_light_out"},
	{"road collapse", "road_collapse"},
	{"bridge", "bridge_crack"},
	{"large pothole", "large_pothole"},
	{"pothole", "small_pothole"},
	{"drain", "drain_blocked"},
}

var locationHints = []struct {
	phrase string
	class  domain.LocationClass
}{
	{"hospital", domain.LocationHospitalVicinity},
	{"school", domain.LocationSchoolVicinity},
	{"market", domain.LocationMarket},
	{"main road", domain.LocationMainRoad},
	{"highway", domain.LocationMainRoad},
	{"lane", domain.LocationInternalStreet},
	{"colony", domain.LocationResidential},
	{"society", domain.LocationResidential},
}

// KeywordClassifier routes by the department "handles" keywords.
type KeywordClassifier struct {
	departments domain.DepartmentTable
}

// NewKeywordClassifier builds a classifier over the department table.
func NewKeywordClassifier(departments domain.DepartmentTable) *KeywordClassifier {
	return &KeywordClassifier{departments: departments}
}

// Classify scores each department by keyword hits. Two or more hits are a
// confident match, one hit needs review, none needs clarification.
func (c *KeywordClassifier) Classify(_ context.Context, text, _ string) (domain.Classification, error) {
	lower := strings.ToLower(text)
	best, bestHits := "", 0
	for _, dept := range c.departments.All() {
		hits := 0
		for _, kw := range dept.Handles {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = dept.ID, hits
		}
	}

	result := domain.Classification{
		DepartmentID:  best,
		Subcategory:   matchSubcategory(lower),
		LocationClass: string(matchLocation(lower)),
		Summary:       truncate(strings.TrimSpace(text), 200),
	}
	switch {
	case bestHits >= 2:
		result.Confidence = 0.9
	case bestHits == 1:
		result.Confidence = 0.8
	default:
		result.Confidence = 0.4
		result.NeedsClarification = true
		result.ClarificationQuestion = "Could you describe the issue and its exact location in more detail?"
	}
	return result, nil
}

func matchSubcategory(lower string) string {
	for _, hint := range subcategoryHints {
		if strings.Contains(lower, hint.phrase) {
			return hint.subcategory
		}
	}
	return ""
}

func matchLocation(lower string) domain.LocationClass {
	for _, hint := range locationHints {
		if strings.Contains(lower, hint.phrase) {
			return hint.class
		}
	}
	return domain.LocationUnknown
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// PhotoVerifier accepts any pair of photos but always asks for a human to
// confirm, so closure rests on the citizen's word.
type PhotoVerifier struct{}

func (PhotoVerifier) VerifyWorkPhotos(_ context.Context, beforeURI, afterURI, _ string) (domain.PhotoVerification, error) {
	if beforeURI == "" || afterURI == "" {
		return domain.PhotoVerification{RequiresHumanReview: true, Explanation: "missing photo"}, nil
	}
	return domain.PhotoVerification{
		WorkCompleted:       true,
		Confidence:          0.85,
		RequiresHumanReview: true,
		Explanation:         "automatic comparison unavailable; manual verification recommended",
	}, nil
}
