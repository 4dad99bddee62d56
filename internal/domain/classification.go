package domain

// Classification is the classifier's routing verdict for a complaint.
type Classification struct {
	DepartmentID          string  `json:"dept_id"`
	Confidence            float64 `json:"confidence"`
	Subcategory           string  `json:"subcategory"`
	LocationClass         string  `json:"location_type,omitempty"`
	NeedsClarification    bool    `json:"needs_clarification"`
	ClarificationQuestion string  `json:"clarification_question,omitempty"`
	Summary               string  `json:"summary,omitempty"`
}

// PhotoVerification is the classifier's before/after comparison.
type PhotoVerification struct {
	WorkCompleted       bool    `json:"work_completed"`
	Confidence          float64 `json:"confidence"`
	RequiresHumanReview bool    `json:"requires_human_review"`
	Explanation         string  `json:"explanation,omitempty"`
}

// Inconclusive reports whether the verification cannot stand on its own.
func (v PhotoVerification) Inconclusive(threshold float64) bool {
	return v.RequiresHumanReview || v.Confidence < threshold
}
