// Package priority scores tickets. Everything here is deterministic and free
// of I/O so the creation path and the sweeper produce identical results.
package priority

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

const (
	maxSeverity  = 30.0
	maxScore     = 100.0
	safetyBonus  = 5.0
	impactCap    = 15.0
	perReport    = 3.0
	defaultScore = 15.0
)

var severityTable = map[string]float64{
	"street_light_out":         15,
	"multiple_lights_out":      22,
	"electrical_spark_hazard":  30,
	"small_pothole":            12,
	"large_pothole":            20,
	"road_collapse":            28,
	"bridge_crack":             30,
	"low_pressure":             14,
	"no_water_supply":          22,
	"dirty_water":              25,
	"burst_pipe_flooding":      30,
	"drain_blocked":            18,
	"sewage_overflow":          26,
	"open_manhole":             30,
	"missed_collection_once":   10,
	"overflowing_bin":          16,
	"dead_animal_carcass":      22,
	"illegal_dumping_large":    20,
	"mosquito_breeding":        18,
	"stray_dog_bite":           28,
	"disease_outbreak_concern": 30,
}

var safetyKeywords = []string{
	"accident", "danger", "hazard", "fire", "electric shock",
	"child fell", "injury", "death", "hospital", "emergency",
	"flood", "collapse", "snake", "rabies", "epidemic",
	"விபத்து", "ஆபத்து", "आग", "खतरा", "ప్రమాదం",
}

var locationScores = map[domain.LocationClass]float64{
	domain.LocationMainRoad:         10,
	domain.LocationHospitalVicinity: 10,
	domain.LocationSchoolVicinity:   9,
	domain.LocationMarket:           8,
	domain.LocationResidential:      5,
	domain.LocationInternalStreet:   3,
	domain.LocationUnknown:          4,
}

// Input is the attribute set the score depends on.
type Input struct {
	Subcategory      string
	Description      string
	ReportCount      int
	LocationClass    domain.LocationClass
	DaysOpen         int
	HoursUntilBreach float64
	SocialMentions   int
}

// Factors is the per-factor breakdown of a score.
type Factors struct {
	Severity  float64 `json:"severity"`
	Impact    float64 `json:"impact"`
	TimeDecay float64 `json:"time_decay"`
	SLA       float64 `json:"sla"`
	Social    float64 `json:"social"`
}

// Total sums the factors and caps at 100.
func (f Factors) Total() float64 {
	return math.Min(maxScore, f.Severity+f.Impact+f.TimeDecay+f.SLA+f.Social)
}

// Breakdown computes each factor independently.
func Breakdown(in Input) Factors {
	return Factors{
		Severity:  Severity(in.Subcategory, in.Description),
		Impact:    Impact(in.ReportCount, in.LocationClass),
		TimeDecay: TimeDecay(in.DaysOpen),
		SLA:       SLAProximity(in.HoursUntilBreach),
		Social:    Social(in.SocialMentions),
	}
}

// Score returns the capped score and its label.
func Score(in Input) (float64, domain.PriorityLabel) {
	score := Breakdown(in).Total()
	return score, Label(score)
}

// Label maps a score onto the fixed thresholds.
func Label(score float64) domain.PriorityLabel {
	switch {
	case score >= 80:
		return domain.PriorityCritical
	case score >= 60:
		return domain.PriorityHigh
	case score >= 35:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// Severity looks up the subcategory and adds the safety keyword bonus.
func Severity(subcategory, description string) float64 {
	base, ok := severityTable[strings.ToLower(strings.TrimSpace(subcategory))]
	if !ok {
		base = defaultScore
	}
	if containsSafetyKeyword(description) {
		base += safetyBonus
	}
	return math.Min(maxSeverity, base)
}

// KnownSubcategory reports whether the subcategory has a table entry.
func KnownSubcategory(subcategory string) bool {
	_, ok := severityTable[strings.ToLower(strings.TrimSpace(subcategory))]
	return ok
}

// Subcategories lists the scored subcategories in sorted order.
func Subcategories() []string {
	out := make([]string, 0, len(severityTable))
	for name := range severityTable {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func containsSafetyKeyword(description string) bool {
	text := strings.ToLower(description)
	for _, keyword := range safetyKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// Impact is min(15, reports*3) plus the location class score.
func Impact(reportCount int, class domain.LocationClass) float64 {
	location, ok := locationScores[class]
	if !ok {
		location = locationScores[domain.LocationUnknown]
	}
	return math.Min(impactCap, float64(reportCount)*perReport) + location
}

// TimeDecay is a step function of whole days open.
func TimeDecay(daysOpen int) float64 {
	switch {
	case daysOpen <= 1:
		return 0
	case daysOpen <= 3:
		return 5
	case daysOpen <= 7:
		return 10
	case daysOpen <= 14:
		return 15
	default:
		return 20
	}
}

// SLAProximity scores hours remaining until the deadline; zero or negative
// means already breached.
func SLAProximity(hoursUntilBreach float64) float64 {
	switch {
	case hoursUntilBreach <= 0:
		return 15
	case hoursUntilBreach < 6:
		return 12
	case hoursUntilBreach < 24:
		return 8
	case hoursUntilBreach < 48:
		return 4
	default:
		return 0
	}
}

// Social is a step function of mention count.
func Social(mentions int) float64 {
	switch {
	case mentions > 100:
		return 10
	case mentions > 50:
		return 7
	case mentions > 10:
		return 4
	default:
		return 0
	}
}

// InputFor derives scoring input from a ticket at now.
func InputFor(t domain.Ticket, now time.Time) Input {
	daysOpen := 0
	if age := now.Sub(t.CreatedAt); age > 0 {
		daysOpen = int(age.Hours() / 24)
	}
	class := t.LocationClass
	if class == "" {
		class = domain.LocationUnknown
	}
	return Input{
		Subcategory:      t.Subcategory,
		Description:      t.Description,
		ReportCount:      t.ReportCount,
		LocationClass:    class,
		DaysOpen:         daysOpen,
		HoursUntilBreach: t.SLADeadline.Sub(now).Hours(),
		SocialMentions:   t.SocialMentions,
	}
}

// ScoreTicket scores a ticket including its stored reopen bonus.
func ScoreTicket(t domain.Ticket, now time.Time) (float64, domain.PriorityLabel) {
	score, _ := Score(InputFor(t, now))
	score = math.Min(maxScore, score+t.EscalationBonus)
	return score, Label(score)
}

// Rescore writes a fresh rules-based score onto t unless a commissioner
// override pinned it. It reports whether the label changed.
func Rescore(t *domain.Ticket, now time.Time) (labelChanged bool) {
	if t.Overridden() {
		return false
	}
	score, label := ScoreTicket(*t, now)
	labelChanged = t.PriorityLabel != label
	t.PriorityScore = score
	t.PriorityLabel = label
	t.PrioritySource = domain.PrioritySourceRules
	return labelChanged
}
