package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

func potholeInput() Input {
	return Input{
		Subcategory:      "large_pothole",
		Description:      "Large pothole near the bus stand",
		ReportCount:      3,
		LocationClass:    domain.LocationMainRoad,
		DaysOpen:         9,
		HoursUntilBreach: -2,
		SocialMentions:   60,
	}
}

func TestScoreScenario(t *testing.T) {
	t.Run("main road pothole scores HIGH", func(t *testing.T) {
		in := potholeInput()
		f := Breakdown(in)
		assert.Equal(t, 20.0, f.Severity)
		assert.Equal(t, 19.0, f.Impact)
		assert.Equal(t, 15.0, f.TimeDecay)
		assert.Equal(t, 15.0, f.SLA)
		assert.Equal(t, 7.0, f.Social)

		score, label := Score(in)
		assert.Equal(t, 76.0, score)
		assert.Equal(t, domain.PriorityHigh, label)
	})

	t.Run("more reports push it to CRITICAL", func(t *testing.T) {
		in := potholeInput()
		in.ReportCount = 6
		score, label := Score(in)
		assert.Equal(t, 82.0, score)
		assert.Equal(t, domain.PriorityCritical, label)
	})
}

func TestLabelBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  domain.PriorityLabel
	}{
		{100, domain.PriorityCritical},
		{80, domain.PriorityCritical},
		{79.99, domain.PriorityHigh},
		{60, domain.PriorityHigh},
		{59.99, domain.PriorityMedium},
		{35, domain.PriorityMedium},
		{34.99, domain.PriorityLow},
		{0, domain.PriorityLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Label(tc.score), "score %v", tc.score)
	}
}

func TestSeverity(t *testing.T) {
	t.Run("unknown subcategory uses default", func(t *testing.T) {
		assert.Equal(t, 15.0, Severity("broken_swing", "the swing is broken"))
	})

	t.Run("safety keyword adds bonus", func(t *testing.T) {
		assert.Equal(t, 17.0, Severity("small_pothole", "Child fell into it yesterday"))
	})

	t.Run("non latin keyword matches", func(t *testing.T) {
		assert.Equal(t, 20.0, Severity("unknown", "சாலையில் ஆபத்து"))
	})

	t.Run("bonus never exceeds cap", func(t *testing.T) {
		assert.Equal(t, 30.0, Severity("open_manhole", "danger, a child fell"))
		assert.Equal(t, 30.0, Severity("road_collapse", "hazard"))
	})
}

func TestScoreBounds(t *testing.T) {
	maxed := Input{
		Subcategory:      "open_manhole",
		Description:      "danger",
		ReportCount:      50,
		LocationClass:    domain.LocationHospitalVicinity,
		DaysOpen:         60,
		HoursUntilBreach: -100,
		SocialMentions:   1000,
	}
	score, label := Score(maxed)
	assert.Equal(t, 100.0, score)
	assert.Equal(t, domain.PriorityCritical, label)

	minimal := Input{
		Subcategory:      "missed_collection_once",
		ReportCount:      1,
		LocationClass:    domain.LocationInternalStreet,
		HoursUntilBreach: 500,
	}
	score, label = Score(minimal)
	assert.Equal(t, 16.0, score)
	assert.Equal(t, domain.PriorityLow, label)
}

func TestScoreMonotonic(t *testing.T) {
	base := potholeInput()
	base.HoursUntilBreach = 100

	t.Run("report count", func(t *testing.T) {
		prev := -1.0
		for reports := 1; reports <= 10; reports++ {
			in := base
			in.ReportCount = reports
			score, _ := Score(in)
			assert.GreaterOrEqual(t, score, prev)
			prev = score
		}
	})

	t.Run("days open", func(t *testing.T) {
		prev := -1.0
		for days := 0; days <= 30; days++ {
			in := base
			in.DaysOpen = days
			score, _ := Score(in)
			assert.GreaterOrEqual(t, score, prev)
			prev = score
		}
	})

	t.Run("time to breach", func(t *testing.T) {
		prev := -1.0
		for hours := 100.0; hours >= -10; hours -= 0.5 {
			in := base
			in.HoursUntilBreach = hours
			score, _ := Score(in)
			assert.GreaterOrEqual(t, score, prev)
			prev = score
		}
	})
}

func TestScoreIdempotent(t *testing.T) {
	in := potholeInput()
	first, firstLabel := Score(in)
	second, secondLabel := Score(in)
	assert.Equal(t, first, second)
	assert.Equal(t, firstLabel, secondLabel)
}

func TestSLAProximitySteps(t *testing.T) {
	assert.Equal(t, 15.0, SLAProximity(0))
	assert.Equal(t, 12.0, SLAProximity(5.9))
	assert.Equal(t, 8.0, SLAProximity(6))
	assert.Equal(t, 4.0, SLAProximity(24))
	assert.Equal(t, 0.0, SLAProximity(48))
}

func TestScoreTicket(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ticket := domain.Ticket{
		Subcategory:    "large_pothole",
		Description:    "Large pothole near the bus stand",
		ReportCount:    3,
		LocationClass:  domain.LocationMainRoad,
		CreatedAt:      now.Add(-9 * 24 * time.Hour),
		SLADeadline:    now.Add(-2 * time.Hour),
		SocialMentions: 60,
	}

	score, label := ScoreTicket(ticket, now)
	assert.Equal(t, 76.0, score)
	assert.Equal(t, domain.PriorityHigh, label)

	t.Run("reopen bonus is additive and capped", func(t *testing.T) {
		bumped := ticket
		bumped.EscalationBonus = 10
		score, label := ScoreTicket(bumped, now)
		assert.Equal(t, 86.0, score)
		assert.Equal(t, domain.PriorityCritical, label)

		bumped.ReportCount = 6
		bumped.SocialMentions = 500
		score, _ = ScoreTicket(bumped, now)
		assert.Equal(t, 100.0, score)
	})

	t.Run("rescore leaves overrides alone", func(t *testing.T) {
		pinned := ticket
		pinned.PriorityScore = 12
		pinned.PriorityLabel = domain.PriorityLow
		pinned.PrioritySource = domain.PrioritySourceOverride
		assert.False(t, Rescore(&pinned, now))
		assert.Equal(t, 12.0, pinned.PriorityScore)
	})

	t.Run("rescore reports label change", func(t *testing.T) {
		fresh := ticket
		fresh.PriorityLabel = domain.PriorityMedium
		assert.True(t, Rescore(&fresh, now))
		assert.Equal(t, domain.PriorityHigh, fresh.PriorityLabel)
		assert.False(t, Rescore(&fresh, now))
	})
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(potholeInput()))

	in := potholeInput()
	in.ReportCount = 0
	in.SocialMentions = -1
	err := Validate(in)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
