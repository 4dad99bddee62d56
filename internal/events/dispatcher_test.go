package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventNotifyCitizen, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.TicketCode)
		return errors.New("sms gateway down")
	})
	d.Subscribe(EventNotifyCitizen, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.TicketCode)
		return nil
	})
	d.Subscribe(EventNotifyOfficer, func(context.Context, Event) error {
		calls = append(calls, "officer")
		return nil
	})

	event, ok := FromIntent(domain.Intent{Kind: domain.IntentNotifyCitizen, TicketCode: "CIV-2026-00001"},
		domain.SystemActor(), time.Now())
	require.True(t, ok)

	err := d.Publish(context.Background(), event)
	assert.Error(t, err)
	assert.Equal(t, []string{"first:CIV-2026-00001", "second:CIV-2026-00001"}, calls)
}

func TestFromIntent(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		kind domain.IntentKind
		typ  EventType
		ok   bool
	}{
		{domain.IntentNotifyOfficer, EventNotifyOfficer, true},
		{domain.IntentNotifyCitizen, EventNotifyCitizen, true},
		{domain.IntentScheduleVerificationCall, EventScheduleVerificationCall, true},
		{domain.IntentAuditWrite, "", false},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			event, ok := FromIntent(domain.Intent{Kind: tc.kind, TicketCode: "CIV-2026-00002"}, domain.SystemActor(), at)
			assert.Equal(t, tc.ok, ok)
			if !tc.ok {
				return
			}
			assert.Equal(t, tc.typ, event.Type)
			assert.Equal(t, "CIV-2026-00002", event.TicketCode)
			assert.Equal(t, domain.RoleSystem, event.Actor.Role)
			assert.Equal(t, at, event.Timestamp)
			assert.NotEmpty(t, event.ID)
		})
	}
}
