package domain

// IntentKind names a side effect requested by a transition.
type IntentKind string

const (
	IntentAuditWrite               IntentKind = "audit_write"
	IntentNotifyOfficer            IntentKind = "notify_officer"
	IntentNotifyCitizen            IntentKind = "notify_citizen"
	IntentScheduleVerificationCall IntentKind = "schedule_verification_call"
)

// Recipient addresses an officer by id or by role within a scope, or a
// citizen by phone.
type Recipient struct {
	Role         Role    `json:"role,omitempty"`
	OfficerID    *string `json:"officer_id,omitempty"`
	WardID       int     `json:"ward_id,omitempty"`
	ZoneID       int     `json:"zone_id,omitempty"`
	DepartmentID string  `json:"department_id,omitempty"`
	Phone        string  `json:"phone,omitempty"`
}

// Intent is a side effect emitted by the state machine or sweeper. The
// orchestrator executes intents; the pure core never does I/O.
type Intent struct {
	Kind       IntentKind
	TicketCode string
	Audit      *AuditEvent
	Recipient  *Recipient
	Message    string
	Data       map[string]any
}

// SplitIntents separates audit writes from outward side effects.
func SplitIntents(intents []Intent) (audits []AuditEvent, effects []Intent) {
	for _, intent := range intents {
		if intent.Kind == IntentAuditWrite && intent.Audit != nil {
			audits = append(audits, *intent.Audit)
			continue
		}
		effects = append(effects, intent)
	}
	return audits, effects
}

// Channel is a notification delivery medium.
type Channel string

const (
	ChannelOfficerFeed Channel = "officer_feed"
	ChannelSMS         Channel = "sms"
	ChannelVoice       Channel = "voice"
)

// Notification is what adapters deliver.
type Notification struct {
	Channel    Channel        `json:"channel"`
	TicketCode string         `json:"ticket_code"`
	Recipient  Recipient      `json:"recipient"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
}
