package domain

// Action names a lifecycle command.
type Action string

const (
	ActionAccept           Action = "accept"
	ActionReroute          Action = "reroute"
	ActionDispatch         Action = "dispatch"
	ActionMarkComplete     Action = "mark_complete"
	ActionConfirmFixed     Action = "confirm_fixed"
	ActionDispute          Action = "dispute"
	ActionTimeout          Action = "timeout"
	ActionLowRating        Action = "low_rating"
	ActionNoAction         Action = "no_action"
	ActionReject           Action = "reject"
	ActionApproveCandidate Action = "approve_candidate"
	ActionEscalate         Action = "escalate"
	ActionOverridePriority Action = "override_priority"
	ActionApproveBudget    Action = "approve_budget"
	ActionFlagPriority     Action = "flag_priority"
	ActionAttachEvidence   Action = "attach_evidence"
	ActionAddReport        Action = "add_report"
	ActionSLABreach        Action = "sla_breach"
)

// AllActions lists every action the state machine understands.
var AllActions = []Action{
	ActionAccept, ActionReroute, ActionDispatch, ActionMarkComplete,
	ActionConfirmFixed, ActionDispute, ActionTimeout, ActionLowRating,
	ActionNoAction, ActionReject, ActionApproveCandidate, ActionEscalate,
	ActionOverridePriority, ActionApproveBudget, ActionFlagPriority,
	ActionAttachEvidence, ActionAddReport, ActionSLABreach,
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, known := range AllActions {
		if known == a {
			return true
		}
	}
	return false
}
