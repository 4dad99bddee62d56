package lifecycle

import (
	"sort"

	"github.com/spec-kit/grievance-service/internal/domain"
)

type transitionKey struct {
	from   domain.TicketStatus
	action domain.Action
}

type transition struct {
	to    domain.TicketStatus
	apply effect
}

// selfLoopActions mutate a ticket without moving it; statuses listed per action.
var selfLoopActions = map[domain.Action][]domain.TicketStatus{
	domain.ActionOverridePriority: {
		domain.TicketStatusOpen, domain.TicketStatusAssigned, domain.TicketStatusInProgress,
		domain.TicketStatusPendingVerification, domain.TicketStatusReopened,
	},
	domain.ActionApproveBudget: {
		domain.TicketStatusOpen, domain.TicketStatusAssigned, domain.TicketStatusInProgress,
		domain.TicketStatusPendingVerification, domain.TicketStatusReopened,
	},
	domain.ActionFlagPriority: {
		domain.TicketStatusOpen, domain.TicketStatusAssigned, domain.TicketStatusInProgress,
		domain.TicketStatusPendingVerification, domain.TicketStatusReopened,
	},
	domain.ActionAddReport: {
		domain.TicketStatusOpen, domain.TicketStatusAssigned, domain.TicketStatusInProgress,
		domain.TicketStatusPendingVerification, domain.TicketStatusReopened,
	},
	domain.ActionSLABreach: {
		domain.TicketStatusOpen, domain.TicketStatusAssigned, domain.TicketStatusInProgress,
		domain.TicketStatusPendingVerification, domain.TicketStatusReopened,
	},
	domain.ActionAttachEvidence: {
		domain.TicketStatusOpen, domain.TicketStatusAssigned, domain.TicketStatusInProgress,
		domain.TicketStatusReopened,
	},
}

var selfLoopEffects = map[domain.Action]effect{
	domain.ActionOverridePriority: overridePriority,
	domain.ActionApproveBudget:    approveBudget,
	domain.ActionFlagPriority:     flagPriority,
	domain.ActionAddReport:        addReport,
	domain.ActionSLABreach:        slaBreach,
	domain.ActionAttachEvidence:   attachEvidence,
}

var transitions = buildTransitions()

func buildTransitions() map[transitionKey]transition {
	table := map[transitionKey]transition{
		{domain.TicketStatusOpen, domain.ActionAccept}:           {domain.TicketStatusAssigned, accept},
		{domain.TicketStatusOpen, domain.ActionReroute}:          {domain.TicketStatusOpen, reroute},
		{domain.TicketStatusOpen, domain.ActionEscalate}:         {domain.TicketStatusAssigned, escalate},
		{domain.TicketStatusOpen, domain.ActionNoAction}:         {domain.TicketStatusAssigned, noAction},
		{domain.TicketStatusOpen, domain.ActionReject}:           {domain.TicketStatusRejected, reject},
		{domain.TicketStatusOpen, domain.ActionApproveCandidate}: {domain.TicketStatusOpen, approveCandidate},

		{domain.TicketStatusAssigned, domain.ActionAccept}:   {domain.TicketStatusAssigned, accept},
		{domain.TicketStatusAssigned, domain.ActionReroute}:  {domain.TicketStatusOpen, reroute},
		{domain.TicketStatusAssigned, domain.ActionDispatch}: {domain.TicketStatusInProgress, dispatch},
		{domain.TicketStatusAssigned, domain.ActionEscalate}: {domain.TicketStatusAssigned, escalate},

		{domain.TicketStatusInProgress, domain.ActionMarkComplete}: {domain.TicketStatusPendingVerification, markComplete},
		{domain.TicketStatusInProgress, domain.ActionEscalate}:     {domain.TicketStatusAssigned, escalate},

		{domain.TicketStatusPendingVerification, domain.ActionConfirmFixed}: {domain.TicketStatusClosed, confirmFixed},
		{domain.TicketStatusPendingVerification, domain.ActionDispute}:      {domain.TicketStatusReopened, dispute},
		{domain.TicketStatusPendingVerification, domain.ActionTimeout}:      {domain.TicketStatusClosedUnverified, timeout},

		{domain.TicketStatusClosed, domain.ActionLowRating}: {domain.TicketStatusReopened, lowRating},

		{domain.TicketStatusReopened, domain.ActionAccept}:   {domain.TicketStatusAssigned, accept},
		{domain.TicketStatusReopened, domain.ActionEscalate}: {domain.TicketStatusAssigned, escalate},
		{domain.TicketStatusReopened, domain.ActionReroute}:  {domain.TicketStatusOpen, reroute},
	}
	for action, statuses := range selfLoopActions {
		for _, status := range statuses {
			table[transitionKey{status, action}] = transition{to: status, apply: selfLoopEffects[action]}
		}
	}
	return table
}

func lookup(from domain.TicketStatus, action domain.Action) (transition, bool) {
	tr, ok := transitions[transitionKey{from, action}]
	return tr, ok
}

// Target returns the status action leads to from status, if legal.
func Target(from domain.TicketStatus, action domain.Action) (domain.TicketStatus, bool) {
	tr, ok := lookup(from, action)
	return tr.to, ok
}

// AllowedActions lists the actions legal from status, sorted.
func AllowedActions(from domain.TicketStatus) []domain.Action {
	var out []domain.Action
	for key := range transitions {
		if key.from == from {
			out = append(out, key.action)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// candidateActions are the only actions a hidden candidate accepts.
var candidateActions = map[domain.Action]bool{
	domain.ActionReject:           true,
	domain.ActionApproveCandidate: true,
	domain.ActionAddReport:        true,
}

func candidateGate(t domain.Ticket, action domain.Action) bool {
	if t.Candidate {
		return candidateActions[action]
	}
	return action != domain.ActionReject && action != domain.ActionApproveCandidate
}
