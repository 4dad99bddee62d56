package handlers

import (
	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/service"
)

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		Code:                t.Code,
		Source:              t.Source,
		Description:         t.Description,
		DepartmentID:        t.DepartmentID,
		Subcategory:         t.Subcategory,
		WardID:              t.WardID,
		ZoneID:              t.ZoneID,
		Location:            t.Location,
		LocationClass:       t.LocationClass,
		ReporterName:        t.ReporterName,
		ReporterPhone:       t.ReporterPhone,
		AIConfidence:        t.AIConfidence,
		PriorityScore:       t.PriorityScore,
		PriorityLabel:       t.PriorityLabel,
		PrioritySource:      t.PrioritySource,
		EscalationBonus:     t.EscalationBonus,
		Status:              t.Status,
		ReportCount:         t.ReportCount,
		SocialMentions:      t.SocialMentions,
		RequiresHumanReview: t.RequiresHumanReview,
		Candidate:           t.Candidate,
		SLADeadline:         t.SLADeadline,
		SLABreached:         t.SLABreachedAt != nil,
		BeforePhotoURI:      t.BeforePhotoURI,
		AfterPhotoURI:       t.AfterPhotoURI,
		AssignedOfficerID:   t.AssignedOfficerID,
		AssignedBy:          t.AssignedBy,
		EscalationTarget:    t.EscalationTarget,
		ApprovedBudget:      t.ApprovedBudget,
		CitizenSatisfaction: t.CitizenSatisfaction,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
		ResolvedAt:          t.ResolvedAt,
		Version:             t.Version,
	}
}

func trackResponse(t *domain.Ticket) dto.TrackResponse {
	return dto.TrackResponse{
		Code:          t.Code,
		DepartmentID:  t.DepartmentID,
		WardID:        t.WardID,
		Status:        t.Status,
		PriorityLabel: t.PriorityLabel,
		SLADeadline:   t.SLADeadline,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ResolvedAt:    t.ResolvedAt,
	}
}

func auditTrailResponse(trail *service.AuditTrail) dto.AuditTrailResponse {
	events := make([]dto.AuditEventResponse, 0, len(trail.Events))
	for _, ev := range trail.Events {
		events = append(events, dto.AuditEventResponse{
			Seq:       ev.Seq,
			Action:    string(ev.Action),
			Command:   string(ev.Command),
			OldValue:  ev.OldValue,
			NewValue:  ev.NewValue,
			ActorID:   ev.ActorID,
			ActorRole: ev.ActorRole,
			CreatedAt: ev.CreatedAt,
			Hash:      ev.Hash,
		})
	}
	return dto.AuditTrailResponse{Events: events, Verified: trail.Verified}
}

func officerResponse(o *domain.Officer) dto.OfficerResponse {
	return dto.OfficerResponse{
		ID:           o.ID,
		Name:         o.Name,
		Email:        o.Email,
		Role:         o.Role,
		WardID:       o.WardID,
		ZoneID:       o.ZoneID,
		DepartmentID: o.DepartmentID,
		Active:       o.Active,
		CreatedAt:    o.CreatedAt,
	}
}
