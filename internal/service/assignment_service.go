package service

import (
	"context"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// AssignmentService resolves which officer an escalated ticket lands on.
type AssignmentService struct {
	officers repository.OfficerRepository
}

// NewAssignmentService creates the service.
func NewAssignmentService(officers repository.OfficerRepository) *AssignmentService {
	return &AssignmentService{officers: officers}
}

// FindEscalationOfficer returns the longest-serving active officer holding
// role over the ticket's scope, or nil when the post is vacant. A vacant post
// still escalates; the ticket waits unassigned at that level.
func (s *AssignmentService) FindEscalationOfficer(ctx context.Context, t domain.Ticket, role domain.Role) (*string, error) {
	if s == nil || s.officers == nil {
		return nil, nil
	}
	officers, err := s.officers.FindByScope(ctx, scopeQuery(t, role))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(officers) == 0 {
		return nil, nil
	}
	id := officers[0].ID
	return &id, nil
}

func scopeQuery(t domain.Ticket, role domain.Role) repository.OfficerQuery {
	q := repository.OfficerQuery{Role: role}
	switch role {
	case domain.RoleWardOfficer, domain.RoleCouncillor:
		q.WardID = t.WardID
	case domain.RoleZonalOfficer:
		q.ZoneID = t.ZoneID
	case domain.RoleDeptHead:
		q.DepartmentID = t.DepartmentID
	}
	return q
}
