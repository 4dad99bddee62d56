package domain

import "time"

// Role enumerates the actors the access layer knows about.
type Role string

const (
	RoleWardOfficer  Role = "WARD_OFFICER"
	RoleZonalOfficer Role = "ZONAL_OFFICER"
	RoleDeptHead     Role = "DEPT_HEAD"
	RoleCommissioner Role = "COMMISSIONER"
	RoleCouncillor   Role = "COUNCILLOR"
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleCitizen      Role = "CITIZEN"
	RoleSystem       Role = "SYSTEM"
)

var escalationLadder = []Role{RoleWardOfficer, RoleZonalOfficer, RoleDeptHead, RoleCommissioner}

// NextLevel returns the role one step up the ward → zone → department →
// commissioner ladder. Roles off the ladder escalate to the zonal officer.
func (r Role) NextLevel() (Role, bool) {
	for i, role := range escalationLadder {
		if role == r {
			if i+1 < len(escalationLadder) {
				return escalationLadder[i+1], true
			}
			return "", false
		}
	}
	return RoleZonalOfficer, true
}

// Rank orders ladder roles; off-ladder roles rank zero.
func (r Role) Rank() int {
	for i, role := range escalationLadder {
		if role == r {
			return i + 1
		}
	}
	return 0
}

// Actor is the authorization input for every read and write.
type Actor struct {
	ID           string
	Role         Role
	WardID       int
	ZoneID       int
	DepartmentID string
	// Phone identifies a citizen acting on their own ticket.
	Phone string
}

// SystemActor is used by the sweeper for time-driven transitions.
func SystemActor() Actor {
	return Actor{ID: "system", Role: RoleSystem}
}

// CitizenActor builds an actor for a reporter identified by phone.
func CitizenActor(phone string) Actor {
	return Actor{ID: "citizen:" + phone, Role: RoleCitizen, Phone: phone}
}

// Officer is a government officer account.
type Officer struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	WardID       int
	ZoneID       int
	DepartmentID string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor projects the officer's assigned scope.
func (o Officer) Actor() Actor {
	return Actor{
		ID:           o.ID,
		Role:         o.Role,
		WardID:       o.WardID,
		ZoneID:       o.ZoneID,
		DepartmentID: o.DepartmentID,
	}
}
