package domain

import (
	"sort"
	"time"
)

// Department is a fixed municipal routing target.
type Department struct {
	ID         string
	Name       string
	SLADays    int
	IsExternal bool
	Handles    []string
}

// SLADeadline returns the resolution deadline for a ticket routed at from.
func (d Department) SLADeadline(from time.Time) time.Time {
	return from.Add(time.Duration(d.SLADays) * 24 * time.Hour)
}

// DepartmentTable is an immutable lookup of departments keyed by ID.
type DepartmentTable struct {
	byID map[string]Department
}

// NewDepartmentTable copies rows into a read-only table.
func NewDepartmentTable(rows []Department) DepartmentTable {
	byID := make(map[string]Department, len(rows))
	for _, row := range rows {
		handles := append([]string(nil), row.Handles...)
		row.Handles = handles
		byID[row.ID] = row
	}
	return DepartmentTable{byID: byID}
}

// Lookup returns the department for id.
func (t DepartmentTable) Lookup(id string) (Department, bool) {
	dept, ok := t.byID[id]
	return dept, ok
}

// All returns departments ordered by ID.
func (t DepartmentTable) All() []Department {
	out := make([]Department, 0, len(t.byID))
	for _, dept := range t.byID {
		out = append(out, dept)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of departments.
func (t DepartmentTable) Len() int {
	return len(t.byID)
}

// DefaultDepartments is the fixed 14-row reference table.
func DefaultDepartments() DepartmentTable {
	return NewDepartmentTable([]Department{
		{ID: "D01", Name: "Roads & Bridges", SLADays: 14, Handles: []string{"pothole", "road", "bridge", "footpath"}},
		{ID: "D02", Name: "Buildings & Planning", SLADays: 30, Handles: []string{"construction", "illegal", "encroachment"}},
		{ID: "D03", Name: "Water Supply", SLADays: 5, Handles: []string{"water", "pipe", "leak", "pressure"}},
		{ID: "D04", Name: "Sewage & Drainage", SLADays: 3, Handles: []string{"sewage", "drain", "blocked", "manhole"}},
		{ID: "D05", Name: "Solid Waste Management", SLADays: 2, Handles: []string{"garbage", "waste", "bin", "dumping"}},
		{ID: "D06", Name: "Street Lighting", SLADays: 7, Handles: []string{"light", "lamp", "dark", "electric"}},
		{ID: "D07", Name: "Parks & Greenery", SLADays: 30, Handles: []string{"park", "tree", "garden", "playground"}},
		{ID: "D08", Name: "Health & Sanitation", SLADays: 5, Handles: []string{"mosquito", "stray", "disease", "dead animal"}},
		{ID: "D09", Name: "Fire & Emergency", SLADays: 1, IsExternal: true, Handles: []string{"fire", "accident", "emergency", "collapse"}},
		{ID: "D10", Name: "Traffic & Transport", SLADays: 1, IsExternal: true, Handles: []string{"traffic", "signal", "bus", "parking"}},
		{ID: "D11", Name: "Revenue & Property", SLADays: 21, Handles: []string{"tax", "property", "document", "certificate"}},
		{ID: "D12", Name: "Social Welfare", SLADays: 7, Handles: []string{"pension", "welfare", "disability", "ration"}},
		{ID: "D13", Name: "Education", SLADays: 14, Handles: []string{"school", "teacher", "college", "student"}},
		{ID: "D14", Name: "Disaster Management", SLADays: 1, Handles: []string{"flood", "cyclone", "landslide", "disaster"}},
	})
}
