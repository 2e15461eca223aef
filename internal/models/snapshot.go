package models

import "github.com/noah-isme/sma-risk-api/internal/risk"

// Partial identifiers used by the grading calendar.
const (
	PartialOne   = "p1"
	PartialTwo   = "p2"
	PartialThree = "p3"
)

// ValidPartial reports whether id names one of the three grading partials.
func ValidPartial(id string) bool {
	switch id {
	case PartialOne, PartialTwo, PartialThree:
		return true
	}
	return false
}

// GroupSnapshot is everything the scorer needs for one group and partial, loaded in one pass.
type GroupSnapshot struct {
	GroupID    string            `json:"group_id"`
	GroupName  string            `json:"group_name"`
	PartialID  string            `json:"partial_id"`
	Criteria   []risk.Criterion  `json:"criteria"`
	Activities []risk.Activity   `json:"activities"`
	Students   []SnapshotStudent `json:"students"`
}

// SnapshotStudent holds the per-student records of a snapshot. Attendance and participation
// keep registration order.
type SnapshotStudent struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Attendance    []risk.Mark         `json:"attendance"`
	Participation []risk.Session      `json:"participation"`
	Grades        map[string]*float64 `json:"grades"`
	Delivered     map[string]bool     `json:"delivered"`
	Overrides     risk.Overrides      `json:"overrides"`
	Observations  []string            `json:"observations"`
	Screening     risk.Screening      `json:"screening"`
}

// Student returns the snapshot entry for a student.
func (g *GroupSnapshot) Student(studentID string) (*SnapshotStudent, bool) {
	for i := range g.Students {
		if g.Students[i].ID == studentID {
			return &g.Students[i], true
		}
	}
	return nil, false
}

// StudentInput converts one student of the snapshot into scorer input.
func (g *GroupSnapshot) StudentInput(studentID string) (risk.StudentInput, bool) {
	st, ok := g.Student(studentID)
	if !ok {
		return risk.StudentInput{}, false
	}
	return g.input(st), true
}

// Inputs converts every student of the snapshot, in roster order.
func (g *GroupSnapshot) Inputs() []risk.StudentInput {
	inputs := make([]risk.StudentInput, 0, len(g.Students))
	for i := range g.Students {
		inputs = append(inputs, g.input(&g.Students[i]))
	}
	return inputs
}

func (g *GroupSnapshot) input(st *SnapshotStudent) risk.StudentInput {
	return risk.StudentInput{
		StudentID:     st.ID,
		StudentName:   st.Name,
		Attendance:    st.Attendance,
		Participation: st.Participation,
		Criteria:      g.Criteria,
		Grades:        st.Grades,
		Activities:    g.Activities,
		Delivered:     st.Delivered,
		Overrides:     st.Overrides,
		Observations:  st.Observations,
		Screening:     st.Screening,
	}
}
