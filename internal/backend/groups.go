package backend

import (
	"context"

	"appointment-portal/internal/model"
)

type Groups struct{ c *client }

type groupDTO struct {
	GroupID      int64  `json:"groupId,omitempty"`
	GroupName    string `json:"groupName"`
	InstructorID int64  `json:"instructorId"`
	MaxMembers   int    `json:"maxMembers,omitempty"`
	MaxLimit     int    `json:"maxLimit,omitempty"`
	IsBooked     bool   `json:"isBooked,omitempty"`
	Description  string `json:"description,omitempty"`
}

func (d groupDTO) slot() model.Slot {
	capacity := d.MaxMembers
	if capacity == 0 {
		capacity = d.MaxLimit
	}
	return model.Slot{
		Kind:         model.KindGroup,
		ID:           d.GroupID,
		InstructorID: d.InstructorID,
		Description:  d.Description,
		Name:         d.GroupName,
		Capacity:     capacity,
		Booked:       d.IsBooked,
	}
}

type groupAppointmentDTO struct {
	GroupAppointmentID int64  `json:"groupAppointmentId,omitempty"`
	InstructorID       int64  `json:"instructorId"`
	AppointmentDate    string `json:"appointmentDate"`
	StartTime          string `json:"startTime"`
	EndTime            string `json:"endTime"`
	Description        string `json:"description,omitempty"`
	Status             string `json:"status,omitempty"`
}

func (d groupAppointmentDTO) slot() model.Slot {
	return model.Slot{
		Kind:         model.KindGroupAppointment,
		ID:           d.GroupAppointmentID,
		InstructorID: d.InstructorID,
		Status:       d.Status,
		Description:  d.Description,
		Date:         d.AppointmentDate,
		Start:        d.StartTime,
		End:          d.EndTime,
	}
}

type memberDTO struct {
	GroupMemberID int64  `json:"groupMemberId,omitempty"`
	GroupID       int64  `json:"groupId"`
	StudentID     int64  `json:"studentId"`
	JoinedAt      string `json:"joinedAt,omitempty"`
}

func members(in []memberDTO) []model.GroupMember {
	out := make([]model.GroupMember, len(in))
	for i, m := range in {
		out[i] = model.GroupMember{ID: m.GroupMemberID, GroupID: m.GroupID, StudentID: m.StudentID, JoinedAt: m.JoinedAt}
	}
	return out
}

func groupSlots(in []groupDTO) []model.Slot {
	out := make([]model.Slot, len(in))
	for i := range in {
		out[i] = in[i].slot()
	}
	return out
}

func groupAppointmentSlots(in []groupAppointmentDTO) []model.Slot {
	out := make([]model.Slot, len(in))
	for i := range in {
		out[i] = in[i].slot()
	}
	return out
}

func (g *Groups) List(ctx context.Context) ([]model.Slot, error) {
	var out []groupDTO
	if err := g.c.get(ctx, "/groups/getgroups", &out); err != nil {
		return nil, err
	}
	return groupSlots(out), nil
}

func (g *Groups) Get(ctx context.Context, groupID int64) (model.Slot, error) {
	var out groupDTO
	err := g.c.get(ctx, "/groups/"+id(groupID), &out)
	return out.slot(), err
}

func (g *Groups) ByInstructor(ctx context.Context, instructorID int64) ([]model.Slot, error) {
	var out []groupDTO
	if err := g.c.get(ctx, "/groups/instructor/"+id(instructorID), &out); err != nil {
		return nil, err
	}
	return groupSlots(out), nil
}

func (g *Groups) Create(ctx context.Context, s model.Slot) (model.Slot, error) {
	in := groupDTO{
		GroupName:    s.Name,
		InstructorID: s.InstructorID,
		MaxMembers:   s.Capacity,
		Description:  s.Description,
	}
	var out groupDTO
	err := g.c.post(ctx, "/groups", in, &out)
	return out.slot(), err
}

func (g *Groups) Delete(ctx context.Context, groupID int64) error {
	return g.c.delete(ctx, "/groups/"+id(groupID))
}

func (g *Groups) MemberCount(ctx context.Context, groupID int64) (int, error) {
	var n int
	err := g.c.get(ctx, "/groupmembers/group/"+id(groupID)+"/count", &n)
	return n, err
}

// Members is the group service's own roster.
func (g *Groups) Members(ctx context.Context, groupID int64) ([]model.GroupMember, error) {
	var out []memberDTO
	if err := g.c.get(ctx, "/groupmembers/group/"+id(groupID), &out); err != nil {
		return nil, err
	}
	return members(out), nil
}

// group appointment slots

func (g *Groups) Appointments(ctx context.Context) ([]model.Slot, error) {
	var out []groupAppointmentDTO
	if err := g.c.get(ctx, "/groupappointments", &out); err != nil {
		return nil, err
	}
	return groupAppointmentSlots(out), nil
}

func (g *Groups) AppointmentsByInstructor(ctx context.Context, instructorID int64) ([]model.Slot, error) {
	var out []groupAppointmentDTO
	if err := g.c.get(ctx, "/groupappointments/by-instructor/"+id(instructorID), &out); err != nil {
		return nil, err
	}
	return groupAppointmentSlots(out), nil
}

func (g *Groups) CreateAppointment(ctx context.Context, s model.Slot) (model.Slot, error) {
	in := groupAppointmentDTO{
		InstructorID:    s.InstructorID,
		AppointmentDate: s.Date,
		StartTime:       s.Start,
		EndTime:         s.End,
		Description:     s.Description,
		Status:          s.Status,
	}
	var out groupAppointmentDTO
	err := g.c.post(ctx, "/groupappointments", in, &out)
	return out.slot(), err
}

func (g *Groups) SetAppointmentStatus(ctx context.Context, appointmentID int64, status string) error {
	return g.c.put(ctx, "/groupappointments/"+id(appointmentID), map[string]string{"status": status}, nil)
}

func (g *Groups) DeleteAppointment(ctx context.Context, appointmentID int64) error {
	return g.c.delete(ctx, "/groupappointments/"+id(appointmentID))
}
