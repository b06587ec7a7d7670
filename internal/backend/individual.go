package backend

import (
	"context"

	"appointment-portal/internal/model"
)

type Individual struct{ c *client }

type individualDTO struct {
	AppointmentID   int64  `json:"appointmentId,omitempty"`
	InstructorID    int64  `json:"instructorId"`
	AppointmentDate string `json:"appointmentDate"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	Location        string `json:"location,omitempty"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status,omitempty"`
}

func (d individualDTO) slot() model.Slot {
	return model.Slot{
		Kind:         model.KindIndividual,
		ID:           d.AppointmentID,
		InstructorID: d.InstructorID,
		Status:       d.Status,
		Description:  d.Description,
		Date:         d.AppointmentDate,
		Start:        d.StartTime,
		End:          d.EndTime,
		Location:     d.Location,
	}
}

func individualSlots(in []individualDTO) []model.Slot {
	out := make([]model.Slot, len(in))
	for i := range in {
		out[i] = in[i].slot()
	}
	return out
}

func (a *Individual) List(ctx context.Context) ([]model.Slot, error) {
	var out []individualDTO
	if err := a.c.get(ctx, "/appointments/individual", &out); err != nil {
		return nil, err
	}
	return individualSlots(out), nil
}

func (a *Individual) ByInstructor(ctx context.Context, instructorID int64) ([]model.Slot, error) {
	var out []individualDTO
	if err := a.c.get(ctx, "/appointments/individual/instructor/"+id(instructorID), &out); err != nil {
		return nil, err
	}
	return individualSlots(out), nil
}

func (a *Individual) Create(ctx context.Context, s model.Slot) (model.Slot, error) {
	in := individualDTO{
		InstructorID:    s.InstructorID,
		AppointmentDate: s.Date,
		StartTime:       s.Start,
		EndTime:         s.End,
		Location:        s.Location,
		Description:     s.Description,
		Status:          s.Status,
	}
	var out individualDTO
	err := a.c.post(ctx, "/appointments/individual", in, &out)
	return out.slot(), err
}

func (a *Individual) SetStatus(ctx context.Context, appointmentID int64, status string) error {
	return a.c.put(ctx, "/appointments/individual/"+id(appointmentID), map[string]string{"status": status}, nil)
}

func (a *Individual) Delete(ctx context.Context, appointmentID int64) error {
	return a.c.delete(ctx, "/appointments/individual/"+id(appointmentID))
}
