package portal

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"appointment-portal/internal/model"
	"appointment-portal/internal/validate"
)

type InstructorBoard struct {
	Individual []model.Slot `json:"individual"`
	Groups     []model.Slot `json:"groups"`
	GroupSlots []model.Slot `json:"groupSlots"`
	// bookings on the instructor's slots, individual first
	Bookings []model.Booking `json:"bookings"`
}

func (s *Service) InstructorBoard(ctx context.Context, instructorID int64) (*InstructorBoard, error) {
	b := &InstructorBoard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		b.Individual, err = s.individual.ByInstructor(gctx, instructorID)
		return err
	})
	g.Go(func() (err error) {
		b.Groups, err = s.groups.ByInstructor(gctx, instructorID)
		return err
	})
	g.Go(func() (err error) {
		b.GroupSlots, err = s.groups.AppointmentsByInstructor(gctx, instructorID)
		return err
	})
	var indiv, grp []model.Booking
	g.Go(func() (err error) {
		indiv, err = s.scheduler.InstructorBookings(gctx, model.BookingIndividual, instructorID)
		return err
	})
	g.Go(func() (err error) {
		grp, err = s.scheduler.InstructorBookings(gctx, model.BookingGroup, instructorID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.loadFailed(err, "Failed to load appointments")
	}
	for _, l := range []*[]model.Slot{&b.Individual, &b.Groups, &b.GroupSlots} {
		if *l == nil {
			*l = []model.Slot{}
		}
	}
	b.Bookings = append(append([]model.Booking{}, indiv...), grp...)
	return b, nil
}

// SlotInput is the create-appointment dialog.
type SlotInput struct {
	Kind        model.SlotKind `json:"kind" validate:"required,slot_kind"`
	Date        string         `json:"date"`
	Start       string         `json:"startTime"`
	End         string         `json:"endTime"`
	Location    string         `json:"location"`
	Description string         `json:"description"`
	Name        string         `json:"groupName"`
	Capacity    int            `json:"capacity"`
}

var clockLayouts = []string{"15:04", "15:04:05"}

func parseClock(v string) (time.Time, bool) {
	for _, l := range clockLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (in SlotInput) check() error {
	if in.Kind == model.KindGroup {
		if strings.TrimSpace(in.Name) == "" {
			return validate.Field("groupName", "Please fill in all required fields")
		}
		if in.Capacity <= 0 {
			return validate.Field("capacity", "Capacity must be at least 1")
		}
		return nil
	}

	if in.Date == "" || in.Start == "" || in.End == "" {
		return validate.Field("date", "Please fill in all required fields")
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return validate.Field("date", "Date must be YYYY-MM-DD")
	}
	start, ok := parseClock(in.Start)
	if !ok {
		return validate.Field("startTime", "Start time must be HH:MM")
	}
	end, ok := parseClock(in.End)
	if !ok {
		return validate.Field("endTime", "End time must be HH:MM")
	}
	if !end.After(start) {
		return validate.Field("endTime", "End time must be after start time")
	}
	return nil
}

func (s *Service) CreateSlot(ctx context.Context, instructorID int64, in SlotInput) (model.Slot, error) {
	if err := s.valid.Struct(in); err != nil {
		return model.Slot{}, err
	}
	if err := in.check(); err != nil {
		return model.Slot{}, err
	}

	sl := model.Slot{
		Kind:         in.Kind,
		InstructorID: instructorID,
		Description:  strings.TrimSpace(in.Description),
	}
	switch in.Kind {
	case model.KindIndividual:
		sl.Date, sl.Start, sl.End, sl.Location = in.Date, in.Start, in.End, in.Location
		sl.Status = model.SlotAvailable
		out, err := s.individual.Create(ctx, sl)
		if err != nil {
			return model.Slot{}, s.fail(err, "Failed to create individual appointment")
		}
		return out, nil
	case model.KindGroupAppointment:
		sl.Date, sl.Start, sl.End = in.Date, in.Start, in.End
		sl.Status = model.SlotAvailable
		out, err := s.groups.CreateAppointment(ctx, sl)
		if err != nil {
			return model.Slot{}, s.fail(err, "Failed to create group appointment")
		}
		return out, nil
	default:
		sl.Name, sl.Capacity = strings.TrimSpace(in.Name), in.Capacity
		out, err := s.groups.Create(ctx, sl)
		if err != nil {
			return model.Slot{}, s.fail(err, "Failed to create group")
		}
		return out, nil
	}
}

var errNotOwner = status.Error(codes.PermissionDenied, "You can only manage your own appointments")

// owns reports whether the instructor has a slot of kind with id.
func (s *Service) owns(ctx context.Context, instructorID int64, kind model.SlotKind, id int64) (bool, error) {
	var (
		slots []model.Slot
		err   error
	)
	switch kind {
	case model.KindIndividual:
		slots, err = s.individual.ByInstructor(ctx, instructorID)
	case model.KindGroupAppointment:
		slots, err = s.groups.AppointmentsByInstructor(ctx, instructorID)
	default:
		slots, err = s.groups.ByInstructor(ctx, instructorID)
	}
	if err != nil {
		return false, err
	}
	for _, sl := range slots {
		if sl.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) DeleteSlot(ctx context.Context, instructorID int64, kind model.SlotKind, id int64, confirm bool) error {
	if !kind.Valid() {
		return validate.Field("kind", "kind must be individual, group or group_appointment")
	}
	if id <= 0 {
		return validate.Field("id", "Invalid appointment")
	}
	if err := confirmed(confirm); err != nil {
		return err
	}
	ok, err := s.owns(ctx, instructorID, kind, id)
	if err != nil {
		return s.loadFailed(err, "Failed to load appointments")
	}
	if !ok {
		return errNotOwner
	}

	switch kind {
	case model.KindIndividual:
		if err = s.individual.Delete(ctx, id); err != nil {
			return s.fail(err, "Failed to delete individual appointment")
		}
	case model.KindGroupAppointment:
		if err = s.groups.DeleteAppointment(ctx, id); err != nil {
			return s.fail(err, "Failed to delete group appointment")
		}
	case model.KindGroup:
		if err = s.groups.Delete(ctx, id); err != nil {
			return s.fail(err, "Failed to delete group")
		}
	}
	return nil
}

// Roster lists the members of one of the instructor's groups.
func (s *Service) Roster(ctx context.Context, instructorID, groupID int64) ([]model.GroupMember, error) {
	if groupID <= 0 {
		return nil, validate.Field("groupId", "Invalid group")
	}
	ok, err := s.owns(ctx, instructorID, model.KindGroup, groupID)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load group members")
	}
	if !ok {
		return nil, errNotOwner
	}
	members, err := s.groups.Members(ctx, groupID)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load group members")
	}
	if members == nil {
		members = []model.GroupMember{}
	}
	return members, nil
}
