package portal

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"appointment-portal/internal/backend"
	"appointment-portal/internal/model"
	"appointment-portal/internal/validate"
)

// Action is the body of every student mutation. InstructorID, when set,
// asks for a fresh Availability in the result.
type Action struct {
	AppointmentID      int64  `json:"appointmentId"`
	GroupID            int64  `json:"groupId"`
	GroupAppointmentID int64  `json:"groupAppointmentId"`
	BookingID          int64  `json:"bookingId"`
	GroupName          string `json:"groupName"`
	Description        string `json:"description"`
	Reason             string `json:"reason"`
	InstructorID       int64  `json:"instructorId"`
	Confirm            bool   `json:"confirm"`
}

type Result struct {
	Message      string             `json:"message"`
	Booking      *model.Booking     `json:"booking,omitempty"`
	Member       *model.GroupMember `json:"member,omitempty"`
	Availability *Availability      `json:"availability,omitempty"`
	RefreshError string             `json:"refreshError,omitempty"`
}

// done re-runs the reconciliation after a successful mutation. A failed
// refresh does not undo the mutation; it is reported next to it.
func (s *Service) done(ctx context.Context, studentID int64, a Action, r *Result) *Result {
	if a.InstructorID <= 0 {
		return r
	}
	av, err := s.Availability(ctx, studentID, a.InstructorID)
	if err != nil {
		r.RefreshError = status.Convert(err).Message()
		return r
	}
	r.Availability = av
	return r
}

func (s *Service) BookIndividual(ctx context.Context, studentID int64, a Action) (*Result, error) {
	if a.AppointmentID <= 0 {
		return nil, validate.Field("appointmentId", "Invalid appointment")
	}
	if err := confirmed(a.Confirm); err != nil {
		return nil, err
	}

	b, err := s.scheduler.BookIndividual(ctx, backend.BookingRequest{
		StudentID:     studentID,
		AppointmentID: a.AppointmentID,
		Description:   a.Description,
	})
	if err != nil {
		return nil, s.fail(err, "Failed to book appointment")
	}
	if err := s.individual.SetStatus(ctx, a.AppointmentID, model.SlotBooked); err != nil {
		s.log.Warn("appointment status update failed", a.AppointmentID, err)
	}
	return s.done(ctx, studentID, a, &Result{Message: "Appointment booked successfully!", Booking: &b}), nil
}

// BookGroup books a group slot for the calling student only.
func (s *Service) BookGroup(ctx context.Context, studentID int64, a Action) (*Result, error) {
	if a.GroupID <= 0 {
		return nil, validate.Field("groupId", "Invalid group")
	}
	if err := confirmed(a.Confirm); err != nil {
		return nil, err
	}

	b, err := s.scheduler.BookGroup(ctx, backend.BookingRequest{
		StudentID:          studentID,
		GroupID:            a.GroupID,
		GroupAppointmentID: a.GroupAppointmentID,
		Description:        a.Description,
	})
	if err != nil {
		return nil, s.fail(err, "Failed to book group appointment")
	}
	return s.done(ctx, studentID, a, &Result{Message: "Group appointment booked successfully!", Booking: &b}), nil
}

// BookGroupForAll books the chosen slot for every member of the group.
// Groups with fewer than two members are refused before the booking call.
func (s *Service) BookGroupForAll(ctx context.Context, studentID int64, a Action) (*Result, error) {
	if a.GroupID <= 0 {
		return nil, validate.Field("groupId", "Invalid group")
	}
	if a.GroupAppointmentID <= 0 {
		return nil, validate.Field("groupAppointmentId", "Please select an appointment slot for this group")
	}
	if err := confirmed(a.Confirm); err != nil {
		return nil, err
	}

	n, err := s.groups.MemberCount(ctx, a.GroupID)
	if err != nil {
		return nil, s.fail(err, "Failed to book group appointment")
	}
	if n < minGroupBooking {
		return nil, status.Error(codes.FailedPrecondition, "Group needs at least 2 members to book!")
	}

	desc := a.GroupName
	if desc == "" {
		desc = "Group Appointment"
	}
	b, err := s.scheduler.BookGroupForAll(ctx, backend.BookingRequest{
		StudentID:          studentID,
		GroupID:            a.GroupID,
		GroupAppointmentID: a.GroupAppointmentID,
		Description:        desc,
	})
	if err != nil {
		return nil, s.fail(err, "Failed to book group appointment")
	}
	if err := s.groups.SetAppointmentStatus(ctx, a.GroupAppointmentID, model.SlotBooked); err != nil {
		s.log.Warn("group appointment status update failed", a.GroupAppointmentID, err)
	}
	return s.done(ctx, studentID, a, &Result{Message: "Group appointment booked successfully for all members!", Booking: &b}), nil
}

func cancelArgs(a Action) (string, error) {
	if a.BookingID <= 0 {
		return "", validate.Field("bookingId", "Invalid booking")
	}
	if err := confirmed(a.Confirm); err != nil {
		return "", err
	}
	reason := strings.TrimSpace(a.Reason)
	if reason == "" {
		return "", validate.Field("reason", "Cancellation reason is required")
	}
	return reason, nil
}

func (s *Service) CancelBooking(ctx context.Context, studentID int64, a Action) (*Result, error) {
	reason, err := cancelArgs(a)
	if err != nil {
		return nil, err
	}
	if err := s.scheduler.Cancel(ctx, a.BookingID, reason); err != nil {
		return nil, s.fail(err, "Failed to cancel booking")
	}
	return s.done(ctx, studentID, a, &Result{Message: "Booking cancelled successfully"}), nil
}

// CancelGroupBooking cancels a group booking for every member.
func (s *Service) CancelGroupBooking(ctx context.Context, studentID int64, a Action) (*Result, error) {
	reason, err := cancelArgs(a)
	if err != nil {
		return nil, err
	}
	if err := s.scheduler.CancelGroup(ctx, a.BookingID, reason); err != nil {
		return nil, s.fail(err, "Failed to cancel group booking")
	}
	return s.done(ctx, studentID, a, &Result{Message: "Group booking cancelled successfully"}), nil
}

// JoinGroup refuses full groups without calling join.
func (s *Service) JoinGroup(ctx context.Context, studentID int64, a Action) (*Result, error) {
	if a.GroupID <= 0 {
		return nil, validate.Field("groupId", "Invalid group")
	}
	if err := confirmed(a.Confirm); err != nil {
		return nil, err
	}

	var (
		group model.Slot
		count int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		group, err = s.groups.Get(gctx, a.GroupID)
		return err
	})
	g.Go(func() (err error) {
		count, err = s.groups.MemberCount(gctx, a.GroupID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(err, "Failed to join group")
	}
	if group.Capacity > 0 && count >= group.Capacity {
		return nil, status.Error(codes.FailedPrecondition, "This group is full!")
	}

	m, err := s.scheduler.Join(ctx, studentID, a.GroupID)
	if err != nil {
		return nil, s.fail(err, "Failed to join group")
	}
	return s.done(ctx, studentID, a, &Result{Message: "Successfully joined the group!", Member: &m}), nil
}

func (s *Service) LeaveGroup(ctx context.Context, studentID int64, a Action) (*Result, error) {
	if a.GroupID <= 0 {
		return nil, validate.Field("groupId", "Invalid group")
	}
	if err := confirmed(a.Confirm); err != nil {
		return nil, err
	}
	if err := s.scheduler.Leave(ctx, studentID, a.GroupID); err != nil {
		return nil, s.fail(err, "Failed to leave group")
	}
	return s.done(ctx, studentID, a, &Result{Message: "Left the group successfully"}), nil
}
