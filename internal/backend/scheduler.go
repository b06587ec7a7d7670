package backend

import (
	"context"
	"net/url"

	"appointment-portal/internal/model"
)

const schedulerPrefix = "/api/scheduler"

// Scheduler talks to the booking service. Its wire format for bookings is
// the same camelCase shape as model.Booking.
type Scheduler struct{ c *client }

// BookingRequest is the body of every book call.
type BookingRequest struct {
	StudentID          int64  `json:"studentId"`
	AppointmentID      int64  `json:"appointmentId,omitempty"`
	GroupID            int64  `json:"groupId,omitempty"`
	GroupAppointmentID int64  `json:"groupAppointmentId,omitempty"`
	Status             string `json:"status,omitempty"`
	Description        string `json:"description,omitempty"`
}

type membershipRequest struct {
	StudentID int64 `json:"studentId"`
	GroupID   int64 `json:"groupId"`
}

func (s *Scheduler) book(ctx context.Context, path string, req BookingRequest) (model.Booking, error) {
	if req.Status == "" {
		req.Status = model.BookingConfirmed
	}
	var out model.Booking
	err := s.c.post(ctx, schedulerPrefix+path, req, &out)
	return out, err
}

func (s *Scheduler) BookIndividual(ctx context.Context, req BookingRequest) (model.Booking, error) {
	return s.book(ctx, "/book/individual", req)
}

func (s *Scheduler) BookGroup(ctx context.Context, req BookingRequest) (model.Booking, error) {
	return s.book(ctx, "/book/group", req)
}

func (s *Scheduler) BookGroupForAll(ctx context.Context, req BookingRequest) (model.Booking, error) {
	return s.book(ctx, "/book/group/all", req)
}

func (s *Scheduler) Cancel(ctx context.Context, bookingID int64, reason string) error {
	return s.c.put(ctx, schedulerPrefix+"/cancel/"+id(bookingID), map[string]string{"reason": reason}, nil)
}

func (s *Scheduler) CancelGroup(ctx context.Context, bookingID int64, reason string) error {
	return s.c.put(ctx, schedulerPrefix+"/cancel/group/"+id(bookingID), map[string]string{"reason": reason}, nil)
}

func (s *Scheduler) bookings(ctx context.Context, path string) ([]model.Booking, error) {
	var out []model.Booking
	if err := s.c.get(ctx, schedulerPrefix+path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Scheduler) StudentBookings(ctx context.Context, studentID int64) ([]model.Booking, error) {
	return s.bookings(ctx, "/student/"+id(studentID))
}

func (s *Scheduler) AllBookings(ctx context.Context) ([]model.Booking, error) {
	return s.bookings(ctx, "/bookings/all")
}

func (s *Scheduler) IndividualBookings(ctx context.Context) ([]model.Booking, error) {
	return s.bookings(ctx, "/bookings/individual")
}

func (s *Scheduler) GroupBookings(ctx context.Context) ([]model.Booking, error) {
	return s.bookings(ctx, "/bookings/group")
}

func (s *Scheduler) BookingsByType(ctx context.Context, t model.BookingType) ([]model.Booking, error) {
	return s.bookings(ctx, "/bookings/type/"+url.PathEscape(string(t)))
}

func (s *Scheduler) BookingsByStatus(ctx context.Context, status string) ([]model.Booking, error) {
	return s.bookings(ctx, "/bookings/status/"+url.PathEscape(status))
}

// InstructorBookings lists bookings of one type on the instructor's slots.
func (s *Scheduler) InstructorBookings(ctx context.Context, t model.BookingType, instructorID int64) ([]model.Booking, error) {
	return s.bookings(ctx, "/bookings/"+url.PathEscape(string(t))+"/instructor/"+id(instructorID))
}

// group membership

func (s *Scheduler) Join(ctx context.Context, studentID, groupID int64) (model.GroupMember, error) {
	var out memberDTO
	err := s.c.post(ctx, schedulerPrefix+"/groups/join", membershipRequest{studentID, groupID}, &out)
	return model.GroupMember{ID: out.GroupMemberID, GroupID: out.GroupID, StudentID: out.StudentID, JoinedAt: out.JoinedAt}, err
}

func (s *Scheduler) Leave(ctx context.Context, studentID, groupID int64) error {
	return s.c.post(ctx, schedulerPrefix+"/groups/leave", membershipRequest{studentID, groupID}, nil)
}

func (s *Scheduler) IsMember(ctx context.Context, groupID, studentID int64) (bool, error) {
	var ok bool
	err := s.c.get(ctx, schedulerPrefix+"/groups/"+id(groupID)+"/is-member/"+id(studentID), &ok)
	return ok, err
}

func (s *Scheduler) Members(ctx context.Context, groupID int64) ([]model.GroupMember, error) {
	var out []memberDTO
	if err := s.c.get(ctx, schedulerPrefix+"/groups/"+id(groupID)+"/members", &out); err != nil {
		return nil, err
	}
	return members(out), nil
}
