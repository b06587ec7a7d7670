// Package portal implements what each role's screens do: it fans out to the
// backend services, joins and filters their answers, and gates mutations
// behind the checks the backends leave to the caller.
package portal

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"appointment-portal/internal/backend"
	"appointment-portal/internal/logger"
	"appointment-portal/internal/model"
	"appointment-portal/internal/validate"
)

type Users interface {
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, userID int64) (model.User, error)
	Create(ctx context.Context, nu backend.NewUser) (model.User, error)
	Delete(ctx context.Context, userID int64) error
	Professors(ctx context.Context) ([]model.User, error)
	AssignedInstructor(ctx context.Context, taID int64) (model.User, error)
	RequestInstructor(ctx context.Context, studentID, instructorID int64) error
	PendingUsers(ctx context.Context, role model.Role) ([]model.User, error)
	ApproveUser(ctx context.Context, userID int64) error
	RejectUser(ctx context.Context, userID int64) error
	PendingMappings(ctx context.Context, kind model.MappingKind) ([]model.Mapping, error)
	DecideMapping(ctx context.Context, kind model.MappingKind, mappingID int64, approve bool) error
}

type Groups interface {
	List(ctx context.Context) ([]model.Slot, error)
	Get(ctx context.Context, groupID int64) (model.Slot, error)
	ByInstructor(ctx context.Context, instructorID int64) ([]model.Slot, error)
	Create(ctx context.Context, s model.Slot) (model.Slot, error)
	Delete(ctx context.Context, groupID int64) error
	MemberCount(ctx context.Context, groupID int64) (int, error)
	Members(ctx context.Context, groupID int64) ([]model.GroupMember, error)
	Appointments(ctx context.Context) ([]model.Slot, error)
	AppointmentsByInstructor(ctx context.Context, instructorID int64) ([]model.Slot, error)
	CreateAppointment(ctx context.Context, s model.Slot) (model.Slot, error)
	SetAppointmentStatus(ctx context.Context, appointmentID int64, status string) error
	DeleteAppointment(ctx context.Context, appointmentID int64) error
}

type Individual interface {
	List(ctx context.Context) ([]model.Slot, error)
	ByInstructor(ctx context.Context, instructorID int64) ([]model.Slot, error)
	Create(ctx context.Context, s model.Slot) (model.Slot, error)
	SetStatus(ctx context.Context, appointmentID int64, status string) error
	Delete(ctx context.Context, appointmentID int64) error
}

type Scheduler interface {
	BookIndividual(ctx context.Context, req backend.BookingRequest) (model.Booking, error)
	BookGroup(ctx context.Context, req backend.BookingRequest) (model.Booking, error)
	BookGroupForAll(ctx context.Context, req backend.BookingRequest) (model.Booking, error)
	Cancel(ctx context.Context, bookingID int64, reason string) error
	CancelGroup(ctx context.Context, bookingID int64, reason string) error
	StudentBookings(ctx context.Context, studentID int64) ([]model.Booking, error)
	AllBookings(ctx context.Context) ([]model.Booking, error)
	IndividualBookings(ctx context.Context) ([]model.Booking, error)
	GroupBookings(ctx context.Context) ([]model.Booking, error)
	BookingsByType(ctx context.Context, t model.BookingType) ([]model.Booking, error)
	BookingsByStatus(ctx context.Context, status string) ([]model.Booking, error)
	InstructorBookings(ctx context.Context, t model.BookingType, instructorID int64) ([]model.Booking, error)
	Join(ctx context.Context, studentID, groupID int64) (model.GroupMember, error)
	Leave(ctx context.Context, studentID, groupID int64) error
	IsMember(ctx context.Context, groupID, studentID int64) (bool, error)
	Members(ctx context.Context, groupID int64) ([]model.GroupMember, error)
}

type Service struct {
	users      Users
	groups     Groups
	individual Individual
	scheduler  Scheduler

	log   logger.Logger
	valid *validate.Validator
}

func New(u Users, g Groups, i Individual, s Scheduler, log logger.Logger) *Service {
	return &Service{
		users:      u,
		groups:     g,
		individual: i,
		scheduler:  s,
		log:        log,
		valid:      validate.New(),
	}
}

// NewFromClients wires the service to the REST clients.
func NewFromClients(c backend.Clients, log logger.Logger) *Service {
	return New(c.Users, c.Groups, c.Individual, c.Scheduler, log)
}

// max concurrent per-item sub-fetches
const fanout = 8

var errConfirm = status.Error(codes.FailedPrecondition, "confirmation required")

func confirmed(ok bool) error {
	if !ok {
		return errConfirm
	}
	return nil
}

func codeFor(err error) codes.Code {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		switch apiErr.Status {
		case 400, 422:
			return codes.InvalidArgument
		case 401:
			return codes.Unauthenticated
		case 403:
			return codes.PermissionDenied
		case 404:
			return codes.NotFound
		case 409:
			return codes.AlreadyExists
		}
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Unavailable
}

// fail turns a backend error from a mutation into a status carrying the
// server's message, or fallback when it sent none.
func (s *Service) fail(err error, fallback string) error {
	s.log.Error(fallback, err)
	msg := fallback
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return status.Error(codeFor(err), msg)
}

// loadFailed is fail for reads: one fixed message whatever went wrong.
func (s *Service) loadFailed(err error, msg string) error {
	s.log.Error(msg, err)
	return status.Error(codeFor(err), msg)
}

func isNotFound(err error) bool {
	var apiErr *backend.APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
