package portal

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"appointment-portal/internal/model"
	"appointment-portal/internal/validate"
)

type AdminBoard struct {
	PendingInstructors []model.User    `json:"pendingInstructors"`
	PendingTAs         []model.User    `json:"pendingTAs"`
	PendingStudents    []model.User    `json:"pendingStudents"`
	StudentMappings    []model.Mapping `json:"studentMappings"`
	TAMappings         []model.Mapping `json:"taMappings"`
}

func (s *Service) AdminBoard(ctx context.Context) (*AdminBoard, error) {
	b := &AdminBoard{}
	g, gctx := errgroup.WithContext(ctx)
	pending := map[model.Role]*[]model.User{
		model.RoleInstructor: &b.PendingInstructors,
		model.RoleTA:         &b.PendingTAs,
		model.RoleStudent:    &b.PendingStudents,
	}
	for role, dst := range pending {
		g.Go(func() (err error) {
			*dst, err = s.users.PendingUsers(gctx, role)
			return err
		})
	}
	g.Go(func() (err error) {
		b.StudentMappings, err = s.users.PendingMappings(gctx, model.MappingStudentInstructor)
		return err
	})
	g.Go(func() (err error) {
		b.TAMappings, err = s.users.PendingMappings(gctx, model.MappingTAInstructor)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.loadFailed(err, "Failed to load pending requests")
	}
	for _, l := range []*[]model.User{&b.PendingInstructors, &b.PendingTAs, &b.PendingStudents} {
		if *l == nil {
			*l = []model.User{}
		}
	}
	if b.StudentMappings == nil {
		b.StudentMappings = []model.Mapping{}
	}
	if b.TAMappings == nil {
		b.TAMappings = []model.Mapping{}
	}
	return b, nil
}

func (s *Service) PendingUsers(ctx context.Context, role model.Role) ([]model.User, error) {
	if role < model.RoleInstructor || role > model.RoleAdmin {
		return nil, validate.Field("role", "Unknown role")
	}
	users, err := s.users.PendingUsers(ctx, role)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load pending users")
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// DecideUser approves or rejects a pending signup.
func (s *Service) DecideUser(ctx context.Context, userID int64, approve, confirm bool) error {
	if userID <= 0 {
		return validate.Field("userId", "Invalid user")
	}
	if !approve {
		if err := confirmed(confirm); err != nil {
			return err
		}
		if err := s.users.RejectUser(ctx, userID); err != nil {
			return s.fail(err, "Failed to reject user")
		}
		return nil
	}
	if err := s.users.ApproveUser(ctx, userID); err != nil {
		return s.fail(err, "Failed to approve user")
	}
	return nil
}

func (s *Service) DecideMapping(ctx context.Context, kind model.MappingKind, mappingID int64, approve, confirm bool) error {
	if kind != model.MappingStudentInstructor && kind != model.MappingTAInstructor {
		return validate.Field("kind", "Unknown mapping kind")
	}
	if mappingID <= 0 {
		return validate.Field("mappingId", "Invalid request")
	}
	if !approve {
		if err := confirmed(confirm); err != nil {
			return err
		}
	}
	if err := s.users.DecideMapping(ctx, kind, mappingID, approve); err != nil {
		if approve {
			return s.fail(err, "Failed to approve request")
		}
		return s.fail(err, "Failed to reject request")
	}
	return nil
}

// DeleteUser removes an account; the caller ends its sessions.
func (s *Service) DeleteUser(ctx context.Context, userID int64, confirm bool) error {
	if userID <= 0 {
		return validate.Field("userId", "Invalid user")
	}
	if err := confirmed(confirm); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return s.fail(err, "Failed to delete user")
	}
	return nil
}

func (s *Service) AllUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load users")
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// BookingFilter narrows the admin booking list. Empty fields match all.
type BookingFilter struct {
	Status string            `form:"status"`
	Type   model.BookingType `form:"type"`
}

func (s *Service) Bookings(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	if f.Type != "" && f.Type != model.BookingIndividual && f.Type != model.BookingGroup {
		return nil, validate.Field("type", "type must be individual or group")
	}

	var (
		list []model.Booking
		err  error
	)
	switch {
	case f.Status != "":
		list, err = s.scheduler.BookingsByStatus(ctx, f.Status)
	case f.Type != "":
		list, err = s.scheduler.BookingsByType(ctx, f.Type)
	default:
		list, err = s.scheduler.AllBookings(ctx)
	}
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load bookings")
	}

	out := []model.Booking{}
	for _, b := range list {
		if f.Status != "" && f.Type != "" && b.Type != f.Type {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// SlotOverview is every slot on offer across instructors.
type SlotOverview struct {
	Individual []model.Slot `json:"individual"`
	Groups     []model.Slot `json:"groups"`
	GroupSlots []model.Slot `json:"groupSlots"`
}

func (s *Service) Slots(ctx context.Context) (*SlotOverview, error) {
	o := &SlotOverview{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		o.Individual, err = s.individual.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		o.Groups, err = s.groups.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		o.GroupSlots, err = s.groups.Appointments(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.loadFailed(err, "Failed to load appointments")
	}
	for _, l := range []*[]model.Slot{&o.Individual, &o.Groups, &o.GroupSlots} {
		if *l == nil {
			*l = []model.Slot{}
		}
	}
	return o, nil
}
