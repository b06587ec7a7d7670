package portal

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"appointment-portal/internal/model"
)

// TABooking is a booking of the TA's instructor with the student and the
// booked slot or group filled in.
type TABooking struct {
	model.Booking
	Student *model.User `json:"student,omitempty"`
	Slot    *model.Slot `json:"slot,omitempty"`
	Group   *model.Slot `json:"group,omitempty"`
	// group rows: bookings collapsed into this row, and current members
	TotalBookings int `json:"totalBookings,omitempty"`
	MemberCount   int `json:"memberCount,omitempty"`
}

type TADashboard struct {
	Instructor model.User  `json:"instructor"`
	Individual []TABooking `json:"individual"`
	Group      []TABooking `json:"group"`
}

func (s *Service) TADashboard(ctx context.Context, taID int64) (*TADashboard, error) {
	inst, err := s.users.AssignedInstructor(ctx, taID)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load assigned instructor. Please contact administrator.")
	}

	var (
		indivBookings []model.Booking
		groupBookings []model.Booking
		slots         []model.Slot
		groups        []model.Slot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		indivBookings, err = s.scheduler.IndividualBookings(gctx)
		return err
	})
	g.Go(func() (err error) {
		groupBookings, err = s.scheduler.GroupBookings(gctx)
		return err
	})
	g.Go(func() (err error) {
		slots, err = s.individual.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		groups, err = s.groups.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.loadFailed(err, "Failed to load booked appointments")
	}

	d := &TADashboard{
		Instructor: inst,
		Individual: individualRows(indivBookings, slots, inst.ID),
		Group:      groupRows(groupBookings, groups, inst.ID),
	}
	if err := s.enrich(ctx, d); err != nil {
		return nil, s.loadFailed(err, "Failed to load booked appointments")
	}
	return d, nil
}

func individualRows(bookings []model.Booking, slots []model.Slot, instructorID int64) []TABooking {
	byID := make(map[int64]model.Slot, len(slots))
	for _, sl := range slots {
		byID[sl.ID] = sl
	}
	rows := []TABooking{}
	for _, b := range bookings {
		if b.AppointmentID <= 0 {
			continue
		}
		sl, ok := byID[b.AppointmentID]
		if !ok || sl.InstructorID != instructorID {
			continue
		}
		rows = append(rows, TABooking{Booking: b, Slot: &sl})
	}
	return rows
}

// groupRows collapses group bookings to one row per group, showing the
// earliest booker. Groups keep the order of their first booking.
func groupRows(bookings []model.Booking, groups []model.Slot, instructorID int64) []TABooking {
	byID := make(map[int64]model.Slot, len(groups))
	for _, gr := range groups {
		byID[gr.ID] = gr
	}

	var order []int64
	byGroup := make(map[int64][]model.Booking)
	for _, b := range bookings {
		if b.GroupID <= 0 {
			continue
		}
		if _, seen := byGroup[b.GroupID]; !seen {
			order = append(order, b.GroupID)
		}
		byGroup[b.GroupID] = append(byGroup[b.GroupID], b)
	}

	rows := []TABooking{}
	for _, gid := range order {
		gr, ok := byID[gid]
		if !ok || gr.InstructorID != instructorID {
			continue
		}
		bs := byGroup[gid]
		sort.SliceStable(bs, func(i, j int) bool {
			return bs[i].BookedTime().Before(bs[j].BookedTime())
		})
		rows = append(rows, TABooking{Booking: bs[0], Group: &gr, TotalBookings: len(bs)})
	}
	return rows
}

// enrich looks up every row's student and every group's member count.
// A student the user service no longer knows is left empty.
func (s *Service) enrich(ctx context.Context, d *TADashboard) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanout)

	student := func(row *TABooking) {
		g.Go(func() error {
			u, err := s.users.Get(gctx, row.StudentID)
			if isNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			row.Student = &u
			return nil
		})
	}
	for i := range d.Individual {
		student(&d.Individual[i])
	}
	for i := range d.Group {
		row := &d.Group[i]
		student(row)
		g.Go(func() (err error) {
			row.MemberCount, err = s.groups.MemberCount(gctx, row.GroupID)
			return err
		})
	}
	return g.Wait()
}
