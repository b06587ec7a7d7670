package portal

import (
	"context"

	"golang.org/x/sync/errgroup"

	"appointment-portal/internal/model"
	"appointment-portal/internal/validate"
)

// GroupOffer is one of an instructor's groups as a given student sees it.
type GroupOffer struct {
	Group         model.Slot  `json:"group"`
	Member        bool        `json:"member"`
	MemberCount   int         `json:"memberCount"`
	Full          bool        `json:"full"`
	CanBookForAll bool        `json:"canBookForAll"`
	Slot          *model.Slot `json:"slot,omitempty"`
}

// Availability is what a student may still book with one instructor.
type Availability struct {
	InstructorID int64        `json:"instructorId"`
	Individual   []model.Slot `json:"individual"`
	GroupSlots   []model.Slot `json:"groupSlots"`
	Groups       []GroupOffer `json:"groups"`
	// groups the student belongs to, each paired with a free group slot
	MyGroups []GroupOffer `json:"myGroups"`
}

const minGroupBooking = 2

// Availability fetches the instructor's slots, all groups and all bookings
// at once and drops everything a confirmed booking already holds. Any
// failed fetch fails the whole call.
func (s *Service) Availability(ctx context.Context, studentID, instructorID int64) (*Availability, error) {
	if instructorID <= 0 {
		return nil, validate.Field("instructorId", "Please select an instructor")
	}

	var (
		individual []model.Slot
		groups     []model.Slot
		groupSlots []model.Slot
		bookings   []model.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		individual, err = s.individual.ByInstructor(gctx, instructorID)
		return err
	})
	g.Go(func() (err error) {
		groups, err = s.groups.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		groupSlots, err = s.groups.AppointmentsByInstructor(gctx, instructorID)
		return err
	})
	g.Go(func() (err error) {
		bookings, err = s.scheduler.AllBookings(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.loadFailed(err, "Failed to load appointments")
	}

	held := heldBy(bookings)

	av := &Availability{
		InstructorID: instructorID,
		Individual:   []model.Slot{},
		GroupSlots:   []model.Slot{},
		Groups:       []GroupOffer{},
		MyGroups:     []GroupOffer{},
	}
	for _, sl := range individual {
		if sl.ID > 0 && !held.appointments[sl.ID] {
			av.Individual = append(av.Individual, sl)
		}
	}
	for _, sl := range groupSlots {
		if sl.ID > 0 && !held.groupAppointments[sl.ID] && sl.Status == model.SlotAvailable {
			av.GroupSlots = append(av.GroupSlots, sl)
		}
	}

	var mine []model.Slot
	for _, gr := range groups {
		if gr.InstructorID == instructorID && gr.ID > 0 && !gr.Booked && !held.groups[gr.ID] {
			mine = append(mine, gr)
		}
	}

	offers, err := s.groupOffers(ctx, studentID, mine)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load appointments")
	}
	av.Groups = offers
	for _, o := range offers {
		if !o.Member {
			continue
		}
		// every group gets the first free slot; the student can pick another
		if len(av.GroupSlots) > 0 {
			sl := av.GroupSlots[0]
			o.Slot = &sl
		}
		av.MyGroups = append(av.MyGroups, o)
	}
	return av, nil
}

type held struct {
	appointments      map[int64]bool
	groupAppointments map[int64]bool
	groups            map[int64]bool
}

func heldBy(bookings []model.Booking) held {
	h := held{
		appointments:      make(map[int64]bool),
		groupAppointments: make(map[int64]bool),
		groups:            make(map[int64]bool),
	}
	for _, b := range bookings {
		if !b.Confirmed() {
			continue
		}
		switch b.Type {
		case model.BookingIndividual:
			if b.AppointmentID > 0 {
				h.appointments[b.AppointmentID] = true
			}
		case model.BookingGroup:
			if b.GroupAppointmentID > 0 {
				h.groupAppointments[b.GroupAppointmentID] = true
			}
			if b.GroupID > 0 {
				h.groups[b.GroupID] = true
			}
		}
	}
	return h
}

// groupOffers checks membership and member count of every group
// concurrently. Results land at the group's index, so the output keeps
// the input order.
func (s *Service) groupOffers(ctx context.Context, studentID int64, groups []model.Slot) ([]GroupOffer, error) {
	offers := make([]GroupOffer, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanout)
	for i, gr := range groups {
		offers[i].Group = gr
		g.Go(func() (err error) {
			offers[i].Member, err = s.scheduler.IsMember(gctx, gr.ID, studentID)
			return err
		})
		g.Go(func() error {
			n, err := s.groups.MemberCount(gctx, gr.ID)
			if err != nil {
				return err
			}
			offers[i].MemberCount = n
			offers[i].Full = gr.Capacity > 0 && n >= gr.Capacity
			offers[i].CanBookForAll = n >= minGroupBooking
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return offers, nil
}
