package portal_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"appointment-portal/internal/backend"
	"appointment-portal/internal/logger"
	"appointment-portal/internal/model"
	"appointment-portal/internal/portal"
)

// world is an in-memory stand-in for all four backend services.
type world struct {
	mu sync.Mutex

	users      []model.User
	individual []model.Slot
	groups     []model.Slot
	groupSlots []model.Slot
	bookings   []model.Booking
	members    map[int64][]int64 // group -> students
	assigned   map[int64]int64   // ta -> instructor
	mappings   map[model.MappingKind][]model.Mapping
	decisions  []string // "approve student-instructor 3"

	fail  map[string]error
	delay map[int64]time.Duration // per group, applied to IsMember
	calls map[string]int
	sets  map[int64]string // status updates by slot id
}

func newWorld() *world {
	return &world{
		members:  make(map[int64][]int64),
		assigned: make(map[int64]int64),
		mappings: make(map[model.MappingKind][]model.Mapping),
		fail:     make(map[string]error),
		delay:    make(map[int64]time.Duration),
		calls:    make(map[string]int),
		sets:     make(map[int64]string),
	}
}

func (w *world) call(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[name]++
	return w.fail[name]
}

func (w *world) count(name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[name]
}

func (w *world) total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.calls {
		n += c
	}
	return n
}

func (w *world) service() *portal.Service {
	l := logger.NewStd(log.New(io.Discard, "", 0))
	return portal.New(fakeUsers{w}, fakeGroups{w}, fakeIndividual{w}, fakeScheduler{w}, l)
}

func notFound() error { return &backend.APIError{Status: 404, Message: "not found"} }

type fakeUsers struct{ w *world }

func (f fakeUsers) List(ctx context.Context) ([]model.User, error) {
	if err := f.w.call("Users.List"); err != nil {
		return nil, err
	}
	return f.w.users, nil
}

func (f fakeUsers) Get(ctx context.Context, id int64) (model.User, error) {
	if err := f.w.call("Users.Get"); err != nil {
		return model.User{}, err
	}
	for _, u := range f.w.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, notFound()
}

func (f fakeUsers) Create(ctx context.Context, nu backend.NewUser) (model.User, error) {
	if err := f.w.call("Users.Create"); err != nil {
		return model.User{}, err
	}
	return model.User{ID: 99, Email: nu.Email, Role: model.Role(nu.RoleID)}, nil
}

func (f fakeUsers) Delete(ctx context.Context, id int64) error { return f.w.call("Users.Delete") }

func (f fakeUsers) Professors(ctx context.Context) ([]model.User, error) {
	if err := f.w.call("Users.Professors"); err != nil {
		return nil, err
	}
	var out []model.User
	for _, u := range f.w.users {
		if u.Role == model.RoleInstructor {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f fakeUsers) AssignedInstructor(ctx context.Context, taID int64) (model.User, error) {
	if err := f.w.call("Users.AssignedInstructor"); err != nil {
		return model.User{}, err
	}
	return f.Get(ctx, f.w.assigned[taID])
}

func (f fakeUsers) RequestInstructor(ctx context.Context, studentID, instructorID int64) error {
	return f.w.call("Users.RequestInstructor")
}

func (f fakeUsers) PendingUsers(ctx context.Context, role model.Role) ([]model.User, error) {
	if err := f.w.call("Users.PendingUsers"); err != nil {
		return nil, err
	}
	var out []model.User
	for _, u := range f.w.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f fakeUsers) ApproveUser(ctx context.Context, id int64) error { return f.w.call("Users.ApproveUser") }
func (f fakeUsers) RejectUser(ctx context.Context, id int64) error  { return f.w.call("Users.RejectUser") }

func (f fakeUsers) PendingMappings(ctx context.Context, kind model.MappingKind) ([]model.Mapping, error) {
	if err := f.w.call("Users.PendingMappings"); err != nil {
		return nil, err
	}
	return f.w.mappings[kind], nil
}

func (f fakeUsers) DecideMapping(ctx context.Context, kind model.MappingKind, id int64, approve bool) error {
	if err := f.w.call("Users.DecideMapping"); err != nil {
		return err
	}
	verb := "reject"
	if approve {
		verb = "approve"
	}
	f.w.mu.Lock()
	f.w.decisions = append(f.w.decisions, fmt.Sprintf("%s %s %d", verb, kind, id))
	f.w.mu.Unlock()
	return nil
}

type fakeGroups struct{ w *world }

func (f fakeGroups) List(ctx context.Context) ([]model.Slot, error) {
	if err := f.w.call("Groups.List"); err != nil {
		return nil, err
	}
	return f.w.groups, nil
}

func (f fakeGroups) Get(ctx context.Context, id int64) (model.Slot, error) {
	if err := f.w.call("Groups.Get"); err != nil {
		return model.Slot{}, err
	}
	for _, g := range f.w.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return model.Slot{}, notFound()
}

func (f fakeGroups) ByInstructor(ctx context.Context, id int64) ([]model.Slot, error) {
	if err := f.w.call("Groups.ByInstructor"); err != nil {
		return nil, err
	}
	var out []model.Slot
	for _, g := range f.w.groups {
		if g.InstructorID == id {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f fakeGroups) Create(ctx context.Context, s model.Slot) (model.Slot, error) {
	if err := f.w.call("Groups.Create"); err != nil {
		return model.Slot{}, err
	}
	s.ID = 500
	return s, nil
}

func (f fakeGroups) Delete(ctx context.Context, id int64) error { return f.w.call("Groups.Delete") }

func (f fakeGroups) MemberCount(ctx context.Context, id int64) (int, error) {
	if err := f.w.call("Groups.MemberCount"); err != nil {
		return 0, err
	}
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	return len(f.w.members[id]), nil
}

func (f fakeGroups) Members(ctx context.Context, id int64) ([]model.GroupMember, error) {
	if err := f.w.call("Groups.Members"); err != nil {
		return nil, err
	}
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []model.GroupMember
	for _, s := range f.w.members[id] {
		out = append(out, model.GroupMember{GroupID: id, StudentID: s})
	}
	return out, nil
}

func (f fakeGroups) Appointments(ctx context.Context) ([]model.Slot, error) {
	if err := f.w.call("Groups.Appointments"); err != nil {
		return nil, err
	}
	return f.w.groupSlots, nil
}

func (f fakeGroups) AppointmentsByInstructor(ctx context.Context, id int64) ([]model.Slot, error) {
	if err := f.w.call("Groups.AppointmentsByInstructor"); err != nil {
		return nil, err
	}
	var out []model.Slot
	for _, s := range f.w.groupSlots {
		if s.InstructorID == id {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f fakeGroups) CreateAppointment(ctx context.Context, s model.Slot) (model.Slot, error) {
	if err := f.w.call("Groups.CreateAppointment"); err != nil {
		return model.Slot{}, err
	}
	s.ID = 600
	return s, nil
}

func (f fakeGroups) SetAppointmentStatus(ctx context.Context, id int64, status string) error {
	if err := f.w.call("Groups.SetAppointmentStatus"); err != nil {
		return err
	}
	f.w.mu.Lock()
	f.w.sets[id] = status
	f.w.mu.Unlock()
	return nil
}

func (f fakeGroups) DeleteAppointment(ctx context.Context, id int64) error {
	return f.w.call("Groups.DeleteAppointment")
}

type fakeIndividual struct{ w *world }

func (f fakeIndividual) List(ctx context.Context) ([]model.Slot, error) {
	if err := f.w.call("Individual.List"); err != nil {
		return nil, err
	}
	return f.w.individual, nil
}

func (f fakeIndividual) ByInstructor(ctx context.Context, id int64) ([]model.Slot, error) {
	if err := f.w.call("Individual.ByInstructor"); err != nil {
		return nil, err
	}
	var out []model.Slot
	for _, s := range f.w.individual {
		if s.InstructorID == id {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f fakeIndividual) Create(ctx context.Context, s model.Slot) (model.Slot, error) {
	if err := f.w.call("Individual.Create"); err != nil {
		return model.Slot{}, err
	}
	s.ID = 700
	return s, nil
}

func (f fakeIndividual) SetStatus(ctx context.Context, id int64, status string) error {
	if err := f.w.call("Individual.SetStatus"); err != nil {
		return err
	}
	f.w.mu.Lock()
	f.w.sets[id] = status
	f.w.mu.Unlock()
	return nil
}

func (f fakeIndividual) Delete(ctx context.Context, id int64) error {
	return f.w.call("Individual.Delete")
}

type fakeScheduler struct{ w *world }

func (f fakeScheduler) book(name string, req backend.BookingRequest, t model.BookingType) (model.Booking, error) {
	if err := f.w.call(name); err != nil {
		return model.Booking{}, err
	}
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	b := model.Booking{
		ID:                 int64(len(f.w.bookings) + 1),
		StudentID:          req.StudentID,
		Type:               t,
		AppointmentID:      req.AppointmentID,
		GroupID:            req.GroupID,
		GroupAppointmentID: req.GroupAppointmentID,
		Status:             model.BookingConfirmed,
		Notes:              req.Description,
	}
	f.w.bookings = append(f.w.bookings, b)
	return b, nil
}

func (f fakeScheduler) BookIndividual(ctx context.Context, req backend.BookingRequest) (model.Booking, error) {
	return f.book("Scheduler.BookIndividual", req, model.BookingIndividual)
}

func (f fakeScheduler) BookGroup(ctx context.Context, req backend.BookingRequest) (model.Booking, error) {
	return f.book("Scheduler.BookGroup", req, model.BookingGroup)
}

func (f fakeScheduler) BookGroupForAll(ctx context.Context, req backend.BookingRequest) (model.Booking, error) {
	return f.book("Scheduler.BookGroupForAll", req, model.BookingGroup)
}

func (f fakeScheduler) Cancel(ctx context.Context, id int64, reason string) error {
	return f.w.call("Scheduler.Cancel")
}

func (f fakeScheduler) CancelGroup(ctx context.Context, id int64, reason string) error {
	return f.w.call("Scheduler.CancelGroup")
}

func (f fakeScheduler) StudentBookings(ctx context.Context, id int64) ([]model.Booking, error) {
	if err := f.w.call("Scheduler.StudentBookings"); err != nil {
		return nil, err
	}
	var out []model.Booking
	for _, b := range f.w.bookings {
		if b.StudentID == id {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f fakeScheduler) AllBookings(ctx context.Context) ([]model.Booking, error) {
	if err := f.w.call("Scheduler.AllBookings"); err != nil {
		return nil, err
	}
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	return append([]model.Booking(nil), f.w.bookings...), nil
}

func (f fakeScheduler) byType(name string, t model.BookingType) ([]model.Booking, error) {
	if err := f.w.call(name); err != nil {
		return nil, err
	}
	var out []model.Booking
	for _, b := range f.w.bookings {
		if b.Type == t {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f fakeScheduler) IndividualBookings(ctx context.Context) ([]model.Booking, error) {
	return f.byType("Scheduler.IndividualBookings", model.BookingIndividual)
}

func (f fakeScheduler) GroupBookings(ctx context.Context) ([]model.Booking, error) {
	return f.byType("Scheduler.GroupBookings", model.BookingGroup)
}

func (f fakeScheduler) BookingsByType(ctx context.Context, t model.BookingType) ([]model.Booking, error) {
	return f.byType("Scheduler.BookingsByType", t)
}

func (f fakeScheduler) BookingsByStatus(ctx context.Context, status string) ([]model.Booking, error) {
	if err := f.w.call("Scheduler.BookingsByStatus"); err != nil {
		return nil, err
	}
	var out []model.Booking
	for _, b := range f.w.bookings {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f fakeScheduler) InstructorBookings(ctx context.Context, t model.BookingType, instructorID int64) ([]model.Booking, error) {
	if err := f.w.call("Scheduler.InstructorBookings"); err != nil {
		return nil, err
	}
	owner := make(map[int64]int64)
	slots := f.w.individual
	if t == model.BookingGroup {
		slots = f.w.groups
	}
	for _, sl := range slots {
		owner[sl.ID] = sl.InstructorID
	}
	var out []model.Booking
	for _, b := range f.w.bookings {
		if b.Type != t {
			continue
		}
		id := b.AppointmentID
		if t == model.BookingGroup {
			id = b.GroupID
		}
		if owner[id] == instructorID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f fakeScheduler) Join(ctx context.Context, studentID, groupID int64) (model.GroupMember, error) {
	if err := f.w.call("Scheduler.Join"); err != nil {
		return model.GroupMember{}, err
	}
	f.w.mu.Lock()
	f.w.members[groupID] = append(f.w.members[groupID], studentID)
	f.w.mu.Unlock()
	return model.GroupMember{GroupID: groupID, StudentID: studentID}, nil
}

func (f fakeScheduler) Leave(ctx context.Context, studentID, groupID int64) error {
	return f.w.call("Scheduler.Leave")
}

func (f fakeScheduler) IsMember(ctx context.Context, groupID, studentID int64) (bool, error) {
	if err := f.w.call("Scheduler.IsMember"); err != nil {
		return false, err
	}
	if d := f.w.delay[groupID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, s := range f.w.members[groupID] {
		if s == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeScheduler) Members(ctx context.Context, groupID int64) ([]model.GroupMember, error) {
	if err := f.w.call("Scheduler.Members"); err != nil {
		return nil, err
	}
	var out []model.GroupMember
	for _, s := range f.w.members[groupID] {
		out = append(out, model.GroupMember{GroupID: groupID, StudentID: s})
	}
	return out, nil
}
