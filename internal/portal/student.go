package portal

import (
	"context"
	"slices"

	"appointment-portal/internal/model"
	"appointment-portal/internal/validate"
)

func (s *Service) Instructors(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load instructors")
	}
	out := []model.User{}
	for _, u := range users {
		if u.Role == model.RoleInstructor {
			out = append(out, u)
		}
	}
	return out, nil
}

// Professors lists professors a student can still ask for, leaving out the
// ones in exclude.
func (s *Service) Professors(ctx context.Context, exclude []int64) ([]model.User, error) {
	profs, err := s.users.Professors(ctx)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load professors")
	}
	out := []model.User{}
	for _, p := range profs {
		if !slices.Contains(exclude, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

// RequestInstructor files a pending student-instructor mapping for an
// admin to approve.
func (s *Service) RequestInstructor(ctx context.Context, studentID, instructorID int64) error {
	if instructorID <= 0 {
		return validate.Field("instructorId", "Please select a professor")
	}
	if err := s.users.RequestInstructor(ctx, studentID, instructorID); err != nil {
		return s.fail(err, "Failed to request instructor")
	}
	return nil
}

// MyBookings keeps confirmed and cancelled bookings; pending ones are not
// shown to the student.
func (s *Service) MyBookings(ctx context.Context, studentID int64) ([]model.Booking, error) {
	all, err := s.scheduler.StudentBookings(ctx, studentID)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load your bookings")
	}
	out := []model.Booking{}
	for _, b := range all {
		if b.Confirmed() || b.Cancelled() {
			out = append(out, b)
		}
	}
	return out, nil
}

type GroupBoard struct {
	InstructorID int64        `json:"instructorId"`
	Groups       []GroupOffer `json:"groups"`
	MyGroups     []GroupOffer `json:"myGroups"`
}

// GroupManagement lists the instructor's unbooked groups with membership
// and fill state for the student.
func (s *Service) GroupManagement(ctx context.Context, studentID, instructorID int64) (*GroupBoard, error) {
	if instructorID <= 0 {
		return nil, validate.Field("instructorId", "Please select an instructor")
	}
	all, err := s.groups.List(ctx)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load groups")
	}
	var open []model.Slot
	for _, g := range all {
		if g.InstructorID == instructorID && g.ID > 0 && !g.Booked {
			open = append(open, g)
		}
	}
	offers, err := s.groupOffers(ctx, studentID, open)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load groups")
	}
	board := &GroupBoard{InstructorID: instructorID, Groups: offers, MyGroups: []GroupOffer{}}
	for _, o := range offers {
		if o.Member {
			board.MyGroups = append(board.MyGroups, o)
		}
	}
	return board, nil
}

func (s *Service) GroupMembers(ctx context.Context, groupID int64) ([]model.GroupMember, error) {
	if groupID <= 0 {
		return nil, validate.Field("groupId", "Invalid group")
	}
	members, err := s.scheduler.Members(ctx, groupID)
	if err != nil {
		return nil, s.loadFailed(err, "Failed to load group members")
	}
	if members == nil {
		members = []model.GroupMember{}
	}
	return members, nil
}
