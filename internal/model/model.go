package model

import (
	"strings"
	"time"
)

type Role int

const (
	RoleInstructor Role = 1
	RoleTA         Role = 2
	RoleStudent    Role = 3
	RoleAdmin      Role = 4
)

func (r Role) String() string {
	switch r {
	case RoleInstructor:
		return "Instructor"
	case RoleTA:
		return "TA"
	case RoleStudent:
		return "Student"
	case RoleAdmin:
		return "Admin"
	}
	return "Unknown"
}

// Home is the view a user of this role lands on after login.
func (r Role) Home() string {
	switch r {
	case RoleInstructor:
		return "/instructor-scheduler"
	case RoleTA:
		return "/ta-dashboard"
	case RoleStudent:
		return "/student-scheduler"
	case RoleAdmin:
		return "/admin"
	}
	return "/"
}

type User struct {
	ID             int64  `json:"userId"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Username       string `json:"username,omitempty"`
	Role           Role   `json:"roleId"`
	RoleName       string `json:"roleName,omitempty"`
	InstructorName string `json:"instructorName,omitempty"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type SlotKind string

const (
	KindIndividual       SlotKind = "individual"
	KindGroup            SlotKind = "group"
	KindGroupAppointment SlotKind = "group_appointment"
)

func (k SlotKind) Valid() bool {
	return k == KindIndividual || k == KindGroup || k == KindGroupAppointment
}

const (
	SlotAvailable = "available"
	SlotBooked    = "booked"
	SlotCancelled = "cancelled"
)

// Slot is anything an instructor offers: an individual appointment, a group,
// or a group appointment instance. Fields not used by Kind stay zero.
type Slot struct {
	Kind         SlotKind `json:"kind"`
	ID           int64    `json:"id"`
	InstructorID int64    `json:"instructorId"`
	Status       string   `json:"status,omitempty"`
	Description  string   `json:"description,omitempty"`

	// individual and group_appointment
	Date     string `json:"date,omitempty"`
	Start    string `json:"startTime,omitempty"`
	End      string `json:"endTime,omitempty"`
	Location string `json:"location,omitempty"`

	// group
	Name     string `json:"groupName,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
	Booked   bool   `json:"booked,omitempty"`
}

type GroupMember struct {
	ID        int64  `json:"id,omitempty"`
	GroupID   int64  `json:"groupId"`
	StudentID int64  `json:"studentId"`
	JoinedAt  string `json:"joinedAt,omitempty"`
}

type BookingType string

const (
	BookingIndividual BookingType = "individual"
	BookingGroup      BookingType = "group"
)

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingPending   = "pending"
)

type Booking struct {
	ID                 int64       `json:"bookingId"`
	StudentID          int64       `json:"studentId"`
	Type               BookingType `json:"bookingType"`
	AppointmentID      int64       `json:"appointmentId,omitempty"`
	GroupID            int64       `json:"groupId,omitempty"`
	GroupAppointmentID int64       `json:"groupAppointmentId,omitempty"`
	Status             string      `json:"status"`
	Notes              string      `json:"notes,omitempty"`
	BookedAt           string      `json:"bookedAt,omitempty"`
	CancelledAt        string      `json:"cancelledAt,omitempty"`
	CancellationReason string      `json:"cancellationReason,omitempty"`
}

func (b Booking) Confirmed() bool {
	return strings.EqualFold(b.Status, BookingConfirmed)
}

func (b Booking) Cancelled() bool {
	return strings.EqualFold(b.Status, BookingCancelled)
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// BookedTime parses BookedAt; unknown formats give the zero time.
func (b Booking) BookedTime() time.Time {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, b.BookedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}

type MappingKind string

const (
	MappingStudentInstructor MappingKind = "student-instructor"
	MappingTAInstructor      MappingKind = "ta-instructor"
)

// Mapping is a pending link between a student or TA and an instructor.
type Mapping struct {
	ID           int64  `json:"mappingId"`
	UserID       int64  `json:"userId"`
	InstructorID int64  `json:"instructorId"`
	UserName     string `json:"userName,omitempty"`
	Status       string `json:"status,omitempty"`
}
