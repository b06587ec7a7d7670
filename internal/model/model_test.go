package model

import (
	"testing"
	"time"
)

func TestBookedTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-01T10:00:00Z", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-03-01T10:00:00", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-03-01 10:00:00", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"yesterday", time.Time{}},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		if got := (Booking{BookedAt: tt.in}).BookedTime(); !got.Equal(tt.want) {
			t.Errorf("BookedTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBookingStatus(t *testing.T) {
	if !(Booking{Status: "CONFIRMED"}).Confirmed() {
		t.Error("status match should ignore case")
	}
	if (Booking{Status: "pending"}).Confirmed() || (Booking{Status: "pending"}).Cancelled() {
		t.Error("pending is neither confirmed nor cancelled")
	}
}

func TestRoleHome(t *testing.T) {
	homes := map[Role]string{
		RoleInstructor: "/instructor-scheduler",
		RoleTA:         "/ta-dashboard",
		RoleStudent:    "/student-scheduler",
		RoleAdmin:      "/admin",
		Role(9):        "/",
	}
	for r, want := range homes {
		if got := r.Home(); got != want {
			t.Errorf("%v.Home() = %q, want %q", r, got, want)
		}
	}
}

func TestSlotKindValid(t *testing.T) {
	for _, k := range []SlotKind{KindIndividual, KindGroup, KindGroupAppointment} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if SlotKind("meeting").Valid() {
		t.Error("unknown kind accepted")
	}
}
