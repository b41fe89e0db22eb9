package registrations

import (
	"testing"
	"time"

	"linkedevents/models"
)

func intp(n int) *int { return &n }

func TestDecideAttendeeStatusUnlimited(t *testing.T) {
	reg := &models.Registration{CurrentAttendeeCount: 9999}
	status, err := decideAttendeeStatus(reg, 0, 0)
	if err != nil || status != models.AttendeeAttending {
		t.Fatalf("got %q, %v", status, err)
	}
}

func TestDecideAttendeeStatusSeatLeft(t *testing.T) {
	reg := &models.Registration{
		MaximumAttendeeCapacity: intp(10),
		CurrentAttendeeCount:    9,
	}
	status, err := decideAttendeeStatus(reg, 0, 0)
	if err != nil || status != models.AttendeeAttending {
		t.Fatalf("got %q, %v", status, err)
	}
}

func TestDecideAttendeeStatusHoldsBlockSeats(t *testing.T) {
	reg := &models.Registration{
		MaximumAttendeeCapacity: intp(10),
		CurrentAttendeeCount:    8,
	}
	// two live holds fill the remaining seats
	status, err := decideAttendeeStatus(reg, 2, 0)
	if err != nil || status != models.AttendeeWaitlisted {
		t.Fatalf("got %q, %v", status, err)
	}
}

func TestDecideAttendeeStatusClaimedHoldGetsSeat(t *testing.T) {
	reg := &models.Registration{
		MaximumAttendeeCapacity: intp(10),
		CurrentAttendeeCount:    8,
	}
	// the claimant's own hold no longer blocks it
	status, err := decideAttendeeStatus(reg, 2, 2)
	if err != nil || status != models.AttendeeAttending {
		t.Fatalf("got %q, %v", status, err)
	}
}

func TestDecideAttendeeStatusWaitlistOverflow(t *testing.T) {
	reg := &models.Registration{
		MaximumAttendeeCapacity: intp(5),
		CurrentAttendeeCount:    5,
		WaitingListCapacity:     intp(3),
		CurrentWaitingListCount: 2,
	}
	status, err := decideAttendeeStatus(reg, 0, 0)
	if err != nil || status != models.AttendeeWaitlisted {
		t.Fatalf("got %q, %v", status, err)
	}
}

func TestDecideAttendeeStatusEverythingFull(t *testing.T) {
	reg := &models.Registration{
		MaximumAttendeeCapacity: intp(5),
		CurrentAttendeeCount:    5,
		WaitingListCapacity:     intp(2),
		CurrentWaitingListCount: 2,
	}
	if _, err := decideAttendeeStatus(reg, 0, 0); err == nil {
		t.Fatal("expected an error when both lists are full")
	}
}

func TestEnrolmentOpenWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)

	if !enrolmentOpen(&models.Registration{EnrolmentStartTime: &start, EnrolmentEndTime: &end}, now) {
		t.Error("window containing now should be open")
	}
	if enrolmentOpen(&models.Registration{EnrolmentStartTime: &end}, now) {
		t.Error("enrolment before the start should be closed")
	}
	if enrolmentOpen(&models.Registration{EnrolmentEndTime: &start}, now) {
		t.Error("enrolment after the end should be closed")
	}
	if !enrolmentOpen(&models.Registration{}, now) {
		t.Error("no window means always open")
	}
}
