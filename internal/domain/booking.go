package domain

import "time"

type Booking struct {
	ID          int64      `json:"id"`
	StudentID   int64      `json:"student_id"`
	ComputerID  int64      `json:"computer_id"`
	BookingTime time.Time  `json:"booking_time"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func (b *Booking) Active() bool {
	return b.CancelledAt == nil
}

const (
	EventBooked    = "booked"
	EventCancelled = "cancelled"
)

// BookingEvent is pushed to websocket subscribers when a computer changes hands.
type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  int64     `json:"booking_id"`
	ComputerID int64     `json:"computer_id"`
	LabID      int64     `json:"lab_id"`
	At         time.Time `json:"at"`
}
