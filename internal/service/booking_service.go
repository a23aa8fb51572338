package service

import (
	"context"
	"errors"
	"fmt"
	"lab-booking/internal/domain"
	"lab-booking/internal/observability"
	"time"

	"github.com/rs/zerolog/log"
)

type BookingService struct {
	bookings  BookingRepository
	labs      LabRepository
	publisher EventPublisher
	now       func() time.Time
}

func NewBookingService(bookings BookingRepository, labs LabRepository, publisher EventPublisher) *BookingService {
	return &BookingService{
		bookings:  bookings,
		labs:      labs,
		publisher: publisher,
		now:       time.Now,
	}
}

// Book reserves a computer for the student. A student holds at most one
// active booking at a time.
func (s *BookingService) Book(ctx context.Context, studentID, computerID int64) (*domain.Booking, error) {
	active, err := s.bookings.ActiveBookingsForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for student %d: %w", studentID, err)
	}
	if len(active) > 0 {
		observability.RecordBooking("book", "active_booking")
		return nil, ErrActiveBooking
	}

	booking, err := s.bookings.ReserveComputer(ctx, studentID, computerID)
	if err != nil {
		if errors.Is(err, ErrComputerUnavailable) {
			observability.RecordBooking("book", "unavailable")
			return nil, ErrComputerUnavailable
		}
		return nil, fmt.Errorf("failed to book computer %d: %w", computerID, err)
	}

	observability.RecordBooking("book", "ok")
	log.Info().Int64("booking_id", booking.ID).Int64("student_id", studentID).Int64("computer_id", computerID).Msg("computer booked")
	s.publish(ctx, domain.EventBooked, booking)
	return booking, nil
}

// Cancel ends an active booking owned by the student and frees its computer.
func (s *BookingService) Cancel(ctx context.Context, studentID, bookingID int64) error {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to load booking %d: %w", bookingID, err)
	}
	if booking == nil || booking.StudentID != studentID || !booking.Active() {
		observability.RecordBooking("cancel", "not_authorized")
		return ErrNotAuthorized
	}

	if err := s.bookings.ReleaseBooking(ctx, bookingID); err != nil {
		return fmt.Errorf("failed to cancel booking %d: %w", bookingID, err)
	}

	observability.RecordBooking("cancel", "ok")
	log.Info().Int64("booking_id", bookingID).Int64("student_id", studentID).Msg("booking cancelled")
	s.publish(ctx, domain.EventCancelled, booking)
	return nil
}

func (s *BookingService) ListForStudent(ctx context.Context, studentID int64) ([]*domain.Booking, error) {
	bookings, err := s.bookings.ActiveBookingsForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for student %d: %w", studentID, err)
	}
	if bookings == nil {
		bookings = []*domain.Booking{}
	}
	return bookings, nil
}

func (s *BookingService) publish(ctx context.Context, kind string, booking *domain.Booking) {
	if s.publisher == nil {
		return
	}
	ev := domain.BookingEvent{
		Type:       kind,
		BookingID:  booking.ID,
		ComputerID: booking.ComputerID,
		At:         s.now().UTC(),
	}
	computer, err := s.labs.GetComputer(ctx, booking.ComputerID)
	if err != nil {
		log.Warn().Err(err).Int64("computer_id", booking.ComputerID).Msg("event without lab id")
	} else if computer != nil {
		ev.LabID = computer.LabID
	}
	s.publisher.Publish(ev)
}
