package service

import (
	"context"
	"errors"
	"lab-booking/internal/domain"
)

// The capitalized texts double as page alerts.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrLabNotFound         = errors.New("lab not found")
	ErrStudentNotFound     = errors.New("Student with this email does not exist")
	ErrInvalidCredentials  = errors.New("Incorrect email or password")
	ErrUnauthenticated     = errors.New("You must be logged in")
	ErrActiveBooking       = errors.New("You already have an active booking")
	ErrComputerUnavailable = errors.New("Computer is already booked")
	ErrNotAuthorized       = errors.New("You are not authorized to cancel this booking")
)

// SearchResult holds the labs and computers matching a dashboard query.
type SearchResult struct {
	Labs      []*domain.Lab      `json:"labs"`
	Computers []*domain.Computer `json:"computers"`
}

type StudentRepository interface {
	CreateStudent(ctx context.Context, s *domain.Student) error
	GetStudentByID(ctx context.Context, id int64) (*domain.Student, error)
	GetStudentByEmail(ctx context.Context, email string) (*domain.Student, error)

	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type LabRepository interface {
	ListLabSummaries(ctx context.Context) ([]domain.LabSummary, error)
	ListLabs(ctx context.Context) ([]*domain.Lab, error)
	GetLabByID(ctx context.Context, labID int64) (*domain.Lab, error)
	GetLabByName(ctx context.Context, name string) (*domain.Lab, error)
	CreateLab(ctx context.Context, name string, computers int) (*domain.Lab, error)
	SearchLabs(ctx context.Context, fragment string) ([]*domain.Lab, error)

	GetComputer(ctx context.Context, computerID int64) (*domain.Computer, error)
	ListComputers(ctx context.Context) ([]*domain.Computer, error)
	ListComputersByLab(ctx context.Context, labIDs []int64, onlyAvailable bool) ([]*domain.Computer, error)
}

type BookingRepository interface {
	// ReserveComputer flags the computer booked and records the booking
	// atomically. It returns ErrComputerUnavailable when the computer is
	// missing or already booked.
	ReserveComputer(ctx context.Context, studentID, computerID int64) (*domain.Booking, error)
	// ReleaseBooking cancels the booking and frees its computer atomically.
	ReleaseBooking(ctx context.Context, bookingID int64) error
	GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error)
	ActiveBookingsForStudent(ctx context.Context, studentID int64) ([]*domain.Booking, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Repository is everything the sqlite store provides.
type Repository interface {
	StudentRepository
	LabRepository
	BookingRepository
	Pinger
	Close() error
}

// EventPublisher receives booking state changes.
type EventPublisher interface {
	Publish(ev domain.BookingEvent)
}
