package service

import (
	"context"
	"errors"
	"fmt"
	"lab-booking/internal/domain"
	"lab-booking/internal/form"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type AccountService struct {
	repo     StudentRepository
	hashCost int
	now      func() time.Time
}

func NewAccountService(repo StudentRepository, hashCost int) *AccountService {
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = bcrypt.DefaultCost
	}
	return &AccountService{
		repo:     repo,
		hashCost: hashCost,
		now:      time.Now,
	}
}

func (s *AccountService) Register(ctx context.Context, f form.RegistrationForm) (*domain.Student, error) {
	if err := form.ValidateRegistration(f); err != nil {
		return nil, err
	}
	f = f.Normalize()

	hash, err := bcrypt.GenerateFromPassword([]byte(f.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	student := &domain.Student{
		Username:     f.Username,
		Email:        f.Email,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateStudent(ctx, student); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", f.Username, err)
	}

	log.Info().Int64("student_id", student.ID).Str("username", student.Username).Msg("student registered")
	return student, nil
}

// Login checks the credentials and opens a session. The returned session
// token is what the API stores in the session cookie.
func (s *AccountService) Login(ctx context.Context, f form.LoginForm) (*domain.Session, error) {
	if err := form.ValidateLogin(f); err != nil {
		return nil, err
	}

	student, err := s.repo.GetStudentByEmail(ctx, normalizeEmail(f.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(f.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	session := &domain.Session{
		Token:     uuid.New().String(),
		StudentID: student.ID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// Authenticate resolves a session token to its student.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*domain.Student, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, ErrUnauthenticated
	}
	student, err := s.repo.GetStudentByID(ctx, session.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student %d: %w", session.StudentID, err)
	}
	if student == nil {
		return nil, ErrUnauthenticated
	}
	return student, nil
}

func (s *AccountService) Profile(ctx context.Context, studentID int64) (*domain.Student, error) {
	student, err := s.repo.GetStudentByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student %d: %w", studentID, err)
	}
	if student == nil {
		return nil, ErrNotFound
	}
	return student, nil
}

func normalizeEmail(email string) string {
	return form.RegistrationForm{Email: email}.Normalize().Email
}
