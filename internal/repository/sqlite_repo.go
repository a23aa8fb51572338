package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"lab-booking/internal/domain"
	"lab-booking/internal/service"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schema string

type sqlRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies the schema.
func NewSQLiteRepository(dbPath string) (service.Repository, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite database connected, schema applied")
	return &sqlRepository{db: db, now: time.Now}, nil
}

func (r *sqlRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *sqlRepository) Close() error {
	return r.db.Close()
}

// --- students & sessions ---

func (r *sqlRepository) CreateStudent(ctx context.Context, s *domain.Student) error {
	query := `INSERT INTO students (username, email, password_hash) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, s.Username, s.Email, s.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return service.ErrAlreadyExists
		}
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}

func (r *sqlRepository) GetStudentByID(ctx context.Context, id int64) (*domain.Student, error) {
	query := `SELECT id, username, email, password_hash FROM students WHERE id = ?`
	return scanStudent(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqlRepository) GetStudentByEmail(ctx context.Context, email string) (*domain.Student, error) {
	query := `SELECT id, username, email, password_hash FROM students WHERE email = ?`
	return scanStudent(r.db.QueryRowContext(ctx, query, email))
}

func scanStudent(row *sql.Row) (*domain.Student, error) {
	var s domain.Student
	if err := row.Scan(&s.ID, &s.Username, &s.Email, &s.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *sqlRepository) CreateSession(ctx context.Context, s *domain.Session) error {
	query := `INSERT INTO sessions (token, student_id, created_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, s.Token, s.StudentID, s.CreatedAt)
	return err
}

func (r *sqlRepository) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	query := `SELECT token, student_id, created_at FROM sessions WHERE token = ?`
	var s domain.Session
	err := r.db.QueryRowContext(ctx, query, token).Scan(&s.Token, &s.StudentID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *sqlRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// --- labs & computers ---

func (r *sqlRepository) ListLabSummaries(ctx context.Context) ([]domain.LabSummary, error) {
	query := `
		SELECT l.id, l.name, COUNT(c.id),
		       COALESCE(SUM(CASE WHEN c.is_booked = 0 THEN 1 ELSE 0 END), 0)
		FROM labs l
		LEFT JOIN computers c ON c.lab_id = l.id
		GROUP BY l.id, l.name
		ORDER BY l.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labs []domain.LabSummary
	for rows.Next() {
		var lab domain.LabSummary
		if err := rows.Scan(&lab.ID, &lab.Name, &lab.TotalComputers, &lab.AvailableComputers); err != nil {
			return nil, err
		}
		labs = append(labs, lab)
	}
	return labs, rows.Err()
}

func (r *sqlRepository) ListLabs(ctx context.Context) ([]*domain.Lab, error) {
	return r.queryLabs(ctx, `SELECT id, name FROM labs ORDER BY id`)
}

func (r *sqlRepository) SearchLabs(ctx context.Context, fragment string) ([]*domain.Lab, error) {
	pattern := "%" + escapeLike(fragment) + "%"
	return r.queryLabs(ctx, `SELECT id, name FROM labs WHERE name LIKE ? ESCAPE '\' ORDER BY id`, pattern)
}

func (r *sqlRepository) queryLabs(ctx context.Context, query string, args ...any) ([]*domain.Lab, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labs []*domain.Lab
	for rows.Next() {
		var lab domain.Lab
		if err := rows.Scan(&lab.ID, &lab.Name); err != nil {
			return nil, err
		}
		labs = append(labs, &lab)
	}
	return labs, rows.Err()
}

func (r *sqlRepository) GetLabByID(ctx context.Context, labID int64) (*domain.Lab, error) {
	return r.getLab(ctx, `SELECT id, name FROM labs WHERE id = ?`, labID)
}

func (r *sqlRepository) GetLabByName(ctx context.Context, name string) (*domain.Lab, error) {
	return r.getLab(ctx, `SELECT id, name FROM labs WHERE name = ?`, name)
}

func (r *sqlRepository) getLab(ctx context.Context, query string, arg any) (*domain.Lab, error) {
	var lab domain.Lab
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&lab.ID, &lab.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &lab, nil
}

// CreateLab inserts the lab and its computers in one transaction.
func (r *sqlRepository) CreateLab(ctx context.Context, name string, computers int) (*domain.Lab, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO labs (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, service.ErrAlreadyExists
		}
		return nil, err
	}
	labID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO computers (lab_id) VALUES (?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	lab := &domain.Lab{ID: labID, Name: name}
	for i := 0; i < computers; i++ {
		res, err := stmt.ExecContext(ctx, labID)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		lab.Computers = append(lab.Computers, &domain.Computer{ID: id, LabID: labID})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return lab, nil
}

func (r *sqlRepository) GetComputer(ctx context.Context, computerID int64) (*domain.Computer, error) {
	query := `SELECT id, lab_id, is_booked FROM computers WHERE id = ?`
	var c domain.Computer
	if err := r.db.QueryRowContext(ctx, query, computerID).Scan(&c.ID, &c.LabID, &c.IsBooked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *sqlRepository) ListComputers(ctx context.Context) ([]*domain.Computer, error) {
	return r.queryComputers(ctx, `SELECT id, lab_id, is_booked FROM computers ORDER BY id`)
}

func (r *sqlRepository) ListComputersByLab(ctx context.Context, labIDs []int64, onlyAvailable bool) ([]*domain.Computer, error) {
	if len(labIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(labIDs)), ",")
	args := make([]any, 0, len(labIDs))
	for _, id := range labIDs {
		args = append(args, id)
	}

	query := `SELECT id, lab_id, is_booked FROM computers WHERE lab_id IN (` + placeholders + `)`
	if onlyAvailable {
		query += ` AND is_booked = 0`
	}
	query += ` ORDER BY id`
	return r.queryComputers(ctx, query, args...)
}

func (r *sqlRepository) queryComputers(ctx context.Context, query string, args ...any) ([]*domain.Computer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var computers []*domain.Computer
	for rows.Next() {
		var c domain.Computer
		if err := rows.Scan(&c.ID, &c.LabID, &c.IsBooked); err != nil {
			return nil, err
		}
		computers = append(computers, &c)
	}
	return computers, rows.Err()
}

// --- bookings ---

func (r *sqlRepository) ReserveComputer(ctx context.Context, studentID, computerID int64) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE computers SET is_booked = 1 WHERE id = ? AND is_booked = 0`, computerID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, service.ErrComputerUnavailable
	}

	booking := &domain.Booking{
		StudentID:   studentID,
		ComputerID:  computerID,
		BookingTime: r.now().UTC(),
	}
	res, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (student_id, computer_id, booking_time) VALUES (?, ?, ?)`,
		booking.StudentID, booking.ComputerID, booking.BookingTime,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, service.ErrActiveBooking
		}
		return nil, err
	}
	if booking.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *sqlRepository) ReleaseBooking(ctx context.Context, bookingID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET cancelled_at = ? WHERE id = ? AND cancelled_at IS NULL`,
		r.now().UTC(), bookingID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return service.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE computers SET is_booked = 0 WHERE id = (SELECT computer_id FROM bookings WHERE id = ?)`,
		bookingID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *sqlRepository) GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	query := `SELECT id, student_id, computer_id, booking_time, cancelled_at FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *sqlRepository) ActiveBookingsForStudent(ctx context.Context, studentID int64) ([]*domain.Booking, error) {
	query := `SELECT id, student_id, computer_id, booking_time, cancelled_at
	          FROM bookings WHERE student_id = ? AND cancelled_at IS NULL ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (*domain.Booking, error) {
	var (
		b         domain.Booking
		cancelled sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.StudentID, &b.ComputerID, &b.BookingTime, &cancelled); err != nil {
		return nil, err
	}
	if cancelled.Valid {
		t := cancelled.Time
		b.CancelledAt = &t
	}
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
