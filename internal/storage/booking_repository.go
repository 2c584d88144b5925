package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/barberbook/barberbook/internal/booking"
	"github.com/barberbook/barberbook/internal/outbox"
	"github.com/barberbook/barberbook/libs/db"
)

// ErrNotFound is returned when a row does not exist or belongs to another
// business.
var ErrNotFound = errors.New("not found")

// BookingRepository persists bookings and stores the matching outbox event
// in the same transaction as every write. The slot-collision guarantee lives
// in the database: an exclusion constraint over (barber_id, time range) for
// non-cancelled rows, surfaced here as booking.ErrSlotTaken.
type BookingRepository struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, events *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, events: events}
}

const bookingColumns = `
	id::text, business_id::text, barber_id::text, customer_id::text, service_id::text,
	start_time, duration_minutes, status, COALESCE(notes, ''), created_at, updated_at`

// Create inserts the booking and its created event atomically. The id is
// assigned here; callers pass a zero ID.
func (r *BookingRepository) Create(ctx context.Context, b booking.Booking) (booking.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return booking.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b.ID = uuid.NewString()
	err = tx.QueryRow(ctx, `
		INSERT INTO bookings
			(id, business_id, barber_id, customer_id, service_id, start_time, end_time, duration_minutes, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, b.ID, b.BusinessID, b.BarberID, b.CustomerID, b.ServiceID,
		b.StartTime, b.EndTime(), b.DurationMinutes, b.Status, nullable(b.Notes)).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return booking.Booking{}, fmt.Errorf("%w: barber already booked in that interval", booking.ErrSlotTaken)
		}
		return booking.Booking{}, err
	}

	evt, err := outbox.BookingEvent(b)
	if err != nil {
		return booking.Booking{}, err
	}
	if err := r.events.Insert(ctx, tx, evt); err != nil {
		return booking.Booking{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return booking.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepository) Get(ctx context.Context, businessID, bookingID string) (booking.Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1 AND business_id = $2
	`, bookingID, businessID)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.Booking{}, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}
	return b, err
}

// UpdateStatus sets the new status and records the matching lifecycle event
// in the same transaction. The row is locked first so concurrent transitions
// serialize at the database.
func (r *BookingRepository) UpdateStatus(ctx context.Context, businessID, bookingID string, status booking.Status) (time.Time, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1 AND business_id = $2
		FOR UPDATE
	`, bookingID, businessID)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}
	if err != nil {
		return time.Time{}, err
	}

	var updatedAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $3, updated_at = now()
		WHERE id = $1 AND business_id = $2
		RETURNING updated_at
	`, bookingID, businessID, status).Scan(&updatedAt)
	if err != nil {
		return time.Time{}, err
	}

	b.Status = status
	b.UpdatedAt = updatedAt
	evt, err := outbox.BookingEvent(b)
	if err != nil {
		return time.Time{}, err
	}
	if err := r.events.Insert(ctx, tx, evt); err != nil {
		return time.Time{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, err
	}
	return updatedAt, nil
}

// ListActiveForBarber returns the barber's non-cancelled bookings whose
// interval overlaps [from, to), ordered by start time.
func (r *BookingRepository) ListActiveForBarber(ctx context.Context, barberID string, from, to time.Time) ([]booking.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE barber_id = $1
			AND status <> 'cancelled'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, barberID, from, to)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *BookingRepository) ListForCustomer(ctx context.Context, customerID string, limit int) ([]booking.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE customer_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *BookingRepository) ListForBusinessOnDay(ctx context.Context, businessID string, from, to time.Time) ([]booking.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE business_id = $1
			AND start_time >= $2
			AND start_time < $3
		ORDER BY start_time ASC
	`, businessID, from, to)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *BookingRepository) CountActiveForBusinessBetween(ctx context.Context, businessID string, from, to time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM bookings
		WHERE business_id = $1
			AND status <> 'cancelled'
			AND start_time >= $2
			AND start_time < $3
	`, businessID, from, to).Scan(&count)
	return count, err
}

// LookupIdempotencyKey returns the booking id a previous request with this
// key created, if any.
func (r *BookingRepository) LookupIdempotencyKey(ctx context.Context, businessID, key string) (string, bool, error) {
	var bookingID string
	err := r.pool.QueryRow(ctx, `
		SELECT booking_id::text
		FROM booking_idempotency_keys
		WHERE business_id = $1 AND idempotency_key = $2
	`, businessID, key).Scan(&bookingID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return bookingID, true, nil
}

func (r *BookingRepository) SaveIdempotencyKey(ctx context.Context, businessID, key, bookingID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (business_id, idempotency_key, booking_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (business_id, idempotency_key) DO NOTHING
	`, businessID, key, bookingID)
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanBooking(row pgx.Row) (booking.Booking, error) {
	var b booking.Booking
	err := row.Scan(
		&b.ID,
		&b.BusinessID,
		&b.BarberID,
		&b.CustomerID,
		&b.ServiceID,
		&b.StartTime,
		&b.DurationMinutes,
		&b.Status,
		&b.Notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

func collectBookings(rows pgx.Rows) ([]booking.Booking, error) {
	defer rows.Close()
	var out []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
