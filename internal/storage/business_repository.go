package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/barberbook/barberbook/internal/schedule"
	"github.com/barberbook/barberbook/libs/db"
)

// BusinessRepository persists the shop profile, its weekly schedule, barbers
// and services. The weekly schedule is stored as one row per weekday so a
// single day can be updated without rewriting the week.
type BusinessRepository struct {
	pool *db.Pool
}

func NewBusinessRepository(pool *db.Pool) *BusinessRepository {
	return &BusinessRepository{pool: pool}
}

type BusinessProfile struct {
	BusinessID string
	Name       string
	Timezone   string
	Plan       string
	CreatedAt  time.Time
}

// GetOrCreateProfile creates a default profile on first touch: trial plan,
// UTC timezone, the stock barbershop week.
func (r *BusinessRepository) GetOrCreateProfile(ctx context.Context, businessID string) (BusinessProfile, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO businesses (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, businessID)
	if err != nil {
		return BusinessProfile{}, err
	}

	var p BusinessProfile
	err = r.pool.QueryRow(ctx, `
		SELECT id::text, name, timezone, plan, created_at
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(&p.BusinessID, &p.Name, &p.Timezone, &p.Plan, &p.CreatedAt)
	return p, err
}

func (r *BusinessRepository) GetProfile(ctx context.Context, businessID string) (BusinessProfile, error) {
	var p BusinessProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, timezone, plan, created_at
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(&p.BusinessID, &p.Name, &p.Timezone, &p.Plan, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BusinessProfile{}, fmt.Errorf("business %s: %w", businessID, ErrNotFound)
	}
	return p, err
}

func (r *BusinessRepository) UpdateProfile(ctx context.Context, businessID, name, timezone string) error {
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return fmt.Errorf("unknown timezone %q: %w", timezone, err)
		}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO businesses (id, name, timezone)
		VALUES ($1, $2, COALESCE(NULLIF($3, ''), 'UTC'))
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			updated_at = now()
	`, businessID, name, timezone)
	return err
}

// PlanName satisfies the booking service's plan lookup. Unknown businesses
// get the trial plan; plan enforcement should not 500 a booking request.
func (r *BusinessRepository) PlanName(ctx context.Context, businessID string) (string, error) {
	var plan string
	err := r.pool.QueryRow(ctx, `
		SELECT plan FROM businesses WHERE id = $1
	`, businessID).Scan(&plan)
	if errors.Is(err, pgx.ErrNoRows) {
		return "trial", nil
	}
	if err != nil {
		return "", err
	}
	return plan, nil
}

// SetPlan records a subscription change, typically driven by a billing
// webhook. Empty stripe ids clear the stored ones.
func (r *BusinessRepository) SetPlan(ctx context.Context, businessID, plan, stripeCustomerID, stripeSubscriptionID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE businesses
		SET plan = $2,
			stripe_customer_id = NULLIF($3, ''),
			stripe_subscription_id = NULLIF($4, ''),
			updated_at = now()
		WHERE id = $1
	`, businessID, plan, stripeCustomerID, stripeSubscriptionID)
	return err
}

// BusinessByStripeCustomer resolves which business a Stripe customer id
// belongs to.
func (r *BusinessRepository) BusinessByStripeCustomer(ctx context.Context, stripeCustomerID string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text FROM businesses WHERE stripe_customer_id = $1
	`, stripeCustomerID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("stripe customer %s: %w", stripeCustomerID, ErrNotFound)
	}
	return id, err
}

// WeeklySchedule loads the seven-day schedule. A business with no stored
// rows gets the default week.
func (r *BusinessRepository) WeeklySchedule(ctx context.Context, businessID string) (schedule.WeeklySchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_clock, end_clock, is_open
		FROM business_schedules
		WHERE business_id = $1
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	week := schedule.WeeklySchedule{}
	for rows.Next() {
		var day string
		var wh schedule.WorkingHours
		if err := rows.Scan(&day, &wh.Start, &wh.End, &wh.Open); err != nil {
			return nil, err
		}
		week[day] = wh
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(week) == 0 {
		return schedule.DefaultWeek(), nil
	}
	return week, nil
}

// SaveWeeklySchedule validates and upserts all seven days in one
// transaction so readers never see a half-written week.
func (r *BusinessRepository) SaveWeeklySchedule(ctx context.Context, businessID string, week schedule.WeeklySchedule) error {
	if err := week.Validate(); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for day, wh := range week {
		_, err := tx.Exec(ctx, `
			INSERT INTO business_schedules (business_id, weekday, start_clock, end_clock, is_open)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (business_id, weekday) DO UPDATE
			SET start_clock = EXCLUDED.start_clock,
				end_clock = EXCLUDED.end_clock,
				is_open = EXCLUDED.is_open,
				updated_at = now()
		`, businessID, day, wh.Start, wh.End, wh.Open)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

type Barber struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Name       string    `json:"name"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r *BusinessRepository) CreateBarber(ctx context.Context, businessID, name string) (Barber, error) {
	b := Barber{ID: uuid.NewString(), BusinessID: businessID, Name: name, Active: true}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO barbers (id, business_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, b.ID, businessID, name).Scan(&b.CreatedAt)
	if err != nil {
		return Barber{}, err
	}
	return b, nil
}

func (r *BusinessRepository) ListBarbers(ctx context.Context, businessID string) ([]Barber, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, active, created_at
		FROM barbers
		WHERE business_id = $1
		ORDER BY created_at ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Barber
	for rows.Next() {
		var b Barber
		if err := rows.Scan(&b.ID, &b.BusinessID, &b.Name, &b.Active, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *BusinessRepository) CountActiveBarbers(ctx context.Context, businessID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM barbers WHERE business_id = $1 AND active
	`, businessID).Scan(&count)
	return count, err
}

func (r *BusinessRepository) SetBarberActive(ctx context.Context, businessID, barberID string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE barbers SET active = $3, updated_at = now()
		WHERE id = $1 AND business_id = $2
	`, barberID, businessID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("barber %s: %w", barberID, ErrNotFound)
	}
	return nil
}

type Service struct {
	ID           string    `json:"id"`
	BusinessID   string    `json:"business_id"`
	Name         string    `json:"name"`
	DurationMins int       `json:"duration_minutes"`
	Price        string    `json:"price"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *BusinessRepository) CreateServiceOffering(ctx context.Context, businessID, name string, durationMinutes int, price, description string) (Service, error) {
	s := Service{ID: uuid.NewString(), BusinessID: businessID, Name: name, DurationMins: durationMinutes, Price: price, Description: description}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (id, business_id, name, duration_minutes, price, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, businessID, name, durationMinutes, price, description).Scan(&s.CreatedAt)
	if err != nil {
		return Service{}, err
	}
	return s, nil
}

func (r *BusinessRepository) ListServiceOfferings(ctx context.Context, businessID string) ([]Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes, price::text, COALESCE(description, ''), created_at
		FROM services
		WHERE business_id = $1
		ORDER BY created_at ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMins, &s.Price, &s.Description, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *BusinessRepository) ServiceDuration(ctx context.Context, businessID, serviceID string) (int, error) {
	var mins int
	err := r.pool.QueryRow(ctx, `
		SELECT duration_minutes
		FROM services
		WHERE business_id = $1 AND id = $2
	`, businessID, serviceID).Scan(&mins)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("service %s: %w", serviceID, ErrNotFound)
	}
	return mins, err
}

// RecordProviderEvent remembers a processed billing-provider event id so
// webhook retries become no-ops. Returns false when the id was seen before.
func (r *BusinessRepository) RecordProviderEvent(ctx context.Context, provider, eventID string, payload []byte) (bool, error) {
	if !json.Valid(payload) {
		payload = nil
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO provider_events (provider, event_id, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, event_id) DO NOTHING
	`, provider, eventID, payload)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
