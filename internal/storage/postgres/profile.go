package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dungeon/internal/game/profile"
)

// ErrProfileNotFound is returned when a profile lookup yields no results.
var ErrProfileNotFound = profile.ErrNotFound

// ProfileRepository persists profiles and their purchased perks.
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a ProfileRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Load retrieves a profile and its perks by ID.
//
// Postcondition: Returns the Profile with perks ordered by name, or an error
// wrapping ErrProfileNotFound.
func (r *ProfileRepository) Load(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	p := profile.Profile{ID: id}
	var cooldown pgtype.Timestamptz
	err := r.db.QueryRow(ctx, `
		SELECT experience, points, email, prompt_for_email, bonus_cooldown_end, updated_at
		FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.Experience, &p.Points, &p.Email, &p.PromptForEmail, &cooldown, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("loading profile %s: %w", id, ErrProfileNotFound)
		}
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	if cooldown.Valid {
		p.BonusCooldownEnd = cooldown.Time
	}

	rows, err := r.db.Query(ctx, `
		SELECT name, cost, level FROM profile_perks
		WHERE profile_id = $1 ORDER BY name`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing perks: %w", err)
	}
	perks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (profile.Perk, error) {
		var perk profile.Perk
		err := row.Scan(&perk.Name, &perk.Cost, &perk.Level)
		return perk, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning perk row: %w", err)
	}
	p.Perks = perks
	return &p, nil
}

// Save upserts the profile row and replaces its perks in one transaction.
//
// Precondition: p.ID must not be uuid.Nil.
// Postcondition: On success p.UpdatedAt holds the stored timestamp.
func (r *ProfileRepository) Save(ctx context.Context, p *profile.Profile) error {
	if p.ID == uuid.Nil {
		return errors.New("saving profile: id must not be nil")
	}
	cooldown := pgtype.Timestamptz{Time: p.BonusCooldownEnd, Valid: !p.BonusCooldownEnd.IsZero()}

	var updated time.Time
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO profiles (id, experience, points, email, prompt_for_email, bonus_cooldown_end)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				experience = EXCLUDED.experience,
				points = EXCLUDED.points,
				email = EXCLUDED.email,
				prompt_for_email = EXCLUDED.prompt_for_email,
				bonus_cooldown_end = EXCLUDED.bonus_cooldown_end,
				updated_at = NOW()
			RETURNING updated_at`,
			p.ID, p.Experience, p.Points, p.Email, p.PromptForEmail, cooldown,
		).Scan(&updated)
		if err != nil {
			return fmt.Errorf("upserting profile: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM profile_perks WHERE profile_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clearing perks: %w", err)
		}
		if len(p.Perks) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, perk := range p.Perks {
			batch.Queue(`
				INSERT INTO profile_perks (profile_id, name, cost, level)
				VALUES ($1, $2, $3, $4)`,
				p.ID, perk.Name, perk.Cost, perk.Level,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting perks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.UpdatedAt = updated
	return nil
}

// Delete removes a profile and, by cascade, its perks.
//
// Postcondition: Returns an error wrapping ErrProfileNotFound if no row was deleted.
func (r *ProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting profile %s: %w", id, ErrProfileNotFound)
	}
	return nil
}
