// Package profile holds the persisted player profile: experience, perk points,
// purchased perks and the contact email.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a profile lookup yields no results.
var ErrNotFound = errors.New("profile not found")

// ErrInsufficientPoints is returned when a perk costs more than the points available.
var ErrInsufficientPoints = errors.New("insufficient perk points")

// Perk is a purchased perk as saved with the profile.
type Perk struct {
	Name  string `json:"name"`
	Cost  int    `json:"cost"`
	Level int    `json:"level"`
}

// Profile is everything that survives between sessions.
type Profile struct {
	ID               uuid.UUID
	Experience       int
	Points           int
	Perks            []Perk
	Email            string
	PromptForEmail   bool
	BonusCooldownEnd time.Time
	UpdatedAt        time.Time
}

// New returns a fresh profile that asks for an email.
//
// Postcondition: ID is a new random UUID; PromptForEmail is true.
func New() *Profile {
	return &Profile{ID: uuid.New(), PromptForEmail: true}
}

// SetEmail records the contact email and stops prompting for it.
//
// Postcondition: On success Email == addr and PromptForEmail is false.
func (p *Profile) SetEmail(addr string) error {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return fmt.Errorf("invalid email %q: %w", addr, err)
	}
	p.Email = parsed.Address
	p.PromptForEmail = false
	return nil
}

// Perk returns the saved perk named name, or nil.
func (p *Profile) Perk(name string) *Perk {
	for i := range p.Perks {
		if p.Perks[i].Name == name {
			return &p.Perks[i]
		}
	}
	return nil
}

// Repository loads and saves profiles.
type Repository interface {
	// Load returns the profile with id, or an error wrapping ErrNotFound.
	Load(ctx context.Context, id uuid.UUID) (*Profile, error)
	// Save inserts or replaces p.
	Save(ctx context.Context, p *Profile) error
}

// PointsPerLevel is the number of perk points awarded for each level gained.
const PointsPerLevel = 1

// RecordProgress stores the run's experience and awards perk points for the
// levels gained during it.
//
// Precondition: levelsGained >= 0.
// Postcondition: Experience == experience; Points grew by levelsGained*PointsPerLevel.
func (p *Profile) RecordProgress(experience, levelsGained int) {
	p.Experience = experience
	if levelsGained > 0 {
		p.Points += levelsGained * PointsPerLevel
	}
}
