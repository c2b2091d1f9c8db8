package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"eventcheckin/internal/store"
)

// Repository stores organizers in SQL.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type organizerRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    int64  `db:"created_at"`
}

func (r *Repository) CreateOrganizer(ctx context.Context, o Organizer) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO organizers (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), o.ID, o.Name, o.Email, string(o.PasswordHash), o.CreatedAt.UTC().UnixMilli())
	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert organizer: %w", err)
	}
	return nil
}

func (r *Repository) OrganizerByEmail(ctx context.Context, email string) (Organizer, error) {
	var row organizerRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, name, email, password_hash, created_at FROM organizers WHERE email = ?
	`), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Organizer{}, ErrNoOrganizer
		}
		return Organizer{}, fmt.Errorf("get organizer: %w", err)
	}
	return Organizer{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: []byte(row.PasswordHash),
		CreatedAt:    time.UnixMilli(row.CreatedAt).UTC(),
	}, nil
}

// InMemory is an OrganizerStore for dev runs and tests.
type InMemory struct {
	mu      sync.RWMutex
	byEmail map[string]Organizer
}

func NewInMemory() *InMemory {
	return &InMemory{byEmail: make(map[string]Organizer)}
}

func (m *InMemory) CreateOrganizer(_ context.Context, o Organizer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[o.Email]; ok {
		return ErrEmailTaken
	}
	m.byEmail[o.Email] = o
	return nil
}

func (m *InMemory) OrganizerByEmail(_ context.Context, email string) (Organizer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.byEmail[email]
	if !ok {
		return Organizer{}, ErrNoOrganizer
	}
	return o, nil
}
