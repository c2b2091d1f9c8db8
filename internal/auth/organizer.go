package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken     = errors.New("email already in use")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrNoOrganizer    = errors.New("organizer not found")
	ErrInvalidSignup  = errors.New("invalid signup")
)

// MinPasswordLen is the shortest password accepted at signup.
const MinPasswordLen = 8

// Organizer owns events and operates scanning.
type Organizer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (o *Organizer) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.PasswordHash = hash
	return nil
}

func (o *Organizer) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(o.PasswordHash, []byte(pwd))
}

// OrganizerStore persists organizer accounts. CreateOrganizer returns
// ErrEmailTaken on a duplicate email and lookups return ErrNoOrganizer.
type OrganizerStore interface {
	CreateOrganizer(ctx context.Context, o Organizer) error
	OrganizerByEmail(ctx context.Context, email string) (Organizer, error)
}

// Accounts handles organizer signup and login.
type Accounts struct {
	store  OrganizerStore
	signer *Signer
}

func NewAccounts(store OrganizerStore, signer *Signer) *Accounts {
	return &Accounts{store: store, signer: signer}
}

// Register creates an organizer and returns a token for them.
func (a *Accounts) Register(ctx context.Context, name, email, password string) (Organizer, Token, error) {
	name, email = strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return Organizer{}, Token{}, fmt.Errorf("%w: name and email are required", ErrInvalidSignup)
	}
	if len(password) < MinPasswordLen {
		return Organizer{}, Token{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignup, MinPasswordLen)
	}
	o := Organizer{ID: uuid.NewString(), Name: name, Email: email, CreatedAt: time.Now().UTC()}
	if err := o.SetPassword(password); err != nil {
		return Organizer{}, Token{}, fmt.Errorf("hash password: %w", err)
	}
	if err := a.store.CreateOrganizer(ctx, o); err != nil {
		return Organizer{}, Token{}, err
	}
	tok, err := a.signer.Issue(o.ID, RoleOrganizer)
	if err != nil {
		return Organizer{}, Token{}, err
	}
	return o, tok, nil
}

// Login checks credentials. Unknown email and wrong password are indistinguishable.
func (a *Accounts) Login(ctx context.Context, email, password string) (Organizer, Token, error) {
	o, err := a.store.OrganizerByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNoOrganizer) {
		return Organizer{}, Token{}, ErrBadCredentials
	}
	if err != nil {
		return Organizer{}, Token{}, err
	}
	if o.CheckPassword(password) != nil {
		return Organizer{}, Token{}, ErrBadCredentials
	}
	tok, err := a.signer.Issue(o.ID, RoleOrganizer)
	if err != nil {
		return Organizer{}, Token{}, err
	}
	return o, tok, nil
}
