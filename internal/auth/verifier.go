package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/passage/internal/database/users"
	"github.com/mrlokans/passage/internal/entities"
)

var (
	ErrNoSuchUser          = errors.New("no such user")
	ErrBadPassword         = errors.New("bad password")
	ErrCredentialsRequired = errors.New("email and password are required")
)

// InvalidCredentialsMessage is shown for every verification failure so the
// response never reveals whether an email is registered.
const InvalidCredentialsMessage = "Invalid credentials"

// UserLookup finds users by their login key.
type UserLookup interface {
	FindUserByEmail(ctx context.Context, email string) (*entities.User, error)
}

// Verifier checks submitted credentials against stored user records.
type Verifier struct {
	users     UserLookup
	dummyHash string
}

// NewVerifier creates a verifier. The cost should match the one used at
// registration so unknown emails take as long to reject as wrong passwords.
func NewVerifier(users UserLookup, bcryptCost int) (*Verifier, error) {
	dummy, err := HashPassword("passage-timing-equalizer", bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare verifier: %w", err)
	}
	return &Verifier{users: users, dummyHash: dummy}, nil
}

// Verify returns the user whose email and password match. It fails with
// ErrCredentialsRequired, ErrNoSuchUser or ErrBadPassword; any other error
// comes from the store and should be treated as transient.
func (v *Verifier) Verify(ctx context.Context, email, password string) (*entities.User, error) {
	email = users.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, ErrCredentialsRequired
	}

	user, err := v.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			_ = CheckPassword(password, v.dummyHash)
			return nil, ErrNoSuchUser
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, ErrBadPassword
		}
		return nil, fmt.Errorf("failed to compare password: %w", err)
	}

	return user, nil
}

// IsCredentialError reports whether err is one of the failures that must be
// presented to the client as InvalidCredentialsMessage.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrNoSuchUser) ||
		errors.Is(err, ErrBadPassword) ||
		errors.Is(err, ErrCredentialsRequired)
}
