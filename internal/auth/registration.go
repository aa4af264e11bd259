package auth

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mrlokans/passage/internal/database/users"
	"github.com/mrlokans/passage/internal/entities"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ErrDuplicateEmail is returned when the email already belongs to a user.
var ErrDuplicateEmail = users.ErrDuplicateEmail

// Validation messages shown on the registration form.
const (
	MsgFillAllFields    = "Please fill in all fields"
	MsgPasswordMismatch = "Passwords do not match"
	MsgInvalidEmail     = "Please enter a valid email address"
	MsgPasswordTooLong  = "Password must be at most 72 bytes"
	MsgDuplicateEmail   = "Email is already registered"
)

// ValidationErrors lists every problem found in a submitted form.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return "validation failed: " + strings.Join(v, "; ")
}

// RegistrationForm is the submitted registration form.
type RegistrationForm struct {
	Name      string `form:"name"`
	Email     string `form:"email"`
	Password  string `form:"password"`
	Password2 string `form:"password2"`
}

// Validate checks the form and returns nil or ValidationErrors.
func (f RegistrationForm) Validate(minPasswordLength int) error {
	var errs ValidationErrors

	// Must agree with Verify, which refuses whitespace-only passwords
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Email) == "" ||
		strings.TrimSpace(f.Password) == "" || strings.TrimSpace(f.Password2) == "" {
		errs = append(errs, MsgFillAllFields)
	}

	email := users.NormalizeEmail(f.Email)
	if email != "" && (len(email) > 254 || !emailPattern.MatchString(email)) {
		errs = append(errs, MsgInvalidEmail)
	}

	if f.Password != f.Password2 {
		errs = append(errs, MsgPasswordMismatch)
	}

	if f.Password != "" {
		if minPasswordLength > 1 && utf8.RuneCountInString(f.Password) < minPasswordLength {
			errs = append(errs, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
		}
		if len(f.Password) > MaxPasswordBytes {
			errs = append(errs, MsgPasswordTooLong)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// UserCreator persists new users.
type UserCreator interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*entities.User, error)
}

// Registrar validates registration forms and creates users.
type Registrar struct {
	users             UserCreator
	bcryptCost        int
	minPasswordLength int
}

// NewRegistrar creates a registrar.
func NewRegistrar(users UserCreator, bcryptCost, minPasswordLength int) *Registrar {
	return &Registrar{
		users:             users,
		bcryptCost:        bcryptCost,
		minPasswordLength: minPasswordLength,
	}
}

// Register validates the form, hashes the password and creates the user.
// Returns ValidationErrors, ErrDuplicateEmail, or a wrapped store error.
func (r *Registrar) Register(ctx context.Context, form RegistrationForm) (*entities.User, error) {
	if err := form.Validate(r.minPasswordLength); err != nil {
		return nil, err
	}

	hash, err := HashPassword(form.Password, r.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := r.users.CreateUser(ctx, form.Name, form.Email, hash)
	if err != nil {
		return nil, err
	}
	return user, nil
}
