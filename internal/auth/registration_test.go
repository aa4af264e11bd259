package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRegistrationForm_Validate(t *testing.T) {
	valid := RegistrationForm{Name: "Alice", Email: "alice@x.com", Password: "pw123", Password2: "pw123"}

	tests := []struct {
		name   string
		modify func(f *RegistrationForm)
		minLen int
		want   []string
	}{
		{"valid form", func(f *RegistrationForm) {}, 1, nil},
		{"missing name", func(f *RegistrationForm) { f.Name = "  " }, 1, []string{MsgFillAllFields}},
		{"missing confirmation", func(f *RegistrationForm) { f.Password2 = "" }, 1, []string{MsgFillAllFields, MsgPasswordMismatch}},
		{"mismatched passwords", func(f *RegistrationForm) { f.Password2 = "pw124" }, 1, []string{MsgPasswordMismatch}},
		{"invalid email", func(f *RegistrationForm) { f.Email = "not-an-email" }, 1, []string{MsgInvalidEmail}},
		{"whitespace-only password", func(f *RegistrationForm) {
			f.Password = "   "
			f.Password2 = "   "
		}, 1, []string{MsgFillAllFields}},
		{"too short", func(f *RegistrationForm) {}, 8, []string{"Password must be at least 8 characters"}},
		{"multibyte password counts characters", func(f *RegistrationForm) {
			f.Password = "пароль"
			f.Password2 = f.Password
		}, 8, []string{"Password must be at least 8 characters"}},
		{"multibyte password long enough", func(f *RegistrationForm) {
			f.Password = "пароль12"
			f.Password2 = f.Password
		}, 8, nil},
		{"too long", func(f *RegistrationForm) {
			f.Password = strings.Repeat("a", 73)
			f.Password2 = f.Password
		}, 1, []string{MsgPasswordTooLong}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid
			tt.modify(&form)

			err := form.Validate(tt.minLen)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}

			var problems ValidationErrors
			if !errors.As(err, &problems) {
				t.Fatalf("Expected ValidationErrors, got %v", err)
			}
			if strings.Join(problems, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Expected %v, got %v", tt.want, problems)
			}
		})
	}
}

func TestRegistrar_Register(t *testing.T) {
	env := setupTestEnv(t)
	r := NewRegistrar(env.users, testCost, 1)
	ctx := context.Background()

	user, err := r.Register(ctx, RegistrationForm{Name: "Alice", Email: "Alice@X.com", Password: "pw123", Password2: "pw123"})
	if err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	if user.Email != "alice@x.com" {
		t.Errorf("Expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "pw123" {
		t.Error("Expected a bcrypt hash to be stored")
	}
	if err := CheckPassword("pw123", user.PasswordHash); err != nil {
		t.Errorf("Stored hash does not verify: %v", err)
	}

	_, err = r.Register(ctx, RegistrationForm{Name: "Alice 2", Email: "alice@x.com", Password: "other", Password2: "other"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("Expected ErrDuplicateEmail, got %v", err)
	}

	count, err := env.users.CountUsers(ctx, "alice@x.com")
	if err != nil {
		t.Fatalf("failed to count users: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly one user, got %d", count)
	}
}

func TestRegistrar_InvalidFormCreatesNothing(t *testing.T) {
	env := setupTestEnv(t)
	r := NewRegistrar(env.users, testCost, 1)

	_, err := r.Register(context.Background(), RegistrationForm{Name: "Bob", Email: "bob@x.com", Password: "a", Password2: "b"})
	var problems ValidationErrors
	if !errors.As(err, &problems) {
		t.Fatalf("Expected ValidationErrors, got %v", err)
	}

	count, _ := env.users.CountUsers(context.Background(), "bob@x.com")
	if count != 0 {
		t.Errorf("Expected no user to be created, got %d", count)
	}
}

// Every password registration accepts must verify afterwards.
func TestRegistrar_RegisteredPasswordVerifies(t *testing.T) {
	env := setupTestEnv(t)
	r := NewRegistrar(env.users, testCost, 1)
	verifier, err := NewVerifier(env.users, testCost)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}
	ctx := context.Background()

	_, err = r.Register(ctx, RegistrationForm{Name: "Bob", Email: "bob@x.com", Password: "   ", Password2: "   "})
	var problems ValidationErrors
	if !errors.As(err, &problems) {
		t.Fatalf("Expected whitespace-only password to be rejected, got %v", err)
	}
	if count, _ := env.users.CountUsers(ctx, "bob@x.com"); count != 0 {
		t.Fatalf("Expected no user to be created, got %d", count)
	}

	for _, password := range []string{" pw ", "пароль", "a"} {
		email := fmt.Sprintf("user%d@x.com", len(password))
		if _, err := r.Register(ctx, RegistrationForm{Name: "Bob", Email: email, Password: password, Password2: password}); err != nil {
			t.Fatalf("Register(%q) failed: %v", password, err)
		}
		if _, err := verifier.Verify(ctx, email, password); err != nil {
			t.Errorf("Verify(%q) after registration failed: %v", password, err)
		}
	}
}
