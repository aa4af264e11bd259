package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mrlokans/passage/internal/auth"
	"github.com/mrlokans/passage/internal/config"
	"github.com/mrlokans/passage/internal/database"
	"github.com/mrlokans/passage/internal/database/users"
)

// CreateUserCommand registers an account from the command line, applying the
// same validation as the registration form.
type CreateUserCommand struct {
	Name         string
	Email        string
	Password     string
	ConfigPath   string
	DatabasePath string

	Out io.Writer
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{Out: os.Stdout}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)

	fs.StringVar(&cmd.Name, "name", "", "Display name (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address used to log in (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (required)")
	fs.StringVar(&cmd.ConfigPath, "config", "", "Path to a config file (defaults to $CONFIG_FILE)")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the database file (overrides the configured path)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an account without going through the web form.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s create-user -name Alice -email alice@example.com -password secret\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s create-user -name Alice -email alice@example.com -password secret -db ./passage.db\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	var missing []string
	if cmd.Name == "" {
		missing = append(missing, "-name")
	}
	if cmd.Email == "" {
		missing = append(missing, "-email")
	}
	if cmd.Password == "" {
		missing = append(missing, "-password")
	}
	if len(missing) > 0 {
		fs.Usage()
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}

	return nil
}

func (cmd *CreateUserCommand) Run() error {
	provider := config.SelectProvider(cmd.ConfigPath)
	cfg, err := provider.Load()
	if err != nil {
		return err
	}
	if cmd.DatabasePath != "" {
		cfg.Database.Path = cmd.DatabasePath
	}

	db, err := database.NewDatabaseWithLogLevel(cfg.Database.Path, cfg.Database.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	registrar := auth.NewRegistrar(users.NewRepository(db.DB), cfg.Auth.BcryptCost, cfg.Auth.MinPasswordLength)
	user, err := registrar.Register(context.Background(), auth.RegistrationForm{
		Name:      cmd.Name,
		Email:     cmd.Email,
		Password:  cmd.Password,
		Password2: cmd.Password,
	})

	var problems auth.ValidationErrors
	switch {
	case errors.As(err, &problems):
		return fmt.Errorf("invalid account details: %s", strings.Join(problems, "; "))
	case errors.Is(err, auth.ErrDuplicateEmail):
		return fmt.Errorf("%s: %w", users.NormalizeEmail(cmd.Email), err)
	case err != nil:
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(cmd.Out, "Created user %d (%s) in %s\n", user.ID, user.Email, cfg.Database.Path)
	return nil
}
