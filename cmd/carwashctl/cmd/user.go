package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
	"github.com/iliyamo/carwash-dashboard/internal/security"
	"github.com/iliyamo/carwash-dashboard/internal/service"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var newUser struct {
	name     string
	email    string
	password string
	role     string
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account, including admins",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := validateNewUser(newUser.name, newUser.email, newUser.password, newUser.role)
		if err != nil {
			return err
		}
		cfg, db, err := env(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		hash, err := security.HashPassword(newUser.password, cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		id, err := repository.NewUserRepo(db).Create(ctx, strings.TrimSpace(newUser.name), email, hash, newUser.role)
		if errors.Is(err, repository.ErrEmailExists) {
			return fmt.Errorf("email %s is already registered", email)
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		l := logger()
		l.Debug().Int64("user_id", id).Str("role", newUser.role).Msg("user created")
		fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s, %s)\n", id, email, newUser.role)
		return nil
	},
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&newUser.name, "name", "", "Display name")
	f.StringVar(&newUser.email, "email", "", "Login email")
	f.StringVar(&newUser.password, "password", "", "Initial password (at least 8 characters)")
	f.StringVar(&newUser.role, "role", model.RoleCustomer, "customer, carwash or admin")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userCreateCmd)
}

// validateNewUser returns the normalized email when the input is usable.
func validateNewUser(name, email, password, role string) (string, error) {
	email = service.NormalizeEmail(email)
	var problems []string
	if len(strings.TrimSpace(name)) < 2 {
		problems = append(problems, "name must be at least 2 characters")
	}
	if !service.ValidEmail(email) {
		problems = append(problems, "invalid email address")
	}
	if len(password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	switch role {
	case model.RoleCustomer, model.RoleCarwash, model.RoleAdmin:
	default:
		problems = append(problems, "role must be customer, carwash or admin")
	}
	if len(problems) > 0 {
		return "", errors.New(strings.Join(problems, "; "))
	}
	return email, nil
}
