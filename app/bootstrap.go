// app/bootstrap.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tkj_lending_tool/auth"
	"tkj_lending_tool/config"
	"tkj_lending_tool/db"
	"tkj_lending_tool/models"
)

const MinPasswordLen = 8

// BootstrapFirstAdmin creates the configured admin when the admin table is empty. It is
// a no-op once any admin exists or when no bootstrap username is configured.
func BootstrapFirstAdmin(ctx context.Context, cfg config.Config, repo *db.Repo, log *slog.Logger) error {
	if cfg.BootstrapUsername == "" {
		return nil
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if len(cfg.BootstrapPassword) < MinPasswordLen {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD must be at least %d characters", MinPasswordLen)
	}

	hash, err := auth.HashPassword(cfg.BootstrapPassword)
	if err != nil {
		return err
	}
	a := &models.Admin{Username: cfg.BootstrapUsername, PasswordHash: hash, FullName: cfg.BootstrapName}
	if err := repo.CreateAdmin(ctx, a); err != nil {
		if errors.Is(err, db.ErrUsernameTaken) {
			return nil // another instance won the race
		}
		return err
	}
	log.Info("bootstrap admin created", slog.String("username", a.Username))
	return nil
}
