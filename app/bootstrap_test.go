package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"tkj_lending_tool/auth"
	"tkj_lending_tool/config"
	"tkj_lending_tool/db/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapFirstAdmin(t *testing.T) {
	ctx := context.Background()
	repo := dbtest.Repo(t)
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, BootstrapFirstAdmin(ctx, config.Config{}, repo, lg))
	n, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	cfg := config.Config{BootstrapUsername: "Admin", BootstrapPassword: "short", BootstrapName: "Administrator"}
	assert.Error(t, BootstrapFirstAdmin(ctx, cfg, repo, lg))

	cfg.BootstrapPassword = "long-enough"
	require.NoError(t, BootstrapFirstAdmin(ctx, cfg, repo, lg))
	a, err := repo.FindAdminByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(a.PasswordHash, "long-enough"))

	// existing admins are left alone, even with a different password configured
	cfg.BootstrapPassword = "another-password"
	require.NoError(t, BootstrapFirstAdmin(ctx, cfg, repo, lg))
	n, err = repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
