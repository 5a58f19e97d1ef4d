package app

import (
	"context"
	"fmt"
	"log/slog"

	"finance-auth/internal/model"
	"finance-auth/internal/service"
)

type memberSeeder interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, m model.Member) (model.Member, error)
}

// seedAdmin creates the first administrator when the members table is empty.
func seedAdmin(ctx context.Context, members memberSeeder, hasher service.PasswordHasher, email string, password string) error {
	count, err := members.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin, err := members.Create(ctx, model.Member{
		Email:        email,
		Name:         "Administrator",
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Active:       true,
	})
	if err != nil {
		return err
	}

	slog.Info("seeded admin account", "member_id", admin.ID, "email", admin.Email)
	return nil
}
