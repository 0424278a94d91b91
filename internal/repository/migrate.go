package repository

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/queueme/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Migrate creates the tables and indexes if they do not exist
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// SeedServices inserts the default catalog when no service exists yet.
// It returns the number of services inserted.
func SeedServices(ctx context.Context, store Store) (int, error) {
	inserted := 0
	err := store.WithinTx(ctx, func(tx Store) error {
		existing, err := tx.Services().List(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}

		now := time.Now()
		for _, s := range domain.DefaultServices() {
			svc := s
			svc.ID = uuid.NewString()
			svc.CreatedAt = now
			if err := tx.Services().Create(ctx, &svc); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed services: %w", err)
	}
	return inserted, nil
}
