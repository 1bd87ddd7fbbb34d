// Package cmd provides shared wiring helpers for the quartet binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quartetdev/quartet/pkg/persistence"
	"github.com/quartetdev/quartet/pkg/persistence/file"
	"github.com/quartetdev/quartet/pkg/persistence/postgresql"
)

// NewPersistence selects a trace store from the database URL scheme:
// postgres URLs get PostgreSQL, everything else falls back to file storage.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL persistence: %w", err)
		}

		return store, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	return parts[0]
}
