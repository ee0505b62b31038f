package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Seed executes every .sql file under sourcePath in lexical order.
// All files run inside a single transaction so a broken seed leaves
// the database untouched.
func (db *DB) Seed(ctx context.Context, sourcePath string) error {
	entries, err := os.ReadDir(sourcePath)
	if err != nil {
		return fmt.Errorf("read seed directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	if len(files) == 0 {
		log.Info().Str("path", sourcePath).Msg("no seed files found")
		return nil
	}

	return db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, name := range files {
			contents, err := os.ReadFile(filepath.Join(sourcePath, name))
			if err != nil {
				return fmt.Errorf("read seed %s: %w", name, err)
			}
			if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
				return fmt.Errorf("execute seed %s: %w", name, err)
			}
			log.Info().Str("file", name).Msg("seed applied")
		}
		return nil
	})
}
