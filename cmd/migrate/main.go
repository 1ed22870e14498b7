// Command migrate prepares the reports read model for local development and
// the integration suites. The production schema is owned by the report
// service; civicmap only reads from it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/civicmap/internal/adapters/postgres"
	"github.com/samirrijal/civicmap/internal/pkg/config"
	"github.com/samirrijal/civicmap/internal/pkg/logging"
)

const dropReadModel = `DROP TABLE IF EXISTS reports`

func main() {
	dir := flag.String("dir", "migrations", "directory holding the numbered .sql files")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [-dir migrations] up|down")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load("civicmap-migrate")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), 1)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = up(ctx, db, *dir)
	case "down":
		_, err = db.Pool.Exec(ctx, dropReadModel)
		if err == nil {
			slog.Info("reports read model dropped")
		}
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		slog.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

// migrationFiles lists dir's .sql files in apply order. Files are numbered,
// so lexical order is apply order.
func migrationFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// up applies every file in its own transaction. The files are idempotent,
// so rerunning up against a migrated database is a no-op.
func up(ctx context.Context, db *postgres.DB, dir string) error {
	files, err := migrationFiles(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		sql, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		err = pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, string(sql))
			return err
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", filepath.Base(f), err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
