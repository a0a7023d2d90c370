package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"codehub-mentor/internal/config"
	pg "codehub-mentor/internal/infra/db/postgres"
	"codehub-mentor/internal/infra/logging"
)

// Sample catalog for local runs. Users and paths are normally owned by the
// platform; the mentor only reads them.
var seedUsers = []struct{ ID, Username, First, Last, Program string }{
	{"00000000-0000-0000-0000-000000000001", "alice", "Alice", "Reyes", "BSCS"},
	{"00000000-0000-0000-0000-000000000002", "bob", "Bob", "Cruz", "BSIT"},
	{"00000000-0000-0000-0000-000000000003", "carol", "Carol", "Santos", "BSIS"},
}

var seedPaths = []struct {
	Name, Description, Difficulty string
	Modules                       []string
}{
	{"React Fundamentals", "Components, props, state and hooks", "beginner",
		[]string{"JSX Basics", "Components and Props", "State and Hooks", "React Router"}},
	{"Python Basics", "Start programming with Python", "beginner",
		[]string{"Variables and Types", "Control Flow", "Functions", "Working with Files"}},
	{"Backend with Go", "HTTP services, databases and testing in Go", "intermediate",
		[]string{"Go Syntax", "net/http", "Postgres with pgx", "Testing"}},
	{"Data Structures & Algorithms", "Core structures and problem solving", "intermediate",
		[]string{"Arrays and Lists", "Stacks and Queues", "Trees", "Graphs"}},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pg.Migrate(cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	err = pool.BeginTxFunc(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, u := range seedUsers {
			if _, err := tx.Exec(ctx, `
INSERT INTO users (id, username, first_name, last_name, program)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`, u.ID, u.Username, u.First, u.Last, u.Program); err != nil {
				return fmt.Errorf("user %s: %w", u.Username, err)
			}
		}

		var paths int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM career_paths`).Scan(&paths); err != nil {
			return err
		}
		if paths > 0 {
			logger.Info().Int("paths", paths).Msg("career paths already present; no changes")
			return nil
		}
		for _, p := range seedPaths {
			var id int64
			if err := tx.QueryRow(ctx, `
INSERT INTO career_paths (name, description, difficulty) VALUES ($1, $2, $3)
RETURNING id`, p.Name, p.Description, p.Difficulty).Scan(&id); err != nil {
				return fmt.Errorf("path %s: %w", p.Name, err)
			}
			for i, title := range p.Modules {
				if _, err := tx.Exec(ctx, `
INSERT INTO learning_modules (path_id, title, order_index) VALUES ($1, $2, $3)`, id, title, i+1); err != nil {
					return fmt.Errorf("module %s: %w", title, err)
				}
			}
			logger.Info().Int64("id", id).Str("name", p.Name).Int("modules", len(p.Modules)).Msg("seeded path")
		}
		return nil
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	logger.Info().Int("users", len(seedUsers)).Msg("seed complete")
}
