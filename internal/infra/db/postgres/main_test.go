//go:build integration

package postgres

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

var testPool *pgxpool.Pool

// TestMain starts a throwaway Postgres container unless TEST_DATABASE_URL
// points at an existing database, then applies the embedded migrations.
func TestMain(m *testing.M) {
	ctx := context.Background()
	connStr := os.Getenv("TEST_DATABASE_URL")
	containerID := ""

	if connStr == "" {
		const (
			dbName     = "mentor_test"
			dbUser     = "user"
			dbPassword = "password"
			dbPort     = "5432"
		)
		cmd := exec.Command("docker", "run", "-d", "--rm",
			"--network", "host",
			"-e", fmt.Sprintf("POSTGRES_DB=%s", dbName),
			"-e", fmt.Sprintf("POSTGRES_USER=%s", dbUser),
			"-e", fmt.Sprintf("POSTGRES_PASSWORD=%s", dbPassword),
			"postgres:14",
		)
		var out bytes.Buffer
		cmd.Stdout = &out
		if err := cmd.Run(); err != nil {
			log.Fatalf("could not start postgres container: %v. Is Docker running?", err)
		}
		containerID = strings.TrimSpace(out.String())[:12]
		connStr = fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", dbUser, dbPassword, dbPort, dbName)
	}
	stop := func() {
		if containerID != "" {
			_ = exec.Command("docker", "stop", containerID).Run()
		}
	}

	var err error
	const maxRetries = 15
	for i := 0; i < maxRetries; i++ {
		testPool, err = pgxpool.Connect(ctx, connStr)
		if err == nil {
			err = testPool.Ping(ctx)
		}
		if err == nil {
			break
		}
		log.Printf("Waiting for database to be ready... (attempt %d/%d)", i+1, maxRetries)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		stop()
		log.Fatalf("Unable to connect to test database after multiple retries: %v\n", err)
	}

	if err := Migrate(connStr); err != nil {
		stop()
		log.Fatalf("could not apply migrations: %s", err)
	}

	exitCode := m.Run()

	testPool.Close()
	stop()
	os.Exit(exitCode)
}

func cleanup(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `
		TRUNCATE
			users, mentor_profiles, chat_sessions, chat_messages,
			career_paths, learning_modules, user_progress,
			projects, project_members, posts, hashtags, post_hashtags,
			post_likes, post_comments, user_follows, message_feedback
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("Failed to clean up database: %v", err)
	}
}

func seedUser(t *testing.T, id, username string) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO users (id, username, first_name, last_name) VALUES ($1,$2,$2,'Tester');`, id, username)
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
}

func seedPath(t *testing.T, name, description string, modules ...string) int64 {
	t.Helper()
	ctx := context.Background()
	var id int64
	if err := testPool.QueryRow(ctx,
		`INSERT INTO career_paths (name, description) VALUES ($1,$2) RETURNING id;`, name, description).Scan(&id); err != nil {
		t.Fatalf("seed path: %v", err)
	}
	for i, title := range modules {
		if _, err := testPool.Exec(ctx,
			`INSERT INTO learning_modules (path_id, title, order_index) VALUES ($1,$2,$3);`, id, title, i+1); err != nil {
			t.Fatalf("seed module: %v", err)
		}
	}
	return id
}
