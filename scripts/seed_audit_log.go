// Package main implements a standalone seed script that populates the admin
// console's audit_log table with a few thousand realistic back-office
// actions, useful for exercising the audit browser against non-trivial data.
//
// Run: go run scripts/seed_audit_log.go
//
//	(from the repo root, or: cd scripts && go run seed_audit_log.go)
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	totalEntries = 5000
	batchSize    = 500
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("POSTGRES_USER", "adminconsole"),
		getEnv("POSTGRES_PASSWORD", "adminconsole_secret"),
		getEnv("POSTGRES_HOST", "localhost"),
		getEnv("POSTGRES_PORT", "5432"),
		getEnv("ADMIN_DB_NAME", "adminconsole_db"),
		getEnv("POSTGRES_SSL_MODE", "disable"),
	)
}

var admins = []struct {
	id    string
	email string
}{
	{"adm-asha", "asha@example.com"},
	{"adm-ravi", "ravi@example.com"},
	{"adm-mina", "mina@example.com"},
}

var actions = []struct {
	action   string
	resource string
	detail   map[string]string
}{
	{"status_change", "orders", map[string]string{"status": "confirmed"}},
	{"status_change", "orders", map[string]string{"status": "shipped"}},
	{"status_change", "orders", map[string]string{"status": "delivered"}},
	{"update", "products", nil},
	{"create", "products", nil},
	{"create", "offers", nil},
	{"delete", "offers", nil},
	{"update", "categories", nil},
	{"moderate", "reviews", map[string]string{"status": "approved"}},
	{"moderate", "reviews", map[string]string{"status": "rejected"}},
	{"settings_change", "settings", map[string]string{"gst_rate": "18"}},
}

func randInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		log.Fatalf("rand: %v", err)
	}
	return int(v.Int64())
}

func randomUUID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("rand: %v", err)
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

func main() {
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn())
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}

	start := time.Now()
	inserted := 0

	for inserted < totalEntries {
		batch := batchSize
		if remaining := totalEntries - inserted; remaining < batch {
			batch = remaining
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			log.Fatalf("begin: %v", err)
		}

		for i := 0; i < batch; i++ {
			admin := admins[randInt(len(admins))]
			act := actions[randInt(len(actions))]

			var detail []byte
			if act.detail != nil {
				detail, _ = json.Marshal(act.detail)
			}

			// Spread entries over the last 90 days.
			createdAt := time.Now().UTC().Add(-time.Duration(randInt(90*24)) * time.Hour)

			_, err := tx.Exec(ctx, `
				INSERT INTO audit_log (id, session_id, admin_id, admin_email, action, resource, target_id, detail, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				randomUUID(),
				randomUUID(),
				admin.id,
				admin.email,
				act.action,
				act.resource,
				fmt.Sprintf("%s-%05d", act.resource[:3], randInt(99999)),
				detail,
				createdAt,
			)
			if err != nil {
				_ = tx.Rollback(ctx)
				log.Fatalf("insert: %v", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			log.Fatalf("commit: %v", err)
		}

		inserted += batch
		fmt.Printf("seeded %d/%d audit entries\n", inserted, totalEntries)
	}

	fmt.Printf("done: %d entries in %s\n", inserted, time.Since(start).Round(time.Millisecond))
}
