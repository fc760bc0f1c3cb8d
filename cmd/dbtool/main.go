// dbtool bootstraps the Postgres database out of band: creates the database
// if missing and installs the uniqueness indexes the allocator relies on.
// AutoMigrate handles the tables; the indexes must exist before the first
// allocation runs.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found – relying on env vars")
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "password")
	dbname := getEnv("DB_NAME", "zone_dispatch")
	sslmode := getEnv("DB_SSLMODE", "disable")

	admin, err := sql.Open("postgres", fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=postgres sslmode=%s",
		host, port, user, password, sslmode,
	))
	if err != nil {
		log.Fatalf("open admin connection: %v", err)
	}
	defer admin.Close()

	if err := createDatabase(admin, dbname); err != nil {
		log.Fatalf("create database: %v", err)
	}

	db, err := sql.Open("postgres", fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	))
	if err != nil {
		log.Fatalf("open %s: %v", dbname, err)
	}
	defer db.Close()

	if err := ensureIndexes(db); err != nil {
		log.Fatalf("ensure indexes: %v", err)
	}

	log.Println("Database ready.")
}

func createDatabase(admin *sql.DB, name string) error {
	_, err := admin.Exec("CREATE DATABASE " + pq.QuoteIdentifier(name))
	if err != nil {
		// 42P04: database already exists
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "42P04" {
			log.Printf("database %s already exists", name)
			return nil
		}
		return err
	}
	log.Printf("created database %s", name)
	return nil
}

// ensureIndexes installs the two uniqueness constraints the allocator's
// correctness rests on: one slot holder per route across all statuses, and
// one row per (route, customer). Run after the server has auto-migrated at
// least once; IF NOT EXISTS keeps reruns harmless.
func ensureIndexes(db *sql.DB) error {
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_route_slot
		   ON assignments (route_id, slot)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_route_customer
		   ON assignments (route_id, customer_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			// 42P01: assignments table not migrated yet
			if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "42P01" {
				return fmt.Errorf("assignments table missing; start the server once to migrate, then rerun dbtool")
			}
			return err
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}
