// Package integration contains integration tests for the margin call service.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle including the cron trigger
// - Database tests: schema constraints, margin call lifecycle, retention
//
// Tests skip automatically when the test database is unavailable.
// Run with: go test ./tests/integration/...
package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"margincall/internal/api"
	"margincall/internal/repository"
	"margincall/internal/risk"
	"margincall/internal/service"
	"margincall/internal/websocket"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// TestCronSecret is the shared secret wired into the test router
const TestCronSecret = "integration-test-cron-secret"

// TestConfig contains configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB      *sql.DB
	Router  *mux.Router
	Server  *httptest.Server
	Hub     *websocket.Hub
	Repos   *TestRepositories
	Checker *risk.Checker
	Cleanup func()
}

// TestRepositories contains all repository instances for testing
type TestRepositories struct {
	Account      *repository.AccountRepository
	MarginCall   *repository.MarginCallRepository
	Notification *repository.NotificationRepository
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "margincall_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open(config.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// SetupTestServer creates a complete test server with all components
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	if err := initTestTables(db); err != nil {
		t.Skipf("Skipping integration test: cannot initialize tables: %v", err)
		return nil
	}

	hub := websocket.NewHub()
	go hub.Run()

	repos := &TestRepositories{
		Account:      repository.NewAccountRepository(db),
		MarginCall:   repository.NewMarginCallRepository(db),
		Notification: repository.NewNotificationRepository(db),
	}

	notificationService := service.NewNotificationService(repos.Notification)
	notificationService.SetWebSocketHub(hub)

	marginCallService := service.NewMarginCallService(repos.MarginCall, repos.Account)

	checker := risk.NewChecker(repos.Account, repos.MarginCall, notificationService, nil)
	checker.SetBroadcaster(hub)

	deps := &api.Dependencies{
		MarginCallService:   marginCallService,
		NotificationService: notificationService,
		RiskCheckRunner:     checker,
		Hub:                 hub,
		CronSecret:          TestCronSecret,
	}
	router := api.SetupRoutes(deps)

	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		hub.Stop()
		cleanupTestTables(db)
		dbCleanup()
	}

	return &TestServer{
		DB:      db,
		Router:  router,
		Server:  server,
		Hub:     hub,
		Repos:   repos,
		Checker: checker,
		Cleanup: cleanup,
	}
}

// initTestTables creates or truncates tables for testing
func initTestTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) UNIQUE NOT NULL,
			equity DECIMAL(20, 2) NOT NULL DEFAULT 0,
			margin_used DECIMAL(20, 2) NOT NULL DEFAULT 0,
			account_status VARCHAR(20) NOT NULL DEFAULT 'active',
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS margin_call_events (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			triggered_at TIMESTAMP NOT NULL DEFAULT NOW(),
			margin_level_at_trigger DECIMAL(10, 2) NOT NULL,
			status VARCHAR(20) NOT NULL,
			severity VARCHAR(20) NOT NULL,
			resolved_at TIMESTAMP,
			resolution_type VARCHAR(30),
			escalated_at TIMESTAMP
		)`,
		// At most one active (non-terminal) record per user
		`CREATE UNIQUE INDEX IF NOT EXISTS margin_call_events_active_uniq
			ON margin_call_events (user_id)
			WHERE status IN ('notified', 'escalated')`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			timestamp TIMESTAMP NOT NULL DEFAULT NOW(),
			type VARCHAR(50) NOT NULL,
			title VARCHAR(200) NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			read BOOLEAN NOT NULL DEFAULT false,
			meta JSONB
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// cleanupTestTables truncates all test tables
func cleanupTestTables(db *sql.DB) {
	tables := []string{
		"notifications",
		"margin_call_events",
		"accounts",
	}

	for _, table := range tables {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
	}
}

// insertAccount inserts a test account
func insertAccount(t *testing.T, db *sql.DB, userID string, equity, marginUsed float64) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO accounts (user_id, equity, margin_used, account_status)
		 VALUES ($1, $2, $3, 'active')
		 ON CONFLICT (user_id) DO UPDATE SET equity = $2, margin_used = $3`,
		userID, equity, marginUsed,
	)
	if err != nil {
		t.Fatalf("failed to insert account: %v", err)
	}
}
