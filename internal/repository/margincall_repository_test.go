package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"margincall/internal/models"
)

// ============================================================
// MarginCallRepository Tests
// ============================================================

var marginCallColumns = []string{
	"id", "user_id", "triggered_at", "margin_level_at_trigger",
	"status", "severity", "resolved_at", "resolution_type", "escalated_at",
}

func TestNewMarginCallRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewMarginCallRepository(db)
	if repo == nil {
		t.Fatal("NewMarginCallRepository returned nil")
	}
	if repo.db != db {
		t.Error("db not set correctly")
	}
}

func TestMarginCallRepositoryCreate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		event       *models.MarginCallEvent
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "success",
			event: &models.MarginCallEvent{
				UserID:               "user-1",
				TriggeredAt:          now,
				MarginLevelAtTrigger: 84.5,
				Status:               models.MarginCallStatusNotified,
				Severity:             models.SeverityUrgent,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO margin_call_events`).
					WithArgs("user-1", now, 84.5, models.MarginCallStatusNotified, models.SeverityUrgent).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
			},
		},
		{
			name: "unique violation maps to ErrActiveCallExists",
			event: &models.MarginCallEvent{
				UserID:               "user-1",
				TriggeredAt:          now,
				MarginLevelAtTrigger: 84.5,
				Status:               models.MarginCallStatusNotified,
				Severity:             models.SeverityUrgent,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO margin_call_events`).
					WithArgs("user-1", now, 84.5, models.MarginCallStatusNotified, models.SeverityUrgent).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			expectError: ErrActiveCallExists,
		},
		{
			name: "database error passes through",
			event: &models.MarginCallEvent{
				UserID:               "user-1",
				TriggeredAt:          now,
				MarginLevelAtTrigger: 84.5,
				Status:               models.MarginCallStatusNotified,
				Severity:             models.SeverityUrgent,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO margin_call_events`).
					WithArgs("user-1", now, 84.5, models.MarginCallStatusNotified, models.SeverityUrgent).
					WillReturnError(errors.New("connection refused"))
			},
			expectError: errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewMarginCallRepository(db)
			err = repo.Create(tt.event)

			if tt.expectError == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if tt.event.ID != 1 {
					t.Errorf("ID not populated, got %d", tt.event.ID)
				}
			} else if errors.Is(tt.expectError, ErrActiveCallExists) {
				if !errors.Is(err, ErrActiveCallExists) {
					t.Errorf("expected ErrActiveCallExists, got %v", err)
				}
			} else if err == nil {
				t.Error("expected error, got nil")
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestMarginCallRepositoryGetActiveByUserID(t *testing.T) {
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows(marginCallColumns).
			AddRow(5, "user-1", now, 84.5, models.MarginCallStatusNotified, models.SeverityUrgent, nil, nil, nil)

		mock.ExpectQuery(`SELECT (.+) FROM margin_call_events`).
			WithArgs("user-1", models.MarginCallStatusNotified, models.MarginCallStatusEscalated).
			WillReturnRows(rows)

		repo := NewMarginCallRepository(db)
		event, err := repo.GetActiveByUserID("user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if event.ID != 5 {
			t.Errorf("ID = %d, want 5", event.ID)
		}
		if event.Status != models.MarginCallStatusNotified {
			t.Errorf("Status = %q, want notified", event.Status)
		}
		if event.ResolutionType != "" {
			t.Errorf("ResolutionType = %q, want empty for NULL", event.ResolutionType)
		}
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`SELECT (.+) FROM margin_call_events`).
			WithArgs("user-2", models.MarginCallStatusNotified, models.MarginCallStatusEscalated).
			WillReturnRows(sqlmock.NewRows(marginCallColumns))

		repo := NewMarginCallRepository(db)
		_, err = repo.GetActiveByUserID("user-2")
		if !errors.Is(err, ErrCallNotFound) {
			t.Errorf("expected ErrCallNotFound, got %v", err)
		}
	})
}

func TestMarginCallRepositoryGetByUserID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	resolvedAt := now.Add(time.Hour)

	rows := sqlmock.NewRows(marginCallColumns).
		AddRow(2, "user-1", now, 84.5, models.MarginCallStatusResolved, models.SeverityUrgent, resolvedAt, models.ResolutionEquityRecovered, nil).
		AddRow(1, "user-1", now.Add(-time.Hour), 45.0, models.MarginCallStatusEscalated, models.SeverityCritical, nil, nil, now)

	mock.ExpectQuery(`SELECT (.+) FROM margin_call_events`).
		WithArgs("user-1", 50).
		WillReturnRows(rows)

	repo := NewMarginCallRepository(db)
	events, err := repo.GetByUserID("user-1", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ResolutionType != models.ResolutionEquityRecovered {
		t.Errorf("ResolutionType = %q, want %q", events[0].ResolutionType, models.ResolutionEquityRecovered)
	}
	if events[1].EscalatedAt == nil {
		t.Error("EscalatedAt should be set for escalated record")
	}
}

func TestMarginCallRepositoryMarkResolved(t *testing.T) {
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectExec(`UPDATE margin_call_events`).
			WithArgs(models.MarginCallStatusResolved, now, models.ResolutionEquityRecovered, 5, models.MarginCallStatusNotified).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewMarginCallRepository(db)
		if err := repo.MarkResolved(5, now, models.ResolutionEquityRecovered); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("already terminal", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		// UPDATE с условием status = notified не трогает терминальные записи
		mock.ExpectExec(`UPDATE margin_call_events`).
			WithArgs(models.MarginCallStatusResolved, now, models.ResolutionEquityRecovered, 5, models.MarginCallStatusNotified).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewMarginCallRepository(db)
		err = repo.MarkResolved(5, now, models.ResolutionEquityRecovered)
		if !errors.Is(err, ErrCallNotFound) {
			t.Errorf("expected ErrCallNotFound, got %v", err)
		}
	})
}

func TestMarginCallRepositoryMarkEscalated(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE margin_call_events`).
		WithArgs(models.MarginCallStatusEscalated, now, 3, models.MarginCallStatusNotified).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewMarginCallRepository(db)
	if err := repo.MarkEscalated(3, now); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMarginCallRepositoryCountByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(models.MarginCallStatusNotified).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	repo := NewMarginCallRepository(db)
	count, err := repo.CountByStatus(models.MarginCallStatusNotified)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}
}

func TestMarginCallRepositoryDeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	cutoff := time.Now().AddDate(0, 0, -90)

	// Удаляются только терминальные статусы
	mock.ExpectExec(`DELETE FROM margin_call_events`).
		WithArgs(cutoff, models.MarginCallStatusResolved, models.MarginCallStatusEscalated).
		WillReturnResult(sqlmock.NewResult(0, 12))

	repo := NewMarginCallRepository(db)
	removed, err := repo.DeleteOlderThan(cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 12 {
		t.Errorf("removed = %d, want 12", removed)
	}
}
