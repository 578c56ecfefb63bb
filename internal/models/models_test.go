package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// ============ MarginCallEvent Tests ============

func TestMarginCallEventIsTerminal(t *testing.T) {
	tests := []struct {
		status   string
		terminal bool
	}{
		{MarginCallStatusPending, false},
		{MarginCallStatusNotified, false},
		{MarginCallStatusResolved, true},
		{MarginCallStatusEscalated, true},
	}

	for _, tt := range tests {
		e := &MarginCallEvent{Status: tt.status}
		if got := e.IsTerminal(); got != tt.terminal {
			t.Errorf("IsTerminal() for %q = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestSeverityRank(t *testing.T) {
	if SeverityRank(SeverityCritical) <= SeverityRank(SeverityUrgent) {
		t.Error("critical must rank above urgent")
	}
	if SeverityRank(SeverityUrgent) <= SeverityRank(SeverityStandard) {
		t.Error("urgent must rank above standard")
	}
	if SeverityRank("bogus") != 0 {
		t.Errorf("unknown severity rank = %d, want 0", SeverityRank("bogus"))
	}
}

func TestMarginCallEventJSON(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := &MarginCallEvent{
		ID:                   1,
		UserID:               "user-1",
		TriggeredAt:          now,
		MarginLevelAtTrigger: 84.5,
		Status:               MarginCallStatusNotified,
		Severity:             SeverityUrgent,
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// Пустые опциональные поля опускаются
	s := string(data)
	if strings.Contains(s, "resolved_at") || strings.Contains(s, "escalated_at") || strings.Contains(s, "resolution_type") {
		t.Errorf("empty optional fields must be omitted: %s", s)
	}
	if !strings.Contains(s, `"margin_level_at_trigger":84.5`) {
		t.Errorf("margin level not serialized: %s", s)
	}
}

// ============ Account Tests ============

func TestAccountHasOpenMargin(t *testing.T) {
	tests := []struct {
		name       string
		marginUsed float64
		expected   bool
	}{
		{"open margin", 1000, true},
		{"no margin", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{MarginUsed: tt.marginUsed}
			if got := a.HasOpenMargin(); got != tt.expected {
				t.Errorf("HasOpenMargin() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// ============ Notification Tests ============

func TestNotificationJSON(t *testing.T) {
	n := &Notification{
		ID:      1,
		UserID:  "user-1",
		Type:    NotificationTypeMarginCall,
		Title:   "Margin Call",
		Message: "level dropped",
		Meta: map[string]interface{}{
			"margin_level": 84.5,
			"severity":     SeverityUrgent,
			"priority":     PriorityHigh,
		},
	}

	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Notification
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Meta["priority"] != PriorityHigh {
		t.Errorf("meta priority = %v, want %q", decoded.Meta["priority"], PriorityHigh)
	}

	// Без meta поле опускается
	data, err = json.Marshal(&Notification{ID: 2, UserID: "user-1"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "meta") {
		t.Errorf("nil meta must be omitted: %s", data)
	}
}
