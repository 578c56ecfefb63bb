package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"margincall/internal/models"
)

// ============================================================
// Unit Tests
// ============================================================

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}

	if hub.DroppedMessages() != 0 {
		t.Errorf("expected 0 dropped messages, got %d", hub.DroppedMessages())
	}
}

func TestOriginChecker_Check(t *testing.T) {
	checker := &OriginChecker{
		allowedOrigins: map[string]struct{}{
			"http://localhost:3000": {},
			"https://example.com":   {},
		},
		allowAll: false,
	}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},                       // empty origin allowed
		{"http://localhost:3000", true},  // allowed
		{"https://example.com", true},    // allowed
		{"http://evil.com", false},       // not allowed
		{"http://localhost:8080", false}, // not in list
	}

	for _, tt := range tests {
		got := checker.Check(tt.origin)
		if got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestOriginChecker_AllowAll(t *testing.T) {
	checker := &OriginChecker{
		allowAll: true,
	}

	origins := []string{
		"http://localhost:3000",
		"https://evil.com",
		"http://anything.example.org",
	}

	for _, origin := range origins {
		if !checker.Check(origin) {
			t.Errorf("allowAll=true but Check(%q) = false", origin)
		}
	}
}

func TestHub_BroadcastNonBlocking(t *testing.T) {
	hub := NewHub()

	// Run() не запущен - канал заполнится и сообщения должны отбрасываться,
	// а не блокировать вызывающего
	for i := 0; i < 10000; i++ {
		hub.Broadcast(map[string]int{"i": i})
	}

	if hub.DroppedMessages() == 0 {
		t.Error("expected dropped messages when broadcast channel is full")
	}
}

func TestHub_Stop(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	hub.Stop()

	select {
	case <-done:
		// OK - Run() exited
	case <-time.After(1 * time.Second):
		t.Error("Hub.Run() did not exit after Stop()")
	}

	// Повторный Stop() не должен паниковать
	hub.Stop()
}

func TestHub_ClientReceivesMarginCallMessage(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		hub:  hub,
		send: make(chan []byte, clientSendBufferSize),
	}
	hub.register <- client

	// Дожидаемся регистрации
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(time.Millisecond)
	}

	event := &models.MarginCallEvent{
		ID:                   7,
		UserID:               "user-1",
		TriggeredAt:          time.Now(),
		MarginLevelAtTrigger: 85.50,
		Status:               models.MarginCallStatusNotified,
		Severity:             models.SeverityUrgent,
	}
	hub.BroadcastMarginCall(event)

	select {
	case raw := <-client.send:
		var msg MarginCallMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("failed to unmarshal broadcast message: %v", err)
		}
		if msg.Type != MessageTypeMarginCall {
			t.Errorf("expected type %q, got %q", MessageTypeMarginCall, msg.Type)
		}
		if msg.Data == nil || msg.Data.UserID != "user-1" {
			t.Errorf("unexpected message data: %+v", msg.Data)
		}
		if msg.Data.MarginLevel != 85.50 {
			t.Errorf("expected margin level 85.50, got %v", msg.Data.MarginLevel)
		}
	case <-time.After(time.Second):
		t.Fatal("client did not receive broadcast message")
	}
}

func TestHub_SlowClientRemoved(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	// Клиент с крошечным буфером, который никто не читает
	client := &Client{
		hub:  hub,
		send: make(chan []byte, 1),
	}
	hub.register <- client

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(time.Millisecond)
	}

	// Первое сообщение заполняет буфер, второе помечает клиента как медленного
	hub.BroadcastRaw([]byte(`{"type":"runSummary"}`))
	hub.BroadcastRaw([]byte(`{"type":"runSummary"}`))

	deadline = time.Now().Add(time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client was not removed")
		}
		time.Sleep(time.Millisecond)
	}
}

// ============================================================
// Benchmarks
// ============================================================

// BenchmarkHub_Broadcast тестирует скорость broadcast
func BenchmarkHub_Broadcast(b *testing.B) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	msg := map[string]interface{}{
		"type": "test",
		"data": "benchmark message",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.Broadcast(msg)
	}
}

// BenchmarkHub_BroadcastRaw тестирует скорость broadcast уже сериализованных данных
func BenchmarkHub_BroadcastRaw(b *testing.B) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	data := []byte(`{"type":"test","data":"benchmark message"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.BroadcastRaw(data)
	}
}

// BenchmarkHub_BroadcastMarginCall тестирует реальный use case
func BenchmarkHub_BroadcastMarginCall(b *testing.B) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	event := &models.MarginCallEvent{
		ID:                   1,
		UserID:               "user-1",
		TriggeredAt:          time.Now(),
		MarginLevelAtTrigger: 42.17,
		Status:               models.MarginCallStatusNotified,
		Severity:             models.SeverityCritical,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.BroadcastMarginCall(event)
	}
}

// BenchmarkOriginChecker_Check тестирует скорость проверки origin
func BenchmarkOriginChecker_Check(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		originChecker.Check("http://localhost:3000")
	}
}

// BenchmarkHub_ClientCount тестирует lock-free чтение
func BenchmarkHub_ClientCount(b *testing.B) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = hub.ClientCount()
	}
}

// BenchmarkClientPool тестирует sync.Pool для клиентов
func BenchmarkClientPool(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		client := clientPool.Get().(*Client)
		clientPool.Put(client)
	}
}

// ============================================================
// Parallel Stress Test
// ============================================================

func TestHub_ConcurrentOperations(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	var wg sync.WaitGroup
	const goroutines = 10
	const operations = 1000

	// Concurrent broadcasts
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				hub.Broadcast(map[string]int{"goroutine": id, "op": j})
			}
		}(i)
	}

	// Concurrent ClientCount reads
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				_ = hub.ClientCount()
			}
		}()
	}

	wg.Wait()
}
