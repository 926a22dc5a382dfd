package notification_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/notification"
)

// Registrations and sends race against each other in production: the
// run loop mutates the connection map while publishers fan events out.
func TestHubConcurrentRegisterAndSend(t *testing.T) {
	hub := notification.NewHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	userID := uuid.New()
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Register(&notification.Connection{
				UserID: userID,
				Send:   make(chan []byte, 4),
			})
		}()
		go func() {
			defer wg.Done()
			if err := hub.SendToUserJSON(userID, map[string]string{"type": "payment_reminder"}); err != nil {
				t.Errorf("send failed: %v", err)
			}
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetConnectionCount() != 25 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 25 connections, got %d", hub.GetConnectionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
