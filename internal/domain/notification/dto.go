package notification

import (
	"time"

	"github.com/google/uuid"
)

// NotificationResponse for API
type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      *string   `json:"body,omitempty"`
	Data      *Data     `json:"data,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt string    `json:"created_at"`
}

// ResponseFromEntity converts entity to response
func ResponseFromEntity(n *Notification) *NotificationResponse {
	resp := &NotificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}

	if n.Body.Valid {
		resp.Body = &n.Body.String
	}
	if len(n.Data) > 0 {
		resp.Data = n.GetData()
	}
	return resp
}

// UnreadCountResponse for unread count endpoint
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// UpdatePreferencesRequest mirrors Preferences minus the user id.
type UpdatePreferencesRequest struct {
	InAppEnabled  bool `json:"in_app_enabled"`
	EmailEnabled  bool `json:"email_enabled"`
	LoanEvents    bool `json:"loan_events"`
	PaymentEvents bool `json:"payment_events"`
	AccountEvents bool `json:"account_events"`
}
