// Package notification holds the notification inbox domain model: messages,
// per-account rules and per-account settings.
package notification

import (
	"encoding/json"
	"time"
)

// Type is the source category of a notification.
type Type string

const (
	TypeTwitter   Type = "twitter"
	TypeWallet    Type = "wallet"
	TypeBlackrock Type = "blackrock"
	TypeSystem    Type = "system"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeTwitter, TypeWallet, TypeBlackrock, TypeSystem:
		return true
	}
	return false
}

// Priority orders notifications for display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status is the read state of a notification.
type Status string

const (
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusArchived Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnread, StatusRead, StatusArchived:
		return true
	}
	return false
}

// Notification is one message delivered to one account. Title and body are
// immutable after creation; only the read state transitions.
type Notification struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"-"`
	Type      Type            `json:"type"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Priority  Priority        `json:"priority"`
	Status    Status          `json:"status"`
	Related   json.RawMessage `json:"related_data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
}

// Rule is an account-owned trigger definition. Condition and Action are
// opaque structured documents validated at the edge; evaluation is external
// to this service.
type Rule struct {
	ID              int64           `json:"id"`
	AccountID       int64           `json:"-"`
	Name            string          `json:"name"`
	Type            Type            `json:"type"`
	Condition       json.RawMessage `json:"condition"`
	Action          json.RawMessage `json:"action"`
	MaxPerHour      int             `json:"max_per_hour"`
	MaxPerDay       int             `json:"max_per_day"`
	Active          bool            `json:"active"`
	TriggerCount    int64           `json:"trigger_count"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Settings is the per-account notification configuration, materialized
// lazily on first read. Default tags are applied by the store when a row is
// created.
type Settings struct {
	AccountID int64 `json:"-"`

	Enabled          bool `json:"enabled" default:"true"`
	TwitterEnabled   bool `json:"twitter_enabled" default:"true"`
	WalletEnabled    bool `json:"wallet_enabled" default:"true"`
	BlackrockEnabled bool `json:"blackrock_enabled" default:"true"`
	SystemEnabled    bool `json:"system_enabled" default:"true"`

	QuietHoursStart string `json:"quiet_hours_start"`
	QuietHoursEnd   string `json:"quiet_hours_end"`

	MaxPerHour int `json:"max_per_hour" default:"20"`
	MaxPerDay  int `json:"max_per_day" default:"100"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Stats is the per-account inbox summary.
type Stats struct {
	Total      int64              `json:"total"`
	ByStatus   map[Status]int64   `json:"by_status"`
	ByType     map[Type]int64     `json:"by_type"`
	ByPriority map[Priority]int64 `json:"by_priority"`
}
