package models

import "time"

// Channel types. Transport implementations live outside the engine except
// for the in-repo webhook adapter.
const (
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
	ChannelPush    = "push"
	ChannelChat    = "chat"
	ChannelWebhook = "webhook"
)

// Delivery statuses recorded per notification attempt. RateLimited is a
// normal outcome, not an error.
const (
	DeliverySent        = "sent"
	DeliveryFailed      = "failed"
	DeliveryRateLimited = "rate_limited"
)

// RateLimits are sliding per-channel windows. Zero means unlimited for that
// window.
type RateLimits struct {
	MaxPerMinute int `json:"max_per_minute"`
	MaxPerHour   int `json:"max_per_hour"`
	MaxPerDay    int `json:"max_per_day"`
}

// NotificationChannel describes one transport the dispatcher can hand
// notifications to.
type NotificationChannel struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	RateLimits RateLimits `json:"rate_limits"`
	Active     bool       `json:"active"`
}

// DeliveryResult is what a channel adapter reports for one send.
type DeliveryResult struct {
	Status    string    `json:"status"` // sent, failed, rate_limited
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Target is a concrete addressable notification target produced by the
// directory resolver from an abstract Recipient.
type Target struct {
	Kind    string `json:"kind"` // user, external
	ID      string `json:"id"`
	Address string `json:"address"` // channel-specific address (email, msisdn, URL...)
}
