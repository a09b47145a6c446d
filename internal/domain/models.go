package domain

import (
	"strings"
	"time"
)

type TargetID string

// Platform is the closed set of streaming platforms we can watch.
type Platform string

const (
	PlatformTikTok  Platform = "TIKTOK"
	PlatformYouTube Platform = "YOUTUBE"
)

func (p Platform) Valid() bool {
	return p == PlatformTikTok || p == PlatformYouTube
}

func (p Platform) Display() string {
	switch p {
	case PlatformTikTok:
		return "TikTok"
	case PlatformYouTube:
		return "YouTube"
	}
	return string(p)
}

// Status is the last-known live state of a watch target.
type Status string

const (
	StatusUnknown Status = "UNKNOWN"
	StatusOnline  Status = "ONLINE"
	StatusOffline Status = "OFFLINE"
)

// EventKind names the transition edge a notification announces.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventEnded   EventKind = "ended"
)

// WatchTarget is a (user, platform, channel) tuple under monitoring.
// The combination of UserID, Platform and ChannelID is unique.
type WatchTarget struct {
	ID         TargetID  `json:"id"`
	Name       string    `json:"name"`
	UserID     string    `json:"user_id"`
	Platform   Platform  `json:"platform"`
	ChannelID  string    `json:"channel_id"`
	WebhookURL string    `json:"webhook_url"`
	Active     bool      `json:"active"`
	LastStatus Status    `json:"last_status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// NotificationRecord is one attempted webhook delivery. Records are
// append-only and never edited after creation.
type NotificationRecord struct {
	ID        string    `json:"id"`
	TargetID  TargetID  `json:"target_id"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// ProbeResult is the outcome of a single live check. It is ephemeral and
// never persisted.
type ProbeResult struct {
	Live      bool   `json:"live"`
	Title     string `json:"title,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// WatchURL builds the public live page for a channel on its platform.
func WatchURL(p Platform, channelID string) string {
	switch p {
	case PlatformTikTok:
		return "https://www.tiktok.com/@" + strings.TrimPrefix(channelID, "@") + "/live"
	case PlatformYouTube:
		return "https://www.youtube.com/channel/" + channelID + "/live"
	}
	return ""
}
