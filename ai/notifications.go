package ai

import (
	"time"

	notify "github.com/bitly/go-notify"
)

// Notification channels published through go-notify. Subscribers (the
// monitor server, tests) attach with notify.Start and must drain their
// channel; posts use a short timeout so a stalled subscriber cannot
// block the update thread.
const (
	NotifyMessageSent     = "ai:message:sent"
	NotifyMessageReceived = "ai:message:received"
	NotifyAgentSpawned    = "ai:agent:spawned"
	NotifyAgentDestroyed  = "ai:agent:destroyed"
	NotifyTierChanged     = "ai:difficulty:tier"
)

const postTimeout = time.Millisecond

// MessageEvent describes one delivered or sent message.
type MessageEvent struct {
	Type      string `json:"type"`
	Sender    string `json:"sender"`
	Target    string `json:"target,omitempty"`
	Broadcast bool   `json:"broadcast"`
}

// AgentEvent describes an agent lifecycle change.
type AgentEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
}

// TierEvent describes a difficulty tier transition.
type TierEvent struct {
	Previous string  `json:"previous"`
	Current  string  `json:"current"`
	Score    float64 `json:"score"`
}

func postEvent(channel string, event interface{}) {
	// Errors mean no subscriber or a full channel; both are fine to drop.
	_ = notify.PostTimeout(channel, event, postTimeout)
}
