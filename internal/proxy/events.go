package proxy

import (
	"time"

	"github.com/quantdesk/ai-gateway/internal/thinking"
)

type EventType string

const (
	EventContent  EventType = "content"
	EventThinking EventType = "thinking"
	EventUsage    EventType = "usage"
	EventError    EventType = "error"
	EventDone     EventType = "done"
)

// UsageStats is the final accounting for one completed call.
type UsageStats struct {
	InputTokens  int64     `json:"inputTokens"`
	OutputTokens int64     `json:"outputTokens"`
	TotalTokens  int64     `json:"totalTokens"`
	TotalCost    float64   `json:"totalCost"`
	Model        string    `json:"model"`
	Timestamp    time.Time `json:"timestamp"`
}

// StreamEvent is one element of the normalized event sequence relayed to
// the client. Exactly one payload field is set per type.
type StreamEvent struct {
	Type    EventType      `json:"type"`
	Content string         `json:"content,omitempty"`
	Step    *thinking.Step `json:"step,omitempty"`
	Usage   *UsageStats    `json:"usage,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func thinkingEvent(step *thinking.Step) StreamEvent {
	return StreamEvent{Type: EventThinking, Step: step}
}
