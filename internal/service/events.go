package service

import "time"

const (
	EventAccountBlocked   = "auth.blocked"
	EventAccountUnblocked = "auth.unblocked"
)

// SecurityEvent is pushed to connected administrators
type SecurityEvent struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

type EventPublisher interface {
	Publish(event SecurityEvent)
}

type discardPublisher struct{}

func (discardPublisher) Publish(SecurityEvent) {}

func publisherOrDiscard(p EventPublisher) EventPublisher {
	if p == nil {
		return discardPublisher{}
	}
	return p
}
