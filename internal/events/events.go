package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

// EventType represents different types of domain events
type EventType string

const (
	// Attempt events
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptCompleted EventType = "attempt.completed"
	EventAttemptAbandoned EventType = "attempt.abandoned"

	// Scoring events
	EventScoresRecalculated EventType = "scoring.recalculated"

	// Authoring events
	EventQuestionsImported EventType = "authoring.questions_imported"
)

// Event is the base envelope for every published event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

const eventSource = "reading-service"

// Attempt event payloads

type AttemptStartedEvent struct {
	AttemptID uint      `json:"attempt_id"`
	TestID    uint      `json:"test_id"`
	TestTitle string    `json:"test_title"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
	TimeLimit int       `json:"time_limit"` // minutes, 0 means unlimited
}

type AttemptCompletedEvent struct {
	AttemptID       uint      `json:"attempt_id"`
	TestID          uint      `json:"test_id"`
	TestTitle       string    `json:"test_title"`
	UserID          string    `json:"user_id"`
	CompletedAt     time.Time `json:"completed_at"`
	Score           float64   `json:"score"`
	TotalPossible   float64   `json:"total_possible"`
	PercentageScore float64   `json:"percentage_score"`
	IELTSBand       float64   `json:"ielts_band"`
	TimeSpent       int       `json:"time_spent_seconds"`
}

type ScoresRecalculatedEvent struct {
	Processed    int       `json:"processed"`
	Updated      int       `json:"updated"`
	Failed       int       `json:"failed"`
	FinishedAt   time.Time `json:"finished_at"`
	DurationSecs float64   `json:"duration_seconds"`
}

type QuestionsImportedEvent struct {
	CreatorID    string `json:"creator_id"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
}

// Event factory functions

func NewAttemptStartedEvent(attemptID, testID uint, title, userID string, startedAt time.Time, timeLimit int) *Event {
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      EventAttemptStarted,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data: AttemptStartedEvent{
			AttemptID: attemptID,
			TestID:    testID,
			TestTitle: title,
			UserID:    userID,
			StartedAt: startedAt,
			TimeLimit: timeLimit,
		},
	}
}

func NewAttemptCompletedEvent(data AttemptCompletedEvent) *Event {
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      EventAttemptCompleted,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data:      data,
	}
}

func NewScoresRecalculatedEvent(data ScoresRecalculatedEvent) *Event {
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      EventScoresRecalculated,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data:      data,
	}
}

func NewQuestionsImportedEvent(data QuestionsImportedEvent) *Event {
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      EventQuestionsImported,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data:      data,
	}
}
