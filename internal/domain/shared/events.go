// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the progression engine.
const (
	// Learner events
	EventLearnerRegistered EventType = "learner.registered"
	EventXPGained          EventType = "learner.xp_gained"

	// Progression events
	EventProgressInitialized EventType = "progression.initialized"
	EventScoreSubmitted      EventType = "progression.score_submitted"
	EventCourseStarted       EventType = "progression.course_started"
	EventCourseCompleted     EventType = "progression.course_completed"
	EventCourseFailed        EventType = "progression.course_failed"
	EventCourseUnlocked      EventType = "progression.course_unlocked"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// XPGainedEvent is emitted when a learner gains experience points.
type XPGainedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	Amount    int    `json:"amount"`
	NewTotal  int    `json:"new_total"`
	Source    string `json:"source"` // "course_completion" or "achievement_bonus"
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"amount":     e.Amount,
		"new_total":  e.NewTotal,
		"source":     e.Source,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(learnerID string, amount, newTotal int, source string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, learnerID),
		LearnerID: learnerID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// CourseStartedEvent is emitted when the first graded activity moves a
// course from unlocked to in_progress.
type CourseStartedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	CourseID  string `json:"course_id"`
}

// Payload implements Event interface.
func (e CourseStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"course_id":  e.CourseID,
	}
}

// NewCourseStartedEvent creates a new CourseStartedEvent.
func NewCourseStartedEvent(learnerID, courseID string) CourseStartedEvent {
	return CourseStartedEvent{
		BaseEvent: NewBaseEvent(EventCourseStarted, learnerID),
		LearnerID: learnerID,
		CourseID:  courseID,
	}
}

// CourseCompletedEvent is emitted when a learner passes a course evaluation.
type CourseCompletedEvent struct {
	BaseEvent
	LearnerID  string `json:"learner_id"`
	CourseID   string `json:"course_id"`
	TrackID    string `json:"track_id"`
	TotalScore int    `json:"total_score"`
	Attempts   int    `json:"attempts"`
}

// Payload implements Event interface.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":  e.LearnerID,
		"course_id":   e.CourseID,
		"track_id":    e.TrackID,
		"total_score": e.TotalScore,
		"attempts":    e.Attempts,
	}
}

// NewCourseCompletedEvent creates a new CourseCompletedEvent.
func NewCourseCompletedEvent(learnerID, courseID, trackID string, totalScore, attempts int) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent:  NewBaseEvent(EventCourseCompleted, learnerID),
		LearnerID:  learnerID,
		CourseID:   courseID,
		TrackID:    trackID,
		TotalScore: totalScore,
		Attempts:   attempts,
	}
}

// CourseFailedEvent is emitted when a learner exhausts the attempt cap.
type CourseFailedEvent struct {
	BaseEvent
	LearnerID  string `json:"learner_id"`
	CourseID   string `json:"course_id"`
	TotalScore int    `json:"total_score"`
	Attempts   int    `json:"attempts"`
}

// Payload implements Event interface.
func (e CourseFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":  e.LearnerID,
		"course_id":   e.CourseID,
		"total_score": e.TotalScore,
		"attempts":    e.Attempts,
	}
}

// NewCourseFailedEvent creates a new CourseFailedEvent.
func NewCourseFailedEvent(learnerID, courseID string, totalScore, attempts int) CourseFailedEvent {
	return CourseFailedEvent{
		BaseEvent:  NewBaseEvent(EventCourseFailed, learnerID),
		LearnerID:  learnerID,
		CourseID:   courseID,
		TotalScore: totalScore,
		Attempts:   attempts,
	}
}

// CourseUnlockedEvent is emitted when the unlock propagator opens the next
// course in a track.
type CourseUnlockedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	CourseID  string `json:"course_id"`
	TrackID   string `json:"track_id"`
}

// Payload implements Event interface.
func (e CourseUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"course_id":  e.CourseID,
		"track_id":   e.TrackID,
	}
}

// NewCourseUnlockedEvent creates a new CourseUnlockedEvent.
func NewCourseUnlockedEvent(learnerID, courseID, trackID string) CourseUnlockedEvent {
	return CourseUnlockedEvent{
		BaseEvent: NewBaseEvent(EventCourseUnlocked, learnerID),
		LearnerID: learnerID,
		CourseID:  courseID,
		TrackID:   trackID,
	}
}

// AchievementUnlockedEvent is emitted when an achievement is awarded.
type AchievementUnlockedEvent struct {
	BaseEvent
	LearnerID       string `json:"learner_id"`
	AchievementName string `json:"achievement_name"`
	XPBonus         int    `json:"xp_bonus"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":       e.LearnerID,
		"achievement_name": e.AchievementName,
		"xp_bonus":         e.XPBonus,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(learnerID, achievementName string, xpBonus int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:       NewBaseEvent(EventAchievementUnlocked, learnerID),
		LearnerID:       learnerID,
		AchievementName: achievementName,
		XPBonus:         xpBonus,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish publishes an event to all subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all event types.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber

	// Close shuts down the event bus.
	Close() error
}

// NoopPublisher discards all events. Useful in tests.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(Event) error { return nil }
