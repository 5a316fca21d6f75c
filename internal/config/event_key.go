package config

import (
	"fmt"
)

// AuditQueueKey is the Redis list drained by the audit worker.
const AuditQueueKey = "session_events_queue"

type EventKeyStruct struct{}

func NewEventKeyStruct() *EventKeyStruct {
	return &EventKeyStruct{}
}

// AssessmentSessionChannel returns the Redis PubSub channel carrying session
// lifecycle events for one assessment (consumed by monitoring dashboards).
func (k *EventKeyStruct) AssessmentSessionChannel(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:sessions", assessmentID)
}

// UserSessionChannel returns the Redis PubSub channel carrying session
// lifecycle events for one learner across all assessments.
func (k *EventKeyStruct) UserSessionChannel(userID int) string {
	return fmt.Sprintf("user:%d:sessions", userID)
}

var EventKey = NewEventKeyStruct()
