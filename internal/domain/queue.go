package domain

import "time"

// QueueState is the per-category matchmaking queue. It is one actor key
// in the store; every join/leave/pairing mutation is serialized.
type QueueState struct {
	CategoryID      string               `json:"category_id"`
	Waiting         []string             `json:"waiting"`
	Assignments     map[string]string    `json:"assignments"`
	AssignmentTimes map[string]time.Time `json:"assignment_times"`
}

// NewQueueState returns an empty queue for a category
func NewQueueState(categoryID string) *QueueState {
	return &QueueState{
		CategoryID:      categoryID,
		Waiting:         []string{},
		Assignments:     map[string]string{},
		AssignmentTimes: map[string]time.Time{},
	}
}

// IsWaiting reports whether the user is already in the waiting list
func (q *QueueState) IsWaiting(userID string) bool {
	for _, id := range q.Waiting {
		if id == userID {
			return true
		}
	}
	return false
}

// RemoveWaiting removes the user from the waiting list if present
func (q *QueueState) RemoveWaiting(userID string) {
	for i, id := range q.Waiting {
		if id == userID {
			q.Waiting = append(q.Waiting[:i], q.Waiting[i+1:]...)
			return
		}
	}
}

// ClearAssignment drops the user's recorded assignment, if any
func (q *QueueState) ClearAssignment(userID string) {
	delete(q.Assignments, userID)
	delete(q.AssignmentTimes, userID)
}
