// Package progress tracks long-running steps (downloads, extractions) and
// reports them to an Observer. Reporting is observational only: observers
// cannot return errors and never influence the step being tracked.
package progress

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType identifies the type of activity being tracked.
type ActivityType string

const (
	ActivityTypeDownload ActivityType = "download"
	ActivityTypeExtract  ActivityType = "extract"
)

// Status represents the current state of an activity.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// EventType identifies the type of progress event.
type EventType string

const (
	EventTypeStarted   EventType = "progress:started"
	EventTypeUpdate    EventType = "progress:update"
	EventTypeCompleted EventType = "progress:completed"
	EventTypeError     EventType = "progress:error"
)

// Activity is a snapshot of one tracked step.
// Current counts bytes for downloads and entries for extractions.
// Total is 0 when unknown.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Current     int64        `json:"current"`
	Total       int64        `json:"total"`
	Status      Status       `json:"status"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// Percent returns completion in [0,100], or -1 when the total is unknown.
func (a Activity) Percent() float64 {
	if a.Total <= 0 {
		return -1
	}
	p := float64(a.Current) / float64(a.Total) * 100
	if p > 100 {
		p = 100
	}
	return p
}

// Elapsed returns the time spent so far, or in total once finished.
func (a Activity) Elapsed() time.Duration {
	if a.CompletedAt != nil {
		return a.CompletedAt.Sub(a.StartedAt)
	}
	return time.Since(a.StartedAt)
}

// Observer receives activity events.
type Observer interface {
	Notify(event EventType, activity Activity)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event EventType, activity Activity)

// Notify calls f.
func (f ObserverFunc) Notify(event EventType, activity Activity) { f(event, activity) }

// Nop discards every event.
var Nop Observer = ObserverFunc(func(EventType, Activity) {})

// Multi fans events out to several observers in order.
func Multi(observers ...Observer) Observer {
	return ObserverFunc(func(event EventType, activity Activity) {
		for _, o := range observers {
			if o != nil {
				o.Notify(event, activity)
			}
		}
	})
}

// Tracker follows a single activity from start to completion.
// A Tracker is not safe for concurrent use.
type Tracker struct {
	observer Observer
	activity Activity
	done     bool
}

// Start creates a tracker and emits EventTypeStarted.
// A negative total is treated as unknown.
func Start(observer Observer, activityType ActivityType, title string, total int64) *Tracker {
	if observer == nil {
		observer = Nop
	}
	if total < 0 {
		total = 0
	}

	t := &Tracker{
		observer: observer,
		activity: Activity{
			ID:        uuid.New().String(),
			Type:      activityType,
			Title:     title,
			Total:     total,
			Status:    StatusInProgress,
			StartedAt: time.Now(),
		},
	}
	t.observer.Notify(EventTypeStarted, t.activity)
	return t
}

// Add advances the activity by n. Non-positive n is ignored, so Current
// only ever grows.
func (t *Tracker) Add(n int64) {
	if t.done || n <= 0 {
		return
	}
	t.activity.Current += n
	t.observer.Notify(EventTypeUpdate, t.activity)
}

// Complete marks the activity as completed.
func (t *Tracker) Complete() {
	if t.done {
		return
	}
	t.done = true

	now := time.Now()
	t.activity.Status = StatusCompleted
	t.activity.CompletedAt = &now
	t.observer.Notify(EventTypeCompleted, t.activity)
}

// Fail marks the activity as failed.
func (t *Tracker) Fail(err error) {
	if t.done {
		return
	}
	t.done = true

	now := time.Now()
	t.activity.Status = StatusFailed
	t.activity.CompletedAt = &now
	if err != nil {
		t.activity.Error = err.Error()
	}
	t.observer.Notify(EventTypeError, t.activity)
}

// Current returns the amount of work done so far.
func (t *Tracker) Current() int64 {
	return t.activity.Current
}

// Activity returns a snapshot of the tracked activity.
func (t *Tracker) Activity() Activity {
	return t.activity
}
