package timesheet

import (
	"encoding/json"
	"time"
)

// ActivityLogCapacity is the number of entries a week keeps.
const ActivityLogCapacity = 10

// Activity actions.
const (
	ActionSubmitted = "New timesheet submitted"
	ActionUpdated   = "Timesheet updated"
)

// ActivityLogEntry is immutable once pushed.
type ActivityLogEntry struct {
	UpdatedAt        time.Time `json:"updatedAt"`
	UpdatedBy        string    `json:"updatedBy"`
	IsUpdatedByAdmin bool      `json:"isUpdatedByAdmin"`
	Action           string    `json:"action"`
	Changes          []string  `json:"changes"`
}

// ActivityLog is a fixed-capacity ring buffer. Pushing onto a full log
// overwrites the oldest entry.
type ActivityLog struct {
	buf   []ActivityLogEntry
	start int
	size  int
}

func NewActivityLog(capacity int) *ActivityLog {
	if capacity <= 0 {
		capacity = ActivityLogCapacity
	}
	return &ActivityLog{buf: make([]ActivityLogEntry, capacity)}
}

// Push appends e, evicting the oldest entry when full.
func (l *ActivityLog) Push(e ActivityLogEntry) {
	e.Changes = append([]string(nil), e.Changes...)
	capacity := len(l.buf)
	if l.size < capacity {
		l.buf[(l.start+l.size)%capacity] = e
		l.size++
		return
	}
	l.buf[l.start] = e
	l.start = (l.start + 1) % capacity
}

func (l *ActivityLog) Len() int { return l.size }

func (l *ActivityLog) Cap() int { return len(l.buf) }

// Entries returns the entries oldest first.
func (l *ActivityLog) Entries() []ActivityLogEntry {
	if l == nil {
		return []ActivityLogEntry{}
	}
	out := make([]ActivityLogEntry, 0, l.size)
	for i := 0; i < l.size; i++ {
		out = append(out, l.buf[(l.start+i)%len(l.buf)])
	}
	return out
}

// Latest returns the newest entry.
func (l *ActivityLog) Latest() (ActivityLogEntry, bool) {
	if l == nil || l.size == 0 {
		return ActivityLogEntry{}, false
	}
	return l.buf[(l.start+l.size-1)%len(l.buf)], true
}

func (l *ActivityLog) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Entries())
}

// UnmarshalJSON replays the stored entries; a stored log longer than the
// capacity keeps only its newest entries.
func (l *ActivityLog) UnmarshalJSON(data []byte) error {
	var entries []ActivityLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*l = *NewActivityLog(ActivityLogCapacity)
	for _, e := range entries {
		l.Push(e)
	}
	return nil
}
