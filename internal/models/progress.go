package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ProgressStatus is the lifecycle of a server-side processing run.
type ProgressStatus int

const (
	ProgressIdle ProgressStatus = iota
	ProgressProcessing
	ProgressCompleted
	ProgressFailed
)

var progressStatusNames = map[ProgressStatus]string{
	ProgressIdle:       "idle",
	ProgressProcessing: "processing",
	ProgressCompleted:  "completed",
	ProgressFailed:     "failed",
}

func (s ProgressStatus) String() string {
	if name, ok := progressStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ProgressStatus(%d)", int(s))
}

// Terminal reports whether no further progress can be observed.
func (s ProgressStatus) Terminal() bool {
	return s == ProgressCompleted || s == ProgressFailed
}

// CanAdvanceTo reports whether moving from s to next keeps the
// idle -> processing -> {completed, failed} order.
func (s ProgressStatus) CanAdvanceTo(next ProgressStatus) bool {
	switch s {
	case ProgressIdle:
		return true
	case ProgressProcessing:
		return next != ProgressIdle
	default:
		return next == s
	}
}

// ParseProgressStatus maps the server's status string. The analysis server
// reports "error" for a failed run.
func ParseProgressStatus(raw string) (ProgressStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "idle", "":
		return ProgressIdle, nil
	case "processing", "running":
		return ProgressProcessing, nil
	case "completed", "complete", "done":
		return ProgressCompleted, nil
	case "failed", "error":
		return ProgressFailed, nil
	}
	return ProgressIdle, fmt.Errorf("unknown progress status %q", raw)
}

func (s ProgressStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ProgressStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseProgressStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s ProgressStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ProgressStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseProgressStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ProgressState is the poller's view of a processing run.
type ProgressState struct {
	Done      int            `json:"done" msgpack:"done"`
	Total     int            `json:"total" msgpack:"total"`
	Status    ProgressStatus `json:"status" msgpack:"status"`
	LastError string         `json:"last_error,omitempty" msgpack:"last_error,omitempty"`
}

// Percent returns the completion percentage rounded to the nearest integer.
// A zero total reads as 0%.
func (p ProgressState) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	pct := math.Round(float64(p.Done) / float64(p.Total) * 100)
	return int(math.Min(math.Max(pct, 0), 100))
}

// Normalize clamps counts so that 0 <= done and, once total > 0, done <= total.
func (p ProgressState) Normalize() ProgressState {
	if p.Total < 0 {
		p.Total = 0
	}
	if p.Done < 0 {
		p.Done = 0
	}
	if p.Total > 0 && p.Done > p.Total {
		p.Done = p.Total
	}
	return p
}
