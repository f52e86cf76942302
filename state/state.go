// Package state defines the FSM's State and Event tagged unions.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package state

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Type names the State variant. Internally-tagged JSON uses this as the
// discriminator field, matching the `#[serde(tag = "type")]` scheme of the
// system this package ports.
type Type string

const (
	NotAvailable          Type = "NotAvailable"
	DownloadingInProgress Type = "DownloadingInProgress"
	DownloadingError      Type = "DownloadingError"
	Downloaded            Type = "Downloaded"
	ProcessingInProgress  Type = "ProcessingInProgress"
	ProcessingError       Type = "ProcessingError"
	Processed             Type = "Processed"
	IndexingInProgress    Type = "IndexingInProgress"
	IndexingError         Type = "IndexingError"
	Indexed               Type = "Indexed"
	ValidationInProgress  Type = "ValidationInProgress"
	ValidationError       Type = "ValidationError"
	Available             Type = "Available"
	Failure               Type = "Failure"
)

// State is a flat, discriminated-union representation of the FSM's state.
// There is no State subclass hierarchy: every variant is this one struct
// with a subset of its fields populated, and all behavior lives in the
// transition table (package fsm), not on State itself.
type State struct {
	Type Type `json:"type"`

	StartedAt *time.Time     `json:"started_at,omitempty"`
	Details   string         `json:"details,omitempty"`
	Message   string         `json:"message,omitempty"`
	FilePath  string         `json:"file_path,omitempty"`
	Duration  *JSONDuration  `json:"duration,omitempty"`
}

// JSONDuration serializes a time.Duration as fractional seconds, the
// conventional wire shape for a Rust std::time::Duration carried over serde.
type JSONDuration time.Duration

func (d JSONDuration) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(time.Duration(d).Seconds())
}

func (d *JSONDuration) UnmarshalJSON(b []byte) error {
	var secs float64
	if err := jsoniter.Unmarshal(b, &secs); err != nil {
		return err
	}
	*d = JSONDuration(time.Duration(secs * float64(time.Second)))
	return nil
}

func Dur(d time.Duration) *JSONDuration {
	jd := JSONDuration(d)
	return &jd
}

// Constructors — one per variant, small focused constructors over a
// God-struct literal at every call site.

func NewNotAvailable() State { return State{Type: NotAvailable} }

func NewDownloadingInProgress(startedAt time.Time) State {
	return State{Type: DownloadingInProgress, StartedAt: &startedAt}
}

func NewDownloadingError(details string) State {
	return State{Type: DownloadingError, Details: details}
}

func NewDownloaded(filePath string, duration time.Duration) State {
	return State{Type: Downloaded, FilePath: filePath, Duration: Dur(duration)}
}

func NewProcessingInProgress(filePath string, startedAt time.Time) State {
	return State{Type: ProcessingInProgress, FilePath: filePath, StartedAt: &startedAt}
}

func NewProcessingError(details string) State {
	return State{Type: ProcessingError, Details: details}
}

func NewProcessed(filePath string, duration time.Duration) State {
	return State{Type: Processed, FilePath: filePath, Duration: Dur(duration)}
}

func NewIndexingInProgress(filePath string, startedAt time.Time) State {
	return State{Type: IndexingInProgress, FilePath: filePath, StartedAt: &startedAt}
}

func NewIndexingError(details string) State {
	return State{Type: IndexingError, Details: details}
}

func NewIndexed(duration time.Duration) State {
	return State{Type: Indexed, Duration: Dur(duration)}
}

func NewValidationInProgress() State { return State{Type: ValidationInProgress} }

func NewValidationError(details string) State {
	return State{Type: ValidationError, Details: details}
}

func NewAvailable() State { return State{Type: Available} }

func NewFailure(message string) State {
	return State{Type: Failure, Message: message}
}

// Absorbing reports whether no event can move the FSM out of this state
// during the current run (§9 glossary: "Absorbing state").
func (s State) Absorbing() bool {
	return s.Type == Available || s.Type == Failure
}

// Marshal/Unmarshal round-trip the internally-tagged JSON scheme (§3, §8
// invariant 2). jsoniter is used rather than encoding/json to match the
// codec the notify and api packages use for the envelope around it.
func Marshal(s State) ([]byte, error) {
	return jsoniter.Marshal(s)
}

func Unmarshal(data []byte) (State, error) {
	var s State
	err := jsoniter.Unmarshal(data, &s)
	return s, err
}
