// Package fsm implements the pure, total transition table described in
// spec.md §4.1: next(state, event) -> state. It is the one place in the
// repository that knows the legal (state, event) pairs; every other
// component — dispatch, driver, notify — only ever reacts to the State
// this function hands back.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package fsm

import (
	"fmt"
	"time"

	"github.com/crocme10/ctl2mimir/state"
)

// Clock supplies "now" to transitions that record a started_at timestamp.
// Injected so tests can drive the FSM with a deterministic clock instead of
// the wall clock (§4.1, §9 "Clock injection").
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production Clock, backed by time.Now.
var SystemClock Clock = systemClock{}

// Next is the total transition function. Every (state, event) pair not
// listed in the table below produces state.Failure — it is never an error
// return, because a bad combination is itself a legitimate FSM outcome that
// gets published like any other (§7).
func Next(current state.State, event state.Event, clock Clock) state.State {
	switch {
	case current.Type == state.NotAvailable && event.Type == state.EvDownload:
		return state.NewDownloadingInProgress(clock.Now())

	case current.Type == state.DownloadingInProgress && event.Type == state.EvDownloadingComplete:
		return state.NewDownloaded(event.FilePath, event.Duration)

	case current.Type == state.DownloadingInProgress && event.Type == state.EvDownloadingError:
		return state.NewDownloadingError(event.Message)

	case current.Type == state.DownloadingError && event.Type == state.EvReset:
		return state.NewNotAvailable()

	case current.Type == state.Downloaded && event.Type == state.EvProcess:
		return state.NewProcessingInProgress(event.FilePath, clock.Now())

	case current.Type == state.Downloaded && event.Type == state.EvIndex:
		return state.NewIndexingInProgress(event.FilePath, clock.Now())

	case current.Type == state.ProcessingInProgress && event.Type == state.EvProcessingComplete:
		return state.NewProcessed(event.FilePath, event.Duration)

	case current.Type == state.ProcessingInProgress && event.Type == state.EvProcessingError:
		return state.NewProcessingError(event.Message)

	case current.Type == state.ProcessingError && event.Type == state.EvReset:
		return state.NewNotAvailable()

	case current.Type == state.Processed && event.Type == state.EvIndex:
		return state.NewIndexingInProgress(event.FilePath, clock.Now())

	case current.Type == state.IndexingInProgress && event.Type == state.EvIndexingComplete:
		return state.NewIndexed(event.Duration)

	case current.Type == state.IndexingInProgress && event.Type == state.EvIndexingError:
		return state.NewIndexingError(event.Message)

	case current.Type == state.IndexingError && event.Type == state.EvReset:
		return state.NewNotAvailable()

	case current.Type == state.Indexed && event.Type == state.EvValidate:
		return state.NewValidationInProgress()

	case current.Type == state.ValidationInProgress && event.Type == state.EvValidationComplete:
		return state.NewAvailable()

	case current.Type == state.ValidationInProgress && event.Type == state.EvValidationError:
		return state.NewValidationError(event.Message)

	case current.Type == state.ValidationError && event.Type == state.EvReset:
		return state.NewNotAvailable()

	default:
		return state.NewFailure(fmt.Sprintf("wrong state/event: %s/%s", current, event))
	}
}
