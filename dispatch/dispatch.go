// Package dispatch implements the job dispatcher (§4.2): given the FSM's
// current, non-terminal state, select and run exactly one external job,
// then translate its outcome into the next Event. The dispatcher never
// mutates persistent state and never writes to the bus — those are the
// status listener's (package notify) and the driver's (package driver) jobs
// respectively.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/crocme10/ctl2mimir/jobs"
	"github.com/crocme10/ctl2mimir/state"
)

// Config carries the per-FSM parameters the dispatcher needs to pick and
// run a job: the index's own (index_type, data_source, region) plus the
// filesystem/cluster locations from config.Settings.Work and
// config.Settings.Elasticsearch.
type Config struct {
	IndexType      string
	DataSource     string
	Region         string
	WorkingDir     string
	MimirsbrunnDir string
	CosmogonyDir   string
	Elasticsearch  *url.URL
}

// Dispatch selects and runs the job for the current state and returns the
// Event that resulted. ok is false for the states that never dispatch a
// job (NotAvailable, Available, Failure) — the driver treats those states
// specially on its own (§4.4).
func Dispatch(ctx context.Context, cfg Config, collab jobs.Collaborator, s state.State) (ev state.Event, ok bool) {
	switch s.Type {
	case state.NotAvailable, state.Available, state.Failure:
		return state.Event{}, false

	case state.DownloadingInProgress:
		switch cfg.DataSource {
		case "osm", "cosmogony", "bano", "ntfs":
		default:
			return state.DownloadingError(fmt.Sprintf("don't know how to download %s", cfg.DataSource)), true
		}
		started := time.Now()
		path, err := collab.Download(ctx, cfg.DataSource, cfg.Region, cfg.WorkingDir)
		if err != nil {
			return state.DownloadingError(fmt.Sprintf("Could not download: %s", err)), true
		}
		return state.DownloadingComplete(path, time.Since(started)), true

	case state.DownloadingError:
		return state.Reset(), true

	case state.Downloaded:
		// Pure routing decision, not an external call (§4.2).
		if cfg.DataSource == "cosmogony" {
			return state.Process(s.FilePath), true
		}
		return state.Index(s.FilePath), true

	case state.ProcessingInProgress:
		if cfg.DataSource != "cosmogony" {
			return state.ProcessingError(fmt.Sprintf("Dont know how to process %s", cfg.DataSource)), true
		}
		started := time.Now()
		path, err := collab.Process(ctx, cfg.CosmogonyDir, cfg.WorkingDir, s.FilePath, cfg.Region)
		if err != nil {
			return state.ProcessingError(fmt.Sprintf("Could not process: %s", err)), true
		}
		return state.ProcessingComplete(path, time.Since(started)), true

	case state.ProcessingError:
		return state.Reset(), true

	case state.Processed:
		return state.Index(s.FilePath), true

	case state.IndexingInProgress:
		if cfg.DataSource == "osm" && cfg.IndexType != "admins" && cfg.IndexType != "streets" {
			return state.IndexingError(fmt.Sprintf("could not index %s using OSM", cfg.IndexType)), true
		}
		started := time.Now()
		err := collab.Index(ctx, cfg.MimirsbrunnDir, cfg.Elasticsearch, cfg.DataSource, cfg.IndexType, s.FilePath)
		if err != nil {
			return state.IndexingError(err.Error()), true
		}
		return state.IndexingComplete(time.Since(started)), true

	case state.IndexingError:
		return state.Reset(), true

	case state.Indexed:
		return state.Validate(), true

	case state.ValidationInProgress:
		if err := collab.Validate(ctx); err != nil {
			return state.ValidationError(err.Error()), true
		}
		return state.ValidationComplete(), true

	case state.ValidationError:
		return state.Reset(), true

	default:
		return state.Event{}, false
	}
}
