// Package jobs names the external collaborators the dispatcher calls into:
// downloading a region extract, processing it with cosmogony, bulk-loading
// it into the search cluster, and validating the result. Per spec.md §1
// these are "external collaborators whose interface is named but whose
// internals are out of scope" — the implementations here are the minimal
// concrete shape (HTTP GET, child-process invocations for processing and
// for the index loaders)
// that lets the dispatcher (package dispatch) drive real I/O end to end.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package jobs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/crocme10/ctl2mimir/ctlerr"
)

// Collaborator is the full set of long-running external jobs the
// dispatcher selects among (§4.2).
type Collaborator interface {
	// Download fetches the named region's extract for dataSource into
	// workingDir and returns the path to the downloaded file.
	Download(ctx context.Context, dataSource, region, workingDir string) (filePath string, err error)
	// Process transforms an OSM extract into a cosmogony file. Only
	// data_source "cosmogony" ever reaches this (§4.2).
	Process(ctx context.Context, cosmogonyDir, workingDir, filePath, region string) (processedPath string, err error)
	// Index bulk-loads filePath into the search cluster at es, branching
	// on dataSource and, for osm, on indexType.
	Index(ctx context.Context, mimirsbrunnDir string, es *url.URL, dataSource, indexType, filePath string) error
	// Validate performs a bounded post-load check against the search
	// cluster. A placeholder implementation is acceptable (§4.2).
	Validate(ctx context.Context) error
}

// sourceURLs maps a data source to the upstream extract it downloads (the
// region name is substituted via fmt.Sprintf).
var sourceURLs = map[string]string{
	"osm":       "https://download.example.org/osm/%s-latest.osm.pbf",
	"cosmogony": "https://download.example.org/osm/%s-latest.osm.pbf",
	"bano":      "https://download.example.org/bano/%s.csv.gz",
	"ntfs":      "https://download.example.org/ntfs/%s.zip",
}

// HTTP is the production Collaborator: real downloads over HTTP, cosmogony
// invoked as a child process, index loads done by running mimirsbrunn-style
// loader binaries as child processes, validation a placeholder.
type HTTP struct {
	Client *http.Client
}

func NewHTTP() *HTTP {
	return &HTTP{Client: &http.Client{Timeout: 30 * time.Minute}}
}

func (h *HTTP) Download(ctx context.Context, dataSource, region, workingDir string) (string, error) {
	tmpl, ok := sourceURLs[dataSource]
	if !ok {
		return "", ctlerr.New(ctlerr.Misc, fmt.Sprintf("don't know how to download %s", dataSource))
	}
	src := fmt.Sprintf(tmpl, region)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", ctlerr.Wrap(ctlerr.URLParse, err, "could not build download request for "+src)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return "", ctlerr.Wrap(ctlerr.HTTP, err, "could not download "+src)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", ctlerr.New(ctlerr.HTTP, fmt.Sprintf("%d", resp.StatusCode))
	}

	if err := os.MkdirAll(workingDir, 0o755); err != nil {
		return "", ctlerr.Wrap(ctlerr.Misc, err, "could not create working directory")
	}
	dest := filepath.Join(workingDir, fmt.Sprintf("%s-%s%s", dataSource, region, filepath.Ext(src)))
	out, err := os.Create(dest)
	if err != nil {
		return "", ctlerr.Wrap(ctlerr.Misc, err, "could not create destination file")
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", ctlerr.Wrap(ctlerr.Misc, err, "could not write downloaded file")
	}
	return dest, nil
}

func (h *HTTP) Process(ctx context.Context, cosmogonyDir, workingDir, filePath, region string) (string, error) {
	out := filepath.Join(workingDir, region+".cosmogony.jsonl.gz")
	bin := filepath.Join(cosmogonyDir, "cosmogony")
	cmd := exec.CommandContext(ctx, bin, "--input", filePath, "--output", out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", ctlerr.Wrap(ctlerr.ExternalProcess, err, string(output))
	}
	return out, nil
}

func (h *HTTP) Index(ctx context.Context, mimirsbrunnDir string, es *url.URL, dataSource, indexType, filePath string) error {
	var bin string
	args := []string{"--input", filePath, "--connection-string", es.String()}

	switch dataSource {
	case "bano":
		bin = filepath.Join(mimirsbrunnDir, "bano2mimir")
	case "ntfs":
		bin = filepath.Join(mimirsbrunnDir, "ntfs2mimir")
	case "cosmogony":
		bin = filepath.Join(mimirsbrunnDir, "cosmogony2mimir")
	case "osm":
		bin = filepath.Join(mimirsbrunnDir, "osm2mimir")
		switch indexType {
		case "admins":
			args = append(args, "--import-admin")
		case "streets":
			args = append(args, "--import-way")
		default:
			return ctlerr.New(ctlerr.Misc, fmt.Sprintf("could not index %s using OSM", indexType))
		}
	default:
		return ctlerr.New(ctlerr.Misc, fmt.Sprintf("don't know how to index %s", dataSource))
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return ctlerr.Wrap(ctlerr.ExternalProcess, err, string(output))
	}
	return nil
}

// Validate is the placeholder §4.2 explicitly sanctions: a real
// implementation would query the search cluster for document counts.
func (h *HTTP) Validate(ctx context.Context) error {
	select {
	case <-time.After(time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
