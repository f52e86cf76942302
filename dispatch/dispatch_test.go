package dispatch_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/crocme10/ctl2mimir/dispatch"
	"github.com/crocme10/ctl2mimir/state"
)

type stubCollaborator struct {
	downloadErr error
	downloadPath string
	indexErr    error
}

func (s *stubCollaborator) Download(ctx context.Context, dataSource, region, workingDir string) (string, error) {
	if s.downloadErr != nil {
		return "", s.downloadErr
	}
	path := s.downloadPath
	if path == "" {
		path = "/work/" + region
	}
	return path, nil
}

func (s *stubCollaborator) Process(ctx context.Context, cosmogonyDir, workingDir, filePath, region string) (string, error) {
	return filePath + ".cosmogony", nil
}

func (s *stubCollaborator) Index(ctx context.Context, mimirsbrunnDir string, es *url.URL, dataSource, indexType, filePath string) error {
	return s.indexErr
}

func (s *stubCollaborator) Validate(ctx context.Context) error { return nil }

func cfg(dataSource, indexType string) dispatch.Config {
	es, _ := url.Parse("http://localhost:9200")
	return dispatch.Config{
		IndexType:      indexType,
		DataSource:     dataSource,
		Region:         "andorra",
		WorkingDir:     "/work",
		MimirsbrunnDir: "/bin",
		CosmogonyDir:   "/bin",
		Elasticsearch:  es,
	}
}

func TestDownloadedRoutesByDataSource(t *testing.T) {
	collab := &stubCollaborator{}
	ev, ok := dispatch.Dispatch(context.Background(), cfg("cosmogony", "admins"), collab, state.NewDownloaded("/work/a", time.Second))
	if !ok || ev.Type != state.EvProcess {
		t.Fatalf("expected cosmogony to route to Process, got %+v ok=%v", ev, ok)
	}

	ev, ok = dispatch.Dispatch(context.Background(), cfg("osm", "admins"), collab, state.NewDownloaded("/work/a", time.Second))
	if !ok || ev.Type != state.EvIndex {
		t.Fatalf("expected osm to route to Index, got %+v ok=%v", ev, ok)
	}
}

func TestUnknownDataSourceFailsDownloadWithDetail(t *testing.T) {
	collab := &stubCollaborator{}
	ev, ok := dispatch.Dispatch(context.Background(), cfg("unknown", ""), collab, state.NewDownloadingInProgress(time.Now()))
	if !ok || ev.Type != state.EvDownloadingError {
		t.Fatalf("expected DownloadingError, got %+v ok=%v", ev, ok)
	}
	if !strings.Contains(ev.Message, "don't know how to download unknown") {
		t.Fatalf("expected detail to name the unknown source, got %q", ev.Message)
	}
}

func TestUnsupportedOSMIndexTypeFails(t *testing.T) {
	collab := &stubCollaborator{}
	ev, ok := dispatch.Dispatch(context.Background(), cfg("osm", "poi"), collab, state.NewIndexingInProgress("/work/a", time.Now()))
	if !ok || ev.Type != state.EvIndexingError {
		t.Fatalf("expected IndexingError, got %+v ok=%v", ev, ok)
	}
	if !strings.Contains(ev.Message, "poi") {
		t.Fatalf("expected detail to mention the index type, got %q", ev.Message)
	}
}

func TestErrorStatesEnqueueReset(t *testing.T) {
	collab := &stubCollaborator{}
	for _, s := range []state.State{
		state.NewDownloadingError("x"), state.NewProcessingError("x"),
		state.NewIndexingError("x"), state.NewValidationError("x"),
	} {
		ev, ok := dispatch.Dispatch(context.Background(), cfg("osm", "admins"), collab, s)
		if !ok || ev.Type != state.EvReset {
			t.Fatalf("expected Reset from %s, got %+v ok=%v", s, ev, ok)
		}
	}
}

func TestAbsorbingAndInitialStatesDoNotDispatch(t *testing.T) {
	collab := &stubCollaborator{}
	for _, s := range []state.State{state.NewNotAvailable(), state.NewAvailable(), state.NewFailure("x")} {
		_, ok := dispatch.Dispatch(context.Background(), cfg("osm", "admins"), collab, s)
		if ok {
			t.Fatalf("expected %s not to dispatch a job", s)
		}
	}
}

func TestDownloadFailureYieldsDownloadingError(t *testing.T) {
	collab := &stubCollaborator{downloadErr: errors.New("404")}
	ev, ok := dispatch.Dispatch(context.Background(), cfg("osm", "admins"), collab, state.NewDownloadingInProgress(time.Now()))
	if !ok || ev.Type != state.EvDownloadingError {
		t.Fatalf("expected DownloadingError, got %+v ok=%v", ev, ok)
	}
	if !strings.Contains(ev.Message, "404") {
		t.Fatalf("expected detail to carry the underlying reason, got %q", ev.Message)
	}
}
