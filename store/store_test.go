package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/crocme10/ctl2mimir/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ctl2mimir.db")
	s, err := store.Open(dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAssignsIDAndInitialStatus(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec, err := s.Create(ctx, "admins", "osm", "andorra")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.IndexID == 0 {
		t.Fatalf("expected a non-zero index_id")
	}
	if rec.Status != `{"type":"NotAvailable"}` {
		t.Fatalf("expected initial status to be NotAvailable, got %q", rec.Status)
	}
	if rec.UpdatedAt.Before(rec.CreatedAt.Add(-time.Second)) {
		t.Fatalf("updated_at (%v) should not precede created_at (%v)", rec.UpdatedAt, rec.CreatedAt)
	}
}

func TestCreateRejectsDuplicateNaturalKey(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.Create(ctx, "admins", "osm", "andorra"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.Create(ctx, "admins", "osm", "andorra"); err == nil {
		t.Fatalf("expected a uniqueness violation on duplicate (index_type, data_source, region)")
	}
}

func TestUpdateStatusRefreshesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec, err := s.Create(ctx, "admins", "osm", "andorra")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	time.Sleep(1100 * time.Millisecond) // CURRENT_TIMESTAMP has second resolution
	updated, err := s.UpdateStatus(ctx, rec.IndexID, `{"type":"Available"}`)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != `{"type":"Available"}` {
		t.Fatalf("expected status to be updated, got %q", updated.Status)
	}
	if !updated.UpdatedAt.After(rec.UpdatedAt) {
		t.Fatalf("expected updated_at to advance: before=%v after=%v", rec.UpdatedAt, updated.UpdatedAt)
	}
}

func TestListAllOrdersByUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.Create(ctx, "admins", "osm", "andorra")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	second, err := s.Create(ctx, "streets", "bano", "monaco")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)
	if _, err := s.UpdateStatus(ctx, first.IndexID, `{"type":"Available"}`); err != nil {
		t.Fatalf("update first: %v", err)
	}

	recs, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].IndexID != second.IndexID || recs[1].IndexID != first.IndexID {
		t.Fatalf("expected list ordered by updated_at ascending, got %v", recs)
	}
}
