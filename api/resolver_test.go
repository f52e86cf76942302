package api_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/crocme10/ctl2mimir/api"
	"github.com/crocme10/ctl2mimir/config"
	"github.com/crocme10/ctl2mimir/store"
)

type fakeStore struct {
	recs   []store.Record
	nextID int64
}

func (f *fakeStore) ListAll(ctx context.Context) ([]store.Record, error) {
	return f.recs, nil
}

func (f *fakeStore) Create(ctx context.Context, indexType, dataSource, region string) (store.Record, error) {
	f.nextID++
	rec := store.Record{
		IndexID:    f.nextID,
		IndexType:  indexType,
		DataSource: dataSource,
		Region:     region,
		Status:     `{"type":"NotAvailable"}`,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.recs = append(f.recs, rec)
	return rec, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, indexID int64, statusJSON string) (store.Record, error) {
	for i := range f.recs {
		if f.recs[i].IndexID == indexID {
			f.recs[i].Status = statusJSON
			return f.recs[i], nil
		}
	}
	return store.Record{}, nil
}

func (f *fakeStore) Close() error { return nil }

type noopCollaborator struct{}

func (noopCollaborator) Download(ctx context.Context, dataSource, region, workingDir string) (string, error) {
	return "/work/x", nil
}
func (noopCollaborator) Process(ctx context.Context, cosmogonyDir, workingDir, filePath, region string) (string, error) {
	return filePath, nil
}
func (noopCollaborator) Index(ctx context.Context, mimirsbrunnDir string, es *url.URL, dataSource, indexType, filePath string) error {
	return nil
}
func (noopCollaborator) Validate(ctx context.Context) error { return nil }

func TestNewSchemaParsesWithoutError(t *testing.T) {
	st := &fakeStore{}
	settings := &config.Settings{}
	if _, _, err := api.NewSchema(st, settings, noopCollaborator{}, nil, 4); err != nil {
		t.Fatalf("expected schema to parse, got %s", err)
	}
}

func TestResolverIndexesReflectsStore(t *testing.T) {
	st := &fakeStore{}
	if _, err := st.Create(context.Background(), "admins", "osm", "andorra"); err != nil {
		t.Fatalf("unexpected error seeding store: %s", err)
	}

	r := &api.Resolver{Store: st, Settings: &config.Settings{}, Collab: noopCollaborator{}}
	resp, err := r.Indexes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if resp.IndexesCount() != 1 {
		t.Fatalf("expected 1 index, got %d", resp.IndexesCount())
	}
}
