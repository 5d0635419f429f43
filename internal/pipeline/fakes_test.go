package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hexasec/argus/internal/core/domain"
	"github.com/hexasec/argus/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memSourceRepo struct {
	mu      sync.Mutex
	sources map[uuid.UUID]domain.Source
}

func newMemSourceRepo(sources ...domain.Source) *memSourceRepo {
	r := &memSourceRepo{sources: make(map[uuid.UUID]domain.Source)}
	for _, s := range sources {
		r.sources[s.ID] = s
	}
	return r
}

func (r *memSourceRepo) Create(_ context.Context, s *domain.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.ID] = *s
	return nil
}

func (r *memSourceRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: source %s", ports.ErrNotFound, id)
	}
	return &s, nil
}

func (r *memSourceRepo) List(_ context.Context) ([]domain.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	return out, nil
}

type memDocumentRepo struct {
	mu        sync.Mutex
	documents map[uuid.UUID]domain.Document
	createErr error
	saveErr   error
}

func newMemDocumentRepo(docs ...domain.Document) *memDocumentRepo {
	r := &memDocumentRepo{documents: make(map[uuid.UUID]domain.Document)}
	for _, d := range docs {
		r.documents[d.ID] = d
	}
	return r
}

func (r *memDocumentRepo) Create(_ context.Context, d *domain.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[d.ID] = *d
	return nil
}

func (r *memDocumentRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.documents[id]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", ports.ErrNotFound, id)
	}
	return &d, nil
}

func (r *memDocumentRepo) SaveExtraction(_ context.Context, d *domain.Document) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.documents[d.ID]; !ok {
		return fmt.Errorf("%w: document %s", ports.ErrNotFound, d.ID)
	}
	r.documents[d.ID] = *d
	return nil
}

func (r *memDocumentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.DocumentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.documents[id]
	if !ok {
		return fmt.Errorf("%w: document %s", ports.ErrNotFound, id)
	}
	d.Status = status
	r.documents[id] = d
	return nil
}

func (r *memDocumentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.documents)
}

func (r *memDocumentRepo) single() domain.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.documents {
		return d
	}
	return domain.Document{}
}

type memAssetRepo struct {
	assets []domain.Asset
}

func (r *memAssetRepo) Create(_ context.Context, a *domain.Asset) error {
	r.assets = append(r.assets, *a)
	return nil
}

func (r *memAssetRepo) ListActive(_ context.Context) ([]domain.Asset, error) {
	var out []domain.Asset
	for _, a := range r.assets {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAssetRepo) List(_ context.Context) ([]domain.Asset, error) {
	return r.assets, nil
}

type memIncidentRepo struct {
	mu        sync.Mutex
	incidents map[uuid.UUID]domain.Incident
	createErr error
}

func newMemIncidentRepo(incidents ...domain.Incident) *memIncidentRepo {
	r := &memIncidentRepo{incidents: make(map[uuid.UUID]domain.Incident)}
	for _, in := range incidents {
		r.incidents[in.ID] = in
	}
	return r
}

func (r *memIncidentRepo) Create(_ context.Context, in *domain.Incident) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incidents[in.ID] = *in
	return nil
}

func (r *memIncidentRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.incidents[id]
	if !ok {
		return nil, fmt.Errorf("%w: incident %s", ports.ErrNotFound, id)
	}
	return &in, nil
}

func (r *memIncidentRepo) List(_ context.Context, limit int) ([]domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Incident, 0, len(r.incidents))
	for _, in := range r.incidents {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, in)
	}
	return out, nil
}

func (r *memIncidentRepo) ListSince(_ context.Context, since time.Time, limit int) ([]domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Incident, 0, len(r.incidents))
	for _, in := range r.incidents {
		if in.DetectedAt.Before(since) {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, in)
	}
	return out, nil
}

func (r *memIncidentRepo) ExistsForDocument(_ context.Context, documentID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.incidents {
		if in.Detail[domain.DetailDocumentID] == documentID.String() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memIncidentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.incidents)
}

func (r *memIncidentRepo) single() domain.Incident {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.incidents {
		return in
	}
	return domain.Incident{}
}

type enqueued struct {
	stage    ports.Stage
	entityID uuid.UUID
}

type memDispatcher struct {
	mu   sync.Mutex
	jobs []enqueued
	err  error
}

func (d *memDispatcher) Enqueue(_ context.Context, stage ports.Stage, entityID uuid.UUID) (ports.JobHandle, error) {
	if d.err != nil {
		return ports.JobHandle{}, d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, enqueued{stage: stage, entityID: entityID})
	return ports.JobHandle{JobID: uuid.New(), Stage: stage, EntityID: entityID}, nil
}

func (d *memDispatcher) enqueuedFor(stage ports.Stage) []enqueued {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []enqueued
	for _, j := range d.jobs {
		if j.stage == stage {
			out = append(out, j)
		}
	}
	return out
}

type failingNotifier struct {
	err   error
	sent  []string
	mu    sync.Mutex
	calls int
}

func (n *failingNotifier) Send(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, message)
	return nil
}
