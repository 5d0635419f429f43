package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hexasec/argus/internal/core/domain"
)

// ErrNotFound is returned by repositories when the referenced entity does
// not exist. Stages translate it into a not_found outcome.
var ErrNotFound = errors.New("not found")

type SourceRepository interface {
	Create(ctx context.Context, source *domain.Source) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error)
	List(ctx context.Context) ([]domain.Source, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	// SaveExtraction persists the normalized text, metadata and status set
	// by the extract stage.
	SaveExtraction(ctx context.Context, doc *domain.Document) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DocumentStatus) error
}

type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	// ListActive returns every active asset. The correlate stage scans the
	// full registry per document.
	ListActive(ctx context.Context) ([]domain.Asset, error)
	List(ctx context.Context) ([]domain.Asset, error)
}

type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	List(ctx context.Context, limit int) ([]domain.Incident, error)
	// ListSince returns incidents detected at or after the given time, for
	// SIEM feed exports.
	ListSince(ctx context.Context, since time.Time, limit int) ([]domain.Incident, error)
	// ExistsForDocument reports whether an incident already references the
	// given document, used to deduplicate correlate re-runs.
	ExistsForDocument(ctx context.Context, documentID uuid.UUID) (bool, error)
}
