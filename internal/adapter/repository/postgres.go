package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hexasec/argus/internal/core/domain"
	"github.com/hexasec/argus/internal/core/ports"
)

// Repositories bundles the four Postgres-backed entity stores sharing one
// connection pool. Each stage invocation acquires its connection from the
// pool and releases it on every exit path.
type Repositories struct {
	Sources   *SourceRepository
	Documents *DocumentRepository
	Assets    *AssetRepository
	Incidents *IncidentRepository
}

func New(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		Sources:   &SourceRepository{db: db},
		Documents: &DocumentRepository{db: db},
		Assets:    &AssetRepository{db: db},
		Incidents: &IncidentRepository{db: db},
	}
}

type SourceRepository struct {
	db *pgxpool.Pool
}

func (r *SourceRepository) Create(ctx context.Context, source *domain.Source) error {
	query := `
		INSERT INTO sources (id, name, category, url, use_tor, parser_hint, config, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		source.ID,
		source.Name,
		source.Category,
		source.URL,
		source.UseTor,
		source.ParserHint,
		source.Config,
		source.Active,
		source.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert source: %w", err)
	}
	return nil
}

func (r *SourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	query := `
		SELECT id, name, category, url, use_tor, parser_hint, config, is_active, created_at
		FROM sources
		WHERE id = $1
	`
	var source domain.Source
	err := r.db.QueryRow(ctx, query, id).Scan(
		&source.ID,
		&source.Name,
		&source.Category,
		&source.URL,
		&source.UseTor,
		&source.ParserHint,
		&source.Config,
		&source.Active,
		&source.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: source %s", ports.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source: %w", err)
	}
	return &source, nil
}

func (r *SourceRepository) List(ctx context.Context) ([]domain.Source, error) {
	query := `
		SELECT id, name, category, url, use_tor, parser_hint, config, is_active, created_at
		FROM sources
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var source domain.Source
		err := rows.Scan(
			&source.ID,
			&source.Name,
			&source.Category,
			&source.URL,
			&source.UseTor,
			&source.ParserHint,
			&source.Config,
			&source.Active,
			&source.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return sources, nil
}

type DocumentRepository struct {
	db *pgxpool.Pool
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, source_id, url, fetched_at, status, body_raw, body_text, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		doc.ID,
		doc.SourceID,
		doc.URL,
		doc.FetchedAt,
		doc.Status,
		doc.BodyRaw,
		doc.BodyText,
		doc.Metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	query := `
		SELECT id, source_id, url, fetched_at, status, body_raw, body_text, metadata
		FROM documents
		WHERE id = $1
	`
	var doc domain.Document
	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.SourceID,
		&doc.URL,
		&doc.FetchedAt,
		&doc.Status,
		&doc.BodyRaw,
		&doc.BodyText,
		&doc.Metadata,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", ports.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) SaveExtraction(ctx context.Context, doc *domain.Document) error {
	query := `
		UPDATE documents
		SET body_text = $2, metadata = $3, status = $4
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, doc.ID, doc.BodyText, doc.Metadata, doc.Status)
	if err != nil {
		return fmt.Errorf("failed to update document extraction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", ports.ErrNotFound, doc.ID)
	}
	return nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DocumentStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE documents SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", ports.ErrNotFound, id)
	}
	return nil
}

type AssetRepository struct {
	db *pgxpool.Pool
}

func (r *AssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (id, name, category, identifier, criticality, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		asset.ID,
		asset.Name,
		asset.Category,
		asset.Identifier,
		asset.Criticality,
		asset.Active,
		asset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

func (r *AssetRepository) ListActive(ctx context.Context) ([]domain.Asset, error) {
	return r.list(ctx, `
		SELECT id, name, category, identifier, criticality, is_active, created_at
		FROM assets
		WHERE is_active = true
	`)
}

func (r *AssetRepository) List(ctx context.Context) ([]domain.Asset, error) {
	return r.list(ctx, `
		SELECT id, name, category, identifier, criticality, is_active, created_at
		FROM assets
		ORDER BY created_at DESC
	`)
}

func (r *AssetRepository) list(ctx context.Context, query string) ([]domain.Asset, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		err := rows.Scan(
			&asset.ID,
			&asset.Name,
			&asset.Category,
			&asset.Identifier,
			&asset.Criticality,
			&asset.Active,
			&asset.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return assets, nil
}

type IncidentRepository struct {
	db *pgxpool.Pool
}

func (r *IncidentRepository) Create(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (id, title, description, severity, category, detected_at, resolved_at, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		incident.ID,
		incident.Title,
		incident.Description,
		incident.Severity,
		incident.Category,
		incident.DetectedAt,
		incident.ResolvedAt,
		incident.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	return nil
}

func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	query := `
		SELECT id, title, description, severity, category, detected_at, resolved_at, detail
		FROM incidents
		WHERE id = $1
	`
	var incident domain.Incident
	err := r.db.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Severity,
		&incident.Category,
		&incident.DetectedAt,
		&incident.ResolvedAt,
		&incident.Detail,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: incident %s", ports.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query incident: %w", err)
	}
	return &incident, nil
}

func (r *IncidentRepository) List(ctx context.Context, limit int) ([]domain.Incident, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, title, description, severity, category, detected_at, resolved_at, detail
		FROM incidents
		ORDER BY detected_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []domain.Incident
	for rows.Next() {
		var incident domain.Incident
		err := rows.Scan(
			&incident.ID,
			&incident.Title,
			&incident.Description,
			&incident.Severity,
			&incident.Category,
			&incident.DetectedAt,
			&incident.ResolvedAt,
			&incident.Detail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return incidents, nil
}

func (r *IncidentRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]domain.Incident, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, title, description, severity, category, detected_at, resolved_at, detail
		FROM incidents
		WHERE detected_at >= $1
		ORDER BY detected_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []domain.Incident
	for rows.Next() {
		var incident domain.Incident
		err := rows.Scan(
			&incident.ID,
			&incident.Title,
			&incident.Description,
			&incident.Severity,
			&incident.Category,
			&incident.DetectedAt,
			&incident.ResolvedAt,
			&incident.Detail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return incidents, nil
}

func (r *IncidentRepository) ExistsForDocument(ctx context.Context, documentID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM incidents WHERE detail->>'document_id' = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, documentID.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check incident existence: %w", err)
	}
	return exists, nil
}
