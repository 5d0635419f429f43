package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hexasec/argus/internal/core/domain"
	"github.com/hexasec/argus/internal/core/ports"
	"github.com/hexasec/argus/internal/metrics"
)

const incidentCategory = "osint"

// Correlator matches a normalized document against the active asset
// registry and creates an incident when at least one asset matches.
type Correlator struct {
	documents  ports.DocumentRepository
	assets     ports.AssetRepository
	incidents  ports.IncidentRepository
	dispatcher ports.Dispatcher
	logger     *slog.Logger
}

func NewCorrelator(
	documents ports.DocumentRepository,
	assets ports.AssetRepository,
	incidents ports.IncidentRepository,
	dispatcher ports.Dispatcher,
	logger *slog.Logger,
) *Correlator {
	return &Correlator{
		documents:  documents,
		assets:     assets,
		incidents:  incidents,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (c *Correlator) Run(ctx context.Context, documentID uuid.UUID) Result {
	doc, err := c.documents.GetByID(ctx, documentID)
	if errors.Is(err, ports.ErrNotFound) {
		return failf(OutcomeNotFound, "document %s not found", documentID)
	}
	if err != nil {
		return failf(OutcomePersistenceError, "load document %s: %v", documentID, err)
	}

	// Redelivered job for an already correlated document.
	if doc.Status.Terminal() {
		return okf("document %s already correlated (%s)", doc.ID, doc.Status)
	}

	assets, err := c.assets.ListActive(ctx)
	if err != nil {
		return failf(OutcomePersistenceError, "load asset registry: %v", err)
	}

	matches := domain.MatchAssets(doc.BodyText, candidateTokens(doc.Metadata), assets)
	if len(matches) == 0 {
		if err := c.documents.UpdateStatus(ctx, doc.ID, domain.DocumentClean); err != nil {
			return failf(OutcomePersistenceError, "mark document %s clean: %v", doc.ID, err)
		}
		return okf("no matching assets for document %s", doc.ID)
	}

	exists, err := c.incidents.ExistsForDocument(ctx, doc.ID)
	if err != nil {
		return failf(OutcomePersistenceError, "check existing incident for %s: %v", doc.ID, err)
	}
	if exists {
		if err := c.documents.UpdateStatus(ctx, doc.ID, domain.DocumentMatched); err != nil {
			return failf(OutcomePersistenceError, "mark document %s matched: %v", doc.ID, err)
		}
		return okf("incident already exists for document %s", doc.ID)
	}

	incident := &domain.Incident{
		ID:          uuid.New(),
		Title:       domain.IncidentTitle(matches),
		Description: domain.IncidentDescription(doc),
		Severity:    domain.MaxSeverity(matches),
		Category:    incidentCategory,
		DetectedAt:  time.Now().UTC(),
		Detail: map[string]any{
			domain.DetailDocumentID:    doc.ID.String(),
			domain.DetailURL:           doc.URL,
			domain.DetailMatchedAssets: matches,
		},
	}
	if err := c.incidents.Create(ctx, incident); err != nil {
		return failf(OutcomePersistenceError, "persist incident for document %s: %v", doc.ID, err)
	}
	metrics.IncIncidents()

	if err := c.documents.UpdateStatus(ctx, doc.ID, domain.DocumentMatched); err != nil {
		return failf(OutcomePersistenceError, "mark document %s matched: %v", doc.ID, err)
	}

	c.logger.Info("incident created",
		"incident_id", incident.ID,
		"document_id", doc.ID,
		"severity", incident.Severity,
		"matched_assets", len(matches))

	if _, err := c.dispatcher.Enqueue(ctx, ports.StageNotify, incident.ID); err != nil {
		c.logger.Error("notify enqueue failed, chain stalled",
			"incident_id", incident.ID, "error", err)
		return okf("incident %s created (notify enqueue failed)", incident.ID)
	}

	return okf("incident %s created from document %s", incident.ID, doc.ID)
}

// candidateTokens rebuilds the extracted candidate lists from document
// metadata. Values arrive as map[string][]string in-process and as
// map[string]any after a JSONB round trip, so both shapes are handled.
func candidateTokens(meta map[string]any) map[string][]string {
	raw, ok := meta[domain.MetaIOCCandidates]
	if !ok {
		return nil
	}

	switch lists := raw.(type) {
	case map[string][]string:
		return lists
	case map[string]any:
		out := make(map[string][]string, len(lists))
		for key, value := range lists {
			switch tokens := value.(type) {
			case []string:
				out[key] = tokens
			case []any:
				strs := make([]string, 0, len(tokens))
				for _, t := range tokens {
					if s, ok := t.(string); ok {
						strs = append(strs, s)
					}
				}
				out[key] = strs
			}
		}
		return out
	}
	return nil
}
