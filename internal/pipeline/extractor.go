package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hexasec/argus/internal/core/domain"
	"github.com/hexasec/argus/internal/core/ports"
)

// Extractor normalizes a document's raw body and runs the pattern extractor
// registry over the result. Pure function of the raw body, so re-runs on
// redelivery produce identical output.
type Extractor struct {
	documents  ports.DocumentRepository
	dispatcher ports.Dispatcher
	registry   *domain.ExtractorRegistry
	logger     *slog.Logger
}

func NewExtractor(
	documents ports.DocumentRepository,
	dispatcher ports.Dispatcher,
	registry *domain.ExtractorRegistry,
	logger *slog.Logger,
) *Extractor {
	if registry == nil {
		registry = domain.DefaultRegistry()
	}
	return &Extractor{
		documents:  documents,
		dispatcher: dispatcher,
		registry:   registry,
		logger:     logger,
	}
}

func (e *Extractor) Run(ctx context.Context, documentID uuid.UUID) Result {
	doc, err := e.documents.GetByID(ctx, documentID)
	if errors.Is(err, ports.ErrNotFound) {
		return failf(OutcomeNotFound, "document %s not found", documentID)
	}
	if err != nil {
		return failf(OutcomePersistenceError, "load document %s: %v", documentID, err)
	}

	text := domain.NormalizeBody(doc.BodyRaw)
	candidates := e.registry.Run(text)

	doc.BodyText = text
	doc.Status = domain.DocumentNormalized
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata[domain.MetaIOCCandidates] = candidates

	if err := e.documents.SaveExtraction(ctx, doc); err != nil {
		return failf(OutcomePersistenceError, "persist extraction for %s: %v", documentID, err)
	}

	if _, err := e.dispatcher.Enqueue(ctx, ports.StageCorrelate, doc.ID); err != nil {
		e.logger.Error("correlate enqueue failed, chain stalled",
			"document_id", doc.ID, "error", err)
		return okf("normalized document=%s (correlate enqueue failed)", doc.ID)
	}

	return okf("normalized document=%s urls=%d ips=%d emails=%d",
		doc.ID,
		len(candidates[domain.CandidateURLs]),
		len(candidates[domain.CandidateIPs]),
		len(candidates[domain.CandidateEmails]))
}
