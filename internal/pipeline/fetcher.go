package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hexasec/argus/internal/core/domain"
	"github.com/hexasec/argus/internal/core/ports"
	"github.com/hexasec/argus/internal/metrics"
)

// ClientSelector returns the HTTP client for a source's transport flag.
type ClientSelector interface {
	For(useTor bool) *http.Client
}

// Fetcher retrieves raw content for one source and persists it as a new
// document. One outbound request per invocation, one document row per
// success.
type Fetcher struct {
	sources    ports.SourceRepository
	documents  ports.DocumentRepository
	dispatcher ports.Dispatcher
	clients    ClientSelector
	limiters   *sourceLimiters
	timeout    time.Duration
	logger     *slog.Logger
}

type FetcherConfig struct {
	Timeout       time.Duration
	RatePerSecond float64
	RateBurst     int
}

func NewFetcher(
	sources ports.SourceRepository,
	documents ports.DocumentRepository,
	dispatcher ports.Dispatcher,
	clients ClientSelector,
	cfg FetcherConfig,
	logger *slog.Logger,
) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	return &Fetcher{
		sources:    sources,
		documents:  documents,
		dispatcher: dispatcher,
		clients:    clients,
		limiters:   newSourceLimiters(cfg.RatePerSecond, cfg.RateBurst),
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

func (f *Fetcher) Run(ctx context.Context, sourceID uuid.UUID) Result {
	src, err := f.sources.GetByID(ctx, sourceID)
	if errors.Is(err, ports.ErrNotFound) {
		return failf(OutcomeNotFound, "source %s not found", sourceID)
	}
	if err != nil {
		return failf(OutcomePersistenceError, "load source %s: %v", sourceID, err)
	}

	if err := f.limiters.wait(ctx, src.ID); err != nil {
		return failf(OutcomeUpstreamFetchError, "rate limit wait for %s: %v", src.ID, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, src.URL, nil)
	if err != nil {
		return failf(OutcomeUpstreamFetchError, "build request for %s: %v", src.URL, err)
	}

	resp, err := f.clients.For(src.UseTor).Do(req)
	if err != nil {
		return failf(OutcomeUpstreamFetchError, "fetch %s: %v", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failf(OutcomeUpstreamFetchError, "fetch %s: unexpected status %d", src.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failf(OutcomeUpstreamFetchError, "read body from %s: %v", src.URL, err)
	}

	doc := &domain.Document{
		ID:        uuid.New(),
		SourceID:  src.ID,
		URL:       src.URL,
		FetchedAt: time.Now().UTC(),
		Status:    domain.DocumentFetched,
		BodyRaw:   string(body),
		Metadata:  map[string]any{domain.MetaHTTPStatus: resp.StatusCode},
	}
	if err := f.documents.Create(ctx, doc); err != nil {
		return failf(OutcomePersistenceError, "persist document for source %s: %v", src.ID, err)
	}
	metrics.IncDocumentsFetched()

	// The document commit and the enqueue are not transactional. If the
	// enqueue fails the chain stalls until the source is fetched again.
	if _, err := f.dispatcher.Enqueue(ctx, ports.StageExtract, doc.ID); err != nil {
		f.logger.Error("extract enqueue failed, chain stalled",
			"document_id", doc.ID, "error", err)
		return okf("fetched %s document=%s (extract enqueue failed)", src.URL, doc.ID)
	}

	return okf("fetched %s document=%s", src.URL, doc.ID)
}
