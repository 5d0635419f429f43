package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hexasec/argus/internal/core/domain"
	"github.com/hexasec/argus/internal/core/ports"
)

// Alerter runs the notify stage: it formats an incident summary and delivers
// it through the configured channel, falling back to the operational log.
// Best-effort only; this stage never halts the pipeline and never retries.
type Alerter struct {
	incidents ports.IncidentRepository
	notifier  ports.AlertNotifier // nil when no channel credentials are configured
	logger    *slog.Logger
}

func NewAlerter(incidents ports.IncidentRepository, notifier ports.AlertNotifier, logger *slog.Logger) *Alerter {
	return &Alerter{incidents: incidents, notifier: notifier, logger: logger}
}

func (a *Alerter) Run(ctx context.Context, incidentID uuid.UUID) Result {
	incident, err := a.incidents.GetByID(ctx, incidentID)
	if errors.Is(err, ports.ErrNotFound) {
		return failf(OutcomeNotFound, "incident %s not found", incidentID)
	}
	if err != nil {
		return failf(OutcomePersistenceError, "load incident %s: %v", incidentID, err)
	}

	message := FormatAlert(incident)

	if a.notifier == nil {
		a.logger.Info("alert (no channel configured)", "incident_id", incident.ID, "message", message)
		return okf("alert for incident %s written to log", incident.ID)
	}

	if err := a.notifier.Send(ctx, message); err != nil {
		a.logger.Warn("alert delivery failed, falling back to log",
			"incident_id", incident.ID, "error", err)
		a.logger.Info("alert", "incident_id", incident.ID, "message", message)
		return failf(OutcomeDeliveryError, "deliver alert for incident %s: %v", incident.ID, err)
	}

	return okf("alert for incident %s delivered", incident.ID)
}

// FormatAlert renders the fixed multi-line alert message for an incident.
func FormatAlert(incident *domain.Incident) string {
	lines := []string{
		"🚨 [Argus] New Incident Detected",
		"",
		"ID: " + incident.ID.String(),
		"Title: " + incident.Title,
		fmt.Sprintf("Severity: %d", incident.Severity),
		"Source: " + incident.Category,
	}

	if url, ok := incident.Detail[domain.DetailURL].(string); ok && url != "" {
		lines = append(lines, "Source URL: "+url)
	}
	if summary := matchedAssetSummary(incident.Detail); summary != "" {
		lines = append(lines, "Assets: "+summary)
	}

	return strings.Join(lines, "\n")
}

// matchedAssetSummary renders "name(identifier)" pairs from the incident
// detail. The list arrives as []domain.AssetMatch in-process and as []any of
// maps after a JSONB round trip.
func matchedAssetSummary(detail map[string]any) string {
	raw, ok := detail[domain.DetailMatchedAssets]
	if !ok {
		return ""
	}

	var parts []string
	switch matches := raw.(type) {
	case []domain.AssetMatch:
		for _, m := range matches {
			parts = append(parts, fmt.Sprintf("%s(%s)", m.Name, m.Identifier))
		}
	case []any:
		for _, entry := range matches {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			name, _ := m["name"].(string)
			identifier, _ := m["identifier"].(string)
			if name == "" && identifier == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s(%s)", name, identifier))
		}
	}
	return strings.Join(parts, ", ")
}
