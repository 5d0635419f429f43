package exporter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hexasec/argus/internal/core/domain"
	"github.com/hexasec/argus/internal/core/ports"
)

const exportLimit = 10000

// CEFExporter renders incidents in Common Event Format for SIEM ingestion.
type CEFExporter struct {
	repo ports.IncidentRepository
}

func NewCEFExporter(repo ports.IncidentRepository) *CEFExporter {
	return &CEFExporter{repo: repo}
}

// Export generates a CEF-formatted incident feed, one event per line.
// Format: CEF:Version|Device Vendor|Device Product|Device Version|Signature ID|Name|Severity|Extension
func (e *CEFExporter) Export(ctx context.Context, since time.Time) (string, error) {
	if since.IsZero() {
		since = time.Now().Add(-24 * time.Hour)
	}

	incidents, err := e.repo.ListSince(ctx, since, exportLimit)
	if err != nil {
		return "", fmt.Errorf("failed to fetch incidents: %w", err)
	}

	var output strings.Builder
	for i := range incidents {
		output.WriteString(formatCEF(&incidents[i]))
		output.WriteString("\n")
	}
	return output.String(), nil
}

func formatCEF(in *domain.Incident) string {
	vendor := "Argus"
	product := "ThreatIntel"
	version := "1.0"
	signatureID := in.Category
	name := escapeField(in.Title)

	extensions := []string{
		fmt.Sprintf("externalId=%s", in.ID.String()),
		"cs1Label=SourceURL",
		fmt.Sprintf("cs1=%s", escapeField(detailString(in, domain.DetailURL))),
		"cs2Label=MatchedAssets",
		fmt.Sprintf("cs2=%s", escapeField(matchedNames(in))),
		fmt.Sprintf("rt=%d", in.DetectedAt.Unix()*1000), // milliseconds
	}

	return fmt.Sprintf("CEF:0|%s|%s|%s|%s|%s|%d|%s",
		vendor, product, version, signatureID, name,
		cefSeverity(in.Severity), strings.Join(extensions, " "))
}

// cefSeverity maps asset criticality (1-5) onto the CEF 0-10 scale.
func cefSeverity(severity int) int {
	if severity < 1 {
		return 0
	}
	if severity > 5 {
		return 10
	}
	return severity * 2
}

func detailString(in *domain.Incident, key string) string {
	if in.Detail == nil {
		return ""
	}
	s, _ := in.Detail[key].(string)
	return s
}

// matchedNames joins asset names from the incident detail. The detail comes
// back from JSONB as []any of maps, but in-process incidents carry
// []domain.AssetMatch.
func matchedNames(in *domain.Incident) string {
	if in.Detail == nil {
		return ""
	}
	var names []string
	switch matches := in.Detail[domain.DetailMatchedAssets].(type) {
	case []domain.AssetMatch:
		for _, m := range matches {
			names = append(names, m.Name)
		}
	case []any:
		for _, raw := range matches {
			if m, ok := raw.(map[string]any); ok {
				if name, ok := m["name"].(string); ok {
					names = append(names, name)
				}
			}
		}
	}
	return strings.Join(names, ",")
}

func escapeField(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "=", "\\=")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}
