package exporter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexasec/argus/internal/core/domain"
)

type stubIncidents struct {
	incidents []domain.Incident
	since     time.Time
}

func (s *stubIncidents) Create(context.Context, *domain.Incident) error { return nil }
func (s *stubIncidents) GetByID(context.Context, uuid.UUID) (*domain.Incident, error) {
	return nil, nil
}
func (s *stubIncidents) List(context.Context, int) ([]domain.Incident, error) { return nil, nil }
func (s *stubIncidents) ExistsForDocument(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubIncidents) ListSince(_ context.Context, since time.Time, _ int) ([]domain.Incident, error) {
	s.since = since
	return s.incidents, nil
}

func TestExportFormatsIncidents(t *testing.T) {
	id := uuid.New()
	repo := &stubIncidents{incidents: []domain.Incident{{
		ID:         id,
		Title:      "[AUTO] Possible leak related to: Corp Domain",
		Severity:   4,
		Category:   "osint",
		DetectedAt: time.Unix(1700000000, 0).UTC(),
		Detail: map[string]any{
			domain.DetailURL: "http://paste.example/abc",
			domain.DetailMatchedAssets: []domain.AssetMatch{
				{Name: "Corp Domain", Identifier: "example.com"},
			},
		},
	}}}

	out, err := NewCEFExporter(repo).Export(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	line := lines[0]

	assert.True(t, strings.HasPrefix(line, "CEF:0|Argus|ThreatIntel|1.0|osint|"), line)
	assert.Contains(t, line, "|8|") // criticality 4 on the 0-10 scale
	assert.Contains(t, line, "externalId="+id.String())
	assert.Contains(t, line, "cs1=http://paste.example/abc")
	assert.Contains(t, line, "cs2=Corp Domain")
	assert.Contains(t, line, "rt=1700000000000")
}

func TestExportEscapesHeaderFields(t *testing.T) {
	repo := &stubIncidents{incidents: []domain.Incident{{
		ID:         uuid.New(),
		Title:      "pipes | and = signs",
		Severity:   2,
		Category:   "osint",
		DetectedAt: time.Now(),
	}}}

	out, err := NewCEFExporter(repo).Export(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Contains(t, out, `pipes \| and \= signs`)
}

func TestExportDefaultsToLastDay(t *testing.T) {
	repo := &stubIncidents{}
	_, err := NewCEFExporter(repo).Export(context.Background(), time.Time{})
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), repo.since, time.Minute)
}

func TestExportJSONShapedDetail(t *testing.T) {
	repo := &stubIncidents{incidents: []domain.Incident{{
		ID:         uuid.New(),
		Title:      "t",
		Severity:   1,
		Category:   "osint",
		DetectedAt: time.Now(),
		Detail: map[string]any{
			domain.DetailMatchedAssets: []any{
				map[string]any{"name": "Mail", "identifier": "mail.example.com"},
				map[string]any{"name": "VPN", "identifier": "vpn.example.com"},
			},
		},
	}}}

	out, err := NewCEFExporter(repo).Export(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Contains(t, out, "cs2=Mail,VPN")
}
