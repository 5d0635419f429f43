package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AssetMatch is the denormalized snapshot of one matched asset embedded in
// an incident's detail map.
type AssetMatch struct {
	AssetID     uuid.UUID `json:"asset_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Identifier  string    `json:"identifier"`
	Criticality int       `json:"criticality"`
}

// MatchAssets tests every asset identifier for case-insensitive substring
// containment against the normalized text and every extracted candidate
// token. Assets with empty identifiers are skipped. O(assets * candidates).
func MatchAssets(text string, candidates map[string][]string, assets []Asset) []AssetMatch {
	haystacks := make([]string, 0, 1+len(candidates))
	haystacks = append(haystacks, strings.ToLower(text))
	for _, tokens := range candidates {
		for _, tok := range tokens {
			haystacks = append(haystacks, strings.ToLower(tok))
		}
	}

	var matches []AssetMatch
	for _, asset := range assets {
		ident := strings.ToLower(strings.TrimSpace(asset.Identifier))
		if ident == "" {
			continue
		}
		for _, h := range haystacks {
			if strings.Contains(h, ident) {
				matches = append(matches, AssetMatch{
					AssetID:     asset.ID,
					Name:        asset.Name,
					Category:    string(asset.Category),
					Identifier:  asset.Identifier,
					Criticality: asset.Criticality,
				})
				break
			}
		}
	}
	return matches
}

// MaxSeverity returns the highest criticality among the matched assets.
func MaxSeverity(matches []AssetMatch) int {
	severity := 0
	for _, m := range matches {
		if m.Criticality > severity {
			severity = m.Criticality
		}
	}
	return severity
}

// IncidentTitle enumerates the distinct matched asset names in first-seen
// order.
func IncidentTitle(matches []AssetMatch) string {
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		names = append(names, m.Name)
	}
	return "[AUTO] Possible leak related to: " + strings.Join(names, ", ")
}

// IncidentDescription summarizes the originating document.
func IncidentDescription(doc *Document) string {
	return fmt.Sprintf(
		"Document %s from source %s contains indicators mentioning registered assets.",
		doc.ID, doc.SourceID,
	)
}
