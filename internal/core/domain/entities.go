package domain

import (
	"time"

	"github.com/google/uuid"
)

type SourceCategory string

const (
	SourceDarkweb  SourceCategory = "darkweb"
	SourceOSINT    SourceCategory = "osint"
	SourceLeakSite SourceCategory = "leak_site"
	SourceAPI      SourceCategory = "api"
)

// Source is a registered external site or feed the pipeline fetches from.
// Sources are created by the API and are read-only to the pipeline.
type Source struct {
	ID         uuid.UUID
	Name       string
	Category   SourceCategory
	URL        string
	UseTor     bool   // fetch through the anonymized transport
	ParserHint string // optional hint for content-specific parsing
	Config     map[string]any
	Active     bool
	CreatedAt  time.Time
}

type DocumentStatus string

const (
	DocumentFetched    DocumentStatus = "fetched"
	DocumentNormalized DocumentStatus = "normalized"
	DocumentMatched    DocumentStatus = "matched"
	DocumentClean      DocumentStatus = "clean"
)

// Terminal reports whether correlation has already run for a document
// carrying this status.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentMatched || s == DocumentClean
}

// Metadata keys used on Document.
const (
	MetaHTTPStatus    = "http_status"
	MetaIOCCandidates = "ioc_candidates"
)

// Document is one fetched snapshot of a source. Created by the fetch stage,
// normalized by the extract stage, never deleted by the pipeline.
type Document struct {
	ID        uuid.UUID
	SourceID  uuid.UUID
	URL       string
	FetchedAt time.Time
	Status    DocumentStatus
	BodyRaw   string
	BodyText  string // empty until extraction
	Metadata  map[string]any
}

type AssetCategory string

const (
	AssetDomain  AssetCategory = "domain"
	AssetEmail   AssetCategory = "email"
	AssetKeyword AssetCategory = "keyword"
)

// Asset is an organizational identifier registered for monitoring.
// Assets are created by the API and are read-only to the pipeline.
type Asset struct {
	ID          uuid.UUID
	Name        string
	Category    AssetCategory
	Identifier  string // the value matched against document content
	Criticality int    // 1 (low) .. 5 (critical)
	Active      bool
	CreatedAt   time.Time
}

// Detail keys used on Incident.
const (
	DetailDocumentID    = "document_id"
	DetailURL           = "url"
	DetailMatchedAssets = "matched_assets"
)

// Incident records a correlation between a document and one or more
// registered assets. The detail map is a denormalized snapshot of the match;
// later asset edits never alter past incidents.
type Incident struct {
	ID          uuid.UUID
	Title       string
	Description string
	Severity    int // max criticality among matched assets
	Category    string
	DetectedAt  time.Time
	ResolvedAt  *time.Time
	Detail      map[string]any
}
