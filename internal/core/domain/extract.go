package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeBody strips markup tags from a raw document body, collapses runs
// of whitespace into single spaces and trims the result.
func NormalizeBody(raw string) string {
	text := tagPattern.ReplaceAllString(raw, " ")
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// Candidate list keys produced by the default extractors.
const (
	CandidateURLs   = "urls"
	CandidateIPs    = "ips"
	CandidateEmails = "emails"
)

// PatternExtractor produces one candidate list from normalized text.
type PatternExtractor interface {
	Name() string
	Extract(text string) []string
}

// RegexpExtractor is a PatternExtractor backed by a single regular
// expression. All default extractors are of this kind.
type RegexpExtractor struct {
	name string
	re   *regexp.Regexp
}

func NewRegexpExtractor(name, pattern string) (*RegexpExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern for extractor %q: %w", name, err)
	}
	return &RegexpExtractor{name: name, re: re}, nil
}

func (e *RegexpExtractor) Name() string { return e.name }

func (e *RegexpExtractor) Extract(text string) []string {
	return e.re.FindAllString(text, -1)
}

// ExtractorRegistry holds the pattern extractors the extract stage runs over
// normalized text. Extractors run in registration order.
type ExtractorRegistry struct {
	extractors []PatternExtractor
}

func NewExtractorRegistry(extractors ...PatternExtractor) *ExtractorRegistry {
	return &ExtractorRegistry{extractors: extractors}
}

func (r *ExtractorRegistry) Register(e PatternExtractor) {
	r.extractors = append(r.extractors, e)
}

// Run applies every registered extractor and returns the candidate lists
// keyed by extractor name. Pure function of the input text.
func (r *ExtractorRegistry) Run(text string) map[string][]string {
	candidates := make(map[string][]string, len(r.extractors))
	for _, e := range r.extractors {
		tokens := e.Extract(text)
		if tokens == nil {
			tokens = []string{}
		}
		candidates[e.Name()] = tokens
	}
	return candidates
}

// DefaultRegistry returns the stock extractor set: URL-like tokens, dotted
// quads and email addresses. The IPv4 pattern is syntactic only and accepts
// octets above 255.
func DefaultRegistry() *ExtractorRegistry {
	urls := regexp.MustCompile(`https?://[^\s"']+`)
	ips := regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)
	emails := regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	return NewExtractorRegistry(
		&RegexpExtractor{name: CandidateURLs, re: urls},
		&RegexpExtractor{name: CandidateIPs, re: ips},
		&RegexpExtractor{name: CandidateEmails, re: emails},
	)
}
