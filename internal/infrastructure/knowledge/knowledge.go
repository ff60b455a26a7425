// Package knowledge serves canned UK case law and civil procedure notes from
// a YAML catalogue.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/defence-assistant/internal/core/domain"
)

//go:embed knowledge.yaml
var defaultCatalogue []byte

// MaxResults bounds the entries of each kind returned by Lookup.
const MaxResults = 5

type catalogue struct {
	Cases      []domain.CaseLaw   `yaml:"cases"`
	Procedures []domain.Procedure `yaml:"procedures"`
}

type Base struct {
	cases      []domain.CaseLaw
	procedures []domain.Procedure
}

// NewDefault loads the catalogue compiled into the binary.
func NewDefault() (*Base, error) {
	return Parse(defaultCatalogue)
}

// Load reads a catalogue from path, or the built-in one when path is empty.
func Load(path string) (*Base, error) {
	if strings.TrimSpace(path) == "" {
		return NewDefault()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge catalogue: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Base, error) {
	var c catalogue
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse knowledge catalogue", err)
	}
	for i, item := range c.Cases {
		if strings.TrimSpace(item.CaseName) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse knowledge catalogue", fmt.Errorf("case %d has no case_name", i))
		}
	}
	for i, item := range c.Procedures {
		if strings.TrimSpace(item.Title) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse knowledge catalogue", fmt.Errorf("procedure %d has no title", i))
		}
	}
	return &Base{cases: c.Cases, procedures: c.Procedures}, nil
}

// Lookup returns the cases and procedures relevant to a query, best match first.
// An entry qualifies when it shares a keyword with the query or belongs to the
// requested category. Entries restricted to other tracks are skipped.
func (b *Base) Lookup(query string, category string, track domain.Track) domain.KnowledgeResult {
	terms := tokenize(query)
	category = strings.ToLower(strings.TrimSpace(category))

	var caseHits []hit
	for i, item := range b.cases {
		if !trackMatches(item.Tracks, track) {
			continue
		}
		if s := score(terms, item.Keywords, item.Categories, category); s > 0 {
			caseHits = append(caseHits, hit{index: i, score: s})
		}
	}
	var procedureHits []hit
	for i, item := range b.procedures {
		if !trackMatches(item.Tracks, track) {
			continue
		}
		if s := score(terms, item.Keywords, item.Categories, category); s > 0 {
			procedureHits = append(procedureHits, hit{index: i, score: s})
		}
	}

	result := domain.KnowledgeResult{
		Cases:      []domain.CaseLaw{},
		Procedures: []domain.Procedure{},
	}
	for _, h := range rank(caseHits) {
		result.Cases = append(result.Cases, b.cases[h.index])
	}
	for _, h := range rank(procedureHits) {
		result.Procedures = append(result.Procedures, b.procedures[h.index])
	}
	return result
}

// Size reports how many cases and procedures are loaded.
func (b *Base) Size() (cases int, procedures int) {
	return len(b.cases), len(b.procedures)
}

type hit struct {
	index int
	score int
}

func rank(hits []hit) []hit {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > MaxResults {
		hits = hits[:MaxResults]
	}
	return hits
}

// score counts keyword overlaps; a category match is worth two keywords.
func score(terms map[string]struct{}, keywords []string, categories []string, category string) int {
	total := 0
	for _, kw := range keywords {
		if _, ok := terms[strings.ToLower(kw)]; ok {
			total++
		}
	}
	if category != "" {
		for _, c := range categories {
			if strings.EqualFold(c, category) {
				total += 2
				break
			}
		}
	}
	return total
}

func trackMatches(tracks []domain.Track, track domain.Track) bool {
	if track == "" || len(tracks) == 0 {
		return true
	}
	for _, t := range tracks {
		if t == track {
			return true
		}
	}
	return false
}

func tokenize(query string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		terms[f] = struct{}{}
	}
	return terms
}
