// Package content indexes the model case studies kept as Markdown documents
// with YAML front-matter, and discovers certificate images on disk.
package content

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultRelated is the default number of related case studies.
const DefaultRelated = 2

// Extensions accepted for case-study documents, in lookup priority.
var Extensions = []string{".mdx", ".md"}

// CaseStudy is a parsed document.
type CaseStudy struct {
	Slug        string      `json:"slug"`
	Frontmatter Frontmatter `json:"frontmatter"`
	Content     string      `json:"content"`
}

// Preview is a CaseStudy without its body.
type Preview struct {
	Slug        string      `json:"slug"`
	Frontmatter Frontmatter `json:"frontmatter"`
}

// Store holds an in-memory index of a content directory. It is safe for
// concurrent use; Load swaps the whole index atomically.
type Store struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	bySlug map[string]*CaseStudy
	sorted []Preview // featured first, then title

	onLoad func(documents int, err error)
}

// NewStore returns an empty store for dir. Call Load to populate it.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:    dir,
		logger: logger,
		bySlug: map[string]*CaseStudy{},
	}
}

// Dir returns the indexed directory.
func (s *Store) Dir() string { return s.dir }

// OnLoad registers fn to be called after every Load attempt. Call it before
// the store is shared.
func (s *Store) OnLoad(fn func(documents int, err error)) { s.onLoad = fn }

// Load re-reads the directory. A missing directory yields an empty index.
// Documents that fail to parse are logged and skipped.
func (s *Store) Load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		err = fmt.Errorf("content: read %s: %w", s.dir, err)
		if s.onLoad != nil {
			s.onLoad(0, err)
		}
		return err
	}

	index := make(map[string]*CaseStudy, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		slug, ok := slugOf(e.Name())
		if !ok {
			continue
		}
		if _, seen := index[slug]; seen {
			continue
		}

		cs, err := s.read(slug)
		if err != nil {
			s.logger.Warn("content_skipped",
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
			continue
		}
		index[slug] = cs
	}

	sorted := make([]Preview, 0, len(index))
	for _, cs := range index {
		sorted = append(sorted, Preview{Slug: cs.Slug, Frontmatter: cs.Frontmatter})
	}
	sortPreviews(sorted)

	s.mu.Lock()
	s.bySlug = index
	s.sorted = sorted
	s.mu.Unlock()

	s.logger.Info("content_loaded",
		slog.String("dir", s.dir),
		slog.Int("documents", len(index)),
	)
	if s.onLoad != nil {
		s.onLoad(len(index), nil)
	}
	return nil
}

// read loads slug using the first extension present on disk.
func (s *Store) read(slug string) (*CaseStudy, error) {
	var lastErr error
	for _, ext := range Extensions {
		raw, err := os.ReadFile(filepath.Join(s.dir, slug+ext))
		if err != nil {
			lastErr = err
			continue
		}
		fm, body, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		return &CaseStudy{Slug: slug, Frontmatter: fm, Content: body}, nil
	}
	return nil, lastErr
}

func slugOf(name string) (string, bool) {
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	ext := filepath.Ext(name)
	for _, want := range Extensions {
		if ext == want {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}

func sortPreviews(ps []Preview) {
	coll := collate.New(language.English)
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i].Frontmatter, ps[j].Frontmatter
		if a.Featured != b.Featured {
			return a.Featured
		}
		if c := coll.CompareString(a.Title, b.Title); c != 0 {
			return c < 0
		}
		return ps[i].Slug < ps[j].Slug
	})
}

// Slugs lists every indexed slug in display order.
func (s *Store) Slugs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sorted))
	for _, p := range s.sorted {
		out = append(out, p.Slug)
	}
	return out
}

// BySlug returns the full case study, or nil.
func (s *Store) BySlug(slug string) *CaseStudy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.bySlug[slug]
	if !ok {
		return nil
	}
	cp := *cs
	return &cp
}

// All returns every case study preview, featured first, then by title.
func (s *Store) All() []Preview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Preview(nil), s.sorted...)
}

// Published returns the previews flagged isPublished, in All order.
func (s *Store) Published() []Preview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publishedLocked()
}

func (s *Store) publishedLocked() []Preview {
	out := make([]Preview, 0, len(s.sorted))
	for _, p := range s.sorted {
		if p.Frontmatter.IsPublished {
			out = append(out, p)
		}
	}
	return out
}

// ByTechnology returns published previews that list tech, ignoring case.
func (s *Store) ByTechnology(tech string) []Preview {
	var out []Preview
	for _, p := range s.Published() {
		for _, t := range p.Frontmatter.Technologies {
			if strings.EqualFold(t, tech) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Technologies returns the lower-cased, de-duplicated, sorted technology
// names across published case studies.
func (s *Store) Technologies() []string {
	set := map[string]struct{}{}
	for _, p := range s.Published() {
		for _, t := range p.Frontmatter.Technologies {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Related returns up to max published case studies sharing at least one
// technology with slug, most shared first. Nothing is returned when slug is
// unknown or unpublished.
func (s *Store) Related(slug string, max int) []Preview {
	if max <= 0 {
		max = DefaultRelated
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current, ok := s.bySlug[slug]
	if !ok || !current.Frontmatter.IsPublished {
		return []Preview{}
	}

	own := make(map[string]struct{}, len(current.Frontmatter.Technologies))
	for _, t := range current.Frontmatter.Technologies {
		own[strings.ToLower(t)] = struct{}{}
	}

	type scored struct {
		p     Preview
		score int
	}
	var candidates []scored
	for _, p := range s.publishedLocked() {
		if p.Slug == slug {
			continue
		}
		n := 0
		for _, t := range p.Frontmatter.Technologies {
			if _, hit := own[strings.ToLower(t)]; hit {
				n++
			}
		}
		if n > 0 {
			candidates = append(candidates, scored{p: p, score: n})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]Preview, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.p)
	}
	return out
}

// NavLink points at a neighbouring case study.
type NavLink struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// Navigation holds the neighbours of a case study.
type Navigation struct {
	Previous *NavLink `json:"previous"`
	Next     *NavLink `json:"next"`
}

// Navigate finds slug in order and returns its neighbours. A slug absent
// from order has none.
func Navigate(order []NavLink, slug string) Navigation {
	for i, l := range order {
		if l.Slug != slug {
			continue
		}
		var nav Navigation
		if i > 0 {
			prev := order[i-1]
			nav.Previous = &prev
		}
		if i < len(order)-1 {
			next := order[i+1]
			nav.Next = &next
		}
		return nav
	}
	return Navigation{}
}
