// Package catalog holds the static portfolio tables: projects, models,
// papers, experience and configured certificates.
//
// The tables are read-only. Accessors return copies of the top-level slices
// so callers can sort or filter without affecting other requests.
package catalog

import (
	"fmt"
	"strings"

	"github.com/MohitGoyal09/portfolio/internal/mode"
)

// Metric is a named figure shown on a model or paper card.
type Metric struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Technology is a linked skill badge.
type Technology struct {
	Name string `json:"name"`
	Href string `json:"href,omitempty"`
}

type Project struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Image             string   `json:"image"`
	Link              string   `json:"link"`
	Technologies      []string `json:"technologies"`
	GitHub            string   `json:"github,omitempty"`
	Live              string   `json:"live"`
	DetailsSlug       string   `json:"projectDetailsPageSlug"`
	IsWorking         bool     `json:"isWorking"`
	Category          string   `json:"category"`
	SecondaryCategory string   `json:"secondaryCategory,omitempty"`
}

type Model struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Image             string   `json:"image"`
	Link              string   `json:"link"`
	Technologies      []string `json:"technologies"`
	GitHub            string   `json:"github,omitempty"`
	Live              string   `json:"live"`
	DetailsSlug       string   `json:"modelDetailsPageSlug"`
	IsWorking         bool     `json:"isWorking"`
	Category          string   `json:"category"`
	SecondaryCategory string   `json:"secondaryCategory,omitempty"`
	Tags              []string `json:"tags"`
	Paper             string   `json:"paper,omitempty"`
	Dataset           string   `json:"dataset,omitempty"`
	Metrics           []Metric `json:"metrics,omitempty"`
}

// Slug returns the case-study slug, i.e. DetailsSlug without "/models/".
func (m Model) Slug() string {
	return strings.TrimPrefix(m.DetailsSlug, "/models/")
}

type Paper struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Venue    string   `json:"venue"`
	Year     int      `json:"year"`
	Abstract string   `json:"abstract,omitempty"`
	ArxivID  string   `json:"arxivId"`
	ArxivURL string   `json:"arxivUrl"`
	PDFURL   string   `json:"pdfUrl,omitempty"`
	CodeURL  string   `json:"codeUrl,omitempty"`
	Tags     []string `json:"tags"`
	Featured bool     `json:"featured"`
	Metrics  []Metric `json:"metrics,omitempty"`
}

type Experience struct {
	Company      string       `json:"company"`
	Position     string       `json:"position"`
	Location     string       `json:"location"`
	Image        string       `json:"image"`
	Description  []string     `json:"description"`
	StartDate    string       `json:"startDate"`
	EndDate      string       `json:"endDate"`
	Website      string       `json:"website"`
	LinkedIn     string       `json:"linkedin,omitempty"`
	GitHub       string       `json:"github,omitempty"`
	Paper        string       `json:"paper,omitempty"`
	Technologies []Technology `json:"technologies"`
	IsCurrent    bool         `json:"isCurrent"`
}

// Certificate is a gallery entry. File is the public path of the image.
type Certificate struct {
	File   string `json:"file"`
	Title  string `json:"title,omitempty"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Section is one landing page block and its display hints.
type Section struct {
	ID    string          `json:"id"`
	Props map[string]bool `json:"props,omitempty"`
}

func Projects() []Project { return append([]Project(nil), projects...) }
func Models() []Model { return append([]Model(nil), models...) }
func Papers() []Paper { return append([]Paper(nil), papers...) }
func Experiences() []Experience { return append([]Experience(nil), experiences...) }
func Certificates() []Certificate { return append([]Certificate(nil), certificates...) }

// FeaturedPapers returns the papers flagged as featured.
func FeaturedPapers() []Paper {
	var out []Paper
	for _, p := range papers {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

// ModelOrder returns model case-study slugs in display order.
func ModelOrder() []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		out = append(out, m.Slug())
	}
	return out
}

// ModelTitles maps case-study slug to display title.
func ModelTitles() map[string]string {
	out := make(map[string]string, len(models))
	for _, m := range models {
		out[m.Slug()] = m.Title
	}
	return out
}

// Sections returns the landing page order for m.
func Sections(m mode.Mode) []Section {
	if m == mode.Research {
		return []Section{
			{ID: "hero"},
			{ID: "experience"},
			{ID: "models", Props: map[string]bool{"expanded": true}},
			{ID: "papers", Props: map[string]bool{"highlighted": true}},
			{ID: "work"},
			{ID: "about"},
			{ID: "github"},
			{ID: "blog"},
			{ID: "cta"},
		}
	}
	return []Section{
		{ID: "hero"},
		{ID: "experience"},
		{ID: "work"},
		{ID: "models", Props: map[string]bool{"compact": true}},
		{ID: "papers", Props: map[string]bool{"minimal": true}},
		{ID: "about"},
		{ID: "github"},
		{ID: "blog"},
		{ID: "cta"},
	}
}

// Summary renders the tables as plain text for the assistant's instructions.
func Summary() string {
	var b strings.Builder

	b.WriteString("Experience:\n")
	for _, e := range experiences {
		fmt.Fprintf(&b, "- %s, %s (%s to %s, %s)\n", e.Position, e.Company, e.StartDate, e.EndDate, e.Location)
		for _, d := range e.Description {
			fmt.Fprintf(&b, "  * %s\n", stripMarkup(d))
		}
	}

	b.WriteString("\nProjects:\n")
	for _, p := range projects {
		fmt.Fprintf(&b, "- %s: %s Built with %s. %s\n", p.Title, p.Description, strings.Join(p.Technologies, ", "), p.Live)
	}

	b.WriteString("\nModels:\n")
	for _, m := range models {
		fmt.Fprintf(&b, "- %s: %s Code: %s\n", m.Title, m.Description, m.GitHub)
	}

	b.WriteString("\nPapers:\n")
	for _, p := range papers {
		fmt.Fprintf(&b, "- %s (%s %d, arXiv:%s): %s\n", p.Title, p.Venue, p.Year, p.ArxivID, p.Abstract)
	}

	return b.String()
}

// stripMarkup drops the emphasis markers and inline anchors used in
// experience bullets.
func stripMarkup(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	for {
		start := strings.Index(s, "<")
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], ">")
		if end < 0 {
			break
		}
		s = s[:start] + s[start+end+1:]
	}
	return strings.TrimSpace(s)
}
