package content

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoFrontmatter      = errors.New("content: document has no front-matter block")
	ErrInvalidFrontmatter = errors.New("content: front-matter requires title and description")
)

// Metric is a headline figure of a case study.
type Metric struct {
	Name        string `yaml:"name" json:"name"`
	Value       string `yaml:"value" json:"value"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Frontmatter is the YAML header of a model case study.
type Frontmatter struct {
	Title             string   `yaml:"title" json:"title"`
	Description       string   `yaml:"description" json:"description"`
	Image             string   `yaml:"image" json:"image"`
	Technologies      []string `yaml:"technologies" json:"technologies"`
	GitHub            string   `yaml:"github" json:"github"`
	Live              string   `yaml:"live" json:"live"`
	Timeline          string   `yaml:"timeline" json:"timeline"`
	Role              string   `yaml:"role" json:"role"`
	Team              string   `yaml:"team,omitempty" json:"team,omitempty"`
	Status            string   `yaml:"status" json:"status"`
	Featured          bool     `yaml:"featured" json:"featured"`
	Challenges        []string `yaml:"challenges,omitempty" json:"challenges,omitempty"`
	Learnings         []string `yaml:"learnings,omitempty" json:"learnings,omitempty"`
	IsPublished       bool     `yaml:"isPublished" json:"isPublished"`
	Category          string   `yaml:"category" json:"category"`
	SecondaryCategory string   `yaml:"secondaryCategory,omitempty" json:"secondaryCategory,omitempty"`
	Tags              []string `yaml:"tags" json:"tags"`
	Paper             string   `yaml:"paper,omitempty" json:"paper,omitempty"`
	Dataset           string   `yaml:"dataset,omitempty" json:"dataset,omitempty"`
	Metrics           []Metric `yaml:"metrics,omitempty" json:"metrics,omitempty"`
}

var delimiter = []byte("---")

// Parse splits a document into its front-matter and body. The document
// must open with a "---" line and the header ends at the next "---" line.
func Parse(doc []byte) (Frontmatter, string, error) {
	var fm Frontmatter

	doc = bytes.TrimPrefix(doc, []byte("\xEF\xBB\xBF"))
	first, rest, ok := cutLine(doc)
	if !ok || !isDelimiter(first) {
		return fm, "", ErrNoFrontmatter
	}

	var header bytes.Buffer
	for {
		line, next, more := cutLine(rest)
		if isDelimiter(line) {
			rest = next
			break
		}
		if !more {
			return fm, "", ErrNoFrontmatter
		}
		header.Write(line)
		header.WriteByte('\n')
		rest = next
	}

	if err := yaml.Unmarshal(header.Bytes(), &fm); err != nil {
		return fm, "", fmt.Errorf("content: front-matter: %w", err)
	}
	if fm.Title == "" || fm.Description == "" {
		return fm, "", ErrInvalidFrontmatter
	}
	return fm, string(rest), nil
}

func isDelimiter(line []byte) bool {
	return bytes.Equal(bytes.TrimRight(line, " \t"), delimiter)
}

// cutLine returns the first line of b without its terminator. ok is false
// when b holds no line terminator.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return bytes.TrimSuffix(b, []byte("\r")), nil, false
	}
	return bytes.TrimSuffix(b[:i], []byte("\r")), b[i+1:], true
}
