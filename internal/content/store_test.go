package content

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MohitGoyal09/portfolio/internal/catalog"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDoc(t *testing.T, dir, name, front, body string) {
	t.Helper()
	doc := "---\n" + front + "\n---\n" + body
	if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
}

func fixtureStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	writeDoc(t, dir, "llama.mdx", `title: LLaMA Implementation
description: From-scratch LLaMA
technologies: [PyTorch, CUDA]
isPublished: true
featured: true
metrics:
  - name: Parameters
    value: 100M`, "# LLaMA\n")
	writeDoc(t, dir, "bert.mdx", `title: bert encoder
description: BERT
technologies: [pytorch]
isPublished: true`, "body")
	writeDoc(t, dir, "alpha.md", `title: Alpha
description: A
technologies: [PyTorch, cuda, Triton]
isPublished: true`, "body")
	writeDoc(t, dir, "draft.mdx", `title: Draft
description: D
technologies: [PyTorch]
isPublished: false`, "body")
	writeDoc(t, dir, "jax.mdx", `title: Jax
description: J
technologies: [JAX]
isPublished: true`, "body")
	writeDoc(t, dir, "broken.mdx", `title: no description`, "body")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(dir, quietLogger())
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func slugs(ps []Preview) string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Slug
	}
	return strings.Join(out, ",")
}

func TestParse(t *testing.T) {
	fm, body, err := Parse([]byte("\xEF\xBB\xBF---\r\ntitle: T\r\ndescription: D\r\ntags: [a, b]\r\n---\r\nHello\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if fm.Title != "T" || fm.Description != "D" || len(fm.Tags) != 2 {
		t.Errorf("frontmatter = %+v", fm)
	}
	if body != "Hello\n" {
		t.Errorf("body = %q", body)
	}

	if _, _, err := Parse([]byte("# no header\n")); !errors.Is(err, ErrNoFrontmatter) {
		t.Errorf("no header: err = %v", err)
	}
	if _, _, err := Parse([]byte("---\ntitle: T\n")); !errors.Is(err, ErrNoFrontmatter) {
		t.Errorf("unterminated: err = %v", err)
	}
	if _, _, err := Parse([]byte("---\ntitle: T\n---\n")); !errors.Is(err, ErrInvalidFrontmatter) {
		t.Errorf("missing description: err = %v", err)
	}
	if _, _, err := Parse([]byte("---\ntitle: [\n---\n")); err == nil {
		t.Error("expected YAML error")
	}
}

func TestStore_AllOrdering(t *testing.T) {
	s := fixtureStore(t)

	// Featured first, then case-insensitive title order; broken docs skipped.
	if got := slugs(s.All()); got != "llama,alpha,bert,draft,jax" {
		t.Errorf("All = %s", got)
	}
	if got := slugs(s.Published()); got != "llama,alpha,bert,jax" {
		t.Errorf("Published = %s", got)
	}
	if got := strings.Join(s.Slugs(), ","); got != "llama,alpha,bert,draft,jax" {
		t.Errorf("Slugs = %s", got)
	}
}

func TestStore_BySlug(t *testing.T) {
	s := fixtureStore(t)

	cs := s.BySlug("llama")
	if cs == nil || cs.Content != "# LLaMA\n" || cs.Frontmatter.Metrics[0].Value != "100M" {
		t.Fatalf("BySlug = %+v", cs)
	}
	if s.BySlug("missing") != nil || s.BySlug("broken") != nil {
		t.Error("unknown and invalid slugs must be nil")
	}
	if s.BySlug("alpha") == nil {
		t.Error(".md documents should be indexed")
	}
}

func TestStore_Technologies(t *testing.T) {
	s := fixtureStore(t)

	if got := strings.Join(s.Technologies(), ","); got != "cuda,jax,pytorch,triton" {
		t.Errorf("Technologies = %s", got)
	}
	if got := slugs(s.ByTechnology("PYTORCH")); got != "llama,alpha,bert" {
		t.Errorf("ByTechnology = %s", got)
	}
}

func TestStore_Related(t *testing.T) {
	s := fixtureStore(t)

	// alpha shares two technologies with llama, bert one, draft is unpublished.
	if got := slugs(s.Related("llama", 0)); got != "alpha,bert" {
		t.Errorf("Related = %s", got)
	}
	if got := slugs(s.Related("llama", 1)); got != "alpha" {
		t.Errorf("Related max 1 = %s", got)
	}
	if got := s.Related("jax", 2); len(got) != 0 {
		t.Errorf("no shared technologies should yield nothing, got %s", slugs(got))
	}
	if got := s.Related("draft", 2); len(got) != 0 {
		t.Errorf("unpublished current should yield nothing, got %s", slugs(got))
	}
	if got := s.Related("missing", 2); got == nil || len(got) != 0 {
		t.Errorf("unknown slug should yield an empty list, got %v", got)
	}
}

func TestStore_MissingDirectory(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"), quietLogger())
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.All()) != 0 {
		t.Error("expected empty index")
	}
}

func TestStore_OnLoad(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.mdx", "title: A\ndescription: a", "body")
	writeDoc(t, dir, "b.md", "title: B\ndescription: b", "body")

	s := NewStore(dir, quietLogger())
	var docs, calls int
	s.OnLoad(func(n int, err error) {
		if err != nil {
			t.Errorf("OnLoad error: %v", err)
		}
		docs, calls = n, calls+1
	})

	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 || docs != 2 {
		t.Errorf("calls = %d, documents = %d", calls, docs)
	}
}

func TestNavigate(t *testing.T) {
	order := []NavLink{{Title: "A", Slug: "a"}, {Title: "B", Slug: "b"}, {Title: "C", Slug: "c"}}

	nav := Navigate(order, "b")
	if nav.Previous == nil || nav.Previous.Slug != "a" || nav.Next == nil || nav.Next.Slug != "c" {
		t.Errorf("middle = %+v", nav)
	}
	if nav := Navigate(order, "a"); nav.Previous != nil || nav.Next.Title != "B" {
		t.Errorf("first = %+v", nav)
	}
	if nav := Navigate(order, "c"); nav.Next != nil || nav.Previous.Slug != "b" {
		t.Errorf("last = %+v", nav)
	}
	if nav := Navigate(order, "x"); nav.Previous != nil || nav.Next != nil {
		t.Errorf("unknown = %+v", nav)
	}
}

func TestCertificates(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.PNG", "a.jpeg", "c.webp", "readme.txt", "known.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	configured := []catalog.Certificate{{File: "/certificates/known.png", Title: "Known"}}
	got := Certificates(dir, configured, quietLogger())

	var files []string
	for _, c := range got {
		files = append(files, c.File)
	}
	want := "/certificates/known.png,/certificates/a.jpeg,/certificates/b.PNG,/certificates/c.webp"
	if strings.Join(files, ",") != want {
		t.Errorf("files = %v", files)
	}
	if got[0].Title != "Known" {
		t.Error("configured entry must win on duplicates")
	}

	only := Certificates(filepath.Join(dir, "missing"), configured, quietLogger())
	if len(only) != 1 {
		t.Errorf("missing dir should return configured only, got %v", only)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, quietLogger())
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewWatcher(s, 20*time.Millisecond, quietLogger())
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	deadline := time.Now().Add(3 * time.Second)
	for s.BySlug("fresh") == nil && time.Now().Before(deadline) {
		writeDoc(t, dir, "fresh.mdx", "title: Fresh\ndescription: F", "body")
		time.Sleep(100 * time.Millisecond)
	}
	if s.BySlug("fresh") == nil {
		t.Error("store was not reloaded after a document was written")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
