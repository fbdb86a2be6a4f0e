package content

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MohitGoyal09/portfolio/internal/catalog"
)

// CertificatePrefix is the public URL prefix of certificate images.
const CertificatePrefix = "/certificates/"

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".avif": true,
}

// Certificates merges configured certificates with images found in dir.
// Configured entries come first and win on a duplicate file path. A missing
// or unreadable dir yields the configured entries only.
func Certificates(dir string, configured []catalog.Certificate, logger *slog.Logger) []catalog.Certificate {
	out := make([]catalog.Certificate, 0, len(configured))
	seen := make(map[string]bool, len(configured))
	for _, c := range configured {
		if seen[c.File] {
			continue
		}
		seen[c.File] = true
		out = append(out, c)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) && logger != nil {
			logger.Warn("certificates_scan_failed", slog.String("dir", dir), slog.String("error", err.Error()))
		}
		return out
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		file := CertificatePrefix + name
		if seen[file] {
			continue
		}
		seen[file] = true
		out = append(out, catalog.Certificate{File: file})
	}
	return out
}
