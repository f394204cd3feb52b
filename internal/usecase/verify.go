package usecase

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/photo-gallery/internal/entity"
)

// Verification is the result of cross-checking a rendered gallery against
// the files on disk.
type Verification struct {
	Present  []string // expected files that exist, relative to the output root
	Missing  []string // expected files that do not exist
	Dangling []string // references in the markup with no file behind them
	Problems []string // structural mismatches between markup and images
}

// OK reports whether every expected file exists and the markup is consistent.
func (v *Verification) OK() bool {
	return len(v.Missing) == 0 && len(v.Dangling) == 0 && len(v.Problems) == 0
}

// Summary returns a one-line description of what is wrong, or "" when OK.
func (v *Verification) Summary() string {
	var parts []string
	if len(v.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %s", strings.Join(v.Missing, ", ")))
	}
	if len(v.Dangling) > 0 {
		parts = append(parts, fmt.Sprintf("broken references to %s", strings.Join(v.Dangling, ", ")))
	}
	parts = append(parts, v.Problems...)
	return strings.Join(parts, "; ")
}

// VerifyOutput checks that every file the run should have produced exists and
// that each path referenced by the index page resolves to one of them.
func VerifyOutput(outputDir string, cfg entity.GalleryConfig, images []entity.ProcessedImage) (*Verification, error) {
	v := &Verification{}

	expected := cfg.OutputFiles()
	for _, img := range images {
		expected = append(expected, img.RelativePaths()...)
	}
	for _, rel := range expected {
		if fileExists(outputDir, rel) {
			v.Present = append(v.Present, rel)
		} else {
			v.Missing = append(v.Missing, rel)
		}
	}

	indexName := cfg.IndexFileName
	if indexName == "" {
		indexName = entity.IndexHTML
	}
	f, err := os.Open(filepath.Join(outputDir, indexName))
	if err != nil {
		if os.IsNotExist(err) {
			return v, nil
		}
		return v, fmt.Errorf("open %s: %w", indexName, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return v, fmt.Errorf("parse %s: %w", indexName, err)
	}

	seen := make(map[string]bool)
	check := func(ref string) {
		if ref == "" || seen[ref] {
			return
		}
		seen[ref] = true
		if !fileExists(outputDir, ref) {
			v.Dangling = append(v.Dangling, ref)
		}
	}

	doc.Find(`link[rel="stylesheet"]`).Each(func(i int, s *goquery.Selection) {
		check(s.AttrOr("href", ""))
	})
	doc.Find("script[src]").Each(func(i int, s *goquery.Selection) {
		check(s.AttrOr("src", ""))
	})

	items := doc.Find("figure.gallery-item")
	if items.Length() != len(images) {
		v.Problems = append(v.Problems, fmt.Sprintf("index lists %d images, expected %d", items.Length(), len(images)))
	}
	items.Each(func(i int, s *goquery.Selection) {
		check(s.Find("img.gallery-thumb").AttrOr("src", ""))
		check(s.Find("a.gallery-link").AttrOr("href", ""))
		check(s.AttrOr("data-full", ""))

		if i >= len(images) {
			return
		}
		idx, err := strconv.Atoi(s.AttrOr("data-index", ""))
		if err != nil || idx != images[i].Index {
			v.Problems = append(v.Problems, fmt.Sprintf("image %d is out of order in the index", i+1))
		}
	})

	return v, nil
}

// fileExists resolves a markup reference relative to root. References that
// leave the output directory never count as present.
func fileExists(root, ref string) bool {
	if u, err := url.Parse(ref); err == nil {
		if u.Scheme != "" || u.Host != "" {
			return false
		}
		ref = u.Path
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return false
	}
	info, err := os.Stat(filepath.Join(root, clean))
	return err == nil && !info.IsDir()
}
