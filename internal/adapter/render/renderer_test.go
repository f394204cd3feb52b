package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
)

var fixedTime = time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)

func processed(index int, base, title, desc string) entity.ProcessedImage {
	return entity.ProcessedImage{
		Index:  index,
		Source: entity.AssetDescriptor{Path: "/photos/" + base + ".jpg", Title: title, Description: desc},
		Full: entity.Rendition{
			RelativePath: "images/" + base + ".jpg", Width: 1600, Height: 1067,
		},
		Thumbnail: entity.Rendition{
			RelativePath: "images/" + base + "_thumb.jpg", Width: 300, Height: 200,
		},
	}
}

func input(t *testing.T) repository.RenderInput {
	t.Helper()
	cfg := entity.DefaultGalleryConfig()
	cfg.OutputPath = "/out"
	cfg.Title = "Summer <2024>"
	return repository.RenderInput{
		OutputDir: t.TempDir(),
		Images: []entity.ProcessedImage{
			processed(0, "beach", "Beach", "Sand & sea"),
			processed(2, "cliff", "", ""),
			processed(3, "dunes", `<script>alert("x")</script>`, ""),
		},
		Config: cfg,
		Total:  4,
		Skipped: []entity.ItemFailure{
			{Index: 1, Path: "/photos/broken.jpg", Kind: "unsupported_format", Reason: "decode failed"},
		},
	}
}

func newRenderer() *Renderer {
	return New(zap.NewNop(), WithClock(func() time.Time { return fixedTime }))
}

func readDoc(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestRender_WritesAllFiles(t *testing.T) {
	in := input(t)

	files, err := newRenderer().Render(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"index.html", "style.css", "script.js", "README.txt"}, files)

	for _, name := range files {
		info, err := os.Stat(filepath.Join(in.OutputDir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size(), name)
	}

	entries, err := os.ReadDir(in.OutputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "no temp files left behind")
}

func TestRender_MarkupOrderAndAttributes(t *testing.T) {
	in := input(t)
	_, err := newRenderer().Render(context.Background(), in)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(readDoc(t, in.OutputDir, "index.html")))
	require.NoError(t, err)

	items := doc.Find("figure.gallery-item")
	require.Equal(t, 3, items.Length())

	var indexes, thumbs, fulls []string
	items.Each(func(_ int, s *goquery.Selection) {
		idx, _ := s.Attr("data-index")
		indexes = append(indexes, idx)
		src, _ := s.Find("img.gallery-thumb").Attr("src")
		thumbs = append(thumbs, src)
		href, _ := s.Find("a.gallery-link").Attr("href")
		fulls = append(fulls, href)
	})
	assert.Equal(t, []string{"0", "2", "3"}, indexes)
	assert.Equal(t, []string{"images/beach_thumb.jpg", "images/cliff_thumb.jpg", "images/dunes_thumb.jpg"}, thumbs)
	assert.Equal(t, []string{"images/beach.jpg", "images/cliff.jpg", "images/dunes.jpg"}, fulls)

	first := items.First()
	w, _ := first.Find("img").Attr("width")
	h, _ := first.Find("img").Attr("height")
	assert.Equal(t, "300", w)
	assert.Equal(t, "200", h)
	fw, _ := first.Attr("data-full-width")
	assert.Equal(t, "1600", fw)
	pos, _ := items.Eq(1).Attr("data-position")
	assert.Equal(t, "2", pos)

	// Missing titles fall back to the file stem.
	assert.Equal(t, "cliff", items.Eq(1).Find(".gallery-title").Text())
	assert.Equal(t, "Sand & sea", first.Find(".gallery-description").Text())
	assert.Equal(t, 1, doc.Find("#lightbox").Length())
	assert.Equal(t, "lazy", first.Find("img").AttrOr("loading", ""))
}

func TestRender_EscapesUserText(t *testing.T) {
	in := input(t)
	_, err := newRenderer().Render(context.Background(), in)
	require.NoError(t, err)

	html := readDoc(t, in.OutputDir, "index.html")
	assert.NotContains(t, html, `<script>alert`)
	assert.Contains(t, html, "Summer &lt;2024&gt;")
	assert.Contains(t, html, "Sand &amp; sea")
}

func TestRender_OptionalFeatures(t *testing.T) {
	in := input(t)
	in.Config.Lightbox = false
	in.Config.LazyLoad = false
	in.Config.ShowCaptions = false
	in.Config.Theme = entity.ThemeLight
	in.Config.Columns = 6

	_, err := newRenderer().Render(context.Background(), in)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(readDoc(t, in.OutputDir, "index.html")))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find("#lightbox").Length())
	assert.Equal(t, 0, doc.Find("figcaption").Length())
	_, lazy := doc.Find("img.gallery-thumb").First().Attr("loading")
	assert.False(t, lazy)
	assert.True(t, doc.Find("body").HasClass("theme-light"))

	css := readDoc(t, in.OutputDir, "style.css")
	assert.Contains(t, css, "repeat(6, minmax(0, 1fr))")
	assert.Contains(t, css, "repeat(3, minmax(0, 1fr))")
	assert.Contains(t, css, "#fafafa")
	assert.NotContains(t, css, ".lightbox {")

	js := readDoc(t, in.OutputDir, "script.js")
	assert.Contains(t, js, "var LIGHTBOX_ENABLED = false;")
	assert.NotContains(t, js, "http://")
	assert.NotContains(t, js, "https://")
}

func TestRender_Manifest(t *testing.T) {
	in := input(t)
	_, err := newRenderer().Render(context.Background(), in)
	require.NoError(t, err)

	readme := readDoc(t, in.OutputDir, "README.txt")
	assert.True(t, strings.HasPrefix(readme, "Summer <2024>\n=============\n"))
	assert.Contains(t, readme, "Images:    3")
	assert.Contains(t, readme, "Selected:  4")
	assert.Contains(t, readme, "Skipped:   1")
	assert.Contains(t, readme, "Generated: 2024-03-09T14:30:00Z")
	assert.Contains(t, readme, "  - broken.jpg: unsupported_format")
	assert.Contains(t, readme, "images/      6 renditions")
	assert.Contains(t, readme, "columns: 4")
	assert.Contains(t, readme, "theme: dark")
}

func TestRender_Deterministic(t *testing.T) {
	in := input(t)
	r := newRenderer()

	_, err := r.Render(context.Background(), in)
	require.NoError(t, err)
	first := map[string]string{}
	for _, name := range []string{"index.html", "style.css", "script.js", "README.txt"} {
		first[name] = readDoc(t, in.OutputDir, name)
	}

	_, err = r.Render(context.Background(), in)
	require.NoError(t, err)
	for name, want := range first {
		assert.Equal(t, want, readDoc(t, in.OutputDir, name), name)
	}
}

func TestRender_OnlyGeneratedLineDependsOnClock(t *testing.T) {
	in := input(t)
	_, err := newRenderer().Render(context.Background(), in)
	require.NoError(t, err)
	before := readDoc(t, in.OutputDir, "README.txt")

	later := New(zap.NewNop(), WithClock(func() time.Time { return fixedTime.Add(time.Hour) }))
	_, err = later.Render(context.Background(), in)
	require.NoError(t, err)
	after := readDoc(t, in.OutputDir, "README.txt")

	strip := func(s string) string {
		var kept []string
		for _, line := range strings.Split(s, "\n") {
			if !strings.HasPrefix(line, "Generated:") {
				kept = append(kept, line)
			}
		}
		return strings.Join(kept, "\n")
	}
	assert.NotEqual(t, before, after)
	assert.Equal(t, strip(before), strip(after))
}

func TestRender_IndexHTM(t *testing.T) {
	in := input(t)
	in.Config.IndexFileName = entity.IndexHTM

	files, err := newRenderer().Render(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "index.htm", files[0])
	assert.FileExists(t, filepath.Join(in.OutputDir, "index.htm"))
	assert.NoFileExists(t, filepath.Join(in.OutputDir, "index.html"))
	assert.Contains(t, readDoc(t, in.OutputDir, "README.txt"), "Open index.htm")
}

func TestRender_WriteFailure(t *testing.T) {
	in := input(t)
	in.OutputDir = filepath.Join(in.OutputDir, "missing")

	_, err := newRenderer().Render(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrRenderFailure)
}

func TestRender_CancelledBeforeWrite(t *testing.T) {
	in := input(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRenderer().Render(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(in.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCommentSafeTitle(t *testing.T) {
	in := input(t)
	in.Config.Title = "end */ body{display:none}"

	_, err := newRenderer().Render(context.Background(), in)
	require.NoError(t, err)
	css := readDoc(t, in.OutputDir, "style.css")
	first := strings.SplitN(css, "\n", 2)[0]
	assert.Equal(t, 1, strings.Count(first, "*/"))
}
