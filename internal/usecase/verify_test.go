package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/photo-gallery/internal/entity"
)

const verifyPage = `<!DOCTYPE html><html><head><link rel="stylesheet" href="style.css"></head><body>
<figure class="gallery-item" data-index="0" data-full="images/a.jpg">
<a class="gallery-link" href="images/a.jpg"><img class="gallery-thumb" src="images/a_thumb.jpg"></a></figure>
<figure class="gallery-item" data-index="2" data-full="images/b.jpg">
<a class="gallery-link" href="images/b.jpg"><img class="gallery-thumb" src="images/b_thumb.jpg"></a></figure>
<script src="script.js"></script></body></html>`

func verifyImages() []entity.ProcessedImage {
	img := func(idx int, base string) entity.ProcessedImage {
		return entity.ProcessedImage{
			Index:     idx,
			Full:      entity.Rendition{RelativePath: "images/" + base + ".jpg"},
			Thumbnail: entity.Rendition{RelativePath: "images/" + base + "_thumb.jpg"},
		}
	}
	return []entity.ProcessedImage{img(0, "a"), img(2, "b")}
}

func writeOutput(t *testing.T, page string, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0o644))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(f)), []byte("x"), 0o644))
	}
	return dir
}

var allFiles = []string{
	"style.css", "script.js", "README.txt",
	"images/a.jpg", "images/a_thumb.jpg", "images/b.jpg", "images/b_thumb.jpg",
}

func TestVerifyOutput_Complete(t *testing.T) {
	dir := writeOutput(t, verifyPage, allFiles...)

	v, err := VerifyOutput(dir, entity.DefaultGalleryConfig(), verifyImages())
	require.NoError(t, err)
	assert.True(t, v.OK(), v.Summary())
	assert.Len(t, v.Present, 8)
	assert.Empty(t, v.Summary())
}

func TestVerifyOutput_MissingAndDangling(t *testing.T) {
	dir := writeOutput(t, verifyPage, "style.css", "README.txt", "images/a.jpg", "images/a_thumb.jpg", "images/b.jpg")

	v, err := VerifyOutput(dir, entity.DefaultGalleryConfig(), verifyImages())
	require.NoError(t, err)
	assert.False(t, v.OK())
	assert.ElementsMatch(t, []string{"script.js", "images/b_thumb.jpg"}, v.Missing)
	assert.ElementsMatch(t, []string{"script.js", "images/b_thumb.jpg"}, v.Dangling)
	assert.Contains(t, v.Summary(), "missing")
	assert.Contains(t, v.Summary(), "broken references")
}

func TestVerifyOutput_OrderMismatch(t *testing.T) {
	dir := writeOutput(t, verifyPage, allFiles...)
	imgs := verifyImages()
	imgs[1].Index = 5

	v, err := VerifyOutput(dir, entity.DefaultGalleryConfig(), imgs)
	require.NoError(t, err)
	assert.False(t, v.OK())
	assert.Equal(t, []string{"image 2 is out of order in the index"}, v.Problems)
}

func TestVerifyOutput_CountMismatch(t *testing.T) {
	dir := writeOutput(t, verifyPage, allFiles...)

	v, err := VerifyOutput(dir, entity.DefaultGalleryConfig(), verifyImages()[:1])
	require.NoError(t, err)
	assert.Contains(t, v.Problems, "index lists 2 images, expected 1")
}

func TestVerifyOutput_NoIndex(t *testing.T) {
	dir := t.TempDir()

	v, err := VerifyOutput(dir, entity.DefaultGalleryConfig(), nil)
	require.NoError(t, err)
	assert.Contains(t, v.Missing, "index.html")
}

func TestFileExists_StaysInsideRoot(t *testing.T) {
	dir := writeOutput(t, verifyPage, "style.css")
	outside := filepath.Join(filepath.Dir(dir), "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	t.Cleanup(func() { os.Remove(outside) })

	assert.True(t, fileExists(dir, "style.css"))
	assert.True(t, fileExists(dir, "./style.css"))
	assert.False(t, fileExists(dir, "../outside.txt"))
	assert.False(t, fileExists(dir, "https://example.com/style.css"))
	assert.False(t, fileExists(dir, "images"))
}
