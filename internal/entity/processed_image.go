package entity

// Rendition is one derived raster written under the gallery's output root.
type Rendition struct {
	RelativePath string `json:"relative_path"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// ProcessedImage is the result of optimizing one AssetDescriptor. Index is the
// descriptor's position in the input list, so it stays stable when earlier
// items fail.
type ProcessedImage struct {
	Index     int             `json:"index"`
	Source    AssetDescriptor `json:"source"`
	Full      Rendition       `json:"full"`
	Thumbnail Rendition       `json:"thumbnail"`
}

// RelativePaths returns both rendition paths, full first.
func (p ProcessedImage) RelativePaths() []string {
	return []string{p.Full.RelativePath, p.Thumbnail.RelativePath}
}
