package usecase

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/pkg/utils"
)

// OwnedFilesName is the hidden record, in the output folder, of every file
// the last run wrote there. Only files listed in it are ever removed.
const OwnedFilesName = ".gallery-manifest.yaml"

type ownedFiles struct {
	Files []string `yaml:"files"`
}

func readOwnedFiles(outputDir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, OwnedFilesName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", OwnedFilesName, err)
	}
	var owned ownedFiles
	if err := yaml.Unmarshal(data, &owned); err != nil {
		return nil, fmt.Errorf("parse %s: %w", OwnedFilesName, err)
	}
	return owned.Files, nil
}

func writeOwnedFiles(outputDir string, files []string) error {
	data, err := yaml.Marshal(ownedFiles{Files: files})
	if err != nil {
		return fmt.Errorf("encode %s: %w", OwnedFilesName, err)
	}
	return utils.WriteFileAtomic(filepath.Join(outputDir, OwnedFilesName), data, 0o644)
}

// runFiles lists, slash-separated and relative to the output folder, the
// files a run with these images writes.
func runFiles(cfg entity.GalleryConfig, images []entity.ProcessedImage) []string {
	files := append([]string(nil), cfg.OutputFiles()...)
	for _, img := range images {
		files = append(files, img.RelativePaths()...)
	}
	return files
}

func mergeFiles(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, f := range append(append([]string(nil), a...), b...) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// removableFile reports whether rel is a name a gallery run can have written:
// one of the top-level documents or a file directly inside images/.
func removableFile(rel string) bool {
	if rel == "" || rel != path.Clean(rel) || path.IsAbs(rel) || strings.Contains(rel, "\\") {
		return false
	}
	switch rel {
	case entity.IndexHTML, entity.IndexHTM, entity.StylesheetFile, entity.ScriptFile, entity.ManifestFile:
		return true
	}
	dir, name := path.Split(rel)
	return dir == entity.ImagesDir+"/" && name != "" && name[0] != '.'
}

// insideDir reports whether p lies inside dir, after resolving symlinks
// where the paths exist.
func insideDir(p, dir string) bool {
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false
	}
	realPath, err := filepath.EvalSymlinks(p)
	if err != nil {
		if realPath, err = filepath.Abs(p); err != nil {
			return false
		}
	}
	rel, err := filepath.Rel(realDir, realPath)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
