package imaging

import (
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/user/photo-gallery/internal/repository"
	"github.com/user/photo-gallery/pkg/utils"
)

// writeJPEG encodes img and moves it into place atomically, so a rerun
// replaces the previous rendition and a failure never leaves a torn file.
func writeJPEG(dest string, img image.Image, quality int) error {
	err := utils.WriteAtomic(dest, 0o644, func(w io.Writer) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	})
	if err != nil {
		return fmt.Errorf("%v: %w", err, repository.ErrWriteFailure)
	}
	return nil
}
