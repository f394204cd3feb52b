package imaging

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Fit returns the largest size with the same aspect ratio as w×h whose long
// edge is at most limit. Images already within the bound are returned unchanged.
func Fit(w, h, limit int) (int, int) {
	if w <= 0 || h <= 0 || limit <= 0 {
		return 0, 0
	}
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, scaleEdge(h, limit, w)
	}
	return scaleEdge(w, limit, h), limit
}

func scaleEdge(edge, target, long int) int {
	v := int(math.Round(float64(edge) * float64(target) / float64(long)))
	if v < 1 {
		return 1
	}
	return v
}

// orientedSize is the size of a w×h image after a clockwise rotation.
func orientedSize(w, h, degrees int) (int, int) {
	if degrees == 90 || degrees == 270 {
		return h, w
	}
	return w, h
}

// scaleOnto resamples src to w×h over an opaque white background, so
// transparent sources come out as they would look on a page.
func scaleOnto(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	sb := src.Bounds()
	if sb.Dx() == w && sb.Dy() == h {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst
}

// rotate turns img clockwise by 0, 90, 180 or 270 degrees.
func rotate(img *image.RGBA, degrees int) *image.RGBA {
	if degrees == 0 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	ow, oh := orientedSize(w, h, degrees)
	dst := image.NewRGBA(image.Rect(0, 0, ow, oh))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			switch degrees {
			case 90:
				dst.SetRGBA(h-1-y, x, c)
			case 180:
				dst.SetRGBA(w-1-x, h-1-y, c)
			case 270:
				dst.SetRGBA(y, w-1-x, c)
			}
		}
	}
	return dst
}
