package imageprep

import (
	"image"
	"strconv"

	exif "github.com/dsoprea/go-exif/v3"
)

// exifOrientation returns the EXIF Orientation tag (1..8) or 1 if absent or unreadable.
func exifOrientation(data []byte) int {
	raw, err := exif.SearchAndExtractExif(data)
	if err != nil || raw == nil {
		return 1
	}
	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return 1
	}
	for _, e := range entries {
		if e.TagName != "Orientation" || e.IfdPath != "IFD" {
			continue
		}
		if v, ok := e.Value.([]uint16); ok && len(v) > 0 {
			return clampOrientation(int(v[0]))
		}
		if n, err := strconv.Atoi(e.FormattedFirst); err == nil {
			return clampOrientation(n)
		}
	}
	return 1
}

func clampOrientation(o int) int {
	if o < 1 || o > 8 {
		return 1
	}
	return o
}

// applyOrientation returns src transformed so it displays upright.
func applyOrientation(src *image.RGBA, o int) *image.RGBA {
	if o <= 1 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dw, dh := w, h
	if o >= 5 {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			var sx, sy int
			switch o {
			case 2:
				sx, sy = w-1-x, y
			case 3:
				sx, sy = w-1-x, h-1-y
			case 4:
				sx, sy = x, h-1-y
			case 5:
				sx, sy = y, x
			case 6:
				sx, sy = y, h-1-x
			case 7:
				sx, sy = w-1-y, h-1-x
			case 8:
				sx, sy = w-1-y, x
			}
			si := src.PixOffset(b.Min.X+sx, b.Min.Y+sy)
			di := dst.PixOffset(x, y)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}
