package leaflet

import (
	"image"
	"image/color"
)

// grayImage is a tightly packed 8-bit grayscale bitmap. All pixel-level work
// in this package (sharpness, hashing, zone coverage) runs over it instead of
// the decoded image to keep the math in one representation.
type grayImage struct {
	pix  []uint8
	w, h int
}

func newGrayImage(img image.Image) *grayImage {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	g := &grayImage{pix: make([]uint8, w*h), w: w, h: h}

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			copy(g.pix[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
				g.pix[y*w+x] = c.Y
			}
		}
	}
	return g
}

func (g *grayImage) at(x, y int) uint8 {
	return g.pix[y*g.w+x]
}

// orient undoes the rotation/flip a camera recorded in the EXIF orientation
// tag, producing an upright bitmap. Tag values follow the EXIF standard
// (1 = upright, 2..8 = the seven mirror/rotate combinations).
func (g *grayImage) orient(orientation int) *grayImage {
	if orientation <= 1 || orientation > 8 {
		return g
	}

	w, h := g.w, g.h
	var out *grayImage
	switch orientation {
	case 2: // mirror horizontal
		out = &grayImage{pix: make([]uint8, w*h), w: w, h: h}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.pix[y*w+(w-1-x)] = g.at(x, y)
			}
		}
	case 3: // rotate 180
		out = &grayImage{pix: make([]uint8, w*h), w: w, h: h}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.pix[(h-1-y)*w+(w-1-x)] = g.at(x, y)
			}
		}
	case 4: // mirror vertical
		out = &grayImage{pix: make([]uint8, w*h), w: w, h: h}
		for y := 0; y < h; y++ {
			copy(out.pix[(h-1-y)*w:(h-y)*w], g.pix[y*w:(y+1)*w])
		}
	case 5: // mirror horizontal + rotate 270 CW
		out = &grayImage{pix: make([]uint8, w*h), w: h, h: w}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.pix[x*h+y] = g.at(x, y)
			}
		}
	case 6: // rotate 90 CW
		out = &grayImage{pix: make([]uint8, w*h), w: h, h: w}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.pix[x*h+(h-1-y)] = g.at(x, y)
			}
		}
	case 7: // mirror horizontal + rotate 90 CW
		out = &grayImage{pix: make([]uint8, w*h), w: h, h: w}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.pix[(w-1-x)*h+(h-1-y)] = g.at(x, y)
			}
		}
	case 8: // rotate 270 CW
		out = &grayImage{pix: make([]uint8, w*h), w: h, h: w}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.pix[(w-1-x)*h+y] = g.at(x, y)
			}
		}
	}
	return out
}

// downscale shrinks the bitmap with box averaging: every output pixel is the
// mean of the source rectangle it covers. Good enough for an average hash,
// which only compares pixels to the global mean.
func (g *grayImage) downscale(tw, th int) *grayImage {
	out := &grayImage{pix: make([]uint8, tw*th), w: tw, h: th}
	for ty := 0; ty < th; ty++ {
		y0 := ty * g.h / th
		y1 := (ty + 1) * g.h / th
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for tx := 0; tx < tw; tx++ {
			x0 := tx * g.w / tw
			x1 := (tx + 1) * g.w / tw
			if x1 <= x0 {
				x1 = x0 + 1
			}
			sum := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sum += int(g.at(x, y))
				}
			}
			out.pix[ty*tw+tx] = uint8(sum / ((y1 - y0) * (x1 - x0)))
		}
	}
	return out
}
