package leaflet

import "fmt"

// ahashSize is the side of the square an image is reduced to before hashing:
// 8x8 pixels pack into a 64-bit hash.
const ahashSize = 8

// averageHashHex computes an average hash (aHash) over an upright grayscale
// bitmap: downscale to 8x8, compare every pixel to the mean intensity, pack
// the bit rows MSB-first into 64 bits, render as 16 hex characters.
//
// Cheap and stable under re-encoding, sensitive to rotation and heavy edits,
// which is exactly the tradeoff wanted for near-duplicate leaflet detection.
func averageHashHex(g *grayImage) string {
	if g.w == 0 || g.h == 0 {
		return ""
	}

	small := g.downscale(ahashSize, ahashSize)

	sum := 0
	for _, p := range small.pix {
		sum += int(p)
	}
	// Mean over float to match intensity averaging, not integer truncation.
	mean := float64(sum) / float64(len(small.pix))

	var hash uint64
	for _, p := range small.pix {
		hash <<= 1
		if float64(p) > mean {
			hash |= 1
		}
	}
	return fmt.Sprintf("%016x", hash)
}
