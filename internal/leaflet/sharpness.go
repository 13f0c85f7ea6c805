package leaflet

// blurThreshold is the empirical variance-of-Laplacian value below which a
// leaflet photo is too blurry to validate.
const blurThreshold = 80.0

// laplacianVariance estimates sharpness as the variance of the image after a
// discrete 3x3 Laplacian [[0,1,0],[1,-4,1],[0,1,0]] with edge padding.
// Higher means sharper.
func laplacianVariance(g *grayImage) float64 {
	if g.w == 0 || g.h == 0 {
		return 0
	}

	n := g.w * g.h
	filtered := make([]float64, n)

	// Edge padding: out-of-range neighbors clamp to the nearest edge pixel.
	clamp := func(v, max int) int {
		if v < 0 {
			return 0
		}
		if v >= max {
			return max - 1
		}
		return v
	}

	sum := 0.0
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			center := float64(g.at(x, y))
			up := float64(g.at(x, clamp(y-1, g.h)))
			down := float64(g.at(x, clamp(y+1, g.h)))
			left := float64(g.at(clamp(x-1, g.w), y))
			right := float64(g.at(clamp(x+1, g.w), y))

			v := up + down + left + right - 4*center
			filtered[y*g.w+x] = v
			sum += v
		}
	}

	mean := sum / float64(n)
	variance := 0.0
	for _, v := range filtered {
		d := v - mean
		variance += d * d
	}
	return variance / float64(n)
}
