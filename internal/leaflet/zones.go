package leaflet

const (
	// whiteThreshold: leaflet background is near-white, so any pixel darker
	// than this counts as ink or sticker.
	whiteThreshold = 240

	// zoneCoverageThreshold: a zone with at least this fraction of non-white
	// pixels is considered to contain its sticker.
	zoneCoverageThreshold = 0.20
)

// countStickersByZones crops each relative zone out of the upright grayscale
// bitmap and measures the fraction of non-white pixels in it. Returns the
// number of zones that cleared the coverage threshold and the per-zone
// coverage ratios in zone order.
func countStickersByZones(g *grayImage, zones []ValidationZone) (int, []float64) {
	if len(zones) == 0 {
		return 0, nil
	}

	coverage := make([]float64, 0, len(zones))
	for _, z := range zones {
		x0 := clampInt(int(z.X*float64(g.w)), 0, g.w-1)
		y0 := clampInt(int(z.Y*float64(g.h)), 0, g.h-1)
		x1 := clampInt(x0+int(z.W*float64(g.w)), 0, g.w)
		y1 := clampInt(y0+int(z.H*float64(g.h)), 0, g.h)

		if x1 <= x0 || y1 <= y0 {
			coverage = append(coverage, 0)
			continue
		}

		nonWhite := 0
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				if g.at(x, y) < whiteThreshold {
					nonWhite++
				}
			}
		}
		coverage = append(coverage, float64(nonWhite)/float64((x1-x0)*(y1-y0)))
	}

	stickers := 0
	for _, c := range coverage {
		if c >= zoneCoverageThreshold {
			stickers++
		}
	}
	return stickers, coverage
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
