package leaflet

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayFromRows(rows [][]uint8) *grayImage {
	h := len(rows)
	w := len(rows[0])
	g := &grayImage{pix: make([]uint8, w*h), w: w, h: h}
	for y, row := range rows {
		copy(g.pix[y*w:(y+1)*w], row)
	}
	return g
}

func TestNewGrayImageFromGraySource(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 2))
	src.Pix = []uint8{10, 20, 30, 40, 50, 60}

	g := newGrayImage(src)
	assert.Equal(t, 3, g.w)
	assert.Equal(t, 2, g.h)
	assert.Equal(t, uint8(60), g.at(2, 1))
}

func TestOrientUprightIsNoop(t *testing.T) {
	g := grayFromRows([][]uint8{{1, 2}, {3, 4}})
	assert.Equal(t, g, g.orient(1))
	assert.Equal(t, g, g.orient(0))
}

func TestOrientRotate180(t *testing.T) {
	g := grayFromRows([][]uint8{
		{1, 2},
		{3, 4},
	})

	out := g.orient(3)
	assert.Equal(t, []uint8{4, 3, 2, 1}, out.pix)
}

func TestOrientRotate90CW(t *testing.T) {
	// 3x2 source rotated 90 CW becomes 2x3 with the left column on top.
	g := grayFromRows([][]uint8{
		{1, 2, 3},
		{4, 5, 6},
	})

	out := g.orient(6)
	assert.Equal(t, 2, out.w)
	assert.Equal(t, 3, out.h)
	assert.Equal(t, []uint8{4, 1, 5, 2, 6, 3}, out.pix)
}

func TestOrientMirrorHorizontal(t *testing.T) {
	g := grayFromRows([][]uint8{
		{1, 2, 3},
	})

	out := g.orient(2)
	assert.Equal(t, []uint8{3, 2, 1}, out.pix)
}

func TestDownscaleBoxAverage(t *testing.T) {
	g := grayFromRows([][]uint8{
		{0, 0, 100, 100},
		{0, 0, 100, 100},
		{200, 200, 50, 50},
		{200, 200, 50, 50},
	})

	out := g.downscale(2, 2)
	assert.Equal(t, []uint8{0, 100, 200, 50}, out.pix)
}

func TestAverageHashIsDeterministic(t *testing.T) {
	g := grayFromRows([][]uint8{
		{0, 255, 0, 255, 0, 255, 0, 255},
		{255, 0, 255, 0, 255, 0, 255, 0},
		{0, 255, 0, 255, 0, 255, 0, 255},
		{255, 0, 255, 0, 255, 0, 255, 0},
		{0, 255, 0, 255, 0, 255, 0, 255},
		{255, 0, 255, 0, 255, 0, 255, 0},
		{0, 255, 0, 255, 0, 255, 0, 255},
		{255, 0, 255, 0, 255, 0, 255, 0},
	})

	first := averageHashHex(g)
	require.Len(t, first, 16)
	assert.Equal(t, first, averageHashHex(g))
}

func TestAverageHashStableUnderReencoding(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				src.SetGray(x, y, color.Gray{Y: 230})
			} else {
				src.SetGray(x, y, color.Gray{Y: 20})
			}
		}
	}

	var first bytes.Buffer
	require.NoError(t, png.Encode(&first, src))
	decoded, _, err := image.Decode(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)
	original := averageHashHex(newGrayImage(decoded))

	// A lossless decode/encode round trip must not move the hash at all.
	var second bytes.Buffer
	require.NoError(t, png.Encode(&second, decoded))
	redecoded, _, err := image.Decode(bytes.NewReader(second.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, original, averageHashHex(newGrayImage(redecoded)))
}

func TestAverageHashSplitImage(t *testing.T) {
	// Top half dark, bottom half bright: the bright rows set their bits.
	rows := make([][]uint8, 8)
	for y := range rows {
		rows[y] = make([]uint8, 8)
		if y >= 4 {
			for x := range rows[y] {
				rows[y][x] = 255
			}
		}
	}

	assert.Equal(t, "00000000ffffffff", averageHashHex(grayFromRows(rows)))
}

func TestAverageHashEmptyImage(t *testing.T) {
	assert.Empty(t, averageHashHex(&grayImage{}))
}

func TestLaplacianVarianceFlatImageIsZero(t *testing.T) {
	rows := make([][]uint8, 10)
	for y := range rows {
		rows[y] = make([]uint8, 10)
		for x := range rows[y] {
			rows[y][x] = 128
		}
	}

	assert.Zero(t, laplacianVariance(grayFromRows(rows)))
}

func TestLaplacianVarianceCheckerboardIsSharp(t *testing.T) {
	rows := make([][]uint8, 16)
	for y := range rows {
		rows[y] = make([]uint8, 16)
		for x := range rows[y] {
			if (x+y)%2 == 0 {
				rows[y][x] = 255
			}
		}
	}

	assert.Greater(t, laplacianVariance(grayFromRows(rows)), blurThreshold)
}

func TestCountStickersByZones(t *testing.T) {
	// 10x10 white page, ink in the top-left quadrant only.
	rows := make([][]uint8, 10)
	for y := range rows {
		rows[y] = make([]uint8, 10)
		for x := range rows[y] {
			rows[y][x] = 255
			if x < 5 && y < 5 {
				rows[y][x] = 0
			}
		}
	}
	g := grayFromRows(rows)

	zones := []ValidationZone{
		{X: 0, Y: 0, W: 0.5, H: 0.5},     // fully inked
		{X: 0.5, Y: 0.5, W: 0.5, H: 0.5}, // blank
	}

	stickers, coverage := countStickersByZones(g, zones)
	assert.Equal(t, 1, stickers)
	require.Len(t, coverage, 2)
	assert.InDelta(t, 1.0, coverage[0], 0.01)
	assert.Zero(t, coverage[1])
}

func TestCountStickersByZonesDegenerateZone(t *testing.T) {
	g := grayFromRows([][]uint8{{0, 0}, {0, 0}})

	stickers, coverage := countStickersByZones(g, []ValidationZone{{X: 0.9, Y: 0.9, W: 0, H: 0}})
	assert.Zero(t, stickers)
	require.Len(t, coverage, 1)
	assert.Zero(t, coverage[0])
}

func TestCountStickersNoZones(t *testing.T) {
	stickers, coverage := countStickersByZones(&grayImage{pix: []uint8{0}, w: 1, h: 1}, nil)
	assert.Zero(t, stickers)
	assert.Nil(t, coverage)
}
