package leaflet

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// checkerboard is sharp everywhere: every pixel differs from all four
// neighbors, so the Laplacian variance is enormous.
func checkerboard(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return encodePNG(t, img)
}

func flatWhite(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return encodePNG(t, img)
}

// leafletWithStickers renders a white page with a dense dark pattern inside
// each given zone: half the zone pixels are ink, so the zone clears the
// coverage threshold, and the pattern keeps the photo well above the blur
// threshold.
func leafletWithStickers(t *testing.T, w, h int, zones []ValidationZone) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for _, z := range zones {
		x0, y0 := int(z.X*float64(w)), int(z.Y*float64(h))
		x1, y1 := x0+int(z.W*float64(w)), y0+int(z.H*float64(h))
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				if (x+y)%2 == 0 {
					img.SetGray(x, y, color.Gray{Y: 0})
				}
			}
		}
	}
	return encodePNG(t, img)
}

func noSimilar(context.Context, string, int) (int, error) { return 0, nil }
func noTemplate(context.Context) (*Template, error)       { return nil, nil }

func TestAnalyzeAcceptsCleanPhoto(t *testing.T) {
	analyzer := NewAnalyzer(noSimilar, noTemplate)

	result := analyzer.Analyze(context.Background(), checkerboard(t, 1280, 800))

	assert.Equal(t, StatusApproved, result.Status)
	assert.Equal(t, 1280, result.Width)
	assert.Equal(t, 800, result.Height)
	assert.False(t, result.IsBlurry)
	assert.True(t, result.OrientationOK)
	assert.Len(t, result.PhotoPHash, 16)

	// PNG carries no EXIF datetime, which flags review but not rejection.
	assert.False(t, result.ExifHasDatetime)
	assert.True(t, result.ManualReviewRequired)
	assert.Contains(t, result.ValidationNotes, NoteExifDatetimeMissing)
}

func TestAnalyzeRejectsLowResolution(t *testing.T) {
	analyzer := NewAnalyzer(noSimilar, noTemplate)

	result := analyzer.Analyze(context.Background(), checkerboard(t, 640, 480))

	assert.Equal(t, StatusRejected, result.Status)
	assert.Contains(t, result.ValidationNotes, NoteLowResolution)
}

func TestAnalyzeRejectsBlurryPhoto(t *testing.T) {
	analyzer := NewAnalyzer(noSimilar, noTemplate)

	result := analyzer.Analyze(context.Background(), flatWhite(t, 1280, 800))

	assert.Equal(t, StatusRejected, result.Status)
	assert.True(t, result.IsBlurry)
	assert.Zero(t, result.BlurScore)
	assert.Contains(t, result.ValidationNotes, NoteBlurry)
}

func TestAnalyzeDuplicateOverridesRejection(t *testing.T) {
	analyzer := NewAnalyzer(
		func(context.Context, string, int) (int, error) { return 2, nil },
		noTemplate,
	)

	result := analyzer.Analyze(context.Background(), flatWhite(t, 1280, 800))

	assert.Equal(t, StatusDuplicate, result.Status)
	assert.Equal(t, 2, result.SimilarPHashCount)
	assert.Contains(t, result.ValidationNotes, NoteBlurry)
	assert.Contains(t, result.ValidationNotes, NoteDuplicatePhoto)
}

func TestAnalyzeCountsStickers(t *testing.T) {
	zones := []ValidationZone{
		{X: 0.1, Y: 0.1, W: 0.2, H: 0.2},
		{X: 0.6, Y: 0.6, W: 0.2, H: 0.2},
	}
	tpl := &Template{Name: "smile_500", RequiredStickers: 2, Zones: zones}
	analyzer := NewAnalyzer(noSimilar, func(context.Context) (*Template, error) { return tpl, nil })

	result := analyzer.Analyze(context.Background(), leafletWithStickers(t, 1280, 800, zones))

	assert.Equal(t, StatusApproved, result.Status)
	assert.Equal(t, 2, result.StickersCount)
	assert.Equal(t, 2, result.RequiredStickers)
	require.Len(t, result.ZonesCoverage, 2)
	assert.Greater(t, result.ZonesCoverage[0], zoneCoverageThreshold)
	assert.Greater(t, result.ZonesCoverage[1], zoneCoverageThreshold)
}

func TestAnalyzeMissingStickersMeansIncomplete(t *testing.T) {
	zones := []ValidationZone{
		{X: 0.1, Y: 0.1, W: 0.2, H: 0.2},
		{X: 0.6, Y: 0.6, W: 0.2, H: 0.2},
	}
	tpl := &Template{Name: "smile_500", RequiredStickers: 2, Zones: zones}
	analyzer := NewAnalyzer(noSimilar, func(context.Context) (*Template, error) { return tpl, nil })

	// Only the first zone carries a sticker.
	photo := leafletWithStickers(t, 1280, 800, zones[:1])
	result := analyzer.Analyze(context.Background(), photo)

	assert.Equal(t, StatusIncomplete, result.Status)
	assert.Equal(t, 1, result.StickersCount)
	assert.True(t, result.ManualReviewRequired)
	assert.Contains(t, result.ValidationNotes, "stickers_1_of_2")
}

func TestAnalyzeMissingStickersDoesNotUpgradeRejection(t *testing.T) {
	zones := []ValidationZone{{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}}
	tpl := &Template{Name: "smile_500", RequiredStickers: 1, Zones: zones}
	analyzer := NewAnalyzer(noSimilar, func(context.Context) (*Template, error) { return tpl, nil })

	// Blurry and stickerless: the rejection stands, the sticker note is
	// still recorded.
	result := analyzer.Analyze(context.Background(), flatWhite(t, 1280, 800))

	assert.Equal(t, StatusRejected, result.Status)
	assert.Contains(t, result.ValidationNotes, "stickers_0_of_1")
}

func TestAnalyzeTemplateFetchFailureSkipsStickerCheck(t *testing.T) {
	analyzer := NewAnalyzer(noSimilar, func(context.Context) (*Template, error) {
		return nil, errors.New("db down")
	})

	result := analyzer.Analyze(context.Background(), checkerboard(t, 1280, 800))

	assert.Equal(t, StatusApproved, result.Status)
	assert.Zero(t, result.RequiredStickers)
}

func TestAnalyzeSimilarLookupFailureAssumesOriginal(t *testing.T) {
	analyzer := NewAnalyzer(
		func(context.Context, string, int) (int, error) { return 0, errors.New("db down") },
		noTemplate,
	)

	result := analyzer.Analyze(context.Background(), checkerboard(t, 1280, 800))

	assert.Equal(t, StatusApproved, result.Status)
	assert.Zero(t, result.SimilarPHashCount)
}

func TestAnalyzeUndecodablePhotoDegrades(t *testing.T) {
	analyzer := NewAnalyzer(noSimilar, noTemplate)

	result := analyzer.Analyze(context.Background(), []byte("not an image"))

	assert.Equal(t, StatusPending, result.Status)
	assert.True(t, result.ManualReviewRequired)
	assert.True(t, result.OrientationOK)
	assert.Equal(t, []string{NoteAnalyzeError}, result.ValidationNotes)
	assert.Empty(t, result.PhotoPHash)
}
