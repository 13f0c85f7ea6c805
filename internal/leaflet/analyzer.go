package leaflet

import (
	"bytes"
	"context"
	"fmt"
	"image"

	// Decoders register themselves; the analyzer only ever calls image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/richxcame/giveaway/pkg/logger"
	"go.uber.org/zap"
)

const (
	// Minimum acceptable photo resolution.
	minWidth  = 1024
	minHeight = 768

	// similarPHashDistance is the Hamming threshold for the near-duplicate
	// lookup at analysis time.
	similarPHashDistance = 5
)

// SimilarCountFunc counts stored submissions whose perceptual hash is within
// maxDistance bits of the given one.
type SimilarCountFunc func(ctx context.Context, phash string, maxDistance int) (int, error)

// TemplateFunc returns the currently active validation template, or nil when
// none is configured (marker counting is then skipped entirely).
type TemplateFunc func(ctx context.Context) (*Template, error)

// Analyzer decides whether a submitted leaflet photo is acceptable and
// extracts the features used for duplicate detection and review triage.
// Stateless per call; safe for concurrent use.
type Analyzer struct {
	similarCount   SimilarCountFunc
	activeTemplate TemplateFunc
}

// NewAnalyzer wires the two storage collaborators in. Either may be nil, in
// which case the corresponding step defaults to the lenient outcome.
func NewAnalyzer(similarCount SimilarCountFunc, activeTemplate TemplateFunc) *Analyzer {
	return &Analyzer{similarCount: similarCount, activeTemplate: activeTemplate}
}

// Analyze runs the full validation pipeline over raw photo bytes. It never
// fails past this boundary: an undecodable image produces a degraded result
// flagged for manual review, because this sits on the registration hot path.
func (a *Analyzer) Analyze(ctx context.Context, photo []byte) *Analysis {
	img, _, err := image.Decode(bytes.NewReader(photo))
	if err != nil {
		logger.Error("leaflet analysis failed", zap.Error(err))
		return &Analysis{
			OrientationOK:        true,
			Status:               StatusPending,
			ValidationNotes:      []string{NoteAnalyzeError},
			ManualReviewRequired: true,
		}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	meta := readExifMeta(photo)
	gray := newGrayImage(img).orient(meta.orientation)

	blur := laplacianVariance(gray)
	isBlurry := blur < blurThreshold

	phash := averageHashHex(gray)
	similarCount := 0
	if phash != "" && a.similarCount != nil {
		if cnt, err := a.similarCount(ctx, phash, similarPHashDistance); err != nil {
			logger.Warn("similar phash lookup failed, assuming none", zap.Error(err))
		} else {
			similarCount = cnt
		}
	}

	tpl := a.fetchTemplate(ctx)
	requiredStickers := 0
	if tpl != nil {
		requiredStickers = tpl.RequiredStickers
	}

	stickersCount := 0
	var coverage []float64
	if requiredStickers > 0 {
		stickersCount, coverage = countStickersByZones(gray, tpl.Zones)
	}

	// Status decision. Each condition overwrites the running status, so a
	// later duplicate verdict wins over an earlier rejection; insufficient
	// stickers only downgrade a still-approved photo.
	var notes []string
	status := StatusApproved
	manualReview := false

	if width < minWidth || height < minHeight {
		status = StatusRejected
		notes = append(notes, NoteLowResolution)
	}
	if isBlurry {
		status = StatusRejected
		notes = append(notes, NoteBlurry)
	}
	if !meta.orientationOK() {
		notes = append(notes, NoteOrientationSuspect)
		manualReview = true
	}
	if similarCount > 0 {
		status = StatusDuplicate
		notes = append(notes, NoteDuplicatePhoto)
	}
	if requiredStickers > 0 && stickersCount < requiredStickers {
		if status == StatusApproved {
			status = StatusIncomplete
		}
		notes = append(notes, fmt.Sprintf("stickers_%d_of_%d", stickersCount, requiredStickers))
		manualReview = true
	}
	if !meta.hasDatetime {
		notes = append(notes, NoteExifDatetimeMissing)
		manualReview = true
	}

	return &Analysis{
		Width:                width,
		Height:               height,
		BlurScore:            blur,
		IsBlurry:             isBlurry,
		ExifHasDatetime:      meta.hasDatetime,
		OrientationOK:        meta.orientationOK(),
		PhotoPHash:           phash,
		SimilarPHashCount:    similarCount,
		RequiredStickers:     requiredStickers,
		StickersCount:        stickersCount,
		ZonesCoverage:        coverage,
		Status:               status,
		ValidationNotes:      notes,
		ManualReviewRequired: manualReview,
	}
}

// fetchTemplate returns the active template or nil. A fetch error is the
// lenient outcome: no template, no marker requirement, logged only.
func (a *Analyzer) fetchTemplate(ctx context.Context) *Template {
	if a.activeTemplate == nil {
		return nil
	}
	tpl, err := a.activeTemplate(ctx)
	if err != nil {
		logger.Warn("active template fetch failed, skipping sticker validation", zap.Error(err))
		return nil
	}
	return tpl
}
