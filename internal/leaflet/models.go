package leaflet

import "time"

// Status is the acceptance decision for a submitted leaflet photo
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusIncomplete Status = "incomplete"
	StatusDuplicate  Status = "duplicate"
	StatusRejected   Status = "rejected"
)

// Validation note tags, persisted alongside the submission
const (
	NoteLowResolution       = "low_resolution"
	NoteBlurry              = "blurry"
	NoteOrientationSuspect  = "orientation_suspect"
	NoteDuplicatePhoto      = "duplicate_photo"
	NoteExifDatetimeMissing = "exif_datetime_missing"
	NoteAnalyzeError        = "analyze_error"
)

// ValidationZone is a rectangle in relative coordinates (fractions of image
// width and height, each in [0,1]) where a promotional sticker must appear.
type ValidationZone struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Template describes what a valid leaflet for the current campaign looks
// like: how many stickers it needs and where they are expected.
type Template struct {
	ID                int64            `json:"id" db:"id"`
	Name              string           `json:"name" db:"name"`
	RequiredStickers  int              `json:"required_stickers" db:"required_stickers"`
	TemplateImagePath string           `json:"template_image_path" db:"template_image_path"`
	ActiveFrom        *time.Time       `json:"active_from,omitempty" db:"active_from"`
	ActiveUntil       *time.Time       `json:"active_until,omitempty" db:"active_until"`
	Zones             []ValidationZone `json:"validation_zones" db:"validation_zones"`
}

// Analysis is everything Analyze extracts from a photo. All fields are
// computed fresh per call; the analyzer keeps no state between calls.
type Analysis struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	BlurScore float64 `json:"blur_score"`
	IsBlurry  bool    `json:"is_blurry"`

	ExifHasDatetime bool `json:"exif_has_datetime"`
	OrientationOK   bool `json:"orientation_ok"`

	PhotoPHash        string `json:"photo_phash"`
	SimilarPHashCount int    `json:"similar_phash_count"`

	RequiredStickers int       `json:"required_stickers"`
	StickersCount    int       `json:"stickers_count"`
	ZonesCoverage    []float64 `json:"zones_coverage"`

	Status               Status   `json:"leaflet_status"`
	ValidationNotes      []string `json:"validation_notes"`
	ManualReviewRequired bool     `json:"manual_review_required"`
}
