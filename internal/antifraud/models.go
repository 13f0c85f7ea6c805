package antifraud

// RiskLevel categorizes a risk score into an admin-facing tier
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Check name tags, kept stable because they are persisted in risk_details
const (
	CheckDeviceFingerprint = "device_fingerprint"
	CheckPhoneValidation   = "phone_validation"
	CheckLoyaltyCardUnique = "loyalty_card_unique"
	CheckLoyaltyCardFormat = "loyalty_card_format"
	CheckPhotoHash         = "photo_hash"
	CheckBehaviorAnalysis  = "behavior_analysis"
	CheckVelocity          = "velocity"
	CheckGeoLocation       = "geolocation"
)

// Participant is the immutable snapshot of a submission being scored.
// The scorer never looks anything up from it beyond the fields below.
type Participant struct {
	Name              string `json:"name"`
	PhoneNumber       string `json:"phone_number"`
	Username          string `json:"username"`
	AccountID         int64  `json:"account_id"`
	LoyaltyCardNumber string `json:"loyalty_card_number"`
	PhotoHash         string `json:"photo_hash"`
}

// ScoringContext carries the facts the storage layer computed for this
// submission. The scorer itself never queries storage.
type ScoringContext struct {
	// IsAccountUnique reports whether the account ID is unique among stored
	// submissions. Nil means unknown, which the scorer treats as unique.
	IsAccountUnique *bool `json:"is_account_unique"`

	// DuplicatePhotoCount is the number of other stored submissions sharing
	// the same photo content hash.
	DuplicatePhotoCount int `json:"duplicate_photo_count"`

	// RecentRegistrations60s is the system-wide submission count in the
	// preceding 60 seconds.
	RecentRegistrations60s int `json:"recent_registrations_60s"`
}

// CheckResult is the outcome of a single fraud check. Impact is added to the
// risk score only when Passed is false.
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Impact  int    `json:"impact"`
	Message string `json:"message"`
}

// RiskOutcome is the scorer's result: a bounded score, its tier, and the
// ordered per-check breakdown (insertion order = evaluation order).
type RiskOutcome struct {
	Score   int           `json:"score"`
	Level   RiskLevel     `json:"level"`
	Details []CheckResult `json:"details"`
}

// LevelForScore maps a clamped score to its tier. Pure function of the score.
func LevelForScore(score int) RiskLevel {
	switch {
	case score <= 30:
		return RiskLevelLow
	case score <= 70:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}
