package applications

import (
	"time"

	"github.com/richxcame/giveaway/internal/antifraud"
	"github.com/richxcame/giveaway/internal/leaflet"
)

// ApplicationStatus is the admin review decision for a submission
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusApproved ApplicationStatus = "approved"
	StatusBlocked  ApplicationStatus = "blocked"
)

// firstParticipantNumber is where participant numbering starts when a
// submission is approved.
const firstParticipantNumber = 1001

// Application is one stored contest submission.
type Application struct {
	ID                int64  `json:"id" db:"id"`
	Name              string `json:"name" db:"name"`
	PhoneNumber       string `json:"phone_number" db:"phone_number"`
	Username          string `json:"username" db:"username"`
	AccountID         int64  `json:"account_id" db:"account_id"`
	LoyaltyCardNumber string `json:"loyalty_card_number" db:"loyalty_card_number"`
	CampaignType      string `json:"campaign_type" db:"campaign_type"`

	PhotoPath  string `json:"photo_path" db:"photo_path"`
	PhotoHash  string `json:"photo_hash" db:"photo_hash"`
	PhotoPHash string `json:"photo_phash" db:"photo_phash"`

	RiskScore   int                     `json:"risk_score" db:"risk_score"`
	RiskLevel   antifraud.RiskLevel     `json:"risk_level" db:"risk_level"`
	RiskDetails []antifraud.CheckResult `json:"risk_details" db:"risk_details"`

	Status            ApplicationStatus `json:"status" db:"status"`
	ParticipantNumber *int              `json:"participant_number,omitempty" db:"participant_number"`

	LeafletStatus        leaflet.Status `json:"leaflet_status" db:"leaflet_status"`
	StickersCount        int            `json:"stickers_count" db:"stickers_count"`
	ValidationNotes      []string       `json:"validation_notes" db:"validation_notes"`
	ManualReviewRequired bool           `json:"manual_review_required" db:"manual_review_required"`

	IsWinner    bool      `json:"is_winner" db:"is_winner"`
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
}

// ClusterEntry converts the application to the slice duplicate clustering
// operates on.
func (a *Application) ClusterEntry() antifraud.ClusterEntry {
	return antifraud.ClusterEntry{
		ID:                a.ID,
		PhoneNumber:       a.PhoneNumber,
		LoyaltyCardNumber: a.LoyaltyCardNumber,
		PhotoPHash:        a.PhotoPHash,
	}
}

// RegisterRequest carries a new submission from the chat layer.
type RegisterRequest struct {
	Name              string `form:"name" binding:"required"`
	PhoneNumber       string `form:"phone_number" binding:"required"`
	Username          string `form:"username"`
	AccountID         int64  `form:"account_id" binding:"required"`
	LoyaltyCardNumber string `form:"loyalty_card_number"`
	CampaignType      string `form:"campaign_type"`
	Photo             []byte `form:"-"`
}

// AdminCreateRequest registers a participant from the console, outside the
// normal submission flow. No photo is attached, so the entry is always
// flagged for manual review.
type AdminCreateRequest struct {
	Name              string `json:"name" binding:"required"`
	PhoneNumber       string `json:"phone_number" binding:"required"`
	Username          string `json:"username"`
	AccountID         int64  `json:"account_id" binding:"required"`
	LoyaltyCardNumber string `json:"loyalty_card_number"`
	CampaignType      string `json:"campaign_type"`
}

// UpdateRequest fixes participant-entered fields after submission. Empty
// fields keep their stored value.
type UpdateRequest struct {
	Name              string `json:"name"`
	PhoneNumber       string `json:"phone_number"`
	Username          string `json:"username"`
	LoyaltyCardNumber string `json:"loyalty_card_number"`
}

// RegisterResult is what a successful registration returns to the caller.
type RegisterResult struct {
	Application *Application      `json:"application"`
	Risk        *RiskSummary      `json:"risk"`
	Leaflet     *leaflet.Analysis `json:"leaflet"`
}

// RiskSummary is the persisted scoring outcome.
type RiskSummary struct {
	Score   int                     `json:"score"`
	Level   antifraud.RiskLevel     `json:"level"`
	Details []antifraud.CheckResult `json:"details"`
}

// ListFilter narrows the paginated application listing.
type ListFilter struct {
	Risk   string // low, medium, high
	Status string // pending, approved, blocked
	Limit  int
	Offset int
}

// Stats summarizes submissions for the admin dashboard.
type Stats struct {
	Total          int64 `json:"total_applications"`
	Today          int64 `json:"today"`
	ThisWeek       int64 `json:"this_week"`
	ThisMonth      int64 `json:"this_month"`
	WinnerSelected bool  `json:"winner_selected"`
}
