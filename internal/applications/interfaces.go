package applications

import (
	"context"
	"time"

	"github.com/richxcame/giveaway/internal/antifraud"
	"github.com/richxcame/giveaway/internal/leaflet"
)

// ApplicationRepository defines the storage operations the service needs.
type ApplicationRepository interface {
	Create(ctx context.Context, app *Application) (int64, error)
	GetByID(ctx context.Context, id int64) (*Application, error)
	GetByAccountID(ctx context.Context, accountID int64) (*Application, error)
	Exists(ctx context.Context, accountID int64, phoneNumber string) (bool, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]*Application, int64, error)

	CountDuplicatePhotoHash(ctx context.Context, photoHash string) (int, error)
	CountSimilarPhotoPHash(ctx context.Context, phash string, maxDistance int) (int, error)
	CountRecentRegistrations(ctx context.Context, window time.Duration) (int, error)
	LoyaltyCardExists(ctx context.Context, cardNumber string) (bool, error)

	UpdateRisk(ctx context.Context, id int64, score int, level antifraud.RiskLevel, details []antifraud.CheckResult) error
	UpdateLeaflet(ctx context.Context, id int64, analysis *leaflet.Analysis) error
	UpdateDetails(ctx context.Context, id int64, req *UpdateRequest) error
	SetStatus(ctx context.Context, id int64, status ApplicationStatus) error
	AssignNextParticipantNumber(ctx context.Context, id int64) (int, error)

	Stats(ctx context.Context) (*Stats, error)
	ListForClustering(ctx context.Context) ([]antifraud.ClusterEntry, error)
}

// RecentCounter reports system-wide registrations in the trailing window.
// Implemented over Redis; the repository count is the fallback.
type RecentCounter interface {
	Record(ctx context.Context, at time.Time) error
	Count(ctx context.Context, now time.Time) (int, error)
}
