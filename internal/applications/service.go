package applications

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/richxcame/giveaway/internal/antifraud"
	"github.com/richxcame/giveaway/internal/leaflet"
	"github.com/richxcame/giveaway/pkg/logger"
	"github.com/richxcame/giveaway/pkg/security"
	"github.com/richxcame/giveaway/pkg/storage"
	"go.uber.org/zap"
)

// maxNameLength caps free-text fields before they reach the scorer and the
// database.
const maxNameLength = 128

var (
	// ErrAlreadyRegistered is returned when the account or phone number
	// already has a stored submission
	ErrAlreadyRegistered = errors.New("participant already registered")

	// ErrPhotoRequired is returned when a registration carries no photo
	ErrPhotoRequired = errors.New("leaflet photo is required")

	// ErrNoStoredPhoto is returned when an operation needs the stored
	// leaflet photo but the application has none
	ErrNoStoredPhoto = errors.New("application has no stored photo")
)

// noteManualEntry marks applications created from the admin console, which
// carry no photo to validate.
const noteManualEntry = "manual_entry"

// Service coordinates registration: persistence, photo analysis, risk
// scoring, and the admin review operations.
type Service struct {
	repo     ApplicationRepository
	scorer   *antifraud.Scorer
	analyzer *leaflet.Analyzer
	store    storage.Storage
	velocity RecentCounter
	now      func() time.Time
}

// NewService creates the application service. velocity may be nil, in which
// case the repository's submission timestamps back the rate check.
func NewService(repo ApplicationRepository, scorer *antifraud.Scorer, analyzer *leaflet.Analyzer, store storage.Storage, velocity RecentCounter) *Service {
	return &Service{
		repo:     repo,
		scorer:   scorer,
		analyzer: analyzer,
		store:    store,
		velocity: velocity,
		now:      time.Now,
	}
}

// Register processes one new submission end to end. The photo is analyzed
// and the participant scored before anything is persisted, so a storage
// failure never leaves a half-scored row behind.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*RegisterResult, error) {
	log := logger.WithContext(ctx)

	if len(req.Photo) == 0 {
		return nil, ErrPhotoRequired
	}

	req.Name = security.SanitizeInput(req.Name, maxNameLength)
	req.Username = security.SanitizeInput(req.Username, maxNameLength)

	exists, err := s.repo.Exists(ctx, req.AccountID, req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyRegistered
	}

	sum := sha256.Sum256(req.Photo)
	photoHash := hex.EncodeToString(sum[:])

	analysis := s.analyzer.Analyze(ctx, req.Photo)

	now := s.now()
	key := storage.PhotoKey(req.AccountID, now)
	photoPath, err := s.store.Save(ctx, key, req.Photo, "image/jpeg")
	if err != nil {
		log.Error("failed to store leaflet photo", zap.Error(err))
		return nil, err
	}

	participant := antifraud.Participant{
		Name:              req.Name,
		PhoneNumber:       req.PhoneNumber,
		Username:          req.Username,
		AccountID:         req.AccountID,
		LoyaltyCardNumber: req.LoyaltyCardNumber,
		PhotoHash:         photoHash,
	}

	sc, err := s.buildScoringContext(ctx, photoHash, now)
	if err != nil {
		log.Warn("scoring context incomplete", zap.Error(err))
	}

	outcome := s.scorer.Score(ctx, participant, sc)

	app := &Application{
		Name:                 req.Name,
		PhoneNumber:          req.PhoneNumber,
		Username:             req.Username,
		AccountID:            req.AccountID,
		LoyaltyCardNumber:    req.LoyaltyCardNumber,
		CampaignType:         req.CampaignType,
		PhotoPath:            photoPath,
		PhotoHash:            photoHash,
		PhotoPHash:           analysis.PhotoPHash,
		RiskScore:            outcome.Score,
		RiskLevel:            outcome.Level,
		RiskDetails:          outcome.Details,
		Status:               StatusPending,
		LeafletStatus:        analysis.Status,
		StickersCount:        analysis.StickersCount,
		ValidationNotes:      analysis.ValidationNotes,
		ManualReviewRequired: analysis.ManualReviewRequired,
		SubmittedAt:          now,
	}

	id, err := s.repo.Create(ctx, app)
	if err != nil {
		return nil, err
	}
	app.ID = id

	if s.velocity != nil {
		if err := s.velocity.Record(ctx, now); err != nil {
			log.Warn("failed to record registration velocity", zap.Error(err))
		}
	}

	log.Info("application registered",
		zap.Int64("application_id", id),
		zap.Int64("account_id", req.AccountID),
		zap.Int("risk_score", outcome.Score),
		zap.String("risk_level", string(outcome.Level)),
		zap.String("leaflet_status", string(analysis.Status)),
	)

	return &RegisterResult{
		Application: app,
		Risk: &RiskSummary{
			Score:   outcome.Score,
			Level:   outcome.Level,
			Details: outcome.Details,
		},
		Leaflet: analysis,
	}, nil
}

// buildScoringContext gathers the storage-derived facts the scorer consumes.
// Lookups that fail leave their field at the lenient zero value.
func (s *Service) buildScoringContext(ctx context.Context, photoHash string, now time.Time) (antifraud.ScoringContext, error) {
	var sc antifraud.ScoringContext
	var firstErr error

	dupes, err := s.repo.CountDuplicatePhotoHash(ctx, photoHash)
	if err != nil {
		firstErr = err
	} else {
		sc.DuplicatePhotoCount = dupes
	}

	recent, err := s.countRecent(ctx, now)
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
	} else {
		sc.RecentRegistrations60s = recent
	}

	unique := true
	sc.IsAccountUnique = &unique

	return sc, firstErr
}

func (s *Service) countRecent(ctx context.Context, now time.Time) (int, error) {
	if s.velocity != nil {
		n, err := s.velocity.Count(ctx, now)
		if err == nil {
			return n, nil
		}
		logger.WithContext(ctx).Warn("velocity counter unavailable, falling back to repository", zap.Error(err))
	}
	return s.repo.CountRecentRegistrations(ctx, velocityWindow)
}

// RecomputeRisk re-runs fraud scoring against the current stored state and
// persists the new outcome. Used after admin edits or rule changes.
func (s *Service) RecomputeRisk(ctx context.Context, id int64) (*RiskSummary, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	participant := antifraud.Participant{
		Name:              app.Name,
		PhoneNumber:       app.PhoneNumber,
		Username:          app.Username,
		AccountID:         app.AccountID,
		LoyaltyCardNumber: app.LoyaltyCardNumber,
		PhotoHash:         app.PhotoHash,
	}

	var sc antifraud.ScoringContext
	unique := true
	sc.IsAccountUnique = &unique
	if app.PhotoHash != "" {
		// Count-1 because the application itself is already stored.
		if n, err := s.repo.CountDuplicatePhotoHash(ctx, app.PhotoHash); err == nil && n > 1 {
			sc.DuplicatePhotoCount = n - 1
		}
	}

	outcome := s.scorer.Score(ctx, participant, sc)
	if err := s.repo.UpdateRisk(ctx, id, outcome.Score, outcome.Level, outcome.Details); err != nil {
		return nil, err
	}

	return &RiskSummary{Score: outcome.Score, Level: outcome.Level, Details: outcome.Details}, nil
}

// Photo returns the stored leaflet photo bytes for manual review.
func (s *Service) Photo(ctx context.Context, id int64) ([]byte, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.PhotoPath == "" {
		return nil, ErrNoStoredPhoto
	}
	return s.store.Read(ctx, app.PhotoPath)
}

// ReanalyzeLeaflet re-runs photo validation against the stored photo and
// persists the refreshed outcome. Used after the active template changes.
func (s *Service) ReanalyzeLeaflet(ctx context.Context, id int64) (*Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.PhotoPath == "" {
		return nil, ErrNoStoredPhoto
	}

	photo, err := s.store.Read(ctx, app.PhotoPath)
	if err != nil {
		return nil, err
	}

	analysis := s.analyzer.Analyze(ctx, photo)
	if err := s.repo.UpdateLeaflet(ctx, id, analysis); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("leaflet reanalyzed",
		zap.Int64("application_id", id),
		zap.String("leaflet_status", string(analysis.Status)),
		zap.Int("stickers_count", analysis.StickersCount),
	)
	return s.repo.GetByID(ctx, id)
}

// AdminCreate registers a participant from the console, without a photo.
// The entry is scored like any other and left pending manual review.
func (s *Service) AdminCreate(ctx context.Context, req *AdminCreateRequest) (*Application, error) {
	req.Name = security.SanitizeInput(req.Name, maxNameLength)
	req.Username = security.SanitizeInput(req.Username, maxNameLength)

	exists, err := s.repo.Exists(ctx, req.AccountID, req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyRegistered
	}

	participant := antifraud.Participant{
		Name:              req.Name,
		PhoneNumber:       req.PhoneNumber,
		Username:          req.Username,
		AccountID:         req.AccountID,
		LoyaltyCardNumber: req.LoyaltyCardNumber,
	}
	var sc antifraud.ScoringContext
	unique := true
	sc.IsAccountUnique = &unique
	outcome := s.scorer.Score(ctx, participant, sc)

	app := &Application{
		Name:                 req.Name,
		PhoneNumber:          req.PhoneNumber,
		Username:             req.Username,
		AccountID:            req.AccountID,
		LoyaltyCardNumber:    req.LoyaltyCardNumber,
		CampaignType:         req.CampaignType,
		RiskScore:            outcome.Score,
		RiskLevel:            outcome.Level,
		RiskDetails:          outcome.Details,
		Status:               StatusPending,
		LeafletStatus:        leaflet.StatusPending,
		ValidationNotes:      []string{noteManualEntry},
		ManualReviewRequired: true,
		SubmittedAt:          s.now(),
	}

	id, err := s.repo.Create(ctx, app)
	if err != nil {
		return nil, err
	}
	app.ID = id

	logger.WithContext(ctx).Info("application created manually",
		zap.Int64("application_id", id),
		zap.Int64("account_id", req.AccountID),
	)
	return app, nil
}

// Update fixes participant details and returns the refreshed application.
// Risk is not recomputed automatically; the console triggers that separately.
func (s *Service) Update(ctx context.Context, id int64, req *UpdateRequest) (*Application, error) {
	req.Name = security.SanitizeInput(req.Name, maxNameLength)
	req.Username = security.SanitizeInput(req.Username, maxNameLength)

	if err := s.repo.UpdateDetails(ctx, id, req); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("application details updated",
		zap.Int64("application_id", id),
	)
	return s.repo.GetByID(ctx, id)
}

// Get returns one application by ID
func (s *Service) Get(ctx context.Context, id int64) (*Application, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns one filtered page of applications and the filtered total
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Application, int64, error) {
	return s.repo.List(ctx, filter)
}

// Approve marks an application approved; the repository assigns the next
// participant number as part of the same call.
func (s *Service) Approve(ctx context.Context, id int64) (*Application, error) {
	return s.setStatus(ctx, id, StatusApproved)
}

// Block marks an application blocked, excluding it from any draw
func (s *Service) Block(ctx context.Context, id int64) (*Application, error) {
	return s.setStatus(ctx, id, StatusBlocked)
}

func (s *Service) setStatus(ctx context.Context, id int64, status ApplicationStatus) (*Application, error) {
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}

	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("application status changed",
		zap.Int64("application_id", id),
		zap.String("status", string(status)),
	)
	return app, nil
}

// Delete removes an application and its stored photo
func (s *Service) Delete(ctx context.Context, id int64) error {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if app.PhotoPath != "" {
		if err := s.store.Delete(ctx, app.PhotoPath); err != nil {
			logger.WithContext(ctx).Warn("failed to delete stored photo",
				zap.Int64("application_id", id),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Stats summarizes submissions for the admin dashboard
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

// Clusters groups stored submissions that share a phone number, loyalty card,
// or near-identical photo, for manual duplicate review.
func (s *Service) Clusters(ctx context.Context) ([][]antifraud.ClusterEntry, error) {
	entries, err := s.repo.ListForClustering(ctx)
	if err != nil {
		return nil, err
	}
	return antifraud.GroupSimilar(entries), nil
}
