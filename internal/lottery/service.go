package lottery

import (
	"context"
	"fmt"
	"time"

	"github.com/richxcame/giveaway/pkg/logger"
	"go.uber.org/zap"
)

// DrawRepository defines the storage operations a draw needs.
type DrawRepository interface {
	Eligible(ctx context.Context, campaign string) ([]Candidate, error)
	ResetWinners(ctx context.Context) error
	MarkWinner(ctx context.Context, id int64) error
	Winners(ctx context.Context) ([]Winner, error)
}

// Seeder produces the draw seed. Satisfied by Randomizer.
type Seeder interface {
	Seed(ctx context.Context) string
}

// Service runs campaign draws over approved applications
type Service struct {
	repo      DrawRepository
	seeder    Seeder
	campaigns []string
	now       func() time.Time
}

// NewService creates the lottery service. campaigns is the fixed list every
// draw must cover.
func NewService(repo DrawRepository, seeder Seeder, campaigns []string) *Service {
	return &Service{
		repo:      repo,
		seeder:    seeder,
		campaigns: campaigns,
		now:       time.Now,
	}
}

// Draw picks one winner per campaign. The draw is all-or-nothing: every
// campaign must have at least one eligible entry before any winner flag is
// touched, so a half-finished contest never produces a partial result.
func (s *Service) Draw(ctx context.Context) (*DrawResult, error) {
	pools := make(map[string][]Candidate, len(s.campaigns))
	for _, campaign := range s.campaigns {
		pool, err := s.repo.Eligible(ctx, campaign)
		if err != nil {
			return nil, err
		}
		if len(pool) == 0 {
			return nil, fmt.Errorf("campaign %s has no eligible entries", campaign)
		}
		pools[campaign] = pool
	}

	if err := s.repo.ResetWinners(ctx); err != nil {
		return nil, err
	}

	seed := s.seeder.Seed(ctx)
	result := &DrawResult{
		Seed:    seed,
		DrawnAt: s.now().UTC(),
		Winners: make([]Winner, 0, len(s.campaigns)),
	}

	for _, campaign := range s.campaigns {
		pool := pools[campaign]
		number := WinnerNumber(seed, campaign, len(pool))
		winner := Winner{
			Campaign:     campaign,
			WinnerNumber: number,
			Total:        len(pool),
			Candidate:    pool[number-1],
		}

		if err := s.repo.MarkWinner(ctx, winner.ID); err != nil {
			return nil, err
		}
		result.Winners = append(result.Winners, winner)

		logger.WithContext(ctx).Info("draw winner selected",
			zap.String("campaign", campaign),
			zap.Int64("application_id", winner.ID),
			zap.Int("winner_number", number),
			zap.Int("total_eligible", winner.Total),
			zap.String("seed", seed),
		)
	}

	return result, nil
}

// Winners returns the current winners
func (s *Service) Winners(ctx context.Context) ([]Winner, error) {
	return s.repo.Winners(ctx)
}
