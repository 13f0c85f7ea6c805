package lottery

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads draw pools and records winners over the applications table
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new lottery repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Eligible returns the draw pool for one campaign: approved submissions,
// ordered stably by ID so a replayed draw sees the same pool order.
func (r *Repository) Eligible(ctx context.Context, campaign string) ([]Candidate, error) {
	query := `
		SELECT id, name, COALESCE(username, ''), phone_number, participant_number
		FROM applications
		WHERE status = 'approved' AND campaign_type = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, campaign)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]Candidate, 0)
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Username, &c.PhoneNumber, &c.ParticipantNumber); err != nil {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// ResetWinners clears every winner flag before a new draw
func (r *Repository) ResetWinners(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `UPDATE applications SET is_winner = FALSE WHERE is_winner`)
	return err
}

// MarkWinner flags one application as a draw winner
func (r *Repository) MarkWinner(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE applications SET is_winner = TRUE WHERE id = $1`, id)
	return err
}

// Winners returns the currently flagged winners with their campaign
func (r *Repository) Winners(ctx context.Context) ([]Winner, error) {
	query := `
		SELECT id, name, COALESCE(username, ''), phone_number, participant_number, campaign_type
		FROM applications
		WHERE is_winner
		ORDER BY campaign_type
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	winners := make([]Winner, 0)
	for rows.Next() {
		var w Winner
		if err := rows.Scan(&w.ID, &w.Name, &w.Username, &w.PhoneNumber, &w.ParticipantNumber, &w.Campaign); err != nil {
			continue
		}
		winners = append(winners, w)
	}
	return winners, rows.Err()
}
