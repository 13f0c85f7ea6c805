package applications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/giveaway/internal/antifraud"
	"github.com/richxcame/giveaway/internal/leaflet"
	"github.com/richxcame/giveaway/pkg/logger"
	"go.uber.org/zap"
)

// ErrNotFound is returned when an application does not exist
var ErrNotFound = errors.New("application not found")

// Repository handles application data operations
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var _ ApplicationRepository = (*Repository)(nil)

// NewRepository creates a new application repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const applicationColumns = `
	id, name, phone_number, username, account_id, loyalty_card_number,
	campaign_type, photo_path, photo_hash, photo_phash,
	risk_score, risk_level, risk_details, status, participant_number,
	leaflet_status, stickers_count, validation_notes, manual_review_required,
	is_winner, submitted_at
`

// Create inserts a new application and returns its ID
func (r *Repository) Create(ctx context.Context, app *Application) (int64, error) {
	detailsJSON, err := json.Marshal(app.RiskDetails)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO applications (
			name, phone_number, username, account_id, loyalty_card_number,
			campaign_type, photo_path, photo_hash, photo_phash,
			risk_score, risk_level, risk_details, status, participant_number,
			leaflet_status, stickers_count, validation_notes, manual_review_required,
			is_winner, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRow(ctx, query,
		app.Name,
		app.PhoneNumber,
		app.Username,
		app.AccountID,
		app.LoyaltyCardNumber,
		app.CampaignType,
		app.PhotoPath,
		app.PhotoHash,
		app.PhotoPHash,
		app.RiskScore,
		app.RiskLevel,
		detailsJSON,
		app.Status,
		app.ParticipantNumber,
		app.LeafletStatus,
		app.StickersCount,
		app.ValidationNotes,
		app.ManualReviewRequired,
		app.IsWinner,
		app.SubmittedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func scanApplication(row pgx.Row) (*Application, error) {
	var app Application
	var detailsJSON []byte

	err := row.Scan(
		&app.ID,
		&app.Name,
		&app.PhoneNumber,
		&app.Username,
		&app.AccountID,
		&app.LoyaltyCardNumber,
		&app.CampaignType,
		&app.PhotoPath,
		&app.PhotoHash,
		&app.PhotoPHash,
		&app.RiskScore,
		&app.RiskLevel,
		&detailsJSON,
		&app.Status,
		&app.ParticipantNumber,
		&app.LeafletStatus,
		&app.StickersCount,
		&app.ValidationNotes,
		&app.ManualReviewRequired,
		&app.IsWinner,
		&app.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &app.RiskDetails); err != nil {
			app.RiskDetails = nil
		}
	}

	return &app, nil
}

// GetByID retrieves an application by ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return scanApplication(r.db.QueryRow(ctx, query, id))
}

// GetByAccountID retrieves an application by the submitter's account ID
func (r *Repository) GetByAccountID(ctx context.Context, accountID int64) (*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE account_id = $1`
	return scanApplication(r.db.QueryRow(ctx, query, accountID))
}

// Exists reports whether a submission with the account ID or phone number is
// already stored
func (r *Repository) Exists(ctx context.Context, accountID int64, phoneNumber string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM applications WHERE account_id = $1 OR phone_number = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, accountID, phoneNumber).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Delete removes an application by ID
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of applications with optional risk/status filters,
// newest first, plus the filtered total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*Application, int64, error) {
	where := ""
	args := []interface{}{}

	addCond := func(cond string) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}

	switch filter.Status {
	case string(StatusApproved), string(StatusPending), string(StatusBlocked):
		args = append(args, filter.Status)
		addCond(fmt.Sprintf("COALESCE(status, 'pending') = $%d", len(args)))
	}

	switch filter.Risk {
	case "low":
		addCond("COALESCE(risk_score, 0) <= 30")
	case "medium":
		addCond("COALESCE(risk_score, 0) > 30 AND COALESCE(risk_score, 0) <= 70")
	case "high":
		addCond("COALESCE(risk_score, 0) > 70")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM applications` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + applicationColumns + ` FROM applications` + where +
		fmt.Sprintf(" ORDER BY submitted_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	apps := make([]*Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			continue
		}
		apps = append(apps, app)
	}

	return apps, total, nil
}

// CountDuplicatePhotoHash counts other stored submissions with the same raw
// content hash. The current submission, if already stored, is excluded.
func (r *Repository) CountDuplicatePhotoHash(ctx context.Context, photoHash string) (int, error) {
	if photoHash == "" {
		return 0, nil
	}
	var cnt int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(1) FROM applications WHERE photo_hash = $1`, photoHash,
	).Scan(&cnt)
	if err != nil {
		return 0, err
	}
	return cnt, nil
}

// CountSimilarPhotoPHash counts stored submissions whose perceptual hash lies
// within maxDistance bits of the given one. Hashes are fetched and compared
// here; fine for the bounded datasets a single giveaway produces.
func (r *Repository) CountSimilarPhotoPHash(ctx context.Context, phash string, maxDistance int) (int, error) {
	if phash == "" {
		return 0, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT photo_phash FROM applications WHERE photo_phash IS NOT NULL AND photo_phash != ''`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cnt := 0
	for rows.Next() {
		var stored string
		if err := rows.Scan(&stored); err != nil {
			continue
		}
		if antifraud.HammingDistanceHex(phash, stored) <= maxDistance {
			cnt++
		}
	}
	return cnt, rows.Err()
}

// CountRecentRegistrations counts submissions in the trailing window
func (r *Repository) CountRecentRegistrations(ctx context.Context, window time.Duration) (int, error) {
	var cnt int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(1) FROM applications WHERE submitted_at >= NOW() - $1::interval`,
		window.String(),
	).Scan(&cnt)
	if err != nil {
		return 0, err
	}
	return cnt, nil
}

// LoyaltyCardExists reports whether a loyalty card number is already stored
func (r *Repository) LoyaltyCardExists(ctx context.Context, cardNumber string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE loyalty_card_number = $1)`, cardNumber,
	).Scan(&exists)
	return exists, err
}

// UpdateRisk overwrites the stored risk assessment
func (r *Repository) UpdateRisk(ctx context.Context, id int64, score int, level antifraud.RiskLevel, details []antifraud.CheckResult) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE applications SET risk_score = $2, risk_level = $3, risk_details = $4 WHERE id = $1`,
		id, score, level, detailsJSON,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLeaflet persists a refreshed photo-validation outcome over the one
// recorded at submission time.
func (r *Repository) UpdateLeaflet(ctx context.Context, id int64, analysis *leaflet.Analysis) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE applications SET
			photo_phash = $2,
			leaflet_status = $3,
			stickers_count = $4,
			validation_notes = $5,
			manual_review_required = $6
		WHERE id = $1`,
		id, analysis.PhotoPHash, analysis.Status, analysis.StickersCount,
		analysis.ValidationNotes, analysis.ManualReviewRequired)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDetails fixes participant-entered fields. Empty fields keep their
// stored value.
func (r *Repository) UpdateDetails(ctx context.Context, id int64, req *UpdateRequest) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE applications SET
			name = COALESCE(NULLIF($2, ''), name),
			phone_number = COALESCE(NULLIF($3, ''), phone_number),
			username = COALESCE(NULLIF($4, ''), username),
			loyalty_card_number = COALESCE(NULLIF($5, ''), loyalty_card_number)
		WHERE id = $1`,
		id, req.Name, req.PhoneNumber, req.Username, req.LoyaltyCardNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus updates the review decision; approval assigns the next
// participant number when one isn't set yet.
func (r *Repository) SetStatus(ctx context.Context, id int64, status ApplicationStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE applications SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if status == StatusApproved {
		if _, err := r.AssignNextParticipantNumber(ctx, id); err != nil {
			// Numbering failures must not undo the approval itself.
			logger.WithContext(ctx).Error("failed to assign participant number",
				zap.Int64("application_id", id),
				zap.Error(err),
			)
			return nil
		}
	}
	return nil
}

// AssignNextParticipantNumber gives the application the next free participant
// number, starting from 1001. A no-op when the application already has one.
func (r *Repository) AssignNextParticipantNumber(ctx context.Context, id int64) (int, error) {
	query := `
		UPDATE applications
		SET participant_number = (
			SELECT COALESCE(MAX(participant_number), $2 - 1) + 1 FROM applications
		)
		WHERE id = $1 AND participant_number IS NULL
		RETURNING participant_number
	`

	var number int
	err := r.db.QueryRow(ctx, query, id, firstParticipantNumber).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil // already numbered
		}
		return 0, err
	}
	return number, nil
}

// Stats summarizes submissions for the dashboard
func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN submitted_at::date = CURRENT_DATE THEN 1 END) AS today,
			COUNT(CASE WHEN submitted_at >= date_trunc('week', NOW()) THEN 1 END) AS this_week,
			COUNT(CASE WHEN submitted_at >= date_trunc('month', NOW()) THEN 1 END) AS this_month,
			COUNT(CASE WHEN is_winner THEN 1 END) > 0 AS winner_selected
		FROM applications
	`

	var stats Stats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.Total,
		&stats.Today,
		&stats.ThisWeek,
		&stats.ThisMonth,
		&stats.WinnerSelected,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListForClustering fetches the identity slice of every submission for the
// duplicate-review clustering pass, oldest first.
func (r *Repository) ListForClustering(ctx context.Context) ([]antifraud.ClusterEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, phone_number, COALESCE(loyalty_card_number, ''), COALESCE(photo_phash, '')
		 FROM applications ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]antifraud.ClusterEntry, 0)
	for rows.Next() {
		var e antifraud.ClusterEntry
		if err := rows.Scan(&e.ID, &e.PhoneNumber, &e.LoyaltyCardNumber, &e.PhotoPHash); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
