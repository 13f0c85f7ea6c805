package leaflet

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTemplateNotFound is returned when no template matches
var ErrTemplateNotFound = errors.New("leaflet template not found")

// Repository handles leaflet template storage
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new leaflet template repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateTemplate stores a new validation template and returns its ID
func (r *Repository) CreateTemplate(ctx context.Context, tpl *Template) (int64, error) {
	zonesJSON, err := json.Marshal(tpl.Zones)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO leaflet_templates (
			name, required_stickers, template_image_path,
			active_from, active_until, validation_zones
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRow(ctx, query,
		tpl.Name,
		tpl.RequiredStickers,
		tpl.TemplateImagePath,
		tpl.ActiveFrom,
		tpl.ActiveUntil,
		zonesJSON,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

const templateColumns = `
	id, name, required_stickers, COALESCE(template_image_path, ''),
	active_from, active_until, validation_zones
`

func scanTemplate(row pgx.Row) (*Template, error) {
	var tpl Template
	var zonesJSON []byte

	err := row.Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.RequiredStickers,
		&tpl.TemplateImagePath,
		&tpl.ActiveFrom,
		&tpl.ActiveUntil,
		&zonesJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	if len(zonesJSON) > 0 {
		if err := json.Unmarshal(zonesJSON, &tpl.Zones); err != nil {
			tpl.Zones = nil
		}
	}
	return &tpl, nil
}

// GetTemplate retrieves one template by ID
func (r *Repository) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	query := `SELECT ` + templateColumns + ` FROM leaflet_templates WHERE id = $1`
	return scanTemplate(r.db.QueryRow(ctx, query, id))
}

// GetActiveTemplate returns the template whose date window covers now,
// falling back to the most recently created one. Nil when none exist, so
// sticker validation simply stays off until a template is configured.
func (r *Repository) GetActiveTemplate(ctx context.Context, now time.Time) (*Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM leaflet_templates
		WHERE (active_from IS NULL OR active_from <= $1)
		  AND (active_until IS NULL OR active_until >= $1)
		ORDER BY id DESC
		LIMIT 1
	`

	tpl, err := scanTemplate(r.db.QueryRow(ctx, query, now))
	if err == nil {
		return tpl, nil
	}
	if !errors.Is(err, ErrTemplateNotFound) {
		return nil, err
	}

	// No window matches; the latest template still defines the layout.
	fallback := `SELECT ` + templateColumns + ` FROM leaflet_templates ORDER BY id DESC LIMIT 1`
	tpl, err = scanTemplate(r.db.QueryRow(ctx, fallback))
	if errors.Is(err, ErrTemplateNotFound) {
		return nil, nil
	}
	return tpl, err
}

// ListTemplates returns all templates, newest first
func (r *Repository) ListTemplates(ctx context.Context) ([]*Template, error) {
	query := `SELECT ` + templateColumns + ` FROM leaflet_templates ORDER BY id DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]*Template, 0)
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			continue
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// DeleteTemplate removes a template by ID
func (r *Repository) DeleteTemplate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM leaflet_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
