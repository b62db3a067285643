package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecopark-admin/internal/models"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidIndex and ErrLastImage reject an image removal
	ErrInvalidIndex = errors.New("image index out of range")
	ErrLastImage    = errors.New("cannot remove the last image of a photo")
)

// Sort keys for photo listings
const (
	SortByTimestamp = "timestamp"
	SortByName      = "name"
)

// PageKey is the sort key of the last record of a page
type PageKey struct {
	Timestamp time.Time
	Name      string
	ID        string
}

// PhotoQuery selects one page of a review-flag partition
type PhotoQuery struct {
	Reviewed bool
	Category models.Category // empty for all categories
	Sort     string
	After    *PageKey
	Limit    int // 0 for no limit
}

const photoColumns = `id, name, category, uploaded_at, is_reviewed, annotation, images`

// PhotoRepository handles database operations for photos
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func scanPhoto(row pgx.Row) (*models.Photo, error) {
	var (
		photo    models.Photo
		category string
		images   []byte
	)
	err := row.Scan(
		&photo.ID, &photo.Name, &category, &photo.Timestamp,
		&photo.IsReviewed, &photo.Annotation, &images,
	)
	if err != nil {
		return nil, err
	}
	photo.Category = models.Category(category)

	if err := json.Unmarshal(images, &photo.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images of photo %s: %w", photo.ID, err)
	}
	if photo.Images == nil {
		photo.Images = []models.PhotoImage{}
	}
	return &photo, nil
}

func collectPhotos(rows pgx.Rows) ([]*models.Photo, error) {
	defer rows.Close()

	photos := []*models.Photo{}
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, photo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}
	return photos, nil
}

// GetByID retrieves a photo by ID
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`

	photo, err := scanPhoto(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("photo %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

// List returns photos of one partition in descending sort-key order, starting
// after q.After when set
func (r *PhotoRepository) List(ctx context.Context, q PhotoQuery) ([]*models.Photo, error) {
	var (
		where = []string{"is_reviewed = $1"}
		args  = []interface{}{q.Reviewed}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Category != "" {
		where = append(where, "category = "+arg(string(q.Category)))
	}

	sortColumn := "uploaded_at"
	if q.Sort == SortByName {
		sortColumn = "name"
	}

	if q.After != nil {
		var key interface{} = q.After.Timestamp
		if q.Sort == SortByName {
			key = q.After.Name
		}
		where = append(where, fmt.Sprintf("(%s, id) < (%s, %s)", sortColumn, arg(key), arg(q.After.ID)))
	}

	query := `SELECT ` + photoColumns + ` FROM photos WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(" ORDER BY %s DESC, id DESC", sortColumn)
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return collectPhotos(rows)
}

// Adjacent returns the ID of the record next to p in its partition ordered by
// timestamp descending: the newer neighbor when newer is true, else the
// older one. It returns "" at either end.
func (r *PhotoRepository) Adjacent(ctx context.Context, p *models.Photo, newer bool) (string, error) {
	query := `
		SELECT id FROM photos
		WHERE is_reviewed = $1 AND (uploaded_at, id) < ($2, $3)
		ORDER BY uploaded_at DESC, id DESC
		LIMIT 1
	`
	if newer {
		query = `
			SELECT id FROM photos
			WHERE is_reviewed = $1 AND (uploaded_at, id) > ($2, $3)
			ORDER BY uploaded_at ASC, id ASC
			LIMIT 1
		`
	}

	var id string
	err := r.db.QueryRow(ctx, query, p.IsReviewed, p.Timestamp, p.ID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find adjacent photo: %w", err)
	}
	return id, nil
}

// PartitionIDs returns every ID of a partition ordered by timestamp descending
func (r *PhotoRepository) PartitionIDs(ctx context.Context, reviewed bool) ([]string, error) {
	query := `SELECT id FROM photos WHERE is_reviewed = $1 ORDER BY uploaded_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, reviewed)
	if err != nil {
		return nil, fmt.Errorf("failed to list photo ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan photo ids: %w", err)
	}
	return ids, nil
}

// SetReviewed updates the review flag. A nil annotation leaves the stored one unchanged.
func (r *PhotoRepository) SetReviewed(ctx context.Context, id string, reviewed bool, annotation *string) error {
	query := `UPDATE photos SET is_reviewed = $2, annotation = COALESCE($3, annotation) WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, reviewed, annotation)
	if err != nil {
		return fmt.Errorf("failed to update review flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("photo %s: %w", id, ErrNotFound)
	}
	return nil
}

// RemoveImage drops the image at index from a photo's image list. It returns
// the updated photo and the URL of the removed image. The row stays locked
// between the check and the write, so concurrent removals never empty the list.
func (r *PhotoRepository) RemoveImage(ctx context.Context, id string, index int) (*models.Photo, string, error) {
	var (
		photo   *models.Photo
		removed string
	)
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		p, err := scanPhoto(tx.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("photo %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to lock photo: %w", err)
		}
		if index < 0 || index >= len(p.Images) {
			return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
		}
		if len(p.Images) == 1 {
			return ErrLastImage
		}

		removed = p.Images[index].URL
		p.Images = append(p.Images[:index:index], p.Images[index+1:]...)
		images, err := json.Marshal(p.Images)
		if err != nil {
			return fmt.Errorf("failed to encode images: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE photos SET images = $2::jsonb WHERE id = $1`, id, string(images)); err != nil {
			return fmt.Errorf("failed to remove image: %w", err)
		}
		photo = p
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return photo, removed, nil
}

// Delete deletes a photo record by ID
func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("photo %s: %w", id, ErrNotFound)
	}
	return nil
}
