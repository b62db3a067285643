package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ecopark-admin/internal/export"
	"ecopark-admin/internal/metrics"
	"ecopark-admin/internal/models"
	"ecopark-admin/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const enrichLimit = 4

// Summarizer returns a one-sentence description for a title. It never fails;
// callers get the title back when nothing better is known.
type Summarizer interface {
	Summary(ctx context.Context, title string) string
}

// ExportService builds spreadsheets of reviewed photos
type ExportService struct {
	photos PhotoStore
	wiki   Summarizer
	dir    string
	create func(name string) (io.WriteCloser, error)
}

// NewExportService creates a new export service writing batches under dir
func NewExportService(photos PhotoStore, wiki Summarizer, dir string) *ExportService {
	return &ExportService{
		photos: photos,
		wiki:   wiki,
		dir:    dir,
		create: func(name string) (io.WriteCloser, error) { return os.Create(name) },
	}
}

// ExportFile describes one written spreadsheet
type ExportFile struct {
	Category models.Category `json:"category"`
	Label    string          `json:"label"`
	FileName string          `json:"file_name"`
	Rows     int             `json:"rows"`
}

// ExportResult describes one export batch
type ExportResult struct {
	BatchID string       `json:"batch_id"`
	Dir     string       `json:"dir"`
	Files   []ExportFile `json:"files"`
}

// Groups returns the rows of every reviewed photo grouped by category.
// Descriptions are looked up when enrich is true, otherwise they are the name.
func (s *ExportService) Groups(ctx context.Context, enrich bool) ([]export.Group, error) {
	photos, err := s.photos.List(ctx, repository.PhotoQuery{
		Reviewed: true,
		Sort:     repository.SortByTimestamp,
	})
	if err != nil {
		return nil, err
	}

	categories, rows, err := s.buildRows(ctx, photos, enrich)
	if err != nil {
		return nil, err
	}
	return export.GroupByCategory(categories, rows), nil
}

// WriteCategory streams the spreadsheet of one category into w
func (s *ExportService) WriteCategory(ctx context.Context, w io.Writer, category models.Category, enrich bool) (int, error) {
	photos, err := s.photos.List(ctx, repository.PhotoQuery{
		Reviewed: true,
		Category: category,
		Sort:     repository.SortByTimestamp,
	})
	if err != nil {
		return 0, err
	}

	_, rows, err := s.buildRows(ctx, photos, enrich)
	if err != nil {
		return 0, err
	}

	if err := export.Write(w, rows); err != nil {
		return 0, err
	}
	metrics.ExportFiles.Inc()
	return len(rows), nil
}

// WriteAll writes one spreadsheet per category into a fresh batch directory
func (s *ExportService) WriteAll(ctx context.Context, enrich bool) (*ExportResult, error) {
	groups, err := s.Groups(ctx, enrich)
	if err != nil {
		return nil, err
	}

	batchID := uuid.New().String()
	dir := filepath.Join(s.dir, batchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	result := &ExportResult{BatchID: batchID, Dir: dir, Files: make([]ExportFile, 0, len(groups))}
	for _, g := range groups {
		name := export.FileName(g.Category)
		if err := s.writeFile(filepath.Join(dir, name), g.Rows); err != nil {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				log.Warn().Err(rmErr).Str("dir", dir).Msg("Failed to remove partial export batch")
			}
			return nil, err
		}
		metrics.ExportFiles.Inc()
		result.Files = append(result.Files, ExportFile{
			Category: g.Category,
			Label:    g.Category.Label(),
			FileName: name,
			Rows:     len(g.Rows),
		})
	}

	log.Info().Str("batch_id", batchID).Int("files", len(result.Files)).Msg("Export written")
	return result, nil
}

func (s *ExportService) writeFile(path string, rows []export.Row) error {
	f, err := s.create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.Write(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// buildRows turns photos into rows in input order, skipping photos without images
func (s *ExportService) buildRows(ctx context.Context, photos []*models.Photo, enrich bool) ([]models.Category, []export.Row, error) {
	usable := make([]*models.Photo, 0, len(photos))
	for _, p := range photos {
		if len(p.Images) == 0 {
			log.Warn().Str("photo_id", p.ID).Msg("Skipping reviewed photo without images")
			continue
		}
		usable = append(usable, p)
	}

	descriptions := make([]string, len(usable))
	if enrich && s.wiki != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(enrichLimit)
		for i, p := range usable {
			g.Go(func() error {
				descriptions[i] = s.wiki.Summary(gctx, p.Name)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
	} else {
		for i, p := range usable {
			descriptions[i] = p.Name
		}
	}

	categories := make([]models.Category, 0, len(usable))
	rows := make([]export.Row, 0, len(usable))
	for i, p := range usable {
		row, _ := export.NewRow(p, descriptions[i])
		categories = append(categories, p.Category)
		rows = append(rows, row)
	}
	return categories, rows, nil
}
