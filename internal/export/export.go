package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/richxcame/giveaway/internal/applications"
	"github.com/richxcame/giveaway/pkg/logger"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// utf8BOM makes spreadsheet software detect the encoding of CSV exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var exportHeader = []string{"ID", "Name", "Phone", "Loyalty card", "Submitted at", "Winner"}

// Source lists the applications an export covers.
type Source interface {
	List(ctx context.Context, filter applications.ListFilter) ([]*applications.Application, int64, error)
}

// Service renders application exports into a directory of downloadable files
type Service struct {
	source Source
	dir    string
	now    func() time.Time
}

// NewService creates an export service writing into dir
func NewService(source Source, dir string) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Service{source: source, dir: dir, now: time.Now}, nil
}

func (s *Service) listAll(ctx context.Context) ([]*applications.Application, error) {
	const pageSize = 500

	var all []*applications.Application
	for offset := 0; ; offset += pageSize {
		page, total, err := s.source.List(ctx, applications.ListFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if int64(len(all)) >= total || len(page) == 0 {
			break
		}
	}
	return all, nil
}

// exportRow flattens one application. The loyalty card number is masked to
// its last four digits: exports circulate outside the admin console.
func exportRow(app *applications.Application) []string {
	winner := "no"
	if app.IsWinner {
		winner = "yes"
	}
	return []string{
		fmt.Sprintf("%d", app.ID),
		app.Name,
		app.PhoneNumber,
		maskCard(app.LoyaltyCardNumber),
		app.SubmittedAt.UTC().Format("2006-01-02 15:04:05"),
		winner,
	}
}

func maskCard(card string) string {
	if card == "" {
		return ""
	}
	if len(card) <= 4 {
		return "****"
	}
	return "****" + card[len(card)-4:]
}

// WriteCSV streams all applications as UTF-8 CSV with a BOM prefix
func (s *Service) WriteCSV(ctx context.Context, w io.Writer) error {
	apps, err := s.listAll(ctx)
	if err != nil {
		return err
	}

	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, app := range apps {
		if err := cw.Write(exportRow(app)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes a timestamped CSV file and returns its path
func (s *Service) ExportCSV(ctx context.Context) (string, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("applications_%s.csv", s.now().UTC().Format("20060102_150405")))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := s.WriteCSV(ctx, f); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// ExportExcel writes a timestamped XLSX file and returns its path
func (s *Service) ExportExcel(ctx context.Context) (string, error) {
	apps, err := s.listAll(ctx)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Applications"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	widths := make([]int, len(exportHeader))
	writeRow := func(rowIdx int, values []string) error {
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			if len(v) > widths[col] {
				widths[col] = len(v)
			}
		}
		return nil
	}

	if err := writeRow(1, exportHeader); err != nil {
		return "", err
	}
	for i, app := range apps {
		if err := writeRow(i+2, exportRow(app)); err != nil {
			return "", err
		}
	}

	for col, w := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return "", err
		}
		if err := f.SetColWidth(sheet, name, name, float64(w+2)); err != nil {
			return "", err
		}
	}

	path := filepath.Join(s.dir, fmt.Sprintf("applications_%s.xlsx", s.now().UTC().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", err
	}
	return path, nil
}

// Cleanup deletes export files older than maxAge. Returns how many were
// removed.
func (s *Service) Cleanup(maxAge time.Duration) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		logger.Warn("export cleanup failed to read directory", zap.String("dir", s.dir), zap.Error(err))
		return 0
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		logger.Info("old export files removed", zap.Int("count", removed))
	}
	return removed
}
