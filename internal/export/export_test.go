package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/richxcame/giveaway/internal/applications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type staticSource struct {
	apps []*applications.Application
}

func (s staticSource) List(_ context.Context, filter applications.ListFilter) ([]*applications.Application, int64, error) {
	if filter.Offset >= len(s.apps) {
		return nil, int64(len(s.apps)), nil
	}
	end := filter.Offset + filter.Limit
	if end > len(s.apps) {
		end = len(s.apps)
	}
	return s.apps[filter.Offset:end], int64(len(s.apps)), nil
}

func sampleApps() []*applications.Application {
	return []*applications.Application{
		{
			ID:                1,
			Name:              "Maral Atayeva",
			PhoneNumber:       "+99365123456",
			LoyaltyCardNumber: "4029581736204",
			SubmittedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			IsWinner:          true,
		},
		{
			ID:          2,
			Name:        "Kerim Berdiyev",
			PhoneNumber: "+99361000000",
			SubmittedAt: time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC),
		},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(staticSource{apps: sampleApps()}, t.TempDir())
	require.NoError(t, err)
	return svc
}

func TestWriteCSVMasksCardAndPrependsBOM(t *testing.T) {
	svc := newTestService(t)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(context.Background(), &buf))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))

	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, []string{"1", "Maral Atayeva", "+99365123456", "****6204", "2025-06-01 12:00:00", "yes"}, records[1])
	assert.Equal(t, []string{"2", "Kerim Berdiyev", "+99361000000", "", "2025-06-02 08:30:00", "no"}, records[2])
}

func TestExportCSVWritesFile(t *testing.T) {
	svc := newTestService(t)
	svc.now = func() time.Time { return time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC) }

	path, err := svc.ExportCSV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "applications_20250603_100000.csv", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
}

func TestExportExcelWritesReadableWorkbook(t *testing.T) {
	svc := newTestService(t)

	path, err := svc.ExportExcel(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Applications")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Maral Atayeva", rows[1][1])
	assert.Equal(t, "****6204", rows[1][3])
}

func TestMaskCard(t *testing.T) {
	assert.Equal(t, "", maskCard(""))
	assert.Equal(t, "****", maskCard("123"))
	assert.Equal(t, "****6204", maskCard("4029581736204"))
}

func TestCleanupRemovesOldExports(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewService(staticSource{}, dir)
	require.NoError(t, err)

	oldFile := filepath.Join(dir, "applications_old.csv")
	freshFile := filepath.Join(dir, "applications_fresh.csv")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(freshFile, []byte("fresh"), 0o644))

	stale := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	removed := svc.Cleanup(7 * 24 * time.Hour)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshFile)
	assert.NoError(t, err)
}
