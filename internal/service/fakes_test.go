package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/noah-isme/exit-kiosk/internal/exitflow"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

type fakeBackend struct {
	mu sync.Mutex

	roster    []models.Student
	rosterErr error
	history   []models.HistoryRow
	histErr   error
	stats     map[models.StudentID]models.ExitStats
	statsErr  error
	exitErr   error
	deleteErr error
	uploadErr error
	uploadN   int
	loginErr  error

	rosterCalls  int
	historyCalls int
	statsCalls   int
	exits        []models.ExitRecord
	deleted      []string
	uploaded     []string
	loggedOut    bool
}

func (f *fakeBackend) Roster(ctx context.Context) ([]models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterCalls++
	return f.roster, f.rosterErr
}

func (f *fakeBackend) ExitStats(ctx context.Context, id models.StudentID) (models.ExitStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	if f.statsErr != nil {
		return models.ExitStats{}, f.statsErr
	}
	return f.stats[id], nil
}

func (f *fakeBackend) SubmitExit(ctx context.Context, record models.ExitRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exitErr != nil {
		return f.exitErr
	}
	f.exits = append(f.exits, record)
	return nil
}

func (f *fakeBackend) History(ctx context.Context) ([]models.HistoryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	return f.history, f.histErr
}

func (f *fakeBackend) DeleteHistory(ctx context.Context, pdf string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pdf == "" {
		return appErrors.ErrNotDeletable
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, pdf)
	kept := f.history[:0:0]
	for _, r := range f.history {
		if r.PDF != pdf {
			kept = append(kept, r)
		}
	}
	f.history = kept
	return nil
}

func (f *fakeBackend) ReceiptFile(ctx context.Context, pdf string) ([]byte, error) {
	return []byte("%PDF " + pdf), nil
}

func (f *fakeBackend) UploadRoster(ctx context.Context, filename string, file io.Reader) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	f.uploaded = append(f.uploaded, filename)
	return f.uploadN, nil
}

func (f *fakeBackend) Login(ctx context.Context, password string) error {
	return f.loginErr
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = true
	return nil
}

func newTestKiosk(fb *fakeBackend) *kiosk.Kiosk {
	return kiosk.New("kiosk-test", fb, exitflow.DefaultOptions())
}

func anaRuiz() models.Student {
	return models.Student{
		ID:     "1",
		Name:   "Ana Ruiz",
		Group:  "3A",
		DNI:    "111",
		Tutor1: &models.Tutor{Name: "Luis Ruiz Gómez", DNI: "222"},
		Phones: []models.Phone{{Label: "Madre", Number: "600 111 222", Urgent: true}},
	}
}

func roster() []models.Student {
	return []models.Student{
		anaRuiz(),
		{ID: "2", Name: "Juan Pérez", Group: "2B", DNI: "333"},
		{ID: "3", Name: "Ana Gil", Group: "1C", DNI: "444"},
	}
}

func historyRow(fecha, hora, nombre, motivo, pdf string) models.HistoryRow {
	var r models.HistoryRow
	r.Set(models.ColFecha, fecha)
	r.Set(models.ColHora, hora)
	r.Set(models.ColNombre, nombre)
	r.Set(models.ColGrupo, "3A")
	r.Set(models.ColMotivo, motivo)
	r.Set(models.ColPDF, pdf)
	return r
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]models.ExitStats
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]models.ExitStats{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*models.ExitStats)) = v
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value.(models.ExitStats)
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}
