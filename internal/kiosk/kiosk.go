// Package kiosk holds the controller state of one staff browser. Requests for the same
// browser may run concurrently, so every transition happens under the kiosk lock while
// network calls run outside it and apply their results afterwards.
package kiosk

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/noah-isme/exit-kiosk/internal/exitflow"
	"github.com/noah-isme/exit-kiosk/internal/historyflow"
	"github.com/noah-isme/exit-kiosk/internal/models"
)

// Toast kinds.
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastWarning = "warning"
)

// Toast is a transient notification shown on the next render.
type Toast struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RosterState is the roster collection and the search controls. Students is replaced
// wholesale, never patched.
type RosterState struct {
	Students []models.Student
	Query    string
	Category string
	Loaded   bool
	Loading  bool
	Error    string
	Gen      uint64
}

// UploadStage is a roster file waiting for confirmation. Nothing is sent before then.
type UploadStage struct {
	Filename string
	Data     []byte
	Rows     int
	// RowsKnown is false when the spreadsheet could not be previewed locally.
	RowsKnown bool
	StagedAt  time.Time
}

// State is everything the kiosk pages render from.
type State struct {
	Roster  RosterState
	Exit    exitflow.Machine
	History historyflow.Machine
	Upload  *UploadStage
	Toasts  []Toast
}

// Backend is the kiosk's authenticated view of the exit registration API.
// *backend.Session implements it.
type Backend interface {
	Roster(ctx context.Context) ([]models.Student, error)
	ExitStats(ctx context.Context, id models.StudentID) (models.ExitStats, error)
	SubmitExit(ctx context.Context, record models.ExitRecord) error
	History(ctx context.Context) ([]models.HistoryRow, error)
	DeleteHistory(ctx context.Context, pdf string) error
	ReceiptFile(ctx context.Context, pdf string) ([]byte, error)
	UploadRoster(ctx context.Context, filename string, file io.Reader) (int, error)
	Login(ctx context.Context, password string) error
	Logout(ctx context.Context) error
}

// Push is a message for live subscribers of the kiosk.
type Push struct {
	Type    string
	Payload interface{}
}

// Kiosk is the controller of one browser session.
type Kiosk struct {
	ID        string
	Session   Backend
	CreatedAt time.Time

	mu    sync.Mutex
	state State

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan Push
}

// New builds a kiosk with closed flows.
func New(id string, session Backend, exitOpts exitflow.Options) *Kiosk {
	return &Kiosk{
		ID:        id,
		Session:   session,
		CreatedAt: time.Now(),
		state: State{
			Roster:  RosterState{Category: "all"},
			Exit:    exitflow.New(exitOpts),
			History: historyflow.New(),
		},
		subs: make(map[int]chan Push),
	}
}

// Do runs fn with exclusive access to the state. fn must not block on I/O.
func (k *Kiosk) Do(fn func(*State) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return fn(&k.state)
}

// Snapshot returns a copy of the state for rendering. Slices are shared but never
// mutated in place.
func (k *Kiosk) Snapshot() State {
	k.mu.Lock()
	defer k.mu.Unlock()
	s := k.state
	s.Toasts = append([]Toast(nil), k.state.Toasts...)
	return s
}

// Notify queues a toast.
func (k *Kiosk) Notify(kind, message string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.state.Toasts = append(k.state.Toasts, Toast{Kind: kind, Message: message})
}

// DrainToasts returns and clears the queued toasts.
func (k *Kiosk) DrainToasts() []Toast {
	k.mu.Lock()
	defer k.mu.Unlock()
	toasts := k.state.Toasts
	k.state.Toasts = nil
	return toasts
}

// Subscribe registers a live listener. The returned cancel func must be called once.
func (k *Kiosk) Subscribe(buffer int) (<-chan Push, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Push, buffer)

	k.subMu.Lock()
	id := k.nextID
	k.nextID++
	k.subs[id] = ch
	k.subMu.Unlock()

	return ch, func() {
		k.subMu.Lock()
		defer k.subMu.Unlock()
		if c, ok := k.subs[id]; ok {
			delete(k.subs, id)
			close(c)
		}
	}
}

// Publish hands p to every subscriber that has room; slow listeners miss it.
func (k *Kiosk) Publish(p Push) {
	k.subMu.Lock()
	defer k.subMu.Unlock()
	for _, ch := range k.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

// Close drops every subscriber.
func (k *Kiosk) Close() {
	k.subMu.Lock()
	defer k.subMu.Unlock()
	for id, ch := range k.subs {
		delete(k.subs, id)
		close(ch)
	}
}
