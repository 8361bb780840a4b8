package kiosk

import (
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/exitflow"
)

// Store keeps live kiosks in memory; idle ones expire after the session TTL.
type Store struct {
	cache    *gocache.Cache
	client   *backend.Client
	exitOpts exitflow.Options
	ttl      time.Duration
	logger   *zap.Logger
}

// NewStore builds a store that creates kiosks bound to client.
func NewStore(client *backend.Client, exitOpts exitflow.Options, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := gocache.New(ttl, 10*time.Minute)
	c.OnEvicted(func(id string, v interface{}) {
		if k, ok := v.(*Kiosk); ok {
			k.Close()
		}
		logger.Debug("kiosk session evicted", zap.String("kiosk_id", id))
	})
	return &Store{cache: c, client: client, exitOpts: exitOpts, ttl: ttl, logger: logger}
}

// Create registers a fresh kiosk with its own backend session.
func (s *Store) Create() *Kiosk {
	k := New(uuid.NewString(), s.client.NewSession(), s.exitOpts)
	s.cache.Set(k.ID, k, s.ttl)
	s.logger.Info("kiosk session created", zap.String("kiosk_id", k.ID))
	return k
}

// Get returns a live kiosk and extends its lifetime.
func (s *Store) Get(id string) (*Kiosk, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	k, ok := v.(*Kiosk)
	if !ok {
		return nil, false
	}
	s.cache.Set(id, k, s.ttl)
	return k, true
}

// Delete forgets a kiosk.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Count reports how many kiosks are live.
func (s *Store) Count() int {
	return s.cache.ItemCount()
}
