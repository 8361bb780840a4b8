package kiosk

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/exitflow"
)

func newKiosk() *Kiosk {
	return New("k-1", backend.New("http://backend.invalid", time.Second).NewSession(), exitflow.DefaultOptions())
}

func TestToastsDrainOnce(t *testing.T) {
	k := newKiosk()
	k.Notify(ToastSuccess, "Registro eliminado.")
	k.Notify(ToastError, "Error de conexión.")

	toasts := k.DrainToasts()
	require.Len(t, toasts, 2)
	assert.Equal(t, Toast{Kind: ToastSuccess, Message: "Registro eliminado."}, toasts[0])
	assert.Empty(t, k.DrainToasts())
}

func TestDoSerialisesUpdates(t *testing.T) {
	k := newKiosk()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = k.Do(func(s *State) error {
				s.Roster.Gen++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(50), k.Snapshot().Roster.Gen)
}

func TestSubscribePublish(t *testing.T) {
	k := newKiosk()
	ch, cancel := k.Subscribe(1)

	k.Publish(Push{Type: "roster"})
	k.Publish(Push{Type: "dropped"})

	p := <-ch
	assert.Equal(t, "roster", p.Type)

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestStoreCreateGetDelete(t *testing.T) {
	store := NewStore(backend.New("http://backend.invalid", time.Second), exitflow.DefaultOptions(), time.Hour, nil)

	k := store.Create()
	require.NotEmpty(t, k.ID)
	assert.Equal(t, 1, store.Count())

	got, ok := store.Get(k.ID)
	require.True(t, ok)
	assert.Same(t, k, got)

	store.Delete(k.ID)
	_, ok = store.Get(k.ID)
	assert.False(t, ok)
}
