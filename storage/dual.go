package storage

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is the trailing window applied to remote saves.
const DefaultDebounce = 250 * time.Millisecond

// Dual is the production gateway composition: every save lands in the local
// mirror synchronously while the remote save is debounced per storage key.
// A newer save inside the window supersedes the pending one, so only the
// most recent snapshot is ever sent; there is no retry and no cancellation
// token, and cross-device races resolve as last-write-wins at the remote.
//
// Loads prefer the local mirror and fall back to the remote store, seeding
// the mirror on a remote hit.
type Dual struct {
	local  Gateway
	remote Gateway
	delay  time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSave
}

type pendingSave struct {
	timer  *time.Timer
	userID string
	key    string
	data   []byte
}

// NewDual composes a local mirror with a debounced remote. A non-positive
// delay falls back to DefaultDebounce.
func NewDual(local, remote Gateway, delay time.Duration) *Dual {
	if local == nil || remote == nil {
		panic("storage.NewDual: both gateways are required")
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Dual{
		local:   local,
		remote:  remote,
		delay:   delay,
		pending: make(map[string]*pendingSave),
	}
}

func (d *Dual) Load(ctx context.Context, userID, key string) ([]byte, bool) {
	if data, ok := d.local.Load(ctx, userID, key); ok {
		return data, true
	}
	data, ok := d.remote.Load(ctx, userID, key)
	if !ok {
		return nil, false
	}
	d.local.Save(ctx, userID, key, data)
	return data, true
}

func (d *Dual) Save(ctx context.Context, userID, key string, data []byte) {
	d.local.Save(ctx, userID, key, data)

	id := userID + "/" + key
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[id]; ok {
		// Supersede: the pending snapshot is replaced and the window restarts.
		p.data = append([]byte(nil), data...)
		p.timer.Reset(d.delay)
		return
	}
	p := &pendingSave{userID: userID, key: key, data: append([]byte(nil), data...)}
	p.timer = time.AfterFunc(d.delay, func() { d.fire(id) })
	d.pending[id] = p
}

func (d *Dual) fire(id string) {
	d.mu.Lock()
	p, ok := d.pending[id]
	if ok {
		delete(d.pending, id)
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	// The originating request is long gone by the time the window closes.
	d.remote.Save(context.Background(), p.userID, p.key, p.data)
}

// Flush sends every pending snapshot immediately. Used on shutdown and in
// tests.
func (d *Dual) Flush() {
	d.mu.Lock()
	ids := make([]string, 0, len(d.pending))
	for id, p := range d.pending {
		p.timer.Stop()
		ids = append(ids, id)
	}
	d.mu.Unlock()
	for _, id := range ids {
		d.fire(id)
	}
}
