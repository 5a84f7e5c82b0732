package client

import (
	"context"
	"sync"

	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
)

// Binder is a locally editable copy of the configuration. It is reset from
// every configuration the controller publishes, so unsaved edits are lost
// when a new configuration arrives.
type Binder struct {
	ctrl        *Controller
	unsubscribe func()

	mu     sync.Mutex
	values aeoliussdk.Configuration
	bound  bool
	rev    uint64
}

// Bind creates a binder following ctrl. Close it when done.
func Bind(ctrl *Controller) *Binder {
	b := &Binder{ctrl: ctrl, values: aeoliussdk.DefaultConfiguration}
	b.observe(ctrl.Snapshot())
	b.unsubscribe = ctrl.Subscribe(b.observe)
	return b
}

// Close stops following the controller.
func (b *Binder) Close() {
	b.unsubscribe()
}

func (b *Binder) observe(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.ConfigRevision == b.rev {
		return
	}
	b.rev = s.ConfigRevision

	if s.Configuration == nil {
		b.values = aeoliussdk.DefaultConfiguration
		b.bound = false
		return
	}
	b.values = *s.Configuration
	b.bound = true
}

// Bound reports whether the values mirror a configuration from the manager.
func (b *Binder) Bound() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bound
}

// Values returns the local values.
func (b *Binder) Values() aeoliussdk.Configuration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.values
}

func (b *Binder) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values.Enabled = enabled
}

func (b *Binder) SetPostTTL(months int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values.PostTTL = months
}

// Save stores the local values and re-binds from the manager's response.
func (b *Binder) Save(ctx context.Context) error {
	stored, err := b.ctrl.Save(ctx, b.Values())
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = *stored
	b.bound = true
	return nil
}

// Delete removes the remote configuration. The session ends either way.
func (b *Binder) Delete(ctx context.Context) error {
	return b.ctrl.Delete(ctx)
}
