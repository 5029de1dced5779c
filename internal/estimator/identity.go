package estimator

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Control is a presentation element bound to the page identity. How it fades or hides is up
// to the implementation; it is only told whether it is enabled. SetEnabled runs under the
// binder's lock and must not call back into the binder.
type Control interface {
	SetEnabled(enabled bool)
}

// ProductIdentity is the product or variant every estimator action targets.
type ProductIdentity struct {
	ParentID         int64
	ActiveVariantID  int64 // 0 means the parent is targeted
	EnabledByDefault bool
	CurrentlyEnabled bool
}

// Target returns the active variant when set, else the parent.
func (p ProductIdentity) Target() int64 {
	if p.ActiveVariantID != 0 {
		return p.ActiveVariantID
	}
	return p.ParentID
}

// ParseEnabledFlag interprets a variant's estimator flag.
func ParseEnabledFlag(flag string) bool {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "yes", "true", "1", "on":
		return true
	default:
		return false
	}
}

// IdentityBinder owns the ProductIdentity of a page and every control bound to it.
type IdentityBinder struct {
	mu       sync.Mutex
	identity ProductIdentity
	controls []Control
	bus      *Bus
	logger   *zap.Logger
}

// NewIdentityBinder creates a binder targeting parentID. bus and logger may be nil.
func NewIdentityBinder(parentID int64, enabledByDefault bool, bus *Bus, logger *zap.Logger) *IdentityBinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityBinder{
		identity: ProductIdentity{
			ParentID:         parentID,
			EnabledByDefault: enabledByDefault,
			CurrentlyEnabled: enabledByDefault,
		},
		bus:    bus,
		logger: logger,
	}
}

// Bind attaches a control and syncs it to the current enabled state.
func (b *IdentityBinder) Bind(c Control) {
	if c == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.controls = append(b.controls, c)
	c.SetEnabled(b.identity.CurrentlyEnabled)
}

// OnVariantSelected targets v. A present EnabledFlag drives the enabled state of every bound
// control; an absent one leaves it unchanged.
func (b *IdentityBinder) OnVariantSelected(v VariantFound) error {
	if v.ID == 0 {
		b.logger.Warn("variant signal without id ignored")
		return ErrIdentityMissing
	}

	b.mu.Lock()
	b.identity.ActiveVariantID = v.ID
	if v.EnabledFlag != nil {
		b.identity.CurrentlyEnabled = ParseEnabledFlag(*v.EnabledFlag)
		b.applyLocked()
	}
	change := IdentityChange{Target: b.identity.Target(), Enabled: b.identity.CurrentlyEnabled}
	b.mu.Unlock()

	b.logger.Debug("variant selected", zap.Int64("variant_id", v.ID), zap.Bool("enabled", change.Enabled))
	b.publish(change)
	return nil
}

// OnReset drops the variant and restores the enabled state recorded at construction.
func (b *IdentityBinder) OnReset() {
	b.mu.Lock()
	b.identity.ActiveVariantID = 0
	b.identity.CurrentlyEnabled = b.identity.EnabledByDefault
	b.applyLocked()
	change := IdentityChange{Target: b.identity.Target(), Enabled: b.identity.CurrentlyEnabled, Reset: true}
	b.mu.Unlock()

	b.publish(change)
}

// CurrentTarget is the id every other component must act on.
func (b *IdentityBinder) CurrentTarget() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.identity.Target()
}

// Snapshot returns a copy of the identity.
func (b *IdentityBinder) Snapshot() ProductIdentity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.identity
}

// applyLocked pushes the enabled state to all controls; b.mu must be held so no control sees a
// partially applied update.
func (b *IdentityBinder) applyLocked() {
	for _, c := range b.controls {
		c.SetEnabled(b.identity.CurrentlyEnabled)
	}
}

func (b *IdentityBinder) publish(change IdentityChange) {
	if b.bus != nil {
		b.bus.IdentityChanged.Publish(change)
	}
}

// Attach subscribes the binder to the host's variant signals and returns the unsubscribe func.
func (b *IdentityBinder) Attach(bus *Bus) func() {
	offFound := bus.VariantFound.Subscribe(func(v VariantFound) { _ = b.OnVariantSelected(v) })
	offReset := bus.SelectionReset.Subscribe(func(SelectionReset) { b.OnReset() })
	return func() {
		offFound()
		offReset()
	}
}
