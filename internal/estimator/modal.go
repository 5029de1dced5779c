package estimator

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Modal is the overlay provided by the modal module.
type Modal interface {
	Open(productID int64) error
	// Retarget points an already open modal at another product without closing it.
	Retarget(productID int64)
	Close()
}

// ModalFactory builds the modal once its module is loaded.
type ModalFactory func() (Modal, error)

// ModalSession is a read-only view of the coordinator state.
type ModalSession struct {
	ID     string
	Open   bool
	Target int64
}

// ModalCoordinator owns the single modal of a page. It only reports success or failure;
// rendering errors to the shopper is left to the caller.
type ModalCoordinator struct {
	loader    *ModuleLoader
	moduleURL string
	factory   ModalFactory
	logger    *zap.Logger

	createMu sync.Mutex
	mu       sync.Mutex
	instance Modal
	session  ModalSession
}

// NewModalCoordinator creates a coordinator that loads moduleURL before building the modal.
func NewModalCoordinator(loader *ModuleLoader, moduleURL string, factory ModalFactory, logger *zap.Logger) *ModalCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModalCoordinator{loader: loader, moduleURL: moduleURL, factory: factory, logger: logger}
}

// Open shows the modal for productID, creating it on first use. An open modal is retargeted.
func (m *ModalCoordinator) Open(ctx context.Context, productID int64) error {
	if productID == 0 {
		m.logger.Warn("modal open without product id ignored")
		return ErrIdentityMissing
	}
	inst, err := m.ensureInstance(ctx)
	if err != nil {
		m.logger.Warn("modal unavailable", zap.Int64("product_id", productID), zap.Error(err))
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Open {
		inst.Retarget(productID)
		m.session.Target = productID
		return nil
	}
	if err := inst.Open(productID); err != nil {
		return err
	}
	m.session = ModalSession{ID: uuid.NewString(), Open: true, Target: productID}
	return nil
}

// Close hides the modal and keeps it for reuse.
func (m *ModalCoordinator) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.instance == nil || !m.session.Open {
		return
	}
	m.instance.Close()
	m.session.Open = false
}

// Session returns the current session state.
func (m *ModalCoordinator) Session() ModalSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// IsOpen reports whether the modal is showing.
func (m *ModalCoordinator) IsOpen() bool { return m.Session().Open }

// Target returns the product the modal was last opened or retargeted on.
func (m *ModalCoordinator) Target() int64 { return m.Session().Target }

// Ready reports whether the modal has been built.
func (m *ModalCoordinator) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instance != nil
}

// Attach consumes OpenRequest signals exactly like direct Open calls.
func (m *ModalCoordinator) Attach(bus *Bus) func() {
	return bus.OpenRequested.Subscribe(func(req OpenRequest) {
		err := m.Open(context.Background(), req.ProductID)
		if req.Done != nil {
			req.Done(err)
		}
	})
}

func (m *ModalCoordinator) ensureInstance(ctx context.Context) (Modal, error) {
	m.mu.Lock()
	inst := m.instance
	m.mu.Unlock()
	if inst != nil {
		return inst, nil
	}

	m.createMu.Lock()
	defer m.createMu.Unlock()
	m.mu.Lock()
	inst = m.instance
	m.mu.Unlock()
	if inst != nil {
		return inst, nil
	}

	if m.factory == nil {
		return nil, ErrModalUnavailable
	}
	if m.loader != nil {
		if err := m.loader.Ensure(ctx, m.moduleURL); err != nil {
			return nil, err
		}
	}
	inst, err := m.factory()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.instance = inst
	m.mu.Unlock()
	return inst, nil
}
