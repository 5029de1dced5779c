package estimator

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Backend is the part of the estimator service a page session talks to.
type Backend interface {
	VariationSource
	AddToEstimator(ctx context.Context, productID int64) (string, error)
}

// Navigator leaves the page, used when no modal can be shown.
type Navigator interface {
	Navigate(url string)
}

// Page describes the product page being initialized.
type Page struct {
	ProductID        int64
	EnabledByDefault bool
	Context          PageContext
}

// UI is the set of presentation hooks a page provides. Any of them may be nil.
type UI struct {
	Controls  []Control
	Surface   Surface
	Modal     ModalFactory
	Messages  MessageSink
	Widgets   WidgetInitializer
	Navigator Navigator
}

// BootstrapOption configures a Bootstrapper.
type BootstrapOption func(*Bootstrapper)

// WithFallbackURL sets where AddToEstimator navigates when the page has no modal.
func WithFallbackURL(u string) BootstrapOption {
	return func(b *Bootstrapper) { b.fallbackURL = u }
}

// WithLogger sets the logger shared by all components.
func WithLogger(l *zap.Logger) BootstrapOption {
	return func(b *Bootstrapper) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBus lets the host publish variant signals on a bus it already holds.
func WithBus(bus *Bus) BootstrapOption {
	return func(b *Bootstrapper) {
		if bus != nil {
			b.bus = bus
		}
	}
}

// Bootstrapper owns one page session: the module registry, the bus and every component wired to it.
type Bootstrapper struct {
	backend     Backend
	registry    *ModuleRegistry
	loader      *ModuleLoader
	graph       *ModuleGraph
	bus         *Bus
	fallbackURL string
	logger      *zap.Logger

	mu        sync.Mutex
	binder    *IdentityBinder
	modal     *ModalCoordinator
	refresher *ContentRefresher
	messages  *Messenger
	navigator Navigator
	unsubs    []func()
	wg        sync.WaitGroup
}

// NewBootstrapper creates an uninitialized session. A nil graph uses DefaultModuleGraph("/modules").
func NewBootstrapper(backend Backend, fetcher Fetcher, graph *ModuleGraph, opts ...BootstrapOption) *Bootstrapper {
	if graph == nil {
		graph = DefaultModuleGraph("/modules")
	}
	b := &Bootstrapper{
		backend:     backend,
		registry:    NewModuleRegistry(),
		graph:       graph,
		bus:         NewBus(),
		fallbackURL: "/estimator",
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.loader = NewModuleLoader(b.registry, fetcher, b.logger)
	return b
}

// Init wires the page components and loads the modules the page asks for. Only the first call
// does anything. A module load failure is shown to the shopper and not retried.
func (b *Bootstrapper) Init(ctx context.Context, page Page, ui UI) error {
	if !b.registry.MarkInitialized() {
		b.logger.Debug("estimator already initialized")
		return nil
	}

	b.mu.Lock()
	b.messages = NewMessenger(ui.Messages)
	b.navigator = ui.Navigator
	b.binder = NewIdentityBinder(page.ProductID, page.EnabledByDefault, b.bus, b.logger)
	for _, c := range ui.Controls {
		b.binder.Bind(c)
	}
	modalURL, _ := b.graph.URL(ModuleModal)
	b.modal = NewModalCoordinator(b.loader, modalURL, ui.Modal, b.logger)
	if ui.Surface != nil {
		b.refresher = NewContentRefresher(b.backend, b.binder, ui.Surface, ui.Widgets, b.messages, b.logger)
	}
	b.unsubs = append(b.unsubs,
		b.binder.Attach(b.bus),
		b.bus.IdentityChanged.Subscribe(b.onIdentityChanged),
		b.modal.Attach(b.bus),
	)
	messages := b.messages
	b.mu.Unlock()

	urls, err := b.graph.Plan(page.Context)
	if err != nil {
		b.logger.Error("module plan failed", zap.Error(err))
		messages.Show(MessageError, TextLoadFailure)
		return err
	}
	if err := b.loader.EnsureAll(ctx, urls); err != nil {
		messages.Show(MessageError, TextLoadFailure)
		return err
	}
	b.logger.Info("estimator initialized", zap.Int64("product_id", page.ProductID), zap.Strings("modules", urls))
	return nil
}

func (b *Bootstrapper) onIdentityChanged(change IdentityChange) {
	b.mu.Lock()
	r := b.refresher
	b.mu.Unlock()
	if r == nil {
		return
	}
	if change.Reset {
		r.Reset()
		return
	}
	// The generation is taken here, in signal order; only the fetch runs in the background.
	gen := r.Begin(change.Target)
	b.wg.Add(1)
	go func(id int64, gen uint64) {
		defer b.wg.Done()
		_, _ = r.Complete(context.Background(), id, gen)
	}(change.Target, gen)
}

// AddToEstimator adds the current target and opens the modal on it. Without a modal the
// shopper is sent to the fallback page instead.
func (b *Bootstrapper) AddToEstimator(ctx context.Context) error {
	b.mu.Lock()
	binder, modal, messages, nav := b.binder, b.modal, b.messages, b.navigator
	b.mu.Unlock()
	if binder == nil {
		return ErrIdentityMissing
	}

	target := binder.CurrentTarget()
	if target == 0 {
		b.logger.Warn("add to estimator without product id ignored")
		return ErrIdentityMissing
	}

	msg, err := b.backend.AddToEstimator(ctx, target)
	if err != nil {
		b.logger.Warn("add to estimator failed", zap.Int64("product_id", target), zap.Error(err))
		messages.Show(MessageError, TextNetworkFailure)
		return err
	}
	b.logger.Debug("product added", zap.Int64("product_id", target), zap.String("message", msg))

	err = modal.Open(ctx, target)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrModalUnavailable):
		if nav != nil {
			nav.Navigate(b.fallbackFor(target))
			return nil
		}
		messages.Show(MessageSuccess, TextAdded)
		return nil
	default:
		// LoadFailure or a modal that refused to open.
		messages.Show(MessageError, TextLoadFailure)
		return err
	}
}

func (b *Bootstrapper) fallbackFor(productID int64) string {
	u, err := url.Parse(b.fallbackURL)
	if err != nil {
		return b.fallbackURL
	}
	q := u.Query()
	q.Set("product_id", strconv.FormatInt(productID, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// Wait blocks until every refresh started by identity changes has finished.
func (b *Bootstrapper) Wait() { b.wg.Wait() }

// Bus returns the bus the host publishes variant signals on.
func (b *Bootstrapper) Bus() *Bus { return b.bus }

// Registry returns the module registry of this session.
func (b *Bootstrapper) Registry() *ModuleRegistry { return b.registry }

// Identity returns the binder, nil before Init.
func (b *Bootstrapper) Identity() *IdentityBinder {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.binder
}

// Modal returns the modal coordinator, nil before Init.
func (b *Bootstrapper) Modal() *ModalCoordinator {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modal
}

// Messages returns the messenger, nil before Init.
func (b *Bootstrapper) Messages() *Messenger {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages
}

// Teardown drops every subscription and clears the registry, as leaving the page would.
func (b *Bootstrapper) Teardown() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.binder, b.modal, b.refresher, b.messages, b.navigator = nil, nil, nil, nil, nil
	b.mu.Unlock()
	for _, off := range unsubs {
		off()
	}
	b.wg.Wait()
	b.registry.Reset()
}
