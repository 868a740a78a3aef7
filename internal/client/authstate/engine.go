package authstate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/dailybread/internal/client/cache"
	"github.com/dmitrijs2005/dailybread/internal/client/client"
	"github.com/dmitrijs2005/dailybread/internal/client/identity"
	"github.com/dmitrijs2005/dailybread/internal/client/models"
	"github.com/dmitrijs2005/dailybread/internal/logging"
)

var (
	ErrClosed      = errors.New("engine closed")
	ErrNotSignedIn = errors.New("not signed in")
)

// Authority is the part of the remote authority the engine consumes.
type Authority interface {
	GetSession(ctx context.Context) (*models.Session, error)
	FetchOnboarding(ctx context.Context, userID string) (models.OnboardingStatus, error)
	CompleteOnboarding(ctx context.Context, userID string, prefs models.UserPreferences) error
	Subscribe(handler func(models.AuthEvent)) *client.Subscription
}

// Engine is the single writer of the authentication snapshot.
type Engine struct {
	auth   Authority
	cache  cache.Cache
	writer *cache.Writer
	idp    identity.Provider
	log    logging.Logger
	retry  RetryPolicy

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan func()
	quit   chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once
	sub       *client.Subscription

	current atomic.Pointer[models.Snapshot]
	// generation mirrors epoch for fetch goroutines deciding whether to retry.
	generation atomic.Uint64

	// Everything below is owned by the loop goroutine.
	st           models.State
	loading      bool
	user         *models.User
	session      *models.Session
	onboarded    bool
	prefs        *models.UserPreferences
	epoch        uint64
	seq          uint64
	committedSeq uint64
	observers    map[int]func(models.Snapshot)
	nextObserver int

	// resultHook observes every reconciliation outcome; tests only.
	resultHook func(r result, applied bool)
}

type Option func(*Engine)

// WithRetry enables retrying failed onboarding fetches.
func WithRetry(p RetryPolicy) Option { return func(e *Engine) { e.retry = p } }

// WithInbox sets the inbox capacity.
func WithInbox(n int) Option { return func(e *Engine) { e.inbox = make(chan func(), n) } }

// New creates an engine in the LOADING state and starts its goroutine.
// Start must be called to resolve the startup session.
func New(auth Authority, c cache.Cache, w *cache.Writer, idp identity.Provider, log logging.Logger, opts ...Option) *Engine {
	if idp == nil {
		idp = identity.Noop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		auth:      auth,
		cache:     c,
		writer:    w,
		idp:       idp,
		log:       log.With("component", "authstate"),
		ctx:       ctx,
		cancel:    cancel,
		inbox:     make(chan func(), 64),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		st:        models.StateLoading,
		loading:   true,
		observers: make(map[int]func(models.Snapshot)),
	}
	for _, o := range opts {
		o(e)
	}
	s := models.InitialSnapshot()
	e.current.Store(&s)

	go e.loop()
	return e
}

func (e *Engine) loop() {
	defer close(e.done)
	for {
		select {
		case fn := <-e.inbox:
			fn()
		case <-e.quit:
			return
		}
	}
}

// post queues fn on the loop. It reports false once the engine is closed.
func (e *Engine) post(fn func()) bool {
	select {
	case <-e.quit:
		return false
	default:
	}
	select {
	case e.inbox <- fn:
		return true
	case <-e.quit:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (e *Engine) call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if !e.post(func() { fn(); close(ran) }) {
		return ErrClosed
	}
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.quit:
		return ErrClosed
	}
}

// Start subscribes to lifecycle events and resolves the startup session in
// the background. It returns once the subscription is in place.
func (e *Engine) Start(ctx context.Context) error {
	var err error
	e.startOnce.Do(func() {
		e.sub = e.auth.Subscribe(func(ev models.AuthEvent) {
			e.post(func() { e.handleEvent(ev) })
		})

		var epoch uint64
		if err = e.call(ctx, func() { epoch = e.epoch }); err != nil {
			return
		}

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			s, err := e.auth.GetSession(e.ctx)
			e.post(func() { e.resolveStartup(epoch, s, err) })
		}()
	})
	return err
}

// Close stops the engine. In-flight fetches are cancelled and their results
// dropped. The cache writer is not closed.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		if e.sub != nil {
			e.sub.Unsubscribe()
		}
		e.cancel()
		close(e.quit)
		<-e.done
		e.wg.Wait()
	})
}

// Snapshot returns the latest published snapshot.
func (e *Engine) Snapshot() models.Snapshot {
	return *e.current.Load()
}

// Subscribe registers fn for every published snapshot and immediately calls
// it with the current one. fn runs on the engine goroutine: it must not block
// or call back into the engine.
func (e *Engine) Subscribe(fn func(models.Snapshot)) (unsubscribe func()) {
	var id int
	if err := e.call(context.Background(), func() {
		id = e.nextObserver
		e.nextObserver++
		e.observers[id] = fn
		fn(*e.current.Load())
	}); err != nil {
		return func() {}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			e.post(func() { delete(e.observers, id) })
		})
	}
}

// Wait blocks until a published snapshot satisfies cond and returns it. The
// current snapshot is checked first.
func (e *Engine) Wait(ctx context.Context, cond func(models.Snapshot) bool) (models.Snapshot, error) {
	matched := make(chan models.Snapshot, 1)
	unsubscribe := e.Subscribe(func(s models.Snapshot) {
		if cond(s) {
			select {
			case matched <- s:
			default:
			}
		}
	})
	defer unsubscribe()

	select {
	case s := <-matched:
		return s, nil
	case <-ctx.Done():
		return e.Snapshot(), ctx.Err()
	case <-e.quit:
		return e.Snapshot(), ErrClosed
	}
}

// Settle waits until everything queued on the engine so far has been
// processed and the resulting cache writes have been applied.
func (e *Engine) Settle(ctx context.Context) error {
	if err := e.call(ctx, func() {}); err != nil {
		return err
	}
	return e.writer.Flush(ctx)
}

// Refresh re-runs onboarding reconciliation for the current user and waits
// for its result to be committed or discarded. Loading is left untouched.
// Without a signed-in user it does nothing.
func (e *Engine) Refresh(ctx context.Context) error {
	var settled chan struct{}
	if err := e.call(ctx, func() {
		if e.user == nil {
			return
		}
		settled = make(chan struct{})
		e.reconcile("refresh", settled)
	}); err != nil {
		return err
	}
	if settled == nil {
		return nil
	}
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.quit:
		return ErrClosed
	}
}

// CompleteOnboarding stores prefs at the authority for the current user and,
// on success, marks the snapshot onboarded and mirrors it into the cache. A
// failed write leaves the state unchanged and is returned to the caller.
func (e *Engine) CompleteOnboarding(ctx context.Context, prefs models.UserPreferences) error {
	snap := e.Snapshot()
	if snap.User == nil {
		return ErrNotSignedIn
	}
	userID := snap.User.ID

	if err := e.auth.CompleteOnboarding(ctx, userID, prefs); err != nil {
		e.log.Warn(ctx, "onboarding write failed", "user_id", userID, "err", err)
		if !errors.Is(err, client.ErrOnboardingWrite) {
			err = errors.Join(client.ErrOnboardingWrite, err)
		}
		return err
	}

	// The write has landed; the caller giving up must not turn it into a failure.
	p := prefs.Clone()
	var committed bool
	if err := e.call(context.WithoutCancel(ctx), func() {
		if e.user == nil || e.user.ID != userID {
			return
		}
		// Anything fetched before the write is older than it.
		e.seq++
		e.committedSeq = e.seq
		e.onboarded = true
		e.prefs = p
		e.loading = false
		e.transition(models.StateOnboarded)
		e.mirror(cacheHint{}, models.OnboardingStatus{IsOnboarded: true, Preferences: p}, true)
		e.publish()
		committed = true
	}); err != nil {
		return err
	}
	if !committed {
		e.log.Info(ctx, "onboarding completed for a user that is no longer current", "user_id", userID)
	}
	return nil
}

func (e *Engine) handleEvent(ev models.AuthEvent) {
	ctx := e.ctx
	switch ev.Kind {
	case models.EventInitialSession:
		e.log.Debug(ctx, "initial session event ignored")

	case models.EventSignedIn:
		if ev.Session == nil {
			e.log.Warn(ctx, "signed-in event without a session ignored")
			return
		}
		e.bumpEpoch()
		e.adopt(ev.Session)
		e.reconcile("signed in", nil)

	case models.EventSignedOut:
		e.bumpEpoch()
		e.session = nil
		e.user = nil
		e.onboarded = false
		e.prefs = nil
		e.loading = false
		e.transition(models.StateUnauthenticated)
		e.publish()

		// The provider is torn down only after the erase has been applied.
		e.writer.RemoveAll(cacheKeys())
		e.writer.Do(func(context.Context) {
			if err := e.idp.SignOut(e.ctx); err != nil {
				e.log.Warn(e.ctx, "identity provider sign-out failed", "provider", e.idp.Name(), "err", err)
			}
		})

	case models.EventTokenRefreshed:
		if ev.Session == nil || e.user == nil || ev.Session.UserID() != e.user.ID {
			e.log.Debug(ctx, "token refresh for a different user ignored")
			return
		}
		e.session = ev.Session
		e.publish()

	default:
		e.log.Warn(ctx, "unknown auth event", "kind", ev.Kind)
	}
}

func (e *Engine) resolveStartup(epoch uint64, s *models.Session, err error) {
	ctx := e.ctx
	if epoch != e.epoch {
		e.log.Debug(ctx, "startup session superseded by a lifecycle event")
		return
	}
	if err != nil {
		e.log.Warn(ctx, "startup session lookup failed, starting signed out", "err", err)
	}
	if s == nil {
		e.loading = false
		e.transition(models.StateUnauthenticated)
		e.publish()
		return
	}
	e.adopt(s)
	e.reconcile("startup", nil)
}

// adopt makes s the current session and enters the pending check. Onboarding
// data of a different previous user is not carried over.
func (e *Engine) adopt(s *models.Session) {
	if e.user == nil || e.user.ID != s.User.ID {
		e.onboarded = false
		e.prefs = nil
	}
	u := s.User
	e.user = &u
	e.session = s
	e.transition(models.StatePendingOnboardingCheck)
	e.publish()
}

func (e *Engine) bumpEpoch() {
	e.epoch++
	e.generation.Store(e.epoch)
}

func (e *Engine) transition(to models.State) {
	if e.st != to {
		e.log.Debug(e.ctx, "state transition", "from", e.st, "to", to)
		e.st = to
	}
}

// settledState is the resting state for the current in-memory values.
func (e *Engine) settledState() models.State {
	switch {
	case e.user == nil:
		return models.StateUnauthenticated
	case e.onboarded:
		return models.StateOnboarded
	default:
		return models.StateNotOnboarded
	}
}

func (e *Engine) publish() {
	s := models.Snapshot{
		User:        e.user,
		Session:     e.session,
		Loading:     e.loading,
		IsOnboarded: e.onboarded,
		Preferences: e.prefs,
		State:       e.st,
	}
	e.current.Store(&s)
	for _, fn := range e.observers {
		fn(s)
	}
}
