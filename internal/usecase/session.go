package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/logger"
	"github.com/aymshop/storefront/internal/models"
	"github.com/aymshop/storefront/internal/repo/mirror"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Session owns the state of one shopper: a Store and its checkout flow.
type Session struct {
	ID       string
	DeviceID string
	Store    *Store
	Checkout *CheckoutFlow

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type sessionRegistry struct {
	cfg       *config.Config
	catalog   CatalogService
	mirror    mirror.Store
	publisher OrderPublisher
	now       func() time.Time
	log       *zap.SugaredLogger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionRegistry(
	cfg *config.Config,
	catalog CatalogService,
	mirrorStore mirror.Store,
	publisher OrderPublisher,
) SessionRegistry {
	return &sessionRegistry{
		cfg:       cfg,
		catalog:   catalog,
		mirror:    mirrorStore,
		publisher: publisher,
		now:       time.Now,
		log:       logger.MustNamed("session"),
		sessions:  map[string]*Session{},
	}
}

// Create starts a session with a fresh catalog and the wishlist mirrored for deviceID.
// Without a device id the wishlist is scoped to the session itself.
func (r *sessionRegistry) Create(ctx context.Context, deviceID string) (*Session, error) {
	id := uuid.NewString()
	if deviceID == "" {
		deviceID = id
	}
	store := NewStore(StoreOptions{
		ItemsPerPage: r.cfg.Store.ItemsPerPage,
		CheckoutMode: r.cfg.Store.CheckoutMode,
		Mirror:       r.mirror,
		SessionScope: "session:" + id,
		DeviceScope:  "device:" + deviceID,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := r.catalog.Products(gctx)
		if err != nil {
			return err
		}
		store.ReplaceProducts(gctx, products)
		return nil
	})
	g.Go(func() error {
		store.LoadWishlist(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess := &Session{
		ID:       id,
		DeviceID: deviceID,
		Store:    store,
		Checkout: NewCheckoutFlow(store, CheckoutOptions{
			Order:     r.cfg.Order,
			SessionID: id,
			Publisher: r.publisher,
		}),
		lastSeen: r.now(),
	}

	r.mu.Lock()
	r.sessions[id] = sess
	n := len(r.sessions)
	r.mu.Unlock()
	activeSessions.Set(float64(n))

	r.log.Infow("session created", "session", id, "device", deviceID, "products", store.ResultCount())
	return sess, nil
}

func (r *sessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	sess.touch(r.now())
	return sess, nil
}

// Reload refetches the catalog for a session. Cart and wishlist are kept.
func (r *sessionRegistry) Reload(ctx context.Context, id string) (*Session, error) {
	sess, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	products, err := r.catalog.Reload(ctx)
	if err != nil {
		return nil, err
	}
	sess.Store.ReplaceProducts(ctx, products)
	return sess, nil
}

// Sweep evicts sessions idle longer than the configured TTL and drops their
// session-scoped mirror keys. Device-scoped wishlists are kept.
func (r *sessionRegistry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.cfg.Store.SessionTTL)

	r.mu.Lock()
	var expired []*Session
	for id, sess := range r.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, sess)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()
	activeSessions.Set(float64(n))

	for _, sess := range expired {
		for _, name := range []string{mirror.KeyCart, mirror.KeyOriginalCart, mirror.KeyProducts} {
			key := mirror.Key("session:"+sess.ID, name)
			if err := r.mirror.Delete(ctx, key); err != nil {
				r.log.Warnw("drop mirror key failed", "key", key, "error", err)
			}
		}
	}
	if len(expired) > 0 {
		r.log.Infow("sessions evicted", "count", len(expired), "remaining", n)
	}
	return len(expired)
}

func (r *sessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweeper periodically calls SessionRegistry.Sweep until stopped.
type Sweeper struct {
	registry SessionRegistry
	every    time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSweeper(cfg *config.Config, registry SessionRegistry) *Sweeper {
	return &Sweeper{registry: registry, every: cfg.Store.SweepEvery}
}

func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.registry.Sweep(ctx)
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}
