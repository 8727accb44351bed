// Package memory is an in-process Store. Transactions are serialized behind a
// single mutex and roll back by restoring a copy of the state taken at begin.
// Unique and check constraints of the SQL schema are enforced so services
// observe the same errors they would against postgres.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"storefront/internal/domain"
	sessionrepo "storefront/internal/repository/session"
	tokenrepo "storefront/internal/repository/token"
	"storefront/internal/store"

	"github.com/google/uuid"
)

type cartLine struct {
	item domain.CartItem
	seq  int64
}

type orderRec struct {
	order domain.Order
	seq   int64
}

type productRec struct {
	product domain.Product
	seq     int64
}

type state struct {
	seq          int64
	carts        map[string]domain.Cart
	lines        map[string]cartLine
	products     map[string]productRec
	coupons      map[string]domain.Coupon
	orders       map[string]orderRec
	orderItems   map[string][]domain.OrderItem
	orderCoupons map[string]domain.OrderCoupon
	customers    map[string]domain.Customer
	tokens       map[string]tokenrepo.Token
	sessions     map[string]sessionrepo.Session
}

func newState() *state {
	return &state{
		carts:        map[string]domain.Cart{},
		lines:        map[string]cartLine{},
		products:     map[string]productRec{},
		coupons:      map[string]domain.Coupon{},
		orders:       map[string]orderRec{},
		orderItems:   map[string][]domain.OrderItem{},
		orderCoupons: map[string]domain.OrderCoupon{},
		customers:    map[string]domain.Customer{},
		tokens:       map[string]tokenrepo.Token{},
		sessions:     map[string]sessionrepo.Session{},
	}
}

// clone copies every table. Stored values are never mutated in place, so a
// shallow copy of each map is enough.
func (s *state) clone() *state {
	items := make(map[string][]domain.OrderItem, len(s.orderItems))
	for k, v := range s.orderItems {
		items[k] = append([]domain.OrderItem(nil), v...)
	}
	return &state{
		seq:          s.seq,
		carts:        maps.Clone(s.carts),
		lines:        maps.Clone(s.lines),
		products:     maps.Clone(s.products),
		coupons:      maps.Clone(s.coupons),
		orders:       maps.Clone(s.orders),
		orderItems:   items,
		orderCoupons: maps.Clone(s.orderCoupons),
		customers:    maps.Clone(s.customers),
		tokens:       maps.Clone(s.tokens),
		sessions:     maps.Clone(s.sessions),
	}
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

// Store implements store.Store in memory.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{st: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) Repos() store.Repos {
	return s.repos(false)
}

func (s *Store) InTx(ctx context.Context, fn func(store.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(s.repos(true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) repos(inTx bool) store.Repos {
	h := handle{s: s, inTx: inTx}
	return store.Repos{
		Carts:     &cartRepo{h},
		Products:  &productRepo{h},
		Coupons:   &couponRepo{h},
		Orders:    &orderRepo{h},
		Customers: &customerRepo{h},
		Tokens:    &tokenRepo{h},
		Sessions:  &sessionRepo{h},
	}
}

// handle gives repositories access to the state. Outside a transaction every
// call takes the store mutex itself.
type handle struct {
	s    *Store
	inTx bool
}

func (h handle) lock() func() {
	if h.inTx {
		return func() {}
	}
	h.s.mu.Lock()
	return h.s.mu.Unlock
}

func (h handle) state() *state {
	return h.s.st
}

func (h handle) now() time.Time {
	return h.s.now()
}

func newID() string {
	return uuid.NewString()
}
