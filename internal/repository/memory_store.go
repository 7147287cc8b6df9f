package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/acp-gateway/internal/model"
)

// MemoryStore keeps users, cashback transactions, sessions and a product
// catalog in process memory.  It backs tests and the "memory" store
// backend; nothing survives a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]model.User
	byIdent   map[string]string // "kind:value" -> user id
	cashbacks map[string][]model.CashbackTransaction
	convIDs   map[string]bool
	sessions  map[string]model.Session
	products  []productEntry
}

type productEntry struct {
	product  model.Product
	keywords map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]model.User),
		byIdent:   make(map[string]string),
		cashbacks: make(map[string][]model.CashbackTransaction),
		convIDs:   make(map[string]bool),
		sessions:  make(map[string]model.Session),
	}
}

func identKey(ident model.Identity) string {
	return string(ident.Kind()) + ":" + ident.Value()
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) FindByIdentity(_ context.Context, ident model.Identity) (model.User, error) {
	ident = ident.Normalize()
	if ident.Kind() == model.IdentityNone {
		return model.User{}, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIdent[identKey(ident)]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *MemoryStore) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, 3)
	for _, ident := range []model.Identity{{Email: u.Email}, {Phone: u.Phone}, {WalletAddress: u.WalletAddress}} {
		if ident.Kind() == model.IdentityNone {
			continue
		}
		k := identKey(ident)
		if _, taken := s.byIdent[k]; taken {
			return ErrIdentityExists
		}
		keys = append(keys, k)
	}
	if _, taken := s.users[u.ID]; taken {
		return ErrIdentityExists
	}
	s.users[u.ID] = u
	for _, k := range keys {
		s.byIdent[k] = u.ID
	}
	return nil
}

func (s *MemoryStore) Credit(_ context.Context, ct model.CashbackTransaction) (model.CashbackTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[ct.UserID]
	if !ok {
		return model.CashbackTransaction{}, ErrNotFound
	}
	if ct.ConversionID != "" {
		if s.convIDs[ct.ConversionID] {
			return model.CashbackTransaction{}, ErrConflict
		}
		s.convIDs[ct.ConversionID] = true
	}
	u.Balance = u.Balance.Add(ct.Amount)
	u.GoPoints += model.PointsFor(ct.Amount)
	u.GoTier = model.TierFor(u.GoPoints)
	s.users[u.ID] = u
	s.cashbacks[u.ID] = append(s.cashbacks[u.ID], ct)
	return ct, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]model.CashbackTransaction, error) {
	s.mu.RLock()
	out := append([]model.CashbackTransaction(nil), s.cashbacks[userID]...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Record(_ context.Context, sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.TokenHash]; !ok {
		s.sessions[sess.TokenHash] = sess
	}
	return nil
}

func (s *MemoryStore) FindByTokenHash(_ context.Context, tokenHash string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return sess, nil
}

// AddProduct registers p in the in-memory catalog under the given keywords.
func (s *MemoryStore) AddProduct(p model.Product, keywords ...string) {
	kw := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		kw[strings.ToLower(strings.TrimSpace(k))] = true
	}
	s.mu.Lock()
	s.products = append(s.products, productEntry{product: p, keywords: kw})
	s.mu.Unlock()
}

// ProductsByKeyword returns up to limit catalog products tagged with keyword,
// in insertion order.
func (s *MemoryStore) ProductsByKeyword(_ context.Context, keyword string, limit int) ([]model.Product, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Product
	for _, e := range s.products {
		if len(out) >= limit {
			break
		}
		if e.keywords[keyword] {
			out = append(out, e.product)
		}
	}
	return out, nil
}

// MemoryRevocations is the process-local RevocationStore used when Redis is
// not configured.  Entries expire lazily on lookup.
type MemoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevocations) Revoke(_ context.Context, tokenHash string, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[tokenHash] = m.now().Add(ttl)
	m.mu.Unlock()
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.entries[tokenHash]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.entries, tokenHash)
		return false, nil
	}
	return true, nil
}
