package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
)

type memoryUsers struct {
	mu        sync.Mutex
	byID      map[string]*domain.User
	createErr error
	// hide makes GetByEmail miss, reproducing a concurrent insert between lookup and create.
	hide bool
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*domain.User{}}
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	email := strings.ToLower(user.Email)
	for _, existing := range m.byID {
		if existing.Email == email {
			return repository.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.Email = email
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	m.byID[user.ID] = &stored
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hide {
		return nil, repository.ErrNotFound
	}
	for _, user := range m.byID {
		if user.Email == strings.ToLower(email) {
			out := *user
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) setRole(id string, role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].Role = role
}

type memoryRefreshTokens struct {
	mu        sync.Mutex
	records   map[string]domain.RefreshToken
	createErr error
	now       func() time.Time
}

func newMemoryRefreshTokens() *memoryRefreshTokens {
	return &memoryRefreshTokens{records: map[string]domain.RefreshToken{}, now: time.Now}
}

func (m *memoryRefreshTokens) Create(_ context.Context, userID string, ttl time.Duration) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	now := m.now().UTC()
	record := domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.records[record.ID] = record
	return &record, nil
}

func (m *memoryRefreshTokens) FindByID(_ context.Context, id string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &record, nil
}

func (m *memoryRefreshTokens) FindByUserID(_ context.Context, userID string) ([]domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RefreshToken
	for _, record := range m.records {
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryRefreshTokens) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *memoryRefreshTokens) Consume(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok || record.Expired(m.now()) {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

func (m *memoryRefreshTokens) DeleteExpired(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, record := range m.records {
		if record.Expired(m.now()) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryRefreshTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// plainHasher stands in for bcrypt to keep tests fast.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (plainHasher) Compare(plain, digest string) (bool, error) {
	return digest == "hashed:"+plain, nil
}

type issueCounter struct {
	mu    sync.Mutex
	kinds map[string]int
}

func (c *issueCounter) RecordTokenIssued(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kinds == nil {
		c.kinds = map[string]int{}
	}
	c.kinds[kind]++
}

var (
	keyOnce   sync.Once
	sharedKey *auth.SigningKey
	keyErr    error
)

const testIssuer = "auth-service"

var testRefreshSecret = []byte("0123456789abcdef0123456789abcdef")

func testSigningKey(t *testing.T) *auth.SigningKey {
	t.Helper()
	keyOnce.Do(func() {
		sharedKey, keyErr = auth.GenerateSigningKey(2048)
	})
	require.NoError(t, keyErr)
	return sharedKey
}

type harness struct {
	users      *memoryUsers
	tokens     *memoryRefreshTokens
	issued     *issueCounter
	dispatcher events.Dispatcher
	published  *[]events.Event
	verifier   *auth.TokenVerifier
	tokenSvc   *TokenService
	svc        *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	key := testSigningKey(t)

	h := &harness{
		users:      newMemoryUsers(),
		tokens:     newMemoryRefreshTokens(),
		issued:     &issueCounter{},
		dispatcher: events.NewInMemoryDispatcher(),
		published:  &[]events.Event{},
	}
	events.SubscribeAll(h.dispatcher, func(_ context.Context, e events.Event) error {
		*h.published = append(*h.published, e)
		return nil
	})

	issuer := auth.NewTokenIssuer(auth.IssuerConfig{
		Issuer:        testIssuer,
		SigningKey:    key,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Hour,
		RefreshTTL:    365 * 24 * time.Hour,
	})
	h.verifier = auth.NewTokenVerifier(auth.VerifierConfig{
		Keys:          auth.NewStaticKeySource(key),
		Issuer:        testIssuer,
		RefreshSecret: testRefreshSecret,
	})
	h.tokenSvc = NewTokenService(issuer, h.tokens, h.issued, zap.NewNop())
	h.svc = NewAuthService(AuthDependencies{
		Users:      h.users,
		Hasher:     plainHasher{},
		Tokens:     h.tokenSvc,
		Verifier:   h.verifier,
		Dispatcher: h.dispatcher,
		Logger:     zap.NewNop(),
	})
	return h
}

func (h *harness) register(t *testing.T, email string) *AuthResult {
	t.Helper()
	res, err := h.svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "correct-horse",
	})
	require.NoError(t, err)
	return res
}
