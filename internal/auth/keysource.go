package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// ErrKeyNotFound is wrapped in the KeyResolutionError returned for a key id the set does not publish.
var ErrKeyNotFound = errors.New("key id not found in key set")

const maxKeySetBytes = 1 << 20

// KeySource resolves RSA verification keys by key id.
type KeySource interface {
	ResolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// FetchLimiter bounds how often unknown key ids may trigger a remote fetch.
type FetchLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// FetchRecorder observes remote key set fetches.
type FetchRecorder interface {
	RecordKeySetFetch(success bool)
}

// StaticKeySource serves keys known at startup, typically the process' own signing key.
type StaticKeySource struct {
	keys map[string]*rsa.PublicKey
}

// NewStaticKeySource builds a source from signing keys.
func NewStaticKeySource(keys ...*SigningKey) *StaticKeySource {
	set := make(map[string]*rsa.PublicKey, len(keys))
	for _, key := range keys {
		if key == nil || key.Private == nil {
			continue
		}
		set[key.KeyID] = &key.Private.PublicKey
	}
	return &StaticKeySource{keys: set}
}

// ResolveKey returns the key registered under kid.
func (s *StaticKeySource) ResolveKey(_ context.Context, kid string) (*rsa.PublicKey, error) {
	key, ok := s.keys[kid]
	if !ok {
		return nil, apperrors.NewKeyResolution(fmt.Errorf("%w: %q", ErrKeyNotFound, kid))
	}
	return key, nil
}

// RemoteKeySourceConfig configures a RemoteKeySource.
type RemoteKeySourceConfig struct {
	URL      string
	Client   *http.Client
	Timeout  time.Duration
	CacheTTL time.Duration
	Limiter  FetchLimiter
	Recorder FetchRecorder
	Logger   *zap.Logger
}

type cachedKey struct {
	key       *rsa.PublicKey
	fetchedAt time.Time
}

// RemoteKeySource resolves keys from a rotating JWKS endpoint. Cache misses for the
// same key id share one in-flight fetch.
type RemoteKeySource struct {
	url      string
	client   *http.Client
	timeout  time.Duration
	cacheTTL time.Duration
	limiter  FetchLimiter
	recorder FetchRecorder
	logger   *zap.Logger
	now      func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	keys  map[string]cachedKey
}

// NewRemoteKeySource builds the source. Nothing is fetched until the first miss.
func NewRemoteKeySource(cfg RemoteKeySourceConfig) *RemoteKeySource {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &RemoteKeySource{
		url:      cfg.URL,
		client:   cfg.Client,
		timeout:  cfg.Timeout,
		cacheTTL: cfg.CacheTTL,
		limiter:  cfg.Limiter,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		now:      time.Now,
		keys:     make(map[string]cachedKey),
	}
}

// ResolveKey returns the cached key for kid or fetches the key set once on a miss.
func (s *RemoteKeySource) ResolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := s.cached(kid); ok {
		return key, nil
	}

	ch := s.group.DoChan(kid, func() (any, error) {
		// A flight that finished just before this one started may have filled the cache.
		if key, ok := s.cached(kid); ok {
			return key, nil
		}
		return s.refresh(context.WithoutCancel(ctx), kid)
	})

	select {
	case <-ctx.Done():
		return nil, apperrors.NewKeyResolution(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*rsa.PublicKey), nil
	}
}

func (s *RemoteKeySource) cached(kid string) (*rsa.PublicKey, bool) {
	s.mu.RLock()
	entry, ok := s.keys[kid]
	s.mu.RUnlock()
	if !ok || s.now().Sub(entry.fetchedAt) > s.cacheTTL {
		return nil, false
	}
	return entry.key, true
}

func (s *RemoteKeySource) refresh(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "jwks-fetch")
		if err != nil {
			s.logger.Warn("key set fetch limiter unavailable", zap.Error(err))
		} else if !allowed {
			return nil, apperrors.NewKeyResolution(errors.New("key set fetch rate limited"))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	set, err := s.fetch(ctx)
	if s.recorder != nil {
		s.recorder.RecordKeySetFetch(err == nil)
	}
	if err != nil {
		s.logger.Warn("key set fetch failed", zap.String("url", s.url), zap.Error(err))
		return nil, apperrors.NewKeyResolution(err)
	}

	fetchedAt := s.now()
	keys := make(map[string]cachedKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.KeyID == "" {
			continue
		}
		pub, err := jwk.RSAPublicKey()
		if err != nil {
			s.logger.Debug("skipping unusable key", zap.String("kid", jwk.KeyID), zap.Error(err))
			continue
		}
		keys[jwk.KeyID] = cachedKey{key: pub, fetchedAt: fetchedAt}
	}

	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()

	s.logger.Info("key set refreshed", zap.Int("keys", len(keys)))

	entry, ok := keys[kid]
	if !ok {
		return nil, apperrors.NewKeyResolution(fmt.Errorf("%w: %q", ErrKeyNotFound, kid))
	}
	return entry.key, nil
}

func (s *RemoteKeySource) fetch(ctx context.Context) (*JWKSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key set endpoint returned %d", resp.StatusCode)
	}

	var set JWKSet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxKeySetBytes)).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode key set: %w", err)
	}
	return &set, nil
}
