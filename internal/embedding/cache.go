package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/tripstack/attractions-api/pkg/redis"
)

const cacheKeyPrefix = "emb:"

// CachedProvider wraps another Provider with a Redis lookaside cache.
// Vectors are keyed by a hash of the input text, so identical fragments
// across attractions only hit the model once. Cache failures degrade to
// the underlying provider.
type CachedProvider struct {
	inner  Provider
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProvider(inner Provider, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedProvider{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (p *CachedProvider) Dimensions() int {
	return p.inner.Dimensions()
}

func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	if data, err := p.cache.GetBytes(ctx, key); err != nil {
		p.logger.Warn("embedding cache read failed", zap.Error(err))
	} else if data != nil {
		if vec, ok := decodeVector(data, p.inner.Dimensions()); ok {
			return vec, nil
		}
	}

	vec, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := p.cache.SetBytes(ctx, key, encodeVector(vec), p.ttl); err != nil {
		p.logger.Warn("embedding cache write failed", zap.Error(err))
	}
	return vec, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte, wantDims int) ([]float32, bool) {
	if len(data) != 4*wantDims {
		return nil, false
	}
	vec := make([]float32, wantDims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, true
}
