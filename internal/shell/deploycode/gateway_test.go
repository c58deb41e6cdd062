package deploycode

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unideploy/unideploy/internal/core/domain"
)

func newTestGateway(cfg Config) (*Gateway, *MemoryStore) {
	store := NewMemoryStore()
	return NewGateway(store, cfg, nil), store
}

func TestGenerateOrGet_Format(t *testing.T) {
	g, _ := newTestGateway(Config{})

	code, err := g.GenerateOrGet(context.Background())

	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[1-9][0-9]{5}$`), code)
}

func TestGenerateOrGet_Idempotent(t *testing.T) {
	g, _ := newTestGateway(Config{})
	ctx := context.Background()

	first, err := g.GenerateOrGet(ctx)
	require.NoError(t, err)
	second, err := g.GenerateOrGet(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second, "successive calls within the TTL return the same code")
}

func TestGenerateOrGet_SingleActiveCodeUnderConcurrency(t *testing.T) {
	g, _ := newTestGateway(Config{})
	ctx := context.Background()

	const callers = 32
	codes := make([]string, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			code, err := g.GenerateOrGet(ctx)
			assert.NoError(t, err)
			codes[i] = code
		}(i)
	}
	wg.Wait()

	distinct := make(map[string]bool)
	for _, c := range codes {
		distinct[c] = true
	}
	assert.Len(t, distinct, 1, "concurrent callers must observe exactly one code")
}

func TestValidate_ActiveCode(t *testing.T) {
	g, _ := newTestGateway(Config{})
	ctx := context.Background()

	code, err := g.GenerateOrGet(ctx)
	require.NoError(t, err)

	assert.NoError(t, g.Validate(ctx, code))
	// Reusable by default: a second validation still passes.
	assert.NoError(t, g.Validate(ctx, code))
}

func TestValidate_NoActiveCode(t *testing.T) {
	g, _ := newTestGateway(Config{})

	err := g.Validate(context.Background(), "123456")

	require.Error(t, err)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrNoActiveCode)
}

func TestValidate_Mismatch(t *testing.T) {
	g, _ := newTestGateway(Config{})
	ctx := context.Background()

	code, err := g.GenerateOrGet(ctx)
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	err = g.Validate(ctx, wrong)

	require.Error(t, err)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrCodeMismatch)
}

func TestValidate_TTLExpiry(t *testing.T) {
	g, store := newTestGateway(Config{})
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }

	code, err := g.GenerateOrGet(ctx)
	require.NoError(t, err)

	// Just inside the window.
	store.now = func() time.Time { return base.Add(DefaultTTL - time.Second) }
	assert.NoError(t, g.Validate(ctx, code))

	// Window elapsed.
	store.now = func() time.Time { return base.Add(DefaultTTL + time.Second) }
	err = g.Validate(ctx, code)
	require.Error(t, err)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}

func TestGenerateOrGet_ReissuesAfterExpiry(t *testing.T) {
	g, store := newTestGateway(Config{})
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }

	first, err := g.GenerateOrGet(ctx)
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(DefaultTTL + time.Second) }
	second, err := g.GenerateOrGet(ctx)
	require.NoError(t, err)

	// A fresh code is issued once the old one expired. Values could collide
	// by chance, but the store must hold the newly issued value.
	stored, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, stored)
	_ = first
}

func TestValidate_SingleUse(t *testing.T) {
	g, _ := newTestGateway(Config{SingleUse: true})
	ctx := context.Background()

	code, err := g.GenerateOrGet(ctx)
	require.NoError(t, err)

	require.NoError(t, g.Validate(ctx, code))

	// The code is gone after one successful validation.
	err = g.Validate(ctx, code)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoActiveCode)
}

func TestValidate_SingleUseKeepsCodeOnMismatch(t *testing.T) {
	g, _ := newTestGateway(Config{SingleUse: true})
	ctx := context.Background()

	code, err := g.GenerateOrGet(ctx)
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	require.Error(t, g.Validate(ctx, wrong))

	// A failed attempt must not burn the code.
	assert.NoError(t, g.Validate(ctx, code))
}

func TestMemoryStore_SetNXRespectsTTL(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.SetNX(ctx, "111111", time.Minute)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.SetNX(ctx, "222222", time.Minute)
	require.NoError(t, err)
	assert.False(t, created, "unexpired value blocks the second writer")

	value, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "111111", value)
}
