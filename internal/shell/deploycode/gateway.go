package deploycode

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/unideploy/unideploy/internal/core/domain"
)

// =============================================================================
// Gateway
// =============================================================================

const (
	// DefaultTTL is how long an issued code stays valid.
	DefaultTTL = 900 * time.Second

	codeMin  = 100000
	codeSpan = 900000 // codes are uniform over [100000, 999999]
)

// Config configures the gateway.
type Config struct {
	// TTL overrides the default code lifetime when positive.
	TTL time.Duration

	// SingleUse invalidates the code after its first successful validation.
	// The default keeps the code reusable until TTL expiry so the same
	// human or tool can retry a failed deployment without a fresh code.
	SingleUse bool
}

// Gateway issues and validates the active deploy code.
type Gateway struct {
	store     Store
	ttl       time.Duration
	singleUse bool
	logger    *slog.Logger
}

// NewGateway creates a gateway over the given store.
func NewGateway(store Store, cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gateway{
		store:     store,
		ttl:       ttl,
		singleUse: cfg.SingleUse,
		logger:    logger.With("component", "deploycode"),
	}
}

// GenerateOrGet returns the currently active code, issuing a fresh one if
// none exists. Concurrent callers always converge on a single code: the
// losing writer of the conditional set reads back the winner's value.
func (g *Gateway) GenerateOrGet(ctx context.Context) (string, error) {
	// A second attempt covers the window where the active code expires
	// between a failed SetNX and the follow-up Get.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", domain.E(domain.KindInternal, "failed to generate deploy code", err)
		}

		created, err := g.store.SetNX(ctx, code, g.ttl)
		if err != nil {
			return "", domain.E(domain.KindUpstream, "deploy code store unavailable", err)
		}
		if created {
			g.logger.Info("deploy code issued", "ttl", g.ttl)
			return code, nil
		}

		active, err := g.store.Get(ctx)
		if err == nil {
			return active, nil
		}
		if err != ErrNoCode {
			return "", domain.E(domain.KindUpstream, "deploy code store unavailable", err)
		}
		// Lost the race and the winner expired already; try again.
	}
	return "", domain.E(domain.KindInternal, "could not settle on an active deploy code", nil)
}

// Validate checks candidate against the active code. It fails with
// Unauthorized when no code is active or the candidate does not match.
func (g *Gateway) Validate(ctx context.Context, candidate string) error {
	active, err := g.store.Get(ctx)
	if err == ErrNoCode {
		return domain.E(domain.KindUnauthorized, "deploy code missing or expired", domain.ErrNoActiveCode)
	}
	if err != nil {
		return domain.E(domain.KindUpstream, "deploy code store unavailable", err)
	}

	if subtle.ConstantTimeCompare([]byte(active), []byte(candidate)) != 1 {
		return domain.E(domain.KindUnauthorized, "deploy code rejected", domain.ErrCodeMismatch)
	}

	if g.singleUse {
		if err := g.store.Delete(ctx); err != nil {
			// The code stays valid until TTL expiry; not worth failing the
			// deployment over.
			g.logger.Warn("failed to invalidate single-use deploy code", "error", err)
		}
	}

	return nil
}

// randomCode samples a 6-digit code uniformly from [100000, 999999].
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
