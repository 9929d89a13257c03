package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/shortlist/internal/auth"
	"github.com/MrSnakeDoc/shortlist/internal/decision"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
	"github.com/MrSnakeDoc/shortlist/internal/metrics"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	Engine       *decision.Engine // decision grouping and resolution operations
	Verifier     *auth.Verifier   // bearer token verification for /api routes
	Metrics      *metrics.Metrics // nil disables /metrics and request counting
	Store        Pinger           // checked by /readyz
	StoreName    string           // "memory" | "redis" | "sqlite", reported by /healthz
	AllowedCIDRS []string         // networks allowed to reach /metrics and /readyz
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateBurst    int              // per-client burst for the rate limiter
	RatePerMin   int              // per-client sustained rate
}
