package ingress

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"ipsentry/internal/config"
	"ipsentry/internal/database"
	"ipsentry/internal/domain"
	"ipsentry/internal/geo"
)

// Guard answers the blocklist question for one address.
type Guard interface {
	IsBlocked(ctx context.Context, address string) (bool, error)
}

// Resolver annotates an address with geographic origin. It never fails;
// degraded lookups come back with nil fields.
type Resolver interface {
	Resolve(ctx context.Context, address string) geo.Result
}

// Recorder appends one audit entry per admitted request.
type Recorder interface {
	Record(ctx context.Context, entry *domain.RequestLog) error
}

// RequestContext is the value the pipeline stages share. Stages read the
// extracted request fields and fill in what they produce.
type RequestContext struct {
	Address   string
	Path      string
	Method    string
	UserAgent string
	Timestamp time.Time
	Geo       geo.Result
}

// Verdict is a stage outcome. A non-allowed verdict short-circuits the
// pipeline and answers the request directly.
type Verdict struct {
	Allowed bool
	Status  int
	Message string
}

var allowed = Verdict{Allowed: true}

// Stage is one step of the per-request pipeline.
type Stage func(ctx context.Context, rc *RequestContext) Verdict

// Policy carries the ingress decisions that are configuration, not code.
type Policy struct {
	TrustForwardedHeader bool
	BlocklistFailOpen    bool
	BlockedMessage       string
}

const defaultBlockedMessage = "Your IP has been blocked."

// Pipeline runs the ordered stage list on every inbound request:
// blocklist check, geolocation, audit append. Stage order is the
// contract; a denied request never reaches the later stages.
// The policy is re-read per request so configuration updates take
// effect without a restart.
type Pipeline struct {
	stages []Stage
	policy func() Policy
}

type PipelineOption func(*Pipeline)

func NewPipeline(guard Guard, resolver Resolver, recorder Recorder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{policy: configuredPolicy}
	for _, opt := range opts {
		opt(p)
	}

	p.stages = []Stage{
		p.guardStage(guard),
		p.geoStage(resolver),
		p.recordStage(recorder),
	}
	return p
}

func WithPolicyFunc(policy func() Policy) PipelineOption {
	return func(p *Pipeline) {
		if policy != nil {
			p.policy = policy
		}
	}
}

func configuredPolicy() Policy {
	cfg := config.GetConfig()
	return Policy{
		TrustForwardedHeader: cfg.Ingress.TrustForwardedHeader,
		BlocklistFailOpen:    cfg.Ingress.BlocklistFailOpen,
		BlockedMessage:       cfg.Ingress.BlockedMessage,
	}
}

// Handle runs the stages in order, stopping at the first denial.
func (p *Pipeline) Handle(ctx context.Context, rc *RequestContext) Verdict {
	for _, stage := range p.stages {
		if verdict := stage(ctx, rc); !verdict.Allowed {
			return verdict
		}
	}
	return allowed
}

// Middleware wraps an HTTP handler with the pipeline. Denied requests are
// answered here; admitted ones continue to next.
func (p *Pipeline) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := &RequestContext{
			Address:   ClientAddress(r, p.policy().TrustForwardedHeader),
			Path:      r.URL.Path,
			Method:    r.Method,
			UserAgent: r.UserAgent(),
			Timestamp: time.Now().UTC(),
		}

		if verdict := p.Handle(r.Context(), rc); !verdict.Allowed {
			http.Error(w, verdict.Message, verdict.Status)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (p *Pipeline) guardStage(guard Guard) Stage {
	return func(ctx context.Context, rc *RequestContext) Verdict {
		policy := p.policy()

		blocked, err := guard.IsBlocked(ctx, rc.Address)
		if err != nil {
			log.Error("ingress: blocklist check failed", "address", rc.Address, "error", err)
			if policy.BlocklistFailOpen {
				return allowed
			}
			return Verdict{Status: http.StatusServiceUnavailable, Message: "Service unavailable"}
		}

		if blocked {
			message := policy.BlockedMessage
			if message == "" {
				message = defaultBlockedMessage
			}
			return Verdict{Status: http.StatusForbidden, Message: message}
		}
		return allowed
	}
}

func (p *Pipeline) geoStage(resolver Resolver) Stage {
	return func(ctx context.Context, rc *RequestContext) Verdict {
		rc.Geo = resolver.Resolve(ctx, rc.Address)
		return allowed
	}
}

func (p *Pipeline) recordStage(recorder Recorder) Stage {
	return func(ctx context.Context, rc *RequestContext) Verdict {
		entry := &domain.RequestLog{
			IPAddress: rc.Address,
			Path:      rc.Path,
			Method:    rc.Method,
			UserAgent: rc.UserAgent,
			Timestamp: rc.Timestamp,
			Country:   rc.Geo.Country,
			City:      rc.Geo.City,
		}

		// Log-and-continue: an audit outage must not deny legitimate traffic.
		if err := recorder.Record(ctx, entry); err != nil {
			log.Error("ingress: request log append failed", "address", rc.Address, "error", err)
		}
		return allowed
	}
}

// ClientAddress extracts the source address. The first X-Forwarded-For
// element wins when the header is trusted; this is a documented trust
// assumption, the header is client-controllable.
func ClientAddress(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
			if first != "" {
				return database.NormalizeAddress(first)
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return database.NormalizeAddress(r.RemoteAddr)
	}
	return database.NormalizeAddress(host)
}
