package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	registrymetrics "whaled/internal/registry/metrics"
	"whaled/internal/registry/models"
	dErrors "whaled/pkg/domain-errors"
	audit "whaled/pkg/platform/audit"
	"whaled/pkg/platform/sentinel"
	"whaled/pkg/requestcontext"
)

// Ledger is the ownership ledger capability the registry delegates to.
// Identifier allocation and ownership recording are one atomic step so a
// rejected mint never consumes an id.
type Ledger interface {
	AllocateAndRecord(ctx context.Context, owner common.Address, mintedAt time.Time) (models.TokenID, error)
	FindToken(ctx context.Context, id models.TokenID) (models.Token, error)
	TotalMinted(ctx context.Context) (uint64, error)
}

// AuditPublisher records registry actions on the audit pipeline.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Registry allocates fresh token identifiers and delegates ownership to the
// ledger.
//
// Invariants:
//   - identifiers returned by successful mints are exactly 0,1,2,... in call
//     order, with no repeats and no gaps
//   - a failed mint leaves the counter and the ledger untouched
//   - an identifier collision reported by the ledger is a counter bug and is
//     surfaced as an invariant violation, never retried
type Registry struct {
	ledger    Ledger
	logger    *slog.Logger
	metrics   *registrymetrics.Metrics
	publisher AuditPublisher
	tracer    trace.Tracer
}

// Option configures the Registry.
type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(r *Registry) { r.publisher = publisher }
}

// New constructs a Registry over the given ledger.
func New(ledger Ledger, opts ...Option) *Registry {
	r := &Registry{
		ledger: ledger,
		logger: slog.Default(),
		tracer: otel.Tracer("whaled/registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mint allocates a fresh token id and records owner as its holder.
// The recipient is validated before the ledger is touched, so a rejected
// recipient is a complete no-op.
func (r *Registry) Mint(ctx context.Context, owner common.Address) (models.Token, error) {
	ctx, span := r.tracer.Start(ctx, "registry.Mint",
		trace.WithAttributes(attribute.String("owner", owner.Hex())))
	defer span.End()

	if err := models.ValidateRecipient(owner); err != nil {
		r.metrics.IncrementMintsRejected("invalid_recipient")
		r.emitAudit(ctx, audit.Event{
			Action: string(audit.EventMintRejected),
			Owner:  owner.Hex(),
			Reason: "invalid recipient",
		})
		return models.Token{}, err
	}

	start := time.Now()
	id, err := r.ledger.AllocateAndRecord(ctx, owner, requestcontext.Now(ctx))
	if err != nil {
		return models.Token{}, r.translateMintErr(ctx, owner, err)
	}
	r.metrics.ObserveMintDuration(time.Since(start).Seconds())
	r.metrics.IncrementWhalesMinted()

	token := models.Token{ID: id, Owner: owner, MintedAt: requestcontext.Now(ctx)}
	span.SetAttributes(attribute.Int64("token_id", int64(id)))

	tokenID := uint64(id)
	r.emitAudit(ctx, audit.Event{
		Action:  string(audit.EventWhaleMinted),
		TokenID: &tokenID,
		Owner:   owner.Hex(),
	})

	r.logger.InfoContext(ctx, "whale minted",
		"token_id", uint64(id),
		"owner", owner.Hex(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return token, nil
}

// OwnerOf returns the token record for id. Delegated entirely to the ledger.
func (r *Registry) OwnerOf(ctx context.Context, id models.TokenID) (models.Token, error) {
	token, err := r.ledger.FindToken(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Token{}, dErrors.New(dErrors.CodeNotFound, "token not minted")
		}
		return models.Token{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load token")
	}
	return token, nil
}

// TotalMinted returns the number of successful mints, which equals the
// counter's current value.
func (r *Registry) TotalMinted(ctx context.Context) (uint64, error) {
	total, err := r.ledger.TotalMinted(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load mint count")
	}
	return total, nil
}

func (r *Registry) translateMintErr(ctx context.Context, owner common.Address, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		// The ledger's own recipient rejection; the pre-validation above makes
		// this unreachable for the zero address, but the ledger has the final
		// word.
		r.metrics.IncrementMintsRejected("ledger_rejected")
		return dErrors.New(dErrors.CodeInvalidRecipient, "ledger rejected recipient")
	case errors.Is(err, sentinel.ErrConflict):
		// A duplicate id means the counter proposed an identifier that already
		// has an owner. That cannot happen with a monotonic counter unless the
		// counter state was corrupted.
		r.metrics.IncrementMintsRejected("id_collision")
		r.logger.ErrorContext(ctx, "token id collision, counter state corrupt",
			"owner", owner.Hex(),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "token id collision")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "mint failed")
	}
}

func (r *Registry) emitAudit(ctx context.Context, event audit.Event) {
	if r.publisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ActorID = requestcontext.Minter(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.UserAgent = requestcontext.UserAgent(ctx)
	if err := r.publisher.Emit(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
