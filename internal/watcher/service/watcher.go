package service

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	registrymodels "whaled/internal/registry/models"
	watchermetrics "whaled/internal/watcher/metrics"
	"whaled/internal/watcher/models"
	dErrors "whaled/pkg/domain-errors"
	audit "whaled/pkg/platform/audit"
	"whaled/pkg/platform/circuit"
	"whaled/pkg/requestcontext"
)

// watcherActor is the audit actor id for mints triggered by the watcher.
const watcherActor = "watcher"

// TransferSource supplies transfer logs to poll.
type TransferSource interface {
	LatestBlock(ctx context.Context) (uint64, error)
	FilterTransfers(ctx context.Context, fromBlock uint64) ([]models.Transfer, error)
}

// Minter is the registry capability the watcher holds intrinsically.
type Minter interface {
	Mint(ctx context.Context, owner common.Address) (registrymodels.Token, error)
}

// AuditPublisher records watch lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config tunes a watch session.
type Config struct {
	// PollInterval is the time between transfer log polls.
	PollInterval time.Duration
	// PollLimit is the number of polls after which a session stops itself.
	PollLimit int
	// Threshold is the transfer value (in token base units) above which the
	// sender gets a whale.
	Threshold *big.Int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.PollLimit <= 0 {
		c.PollLimit = 3
	}
	if c.Threshold == nil {
		c.Threshold = big.NewInt(1_000_000)
	}
	return c
}

// Watcher polls for large transfers and mints a whale to each sender.
// At most one watch session runs at a time; a session stops itself after
// PollLimit polls or when stopped explicitly.
type Watcher struct {
	source    TransferSource
	minter    Minter
	dedupe    Deduper
	logger    *slog.Logger
	metrics   *watchermetrics.Metrics
	publisher AuditPublisher
	cfg       Config
	breaker   *circuit.Breaker

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	pollCount int
	captured  []string
	nextBlock uint64
}

// Option configures the Watcher.
type Option func(*Watcher)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

func WithMetrics(m *watchermetrics.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(w *Watcher) { w.publisher = publisher }
}

// New constructs a Watcher. Zero fields in cfg fall back to the defaults
// (10s interval, 3 polls, threshold 1,000,000).
func New(source TransferSource, minter Minter, dedupe Deduper, cfg Config, opts ...Option) *Watcher {
	w := &Watcher{
		source:  source,
		minter:  minter,
		dedupe:  dedupe,
		logger:  slog.Default(),
		cfg:     cfg.withDefaults(),
		breaker: circuit.New("transfer-source", circuit.WithFailureThreshold(3)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins a new watch session from the current chain head.
// Fails with a conflict if a session is already running. Starting clears the
// captured log lines and the poll counter.
func (w *Watcher) Start(ctx context.Context) error {
	// The session outlives the request that started it but keeps its values
	// (request id) for audit correlation.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	// Claim the session before releasing the lock so a concurrent Start
	// cannot slip past the running check while we resolve the chain head.
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		cancel()
		return dErrors.New(dErrors.CodeConflict, "already watching for transfers")
	}
	prev := w.done
	w.running = true
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	// Join the previous session's goroutine so two sessions never interleave.
	if prev != nil {
		<-prev
	}

	head, err := w.source.LatestBlock(runCtx)
	if err != nil {
		w.mu.Lock()
		if w.done == done {
			w.running = false
		}
		w.mu.Unlock()
		cancel()
		close(done)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "transfer source unreachable")
	}

	w.mu.Lock()
	if !w.running || w.done != done {
		// Stopped before the first poll; the session ends here.
		w.mu.Unlock()
		cancel()
		close(done)
		return nil
	}
	w.pollCount = 0
	w.captured = nil
	w.nextBlock = head
	w.mu.Unlock()

	w.metrics.IncrementWatchSessions()
	w.emitAudit(ctx, audit.Event{Action: string(audit.EventWatchStarted)})
	w.logger.InfoContext(ctx, "watch session started",
		"from_block", head,
		"poll_limit", w.cfg.PollLimit,
	)

	go w.run(runCtx, done)
	return nil
}

// Stop cancels the running session before it reaches its poll limit.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return dErrors.New(dErrors.CodeConflict, "no watch in progress")
	}
	w.running = false
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	w.emitAudit(ctx, audit.Event{Action: string(audit.EventWatchStopped)})
	w.logger.InfoContext(ctx, "watch session stopped")
	return nil
}

// Status reports whether a session is running and how many polls it has made.
func (w *Watcher) Status() models.WatchStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return models.WatchStatus{
		Running:   w.running,
		PollCount: w.pollCount,
		PollLimit: w.cfg.PollLimit,
		Degraded:  w.breaker.IsOpen(),
	}
}

// Logs returns the transfer lines captured by the current or most recent
// session. Reset on each start.
func (w *Watcher) Logs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.captured))
	copy(out, w.captured)
	return out
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.done == done {
				w.running = false
			}
			w.mu.Unlock()
			return
		case <-ticker.C:
			w.poll(ctx)

			w.mu.Lock()
			// A stopped session may see one last tick while a successor
			// claims the watcher; its counters are no longer ours to touch.
			if w.done != done {
				w.mu.Unlock()
				return
			}
			w.pollCount++
			finished := w.pollCount >= w.cfg.PollLimit
			if finished {
				w.running = false
			}
			w.mu.Unlock()

			if finished {
				w.emitAudit(ctx, audit.Event{Action: string(audit.EventWatchCompleted)})
				w.logger.InfoContext(ctx, "watch session completed",
					"polls", w.cfg.PollLimit,
				)
				return
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	w.mu.Lock()
	from := w.nextBlock
	w.mu.Unlock()

	w.metrics.IncrementPolls()

	transfers, err := w.source.FilterTransfers(ctx, from)
	if err != nil {
		w.metrics.IncrementPollErrors()
		if _, change := w.breaker.RecordFailure(); change.Opened {
			w.logger.ErrorContext(ctx, "transfer source circuit opened",
				"breaker", w.breaker.Name(),
			)
		}
		w.logger.WarnContext(ctx, "transfer poll failed",
			"from_block", from,
			"error", err,
		)
		return
	}
	if _, change := w.breaker.RecordSuccess(); change.Closed {
		w.logger.InfoContext(ctx, "transfer source recovered",
			"breaker", w.breaker.Name(),
		)
	}
	w.metrics.AddTransfersObserved(len(transfers))

	for _, transfer := range transfers {
		w.advanceBlock(transfer.Block + 1)

		if transfer.Value.Cmp(w.cfg.Threshold) <= 0 {
			continue
		}
		w.metrics.IncrementWhalesFlagged()

		first, err := w.dedupe.MarkSeen(ctx, transfer.TxHash)
		if err != nil {
			// Skipping is the conservative choice: a missed whale can be
			// minted manually, a double mint cannot be unminted.
			w.logger.WarnContext(ctx, "dedupe check failed, skipping transfer",
				"tx", transfer.TxHash.Hex(),
				"error", err,
			)
			continue
		}
		if !first {
			continue
		}

		w.capture(transfer.Line())

		token, err := w.minter.Mint(requestcontext.WithMinter(ctx, watcherActor), transfer.From)
		if err != nil {
			w.logger.ErrorContext(ctx, "failed to mint whale for transfer",
				"tx", transfer.TxHash.Hex(),
				"sender", transfer.From.Hex(),
				"error", err,
			)
			continue
		}
		w.logger.InfoContext(ctx, "whale minted for large transfer",
			"token_id", uint64(token.ID),
			"sender", transfer.From.Hex(),
			"value", transfer.Value.String(),
			"tx", transfer.TxHash.Hex(),
		)
	}
}

func (w *Watcher) advanceBlock(next uint64) {
	w.mu.Lock()
	if next > w.nextBlock {
		w.nextBlock = next
	}
	w.mu.Unlock()
}

func (w *Watcher) capture(line string) {
	w.mu.Lock()
	w.captured = append(w.captured, line)
	w.mu.Unlock()
}

func (w *Watcher) emitAudit(ctx context.Context, event audit.Event) {
	if w.publisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ActorID = watcherActor
	if err := w.publisher.Emit(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
