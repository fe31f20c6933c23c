package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"toolbroker/internal/domain"
	"toolbroker/internal/queue"
	"toolbroker/internal/retry"
	"toolbroker/internal/tooling"
)

// DefaultMaxConcurrency bounds parallel calls in one batch when no limit is configured.
const DefaultMaxConcurrency = 8

// DefaultCallTimeout is the per-call deadline when none is configured.
const DefaultCallTimeout = 30 * time.Second

var (
	// ErrCallTimeout is reported when a call exceeds its deadline.
	ErrCallTimeout = errors.New("tool call timed out")
	// ErrCallCanceled is reported when the caller abandons the batch.
	ErrCallCanceled = errors.New("tool call canceled")
	// ErrEncode is reported when a callable's return value cannot be encoded as JSON.
	ErrEncode = errors.New("tool output could not be encoded")
)

// Option is a functional option for configuring Invoker.
type Option func(*Invoker)

// WithLogger sets a structured logger. If l is nil it is ignored and the
// default slog logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(inv *Invoker) {
		if l != nil {
			inv.logger = l
		}
	}
}

// WithMaxConcurrency bounds how many calls of one batch run at once. n <= 0 is ignored.
func WithMaxConcurrency(n int) Option {
	return func(inv *Invoker) {
		if n > 0 {
			inv.maxConcurrency = n
		}
	}
}

// WithCallTimeout sets the per-call deadline. Zero disables the deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(inv *Invoker) {
		if d >= 0 {
			inv.callTimeout = d
		}
	}
}

// WithRetry retries callables that fail with transient errors.
func WithRetry(cfg retry.Config) Option {
	return func(inv *Invoker) {
		if cfg.MaxRetries > 0 {
			inv.retrier = retry.New(cfg)
		}
	}
}

// WithRecorder persists a record of every completed call. If r is nil it is ignored.
func WithRecorder(r domain.CallRecorder) Option {
	return func(inv *Invoker) {
		if r != nil {
			inv.recorder = r
		}
	}
}

// WithClock replaces time.Now for call timestamps.
func WithClock(now func() time.Time) Option {
	return func(inv *Invoker) {
		if now != nil {
			inv.now = now
		}
	}
}

// Invoker turns the tool calls a model emitted in one turn into tool results.
// Each call is resolved, validated, executed and encoded independently: a
// failing call yields an error result and never affects its siblings.
type Invoker struct {
	registry       *tooling.ToolRegistry
	logger         *slog.Logger // optional; nil uses slog.Default()
	maxConcurrency int
	callTimeout    time.Duration
	retrier        *retry.Retrier      // optional; nil means no retries
	recorder       domain.CallRecorder // optional; nil means calls are not recorded
	lanes          *queue.LaneQueue
	now            func() time.Time
}

// NewInvoker creates an invoker backed by the given registry.
// Panics if registry is nil.
func NewInvoker(registry *tooling.ToolRegistry, opts ...Option) *Invoker {
	if registry == nil {
		panic("broker: registry must not be nil")
	}
	inv := &Invoker{
		registry:       registry,
		maxConcurrency: DefaultMaxConcurrency,
		callTimeout:    DefaultCallTimeout,
		lanes:          queue.NewLaneQueue(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// OptionsFromConfig maps the broker and retry config sections to options.
func OptionsFromConfig(cfg domain.Config) []Option {
	opts := []Option{
		WithMaxConcurrency(cfg.Broker.MaxConcurrency),
	}
	if cfg.Broker.CallTimeoutMs > 0 {
		opts = append(opts, WithCallTimeout(cfg.Broker.CallTimeout()))
	}
	if cfg.Retry.MaxRetries > 0 {
		opts = append(opts, WithRetry(retry.FromDomain(cfg.Retry)))
	}
	return opts
}

// log returns the Invoker's logger, falling back to the default slog logger.
func (inv *Invoker) log() *slog.Logger {
	if inv.logger != nil {
		return inv.logger
	}
	return slog.Default()
}

// Definitions returns the tool definitions to advertise to the model.
func (inv *Invoker) Definitions() []domain.ToolDefinition {
	return inv.registry.Definitions()
}

// Close releases the workers used for serial tools.
func (inv *Invoker) Close() {
	inv.lanes.Close()
}

// InvokeAll executes every request of one turn and returns exactly one
// result per request, in request order. Calls run concurrently up to the
// configured limit; tc is shared read-only by all of them.
func (inv *Invoker) InvokeAll(ctx context.Context, reqs []domain.ToolCallRequest, tc domain.ToolContext) []domain.ToolCallResult {
	results := make([]domain.ToolCallResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}
	start := inv.now()

	var g errgroup.Group
	g.SetLimit(inv.maxConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = inv.Invoke(ctx, req, tc)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.IsError {
			failed++
		}
	}
	inv.log().Info("tool batch completed",
		"calls", len(reqs),
		"failed", failed,
		"duration", inv.now().Sub(start),
	)
	return results
}

// Invoke executes a single request. It never panics on a bad request; every
// failure is reported as an error result.
func (inv *Invoker) Invoke(ctx context.Context, req domain.ToolCallRequest, tc domain.ToolContext) domain.ToolCallResult {
	start := inv.now()
	res := inv.invoke(ctx, req, tc)
	elapsed := inv.now().Sub(start)

	if res.IsError {
		inv.log().Warn("tool call failed",
			"call_id", req.CallID,
			"tool", req.ToolName,
			"output", string(res.Output),
			"duration", elapsed,
		)
	} else {
		inv.log().Debug("tool call completed",
			"call_id", req.CallID,
			"tool", req.ToolName,
			"duration", elapsed,
		)
	}
	inv.record(ctx, req, res, start, elapsed)
	return res
}

func (inv *Invoker) invoke(ctx context.Context, req domain.ToolCallRequest, tc domain.ToolContext) domain.ToolCallResult {
	entry, err := inv.registry.Resolve(req.ToolName)
	if err != nil {
		return errorResult(req, domain.KindUnknownTool, err)
	}

	args, err := entry.DecodeArguments(req.RawArguments)
	if err != nil {
		return errorResult(req, domain.KindInvalidArguments, fmt.Errorf("tool %q: %w", req.ToolName, err))
	}

	if !entry.AcceptsContext {
		tc = domain.ToolContext{}
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if inv.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, inv.callTimeout)
	}
	defer cancel()

	out, err := inv.execute(callCtx, entry, args, tc)
	if err != nil {
		return inv.failureResult(callCtx, req, err)
	}

	output, err := encodeOutput(out)
	if err != nil {
		return errorResult(req, domain.KindEncodeFailed, fmt.Errorf("tool %q: %w", req.ToolName, err))
	}
	return domain.ToolCallResult{
		CallID:   req.CallID,
		ToolName: req.ToolName,
		Output:   output,
	}
}

// execute runs the callable in its own goroutine so that a deadline can
// abandon it. Panics are converted to errors. A serial tool's lane stays held
// until its callable returns, even when the caller has already given up.
func (inv *Invoker) execute(ctx context.Context, entry *tooling.Entry, args json.RawMessage, tc domain.ToolContext) (any, error) {
	type outcome struct {
		out any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if r := recover(); r != nil {
				o = outcome{err: fmt.Errorf("panic: %v", r)}
			}
			done <- o
		}()
		if !entry.Serial {
			o.out, o.err = inv.call(ctx, entry, args, tc)
			return
		}
		var out any
		o.err = inv.lanes.Do(ctx, "tool:"+entry.Name, func() error {
			var err error
			out, err = inv.call(ctx, entry, args, tc)
			return err
		})
		if o.err == nil {
			o.out = out
		}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (inv *Invoker) call(ctx context.Context, entry *tooling.Entry, args json.RawMessage, tc domain.ToolContext) (any, error) {
	if inv.retrier == nil {
		return entry.Call(ctx, args, tc)
	}
	var out any
	err := inv.retrier.Do(ctx, func() error {
		var err error
		out, err = entry.Call(ctx, args, tc)
		return err
	})
	return out, err
}

// failureResult classifies an execution error. Context errors only count as
// timeout or cancellation when the call's own context has ended.
func (inv *Invoker) failureResult(callCtx context.Context, req domain.ToolCallRequest, err error) domain.ToolCallResult {
	ctxErr := callCtx.Err()
	switch {
	case ctxErr != nil && errors.Is(ctxErr, context.DeadlineExceeded):
		if inv.callTimeout > 0 {
			return errorResult(req, domain.KindTimeout, fmt.Errorf("%w: %q did not finish within %s", ErrCallTimeout, req.ToolName, inv.callTimeout))
		}
		return errorResult(req, domain.KindTimeout, fmt.Errorf("%w: %q", ErrCallTimeout, req.ToolName))
	case ctxErr != nil:
		return errorResult(req, domain.KindCanceled, fmt.Errorf("%w: %q", ErrCallCanceled, req.ToolName))
	case errors.Is(err, tooling.ErrArgumentDecode):
		return errorResult(req, domain.KindInvalidArguments, fmt.Errorf("tool %q: %w", req.ToolName, err))
	default:
		return errorResult(req, domain.KindExecutionFailed, fmt.Errorf("tool %q failed: %w", req.ToolName, err))
	}
}

func (inv *Invoker) record(ctx context.Context, req domain.ToolCallRequest, res domain.ToolCallResult, start time.Time, elapsed time.Duration) {
	if inv.recorder == nil {
		return
	}
	rec := domain.CallRecord{
		CallID:     req.CallID,
		ToolName:   req.ToolName,
		Arguments:  req.RawArguments,
		Output:     res.Output,
		IsError:    res.IsError,
		StartedAt:  start,
		DurationMs: elapsed.Milliseconds(),
	}
	if err := inv.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		inv.log().Error("failed to record tool call", "call_id", req.CallID, "tool", req.ToolName, "error", err)
	}
}
