// Package suggest drafts replies to timeline tweets with a chat completion model.
package suggest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"socialrelay/internal/metrics"
	"socialrelay/internal/model"
	"socialrelay/internal/util"
)

// DefaultConcurrency bounds in-flight completions for one fan-out.
const DefaultConcurrency = 10

// Engine fans timeline items out to a Completer.
type Engine struct {
	completer   Completer
	opts        Options
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// EngineOption tweaks an Engine.
type EngineOption func(*Engine)

func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithCallTimeout bounds each completion call. Zero leaves it to the HTTP client.
func WithCallTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(c Completer, opts Options, options ...EngineOption) *Engine {
	e := &Engine{
		completer:   c,
		opts:        opts,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// GenerateReplies drafts one reply per item. Results come back in completion
// order; items whose completion fails are logged and left out. Cancelling ctx
// does not stop submitted tasks. The only error is ErrNoCompleter.
func (e *Engine) GenerateReplies(ctx context.Context, items []model.TimelineItem) ([]model.ReplyResult, error) {
	if e == nil || e.completer == nil {
		return nil, model.ErrNoCompleter
	}
	start := time.Now()
	defer metrics.ObserveFanOutDuration(start)

	var (
		mu      sync.Mutex
		results = make([]model.ReplyResult, 0, len(items))
	)
	// tasks outlive the caller's cancellation; only the per-call timeout applies
	taskCtx := context.WithoutCancel(ctx)
	// plain Group: a failed item must not cancel its siblings
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for _, item := range items {
		g.Go(func() error {
			reply, err := e.draft(taskCtx, item)
			if err != nil {
				metrics.ReplyFailures.Inc()
				e.logger.WarnContext(taskCtx, "reply_draft_failed",
					slog.String("tweet_id", item.ID),
					slog.String("error", err.Error()))
				return nil
			}
			metrics.RepliesGenerated.Inc()
			mu.Lock()
			results = append(results, model.ReplyResult{
				TweetID:         item.ID,
				Tweet:           item.Text,
				Reply:           reply,
				Username:        item.Username,
				ProfileImageURL: item.ProfileImageURL,
				Verified:        item.Verified,
				Name:            item.Name,
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	e.logger.InfoContext(ctx, "replies_generated",
		slog.Int("requested", len(items)),
		slog.Int("succeeded", len(results)),
		slog.Duration("took", time.Since(start)))
	return results, nil
}

func (e *Engine) draft(ctx context.Context, item model.TimelineItem) (string, error) {
	metrics.RepliesInFlight.Inc()
	defer metrics.RepliesInFlight.Dec()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	text, err := e.completer.Complete(ctx, BuildPrompt(item.Text), e.opts)
	if err != nil {
		return "", err
	}
	reply := util.TrimQuotes(util.NormalizeWhitespace(text))
	if reply == "" {
		return "", errEmptyCompletion
	}
	return reply, nil
}
