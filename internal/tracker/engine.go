package tracker

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/k17ctf/ctfbot/internal/ctfd"
	"github.com/k17ctf/ctfbot/internal/discord"
	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/errors"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/store"
)

// ErrStopped is returned when a command is submitted after Stop.
var ErrStopped = stderrors.New("tracker stopped")

// Store is the slice of persistence the engine uses.
type Store interface {
	AddTrackedMessage(ctx context.Context, msg *domain.TrackedMessage) (int64, error)
	GetTrackedMessages(ctx context.Context, filter store.TrackedMessageFilter) ([]domain.TrackedMessage, error)
	UpdateTrackedMessageMetadata(ctx context.Context, messageID domain.Snowflake, md domain.Metadata) error
	DeactivateTrackedMessage(ctx context.Context, messageID domain.Snowflake) error
	LogAction(ctx context.Context, entry store.AuditEntry) error
}

// Scoreboard fetches competition standings.
type Scoreboard interface {
	Fetch(ctx context.Context, domain, apiKey string) (*ctfd.Snapshot, error)
}

// Options tunes the engine.
type Options struct {
	FallbackChannelID domain.Snowflake
	RefreshInterval   time.Duration
	LeaderboardSize   int
}

type cacheMap = map[domain.Snowflake]domain.CacheEntry

// command runs inside the owner goroutine.
type command struct {
	name  string
	fn    func(ctx context.Context) error
	reply chan error
}

// Engine owns the tracked-message cache. Only the loop goroutine touches
// cache; everyone else submits commands or reads the published view.
type Engine struct {
	store      Store
	platform   discord.Platform
	scoreboard Scoreboard
	logger     logger.Logger
	opts       Options
	now        func() time.Time

	cache cacheMap
	view  atomic.Pointer[cacheMap]

	cmds     chan command
	started  atomic.Bool
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new tracker engine.
func New(st Store, platform discord.Platform, scoreboard Scoreboard, log logger.Logger, opts Options) *Engine {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Minute
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = 10
	}

	e := &Engine{
		store:      st,
		platform:   platform,
		scoreboard: scoreboard,
		logger:     log,
		opts:       opts,
		now:        time.Now,
		cache:      cacheMap{},
		cmds:       make(chan command),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	e.publish()
	return e
}

// Start reconciles the cache with the store and then starts the refresh
// loop. A reconcile failure here is fatal to startup.
func (e *Engine) Start(ctx context.Context) error {
	e.started.Store(true)
	if err := e.reconcile(ctx); err != nil {
		close(e.done)
		return fmt.Errorf("initial reconcile failed: %w", err)
	}
	e.publish()

	go e.loop(ctx)
	return nil
}

// Stop stops the loop and waits for the in-flight command to finish.
func (e *Engine) Stop() {
	if !e.started.Load() {
		return
	}
	e.stopOnce.Do(func() { close(e.stopCh) })
	<-e.done
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = e.exec(ctx, "refresh", e.refreshAll)
		case cmd := <-e.cmds:
			cmd.reply <- e.exec(ctx, cmd.name, cmd.fn)
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// exec runs fn, converting a panic into an internal error and publishing the
// resulting cache state.
func (e *Engine) exec(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tracker operation panicked",
				logger.String("op", name),
				logger.String("panic", fmt.Sprint(r)))
			err = errors.NewInternal(fmt.Errorf("%s: panic: %v", name, r))
		}
		e.publish()
	}()
	return fn(ctx)
}

// submit hands fn to the loop and waits for its result.
func (e *Engine) submit(ctx context.Context, name string, fn func(context.Context) error) error {
	cmd := command{name: name, fn: fn, reply: make(chan error, 1)}
	select {
	case e.cmds <- cmd:
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-e.done:
		return ErrStopped
	}
}

// publish swaps in an immutable copy of the cache for readers.
func (e *Engine) publish() {
	snap := make(cacheMap, len(e.cache))
	for id, entry := range e.cache {
		snap[id] = entry.Clone()
	}
	e.view.Store(&snap)
}
