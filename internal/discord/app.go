package discord

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/support-relay/internal/lru"
	"github.com/p-blackswan/support-relay/internal/metrics"
	"github.com/p-blackswan/support-relay/internal/requestid"
	"github.com/p-blackswan/support-relay/internal/retry"
	"github.com/p-blackswan/support-relay/internal/router"
)

// TicketRouter is the part of router.Router the gateway drives.
type TicketRouter interface {
	HandleDirectMessage(ctx context.Context, msg router.DirectMessage) error
	HandleThreadMessage(ctx context.Context, msg router.ThreadMessage) error
	HandleReaction(ctx context.Context, re router.Reaction) error
	Claim(ctx context.Context, inv router.Invocation, resp router.Responder) error
	Transfer(ctx context.Context, inv router.Invocation, target router.Member, resp router.Responder) error
	Close(ctx context.Context, inv router.Invocation, resp router.Responder) error
}

// App is the Discord gateway side of the relay.
type App struct {
	api     API
	session *discordgo.Session // nil in tests
	state   *discordgo.State   // nil in tests
	router  TicketRouter
	guildID string
	metrics *metrics.Metrics
	logger  zerolog.Logger
	retry   retry.Config

	channels *lru.Cache[string, channelKind]
	roles    *lru.Cache[string, string] // guild:role id -> role name

	ready  atomic.Bool
	selfID atomic.Value // string

	ctxMu sync.RWMutex
	ctx   context.Context
}

// NewApp wires gateway handlers on session. Call Run to connect.
func NewApp(session *discordgo.Session, r TicketRouter, guildID string, m *metrics.Metrics, logger zerolog.Logger) *App {
	a := newApp(session, r, guildID, m, logger)
	a.session = session
	a.state = session.State

	session.AddHandler(a.onReady)
	session.AddHandler(a.onDisconnect)
	session.AddHandler(a.onResumed)
	session.AddHandler(a.onMessageCreate)
	session.AddHandler(a.onReactionAdd)
	session.AddHandler(a.onInteractionCreate)
	return a
}

func newApp(api API, r TicketRouter, guildID string, m *metrics.Metrics, logger zerolog.Logger) *App {
	a := &App{
		api:      api,
		router:   r,
		guildID:  guildID,
		metrics:  m,
		logger:   logger.With().Str("component", "discord").Logger(),
		retry:    retry.DefaultConfig(),
		channels: lru.New[string, channelKind](4096, 0),
		roles:    lru.New[string, string](256, 10*time.Minute),
		ctx:      context.Background(),
	}
	a.selfID.Store("")
	return a
}

// Run opens the gateway connection and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.ctxMu.Lock()
	a.ctx = ctx
	a.ctxMu.Unlock()

	a.logger.Info().Str("guild_id", a.guildID).Msg("connecting to Discord gateway")
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("opening gateway: %w", err)
	}

	<-ctx.Done()
	a.logger.Info().Msg("closing Discord gateway")
	a.ready.Store(false)
	if err := a.session.Close(); err != nil {
		return fmt.Errorf("closing gateway: %w", err)
	}
	return nil
}

// Ready reports whether the gateway session is established.
func (a *App) Ready() bool {
	return a.ready.Load()
}

func (a *App) baseContext() context.Context {
	a.ctxMu.RLock()
	defer a.ctxMu.RUnlock()
	return a.ctx
}

func (a *App) self() string {
	return a.selfID.Load().(string)
}

func (a *App) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	a.dispatch("ready", func(ctx context.Context) error {
		return a.handleReady(ctx, r)
	})
}

func (a *App) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	a.ready.Store(false)
	a.logger.Warn().Msg("gateway disconnected")
}

func (a *App) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	a.ready.Store(true)
	a.logger.Info().Msg("gateway session resumed")
}

func (a *App) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	a.dispatch("message", func(ctx context.Context) error {
		return a.handleMessage(ctx, m.Message)
	})
}

func (a *App) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	a.dispatch("reaction", func(ctx context.Context) error {
		return a.handleReaction(ctx, r.MessageReaction, r.Member)
	})
}

func (a *App) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	a.dispatch("interaction", func(ctx context.Context) error {
		return a.handleInteraction(ctx, i.Interaction)
	})
}

// dispatch runs one event with its own request id. A failure or panic ends
// that event only.
func (a *App) dispatch(event string, fn func(ctx context.Context) error) {
	ctx, id := requestid.New(a.baseContext())
	logger := a.logger.With().Str("event", event).Str("request_id", id).Logger()

	defer func() {
		if rec := recover(); rec != nil {
			a.metrics.RecordError(event)
			logger.Error().Interface("panic", rec).Msg("event handler panicked")
		}
	}()

	if err := fn(ctx); err != nil {
		a.metrics.RecordError(event)
		logger.Error().Err(err).Msg("event handling failed")
	}
}

func (a *App) handleReady(ctx context.Context, r *discordgo.Ready) error {
	if r.User == nil {
		return fmt.Errorf("ready event without user")
	}
	a.selfID.Store(r.User.ID)

	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}
	registered, err := a.api.ApplicationCommandBulkOverwrite(appID, a.guildID, Commands(), discordgo.WithContext(ctx))
	if err != nil {
		return wrap("register commands", err)
	}

	a.ready.Store(true)
	a.logger.Info().
		Str("user", r.User.Username).
		Str("user_id", r.User.ID).
		Int("commands", len(registered)).
		Msg("logged in")
	return nil
}
