// Package bot is the request-dispatch engine: it loads per-user state,
// runs the middleware chain, resolves the incoming text to an action,
// invokes the controller and persists the session, always producing a
// well-formed result for the platform adapter.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/max36895/umbot/bus"
	"github.com/max36895/umbot/command"
	"github.com/max36895/umbot/intent"
	"github.com/max36895/umbot/session"
)

// DefaultFallbackText is sent when a request produced no response text and
// no application fallback is configured.
const DefaultFallbackText = "Извините, я вас не понял."

// Dispatch stages, used as log context so a stuck or failed request names
// how far it got.
type stage string

const (
	stageIdle             stage = "idle"
	stageNormalized       stage = "normalized"
	stageSessionLoaded    stage = "session-loaded"
	stageMiddlewareRan    stage = "middleware-ran"
	stageActionResolved   stage = "action-resolved"
	stageActionInvoked    stage = "action-invoked"
	stageSessionPersisted stage = "session-persisted"
	stageDone             stage = "done"
)

// Options configures an App. Zero-value fields get sensible defaults.
type Options struct {
	Store        session.Store // nil is valid only if every platform is stateless
	Logger       *slog.Logger
	FallbackText string
	GreetingText string // first-message default when nothing matched
	Intents      []intent.Intent
}

// App is the top-level orchestrator, constructed once and shared by every
// in-flight request. Configure it at startup (commands, middleware,
// controller, adapters); Dispatch may then be called concurrently.
type App struct {
	log      *slog.Logger
	store    session.Store
	commands *command.Table
	resolver *intent.Resolver
	pipeline *Pipeline

	fallbackText string
	greetingText string

	mu         sync.RWMutex
	controller bus.Controller
	adapters   map[string]bus.RequestAdapter
}

func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	fallback := opts.FallbackText
	if fallback == "" {
		fallback = DefaultFallbackText
	}

	cmds := command.NewTable()
	return &App{
		log:          log,
		store:        opts.Store,
		commands:     cmds,
		resolver:     intent.NewResolver(cmds, opts.Intents),
		pipeline:     &Pipeline{},
		fallbackText: fallback,
		greetingText: opts.GreetingText,
		adapters:     make(map[string]bus.RequestAdapter),
	}
}

// RegisterCommand adds or replaces a command. Pattern validation happens
// here, never under live traffic.
func (a *App) RegisterCommand(name string, patterns []string, handler command.Handler, silent bool) error {
	return a.commands.Register(name, patterns, handler, silent)
}

func (a *App) UnregisterCommand(name string) {
	a.commands.Unregister(name)
}

// Use registers a global middleware handler.
func (a *App) Use(h Middleware) {
	a.pipeline.Use(h)
}

// UseFor registers a middleware handler scoped to one platform.
func (a *App) UseFor(platform string, h Middleware) {
	a.pipeline.UseFor(platform, h)
}

// SetController installs the application controller. Required before the
// first Dispatch.
func (a *App) SetController(c bus.Controller) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.controller = c
}

// SetIntents replaces the declared-intent set. The resolver is swapped
// wholesale so dispatches already in flight keep the set they started
// with.
func (a *App) SetIntents(intents []intent.Intent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := intent.NewResolver(a.commands, intents)
	next.Threshold = a.resolver.Threshold
	next.HighConfidence = a.resolver.HighConfidence
	a.resolver = next
}

// RegisterAdapter makes a platform known to the dispatcher.
func (a *App) RegisterAdapter(ad bus.RequestAdapter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.adapters[ad.Platform()] = ad
}

// FallbackResult builds the generic "could not understand" response used
// when a request cannot even be parsed.
func (a *App) FallbackResult() *bus.OutgoingResult {
	return &bus.OutgoingResult{Text: a.fallbackText}
}

func (a *App) adapter(platform string) bus.RequestAdapter {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.adapters[platform]
}

func (a *App) getController() bus.Controller {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.controller
}

func (a *App) getResolver() *intent.Resolver {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.resolver
}

// DispatchRaw parses one raw platform payload with the registered adapter
// and dispatches it. Parse failures are recovered into a generic response;
// missing controller and unknown platform are configuration faults and
// surface as errors.
func (a *App) DispatchRaw(ctx context.Context, platform string, payload []byte) (*bus.OutgoingResult, error) {
	if a.getController() == nil {
		return nil, &ConfigError{Err: ErrNoController}
	}
	ad := a.adapter(platform)
	if ad == nil {
		return nil, &PlatformError{Platform: platform}
	}

	incoming, err := ad.Parse(payload)
	if err != nil {
		merr := &MalformedRequestError{Platform: platform, Err: err}
		a.log.Error("request parse failed", "platform", platform, "err", merr)
		return &bus.OutgoingResult{Text: a.fallbackText}, nil
	}
	return a.Dispatch(ctx, incoming)
}

// Dispatch runs one request through the full state machine:
// load session, middleware chain, intent resolution, controller, persist.
// Application-level failures are logged and converted into a fallback
// response; the returned result is always well-formed.
func (a *App) Dispatch(ctx context.Context, incoming *bus.IncomingRequest) (*bus.OutgoingResult, error) {
	if a.getController() == nil {
		return nil, &ConfigError{Err: ErrNoController}
	}
	ad := a.adapter(incoming.Platform)
	if ad == nil {
		return nil, &PlatformError{Platform: incoming.Platform}
	}

	rid := uuid.NewString()
	log := a.log.With("rid", rid, "platform", incoming.Platform, "user", incoming.UserID)
	st := stageNormalized

	stateless := ad.Stateless()
	sess, isNew := a.loadSession(ctx, log, incoming, stateless)
	st = stageSessionLoaded

	c := &bus.Context{Request: incoming, Session: sess}

	_, err := a.runPipeline(c, log, &st)
	if err != nil {
		// Recovered: the user still gets a textual response, the
		// operator gets the log line.
		log.Error("action failed",
			"stage", string(st),
			"action", c.ResolvedAction,
			"text", incoming.Command,
			"err", err)
		if c.Text == "" {
			c.Text = a.fallbackText
		}
	}

	if c.Text == "" && !c.Resolved {
		if incoming.IsFirstMessage && a.greetingText != "" {
			c.Text = a.greetingText
		} else {
			c.Text = a.fallbackText
		}
	}

	sess.Seq = incoming.MessageSeq
	result := &bus.OutgoingResult{
		Text:            c.Text,
		EndConversation: c.EndConversation,
		Fields:          c.Fields,
		Session:         sess,
	}
	a.persistSession(ctx, log, sess, isNew, stateless, result)

	log.Info("dispatched", "action", c.ResolvedAction, "end", result.EndConversation)
	return result, nil
}

// runPipeline executes the middleware chain with resolution + controller as
// the innermost step. Panics anywhere in the chain are recovered into an
// error so they can never escape Dispatch.
func (a *App) runPipeline(c *bus.Context, log *slog.Logger, st *stage) (completed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	completed, err = a.pipeline.Run(c, func(c *bus.Context) error {
		*st = stageMiddlewareRan
		return a.invokeAction(c, log, st)
	})
	if !completed && err == nil {
		*st = stageMiddlewareRan
		log.Debug("middleware short-circuited chain")
	}
	return completed, err
}

// invokeAction resolves the action and routes it: silent commands bypass
// the controller's generic handler entirely, everything else ends up there.
func (a *App) invokeAction(c *bus.Context, log *slog.Logger, st *stage) error {
	res := a.getResolver().Resolve(c)
	c.ResolvedAction = res.Action
	c.Resolved = res.Resolved
	*st = stageActionResolved
	log.Debug("action resolved", "action", res.Action, "source", res.Source.String(), "score", res.Score)

	if res.Command != nil {
		if res.Command.Handler != nil {
			if err := res.Command.Handler(c); err != nil {
				return fmt.Errorf("command %q: %w", res.Command.Name, err)
			}
		}
		if res.Command.Silent {
			*st = stageActionInvoked
			return nil
		}
	}

	if err := a.getController().Action(c, res.Action, res.Resolved); err != nil {
		return fmt.Errorf("controller action %q: %w", res.Action, err)
	}
	*st = stageActionInvoked
	return nil
}

// loadSession fetches prior state for the request. Store failures degrade
// to a fresh session: availability over strict durability.
func (a *App) loadSession(ctx context.Context, log *slog.Logger, incoming *bus.IncomingRequest, stateless bool) (*session.Session, bool) {
	key := session.Key{Platform: incoming.Platform, UserID: incoming.UserID}

	if stateless {
		if len(incoming.RawStateBlob) > 0 {
			var sess session.Session
			if err := json.Unmarshal(incoming.RawStateBlob, &sess); err != nil {
				log.Error("state blob decode failed, starting fresh", "err", err)
			} else {
				if sess.Data == nil {
					sess.Data = make(map[string]any)
				}
				sess.Platform = key.Platform
				sess.UserID = key.UserID
				return &sess, false
			}
		}
		return session.New(key), true
	}

	if a.store == nil {
		return session.New(key), true
	}
	sess, err := a.store.WhereOne(ctx, key)
	if err != nil {
		log.Error("session load failed, starting fresh", "err", err)
		return session.New(key), true
	}
	if sess == nil {
		return session.New(key), true
	}
	return sess, false
}

// persistSession writes state back out. For stateless platforms it goes
// onto the result instead of a store; store failures are logged, never
// returned, so the computed response still reaches the user.
func (a *App) persistSession(ctx context.Context, log *slog.Logger, sess *session.Session, isNew, stateless bool, result *bus.OutgoingResult) {
	if stateless {
		blob, err := json.Marshal(sess)
		if err != nil {
			log.Error("state blob encode failed", "err", err)
			return
		}
		result.StateBlob = blob
		return
	}
	if a.store == nil {
		return
	}

	key := session.Key{Platform: sess.Platform, UserID: sess.UserID}
	var err error
	if isNew {
		err = a.store.Save(ctx, key, sess)
	} else {
		err = a.store.Update(ctx, key, sess)
	}
	if err != nil {
		log.Error("session persist failed", "err", err)
	}
}
