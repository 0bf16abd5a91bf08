package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/max36895/umbot/bot"
	"github.com/max36895/umbot/bus"
	"github.com/max36895/umbot/console"
	"github.com/max36895/umbot/intent"
	"github.com/max36895/umbot/platform"
	"github.com/max36895/umbot/server"
	"github.com/max36895/umbot/session"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open session store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	var intents []intent.Intent
	if cfg.IntentsPath != "" {
		intents, err = intent.LoadFile(cfg.IntentsPath)
		if err != nil {
			slog.Error("failed to load intents", "path", cfg.IntentsPath, "err", err)
			os.Exit(1)
		}
		slog.Info("intents loaded", "path", cfg.IntentsPath, "count", len(intents))
	}
	if len(intents) == 0 {
		intents = []intent.Intent{
			{Name: "greeting", Slots: []string{"привет", "здравствуй"}},
			{Name: "by", Slots: []string{"пока", "до свидания"}},
		}
	}

	app := bot.New(bot.Options{
		Store:        store,
		FallbackText: cfg.Fallback,
		GreetingText: cfg.Greeting,
		Intents:      intents,
	})
	app.SetController(bus.ControllerFunc(echoController))
	err = app.RegisterCommand("start", []string{"start", "начать"}, func(c *bus.Context) error {
		c.Text = "Начнём!"
		return nil
	}, true)
	if err != nil {
		slog.Error("failed to register command", "err", err)
		os.Exit(1)
	}

	srv := server.New(app)
	srv.Register(platform.Alice{})
	srv.Register(platform.Marusia{})
	srv.Register(platform.Telegram{})
	app.RegisterAdapter(console.Adapter{})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Handler()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("umbot starting", "addr", cfg.ListenAddr, "sessions", cfg.SessionDriver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		return httpServer.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// echoController is the reference controller: swap it out for real
// application logic.
func echoController(c *bus.Context, action string, resolved bool) error {
	if !resolved {
		c.Text = "Я вас не понял. Скажите «привет» или «пока»."
		return nil
	}
	switch action {
	case "greeting":
		c.Text = "Привет!"
	case "by":
		c.Text = "Пока!"
		c.EndConversation = true
	default:
		c.Text = "Действие: " + action
	}
	return nil
}

func openStore(cfg Config) (session.Store, func(), error) {
	switch cfg.SessionDriver {
	case "sqlite":
		s, err := session.OpenSQL(cfg.SessionPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return session.NewFileStore(cfg.SessionPath), func() {}, nil
	}
}
