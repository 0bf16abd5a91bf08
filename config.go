package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr    string `env:"UMBOT_ADDR"`
	SessionDriver string `env:"UMBOT_SESSION_DRIVER" envDefault:"file"` // file | sqlite
	SessionPath   string `env:"UMBOT_SESSIONS" envDefault:"umbot-sessions.json"`
	IntentsPath   string `env:"UMBOT_INTENTS"`
	Greeting      string `env:"UMBOT_GREETING"`
	Fallback      string `env:"UMBOT_FALLBACK"`
}

func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultAddr()
	}

	flag.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "Listen address")
	flag.StringVar(&cfg.SessionDriver, "session-driver", cfg.SessionDriver, "Session backend: file or sqlite")
	flag.StringVar(&cfg.SessionPath, "sessions", cfg.SessionPath, "Session storage path")
	flag.StringVar(&cfg.IntentsPath, "intents", cfg.IntentsPath, "Declared intents YAML file")
	flag.Parse()

	return cfg, nil
}

func defaultAddr() string {
	// Railway, Render, etc. set PORT
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8090"
}
