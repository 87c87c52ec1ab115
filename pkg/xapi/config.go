package xapi

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DemoCommandURL = "wss://ws.xtb.com/demo"
	DemoStreamURL  = "wss://ws.xtb.com/demoStream"
	RealCommandURL = "wss://ws.xtb.com/real"
	RealStreamURL  = "wss://ws.xtb.com/realStream"
)

type Config struct {
	CommandURL string
	StreamURL  string

	// PingInterval брокер закрывает простаивающее соединение примерно через
	// минуту, поэтому значение должно быть заметно меньше.
	PingInterval     time.Duration
	RequestTimeout   time.Duration
	LogoutTimeout    time.Duration
	HandshakeTimeout time.Duration
	MailboxSize      int

	// AppID и AppName передаются в login без изменений.
	AppID   string
	AppName string

	TLS        *tls.Config
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

type Credentials struct {
	UserID   string
	Password string
}

func DefaultConfig(commandURL, streamURL string) Config {
	return Config{
		CommandURL:       commandURL,
		StreamURL:        streamURL,
		PingInterval:     30 * time.Second,
		RequestTimeout:   30 * time.Second,
		LogoutTimeout:    2 * time.Second,
		HandshakeTimeout: 45 * time.Second,
		MailboxSize:      64,
		Logger:           slog.Default(),
	}
}

func DemoConfig() Config {
	return DefaultConfig(DemoCommandURL, DemoStreamURL)
}

func RealConfig() Config {
	return DefaultConfig(RealCommandURL, RealStreamURL)
}

func (c Config) withDefaults() Config {
	def := DefaultConfig(c.CommandURL, c.StreamURL)

	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.LogoutTimeout <= 0 {
		c.LogoutTimeout = def.LogoutTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = def.MailboxSize
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}

	return c
}

func (c Config) validate() error {
	if c.CommandURL == "" {
		return errors.New("command url is required")
	}
	if c.StreamURL == "" {
		return errors.New("stream url is required")
	}

	return nil
}
