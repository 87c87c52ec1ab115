// Package config читает YAML-файл CLI и переменные окружения и собирает из
// них xapi.Config и учётные данные.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LLIEPJIOK/xapi/pkg/xapi"
)

const (
	ServerDemo   = "demo"
	ServerReal   = "real"
	ServerCustom = "custom"
)

const (
	EnvUser       = "XAPI_USER"
	EnvPassword   = "XAPI_PASSWORD"
	EnvServer     = "XAPI_SERVER"
	EnvCommandURL = "XAPI_COMMAND_URL"
	EnvStreamURL  = "XAPI_STREAM_URL"
	EnvTLSCA      = "XAPI_TLS_CA"
)

var (
	ErrUnknownServer      = errors.New("unknown server")
	ErrMissingCredentials = errors.New("missing credentials")
)

// Duration принимает в YAML строки вида "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	*d = Duration(parsed)

	return nil
}

type File struct {
	Server     string `yaml:"server"`
	CommandURL string `yaml:"command_url"`
	StreamURL  string `yaml:"stream_url"`

	PingInterval   Duration `yaml:"ping_interval"`
	RequestTimeout Duration `yaml:"request_timeout"`
	MailboxSize    int      `yaml:"mailbox_size"`

	AppID   string `yaml:"app_id"`
	AppName string `yaml:"app_name"`

	User     string `yaml:"user"`
	Password string `yaml:"password"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	TLS struct {
		CAFile string `yaml:"ca_file"`
	} `yaml:"tls"`

	caPEM []byte
}

// Load читает файл по пути path; пустой путь означает конфигурацию только из
// окружения. Переменные окружения перекрывают значения файла.
func Load(path string) (*File, error) {
	f := &File{Server: ServerDemo}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := f.applyEnv(); err != nil {
		return nil, err
	}

	return f, nil
}

func (f *File) applyEnv() error {
	setFromEnv(&f.User, EnvUser)
	setFromEnv(&f.Password, EnvPassword)
	setFromEnv(&f.Server, EnvServer)
	setFromEnv(&f.CommandURL, EnvCommandURL)
	setFromEnv(&f.StreamURL, EnvStreamURL)

	ca, err := caFromEnv()
	if err != nil {
		return err
	}

	f.caPEM = ca

	return nil
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (f *File) ClientConfig(logger *slog.Logger) (xapi.Config, error) {
	var cfg xapi.Config

	switch f.Server {
	case ServerDemo, "":
		cfg = xapi.DemoConfig()
	case ServerReal:
		cfg = xapi.RealConfig()
	case ServerCustom:
		cfg = xapi.DefaultConfig("", "")
	default:
		return xapi.Config{}, fmt.Errorf("%w: %q", ErrUnknownServer, f.Server)
	}

	if f.CommandURL != "" {
		cfg.CommandURL = f.CommandURL
	}
	if f.StreamURL != "" {
		cfg.StreamURL = f.StreamURL
	}
	if cfg.CommandURL == "" || cfg.StreamURL == "" {
		return xapi.Config{}, fmt.Errorf("server %q requires command_url and stream_url", f.Server)
	}

	if f.PingInterval > 0 {
		cfg.PingInterval = time.Duration(f.PingInterval)
	}
	if f.RequestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(f.RequestTimeout)
	}
	if f.MailboxSize > 0 {
		cfg.MailboxSize = f.MailboxSize
	}

	cfg.AppID = f.AppID
	cfg.AppName = f.AppName

	tlsCfg, err := f.tlsConfig()
	if err != nil {
		return xapi.Config{}, err
	}

	cfg.TLS = tlsCfg

	if logger != nil {
		cfg.Logger = logger
	}

	return cfg, nil
}

func (f *File) Credentials() (xapi.Credentials, error) {
	if f.User == "" || f.Password == "" {
		return xapi.Credentials{}, fmt.Errorf("%w: set %s and %s", ErrMissingCredentials, EnvUser, EnvPassword)
	}

	return xapi.Credentials{UserID: f.User, Password: f.Password}, nil
}
