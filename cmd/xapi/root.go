package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/LLIEPJIOK/xapi/internal/config"
	"github.com/LLIEPJIOK/xapi/internal/logging"
	"github.com/LLIEPJIOK/xapi/pkg/xapi/api"
)

type rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "xapi",
		Short: "Query the broker API and follow its streams",
		Long: `xapi logs in to the broker with credentials from XAPI_USER and
XAPI_PASSWORD, runs a single command or follows a stream, and prints the
results as JSON lines.

Connection settings are read from a YAML file (--config) and can be
overridden with XAPI_SERVER, XAPI_COMMAND_URL, XAPI_STREAM_URL and
XAPI_TLS_CA.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&f.logFormat, "log-format", "", "Log format (text, json)")

	cmd.AddCommand(
		newVersionCmd(f),
		newSymbolsCmd(f),
		newSymbolCmd(f),
		newStreamCmd(f),
	)

	return cmd
}

// connect читает конфигурацию и открывает сессию. Флаги логирования
// перекрывают значения из файла.
func (f *rootFlags) connect(ctx context.Context, stderr io.Writer) (*api.Client, error) {
	file, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	level, format := file.Log.Level, file.Log.Format
	if f.logLevel != "" {
		level = f.logLevel
	}
	if f.logFormat != "" {
		format = f.logFormat
	}

	logger, err := logging.New(logging.Config{Level: level, Format: format, Output: stderr})
	if err != nil {
		return nil, err
	}

	cfg, err := file.ClientConfig(logger)
	if err != nil {
		return nil, err
	}

	creds, err := file.Credentials()
	if err != nil {
		return nil, err
	}

	client, err := api.Dial(ctx, cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return client, nil
}

// run открывает сессию на время fn и закрывает её с logout.
func (f *rootFlags) run(cmd *cobra.Command, fn func(ctx context.Context, client *api.Client) error) error {
	ctx := cmd.Context()

	client, err := f.connect(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	runErr := fn(ctx, client)

	// после Ctrl+C ctx уже отменён, а logout всё равно нужно отправить
	if err := client.Close(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		runErr = err
	}

	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
