package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LLIEPJIOK/xapi/pkg/xapi"
	"github.com/LLIEPJIOK/xapi/pkg/xapi/api"
)

func newStreamCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Follow a stream until interrupted",
	}

	cmd.AddCommand(
		newStreamKeepAliveCmd(f),
		newStreamTicksCmd(f),
		newStreamCandlesCmd(f),
	)

	return cmd
}

func newStreamKeepAliveCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "keepalive",
		Short: "Print keepAlive frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.follow(cmd, func(ctx context.Context, client *api.Client) (nexter, error) {
				return wrap(client.SubscribeKeepAlive(ctx))
			})
		},
	}
}

func newStreamTicksCmd(f *rootFlags) *cobra.Command {
	var (
		filterCode     string
		minArrivalTime int
	)

	cmd := &cobra.Command{
		Use:   "ticks <symbol>",
		Short: "Print tick prices of a symbol",
		Example: `  xapi stream ticks EURUSD
  xapi stream ticks EURUSD --filter 'data.level == 0 && data.ask > 1.08'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filters []xapi.Filter

			if filterCode != "" {
				filter, err := xapi.Expr(filterCode)
				if err != nil {
					return err
				}

				filters = append(filters, filter)
			}

			req := api.TickPricesSubscribe{Symbol: args[0]}
			if minArrivalTime > 0 {
				req.MinArrivalTime = &minArrivalTime
			}

			return f.follow(cmd, func(ctx context.Context, client *api.Client) (nexter, error) {
				return wrap(client.SubscribeTickPrices(ctx, req, filters...))
			})
		},
	}

	cmd.Flags().StringVar(&filterCode, "filter", "", "Expression over command and data that a frame must satisfy")
	cmd.Flags().IntVar(&minArrivalTime, "min-arrival-time", 0, "Minimal interval between ticks in milliseconds")

	return cmd
}

func newStreamCandlesCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "candles <symbol>",
		Short: "Print one-minute candles of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.follow(cmd, func(ctx context.Context, client *api.Client) (nexter, error) {
				return wrap(client.SubscribeCandles(ctx, args[0]))
			})
		},
	}
}

// nexter - поток любого типа, данные которого печатаются как JSON.
type nexter interface {
	next(ctx context.Context) (any, error)
	Close() error
}

type typedNexter[T any] struct {
	*api.DataStream[T]
}

func (n typedNexter[T]) next(ctx context.Context) (any, error) {
	return n.Next(ctx)
}

func wrap[T any](stream *api.DataStream[T], err error) (nexter, error) {
	if err != nil {
		return nil, err
	}

	return typedNexter[T]{DataStream: stream}, nil
}

// follow подписывается и печатает кадры по одному в строке, пока не придёт
// сигнал или не закончится поток.
func (f *rootFlags) follow(
	cmd *cobra.Command,
	subscribe func(ctx context.Context, client *api.Client) (nexter, error),
) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.SetContext(ctx)

	return f.run(cmd, func(ctx context.Context, client *api.Client) error {
		stream, err := subscribe(ctx, client)
		if err != nil {
			return err
		}
		defer func() { _ = stream.Close() }()

		enc := json.NewEncoder(cmd.OutOrStdout())

		for {
			v, err := stream.next(ctx)

			switch {
			case errors.Is(err, api.ErrDecode):
				cmd.PrintErrln(err)
				continue
			case errors.Is(err, context.Canceled):
				return nil
			case errors.Is(err, io.EOF):
				return client.Err()
			case err != nil:
				return err
			}

			if err := enc.Encode(v); err != nil {
				return err
			}
		}
	})
}
