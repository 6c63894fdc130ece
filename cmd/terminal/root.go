package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/cinema-seat-booking/internal/logging"
	"github.com/iliyamo/cinema-seat-booking/internal/relay"
	"github.com/iliyamo/cinema-seat-booking/internal/terminal"
)

func newRootCmd() *cobra.Command {
	var level, format string
	var logger *logrus.Logger

	root := &cobra.Command{
		Use:          "terminal",
		Short:        "Cinema seat-update relay and terminal",
		Long:         `Runs the relay that booking servers push SEAT_UPDATE lines to, or watches it for updates.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			logger = logging.New(level, format)
		},
	}
	root.PersistentFlags().StringVar(&level, "log-level", envOr("LOG_LEVEL", "info"), "log level")
	root.PersistentFlags().StringVar(&format, "log-format", envOr("LOG_FORMAT", "text"), "log format: text or json")

	root.AddCommand(newRelayCmd(func() *logrus.Logger { return logger }))
	root.AddCommand(newWatchCmd(func() *logrus.Logger { return logger }))
	return root
}

func newRelayCmd(logger func() *logrus.Logger) *cobra.Command {
	var listen string
	var queueSize int

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the seat-update relay",
		Long:  `Accepts terminal connections and re-broadcasts every line one client sends to all the others.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}
			hub := relay.NewHub(relay.Config{QueueSize: queueSize}, logger())
			return hub.Serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", envOr("RELAY_LISTEN", ":5000"), "address to listen on")
	cmd.Flags().IntVar(&queueSize, "queue", 64, "lines buffered per client before it is dropped")
	return cmd
}

func newWatchCmd(logger func() *logrus.Logger) *cobra.Command {
	var addr string
	var showtime int64
	var dialTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print seat updates from the relay",
		Long:  `Connects to the relay and prints every seat update, reconnecting with backoff when the relay goes away.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			w := &terminal.Watcher{
				Addr:        addr,
				ShowtimeID:  showtime,
				Out:         cmd.OutOrStdout(),
				Logger:      logger(),
				DialTimeout: dialTimeout,
			}
			return w.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOr("NOTIFY_ADDR", "localhost:5000"), "relay address")
	cmd.Flags().Int64Var(&showtime, "showtime", 0, "only print updates for this showtime")
	cmd.Flags().DurationVar(&dialTimeout, "dial-timeout", 5*time.Second, "timeout for each connection attempt")
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
