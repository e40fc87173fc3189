package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robotlog/replay-service-go/log"
	"github.com/robotlog/replay-service-go/pkg/config"
	"github.com/robotlog/replay-service-go/pkg/control"
	"github.com/robotlog/replay-service-go/pkg/replay"
	"github.com/robotlog/replay-service-go/pkg/sink/natskv"
)

func NewPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "replay a converted log against a key-value sink",
		Long: `Starts the replay publisher. Commands arrive one per line on stdin
(SET_SERVER, LOAD_CSV, SEEK, PLAY, PAUSE, STOP, PUBLISH_ON, PUBLISH_OFF,
QUIT), each answered with a single OK/ERR/BYE line on stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogger(); err != nil {
				return err
			}
			return runPublish()
		},
	}
	cmd.Flags().StringVar(&config.Period,
		"period",
		"20ms",
		"frame period used for coalescing and playback")
	cmd.Flags().StringVar(&config.Bucket,
		"bucket",
		"robotlog",
		"name of the KV bucket receiving published values")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() error {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	if config.LogFilter != "" {
		var err error
		if logger, err = log.WithFilterRules(logger, config.LogFilter); err != nil {
			return err
		}
	}
	log.ResetDefault(logger)
	return nil
}

func runPublish() error {
	period, err := time.ParseDuration(config.Period)
	if err != nil {
		return fmt.Errorf("invalid period %q: %w", config.Period, err)
	}

	sched := replay.NewScheduler(
		replay.WithPeriod(period),
		replay.WithMaxTimestamp(config.MaxTimestamp),
	)
	ch := control.New(sched,
		control.WithPeriod(period),
		control.WithMaxTimestamp(config.MaxTimestamp),
		control.WithSinkFactory(func(host string, port int) (replay.Sink, error) {
			return natskv.New(host, port, config.Bucket)
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("publisher started",
		log.Duration("period", period),
		log.String("bucket", config.Bucket))

	// Serve runs detached: a blocking stdin read must not keep the
	// process alive once a signal cancelled the group.
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- ch.Serve(ctx, os.Stdin, os.Stdout)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		select {
		case err := <-serveErr:
			stop()
			return err
		case <-gctx.Done():
			return nil
		}
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("publisher stopped")
	return nil
}
