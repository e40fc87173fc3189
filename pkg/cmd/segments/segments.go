package segments

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/robotlog/replay-service-go/log"
	"github.com/robotlog/replay-service-go/pkg/config"
	"github.com/robotlog/replay-service-go/pkg/convert"
)

var asJSON bool

func NewSegmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segments <input.csv>",
		Short: "show the driver-station timeline of a converted log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogger(); err != nil {
				return err
			}
			return runSegments(args[0])
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit segments as JSON")
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

func runSegments(path string) error {
	samples, err := convert.ReadCSVFile(path, config.MaxTimestamp)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	segs := convert.ComputeSegments(samples)
	log.Debug("timeline computed",
		log.Int("samples", len(samples)),
		log.Int("segments", len(segs)))

	if asJSON {
		out := make([]map[string]any, 0, len(segs))
		for _, s := range segs {
			out = append(out, map[string]any{
				"start": s.Start,
				"end":   s.End,
				"state": s.State.String(),
			})
		}
		fmt.Println(oj.JSON(out, 2))
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tSTATE")
	for _, s := range segs {
		fmt.Fprintf(tw, "%.2f\t%.2f\t%s\n", s.Start, s.End, s.State)
	}
	return tw.Flush()
}
