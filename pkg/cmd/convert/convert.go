package convert

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/robotlog/replay-service-go/log"
	"github.com/robotlog/replay-service-go/pkg/config"
	"github.com/robotlog/replay-service-go/pkg/convert"
	"github.com/robotlog/replay-service-go/pkg/datalog"
)

func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <input.wpilog> <output.csv>",
		Short: "decode a binary datalog into the CSV interchange format",
		Long: `Decodes a binary datalog file and writes the contained samples as
CSV rows (timestamp,key,type,value,meta). Gzip compressed input is
detected automatically; an output path ending in .gz is compressed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogger(); err != nil {
				return err
			}
			return runConvert(args[0], args[1])
		},
	}
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

func runConvert(inPath, outPath string) error {
	raw, err := readMaybeGzip(inPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inPath, err)
	}
	r := datalog.NewReader(raw)
	if !r.Valid() {
		return fmt.Errorf("%s is not a datalog file", inPath)
	}
	samples := convert.Project(r)

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()
	var w io.Writer = out
	var gw *gzip.Writer
	if strings.HasSuffix(outPath, ".gz") {
		gw = gzip.NewWriter(out)
		w = gw
	}
	if err := convert.WriteCSV(w, samples); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	if gw != nil {
		if err := gw.Close(); err != nil {
			return fmt.Errorf("closing gzip stream: %w", err)
		}
	}
	log.Info("log converted",
		log.String("input", inPath),
		log.String("output", outPath),
		log.Int("samples", len(samples)))
	return nil
}

// readMaybeGzip loads the file, transparently decompressing when the
// content starts with the gzip magic.
func readMaybeGzip(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gr.Close()
		return io.ReadAll(gr)
	}
	return raw, nil
}
