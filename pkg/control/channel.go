// Package control implements the synchronous line protocol a front end
// uses to drive the publisher process: one command per line in, exactly
// one response line out, in order.
package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/robotlog/replay-service-go/log"
	"github.com/robotlog/replay-service-go/pkg/convert"
	"github.com/robotlog/replay-service-go/pkg/replay"
)

const (
	respOK  = "OK"
	respErr = "ERR"
	respBye = "BYE"
)

// SinkFactory connects a sink for SET_SERVER.
type SinkFactory func(host string, port int) (replay.Sink, error)

type Channel struct {
	sched        *replay.Scheduler
	newSink      SinkFactory
	period       time.Duration
	maxTimestamp float64
}

type Option func(*Channel)

// WithSinkFactory sets the connector used by SET_SERVER.
func WithSinkFactory(f SinkFactory) Option {
	return func(c *Channel) { c.newSink = f }
}

// WithPeriod sets the frame width used when loading interchange files.
func WithPeriod(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.period = d
		}
	}
}

// WithMaxTimestamp sets the sample cutoff applied by LOAD_CSV.
func WithMaxTimestamp(maxTS float64) Option {
	return func(c *Channel) { c.maxTimestamp = maxTS }
}

func New(sched *replay.Scheduler, opts ...Option) *Channel {
	c := &Channel{
		sched:        sched,
		period:       replay.DefaultPeriod,
		maxTimestamp: 1000,
		newSink: func(string, int) (replay.Sink, error) {
			return nil, fmt.Errorf("no sink factory configured")
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Serve processes commands until QUIT, EOF or context cancellation.
// Responses are flushed per line; a malformed line gets an ERR and the
// channel keeps reading.
func (c *Channel) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := bufio.NewWriter(w)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		resp, quit := c.handle(line)
		fmt.Fprintln(out, resp)
		if err := out.Flush(); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

func (c *Channel) handle(line string) (resp string, quit bool) {
	verb, rest, _ := strings.Cut(line, " ")
	switch verb {
	case "SET_SERVER":
		return c.setServer(rest), false
	case "LOAD_CSV":
		return c.loadCSV(rest), false
	case "SEEK":
		t, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			return respErr, false
		}
		c.sched.Seek(t)
		return respOK, false
	case "PLAY":
		c.sched.Play()
		return respOK, false
	case "PAUSE":
		c.sched.Pause()
		return respOK, false
	case "STOP":
		c.sched.Stop()
		return respOK, false
	case "PUBLISH_ON":
		c.sched.SetPublishing(true)
		return respOK, false
	case "PUBLISH_OFF":
		c.sched.SetPublishing(false)
		return respOK, false
	case "QUIT":
		return respBye, true
	default:
		log.Debug("unknown command", log.String("verb", verb))
		return respErr, false
	}
}

func (c *Channel) setServer(args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return respErr
	}
	port, err := strconv.Atoi(fields[1])
	if err != nil {
		return respErr
	}
	sink, err := c.newSink(fields[0], port)
	if err != nil {
		log.Error("connecting sink", log.ErrorField(err))
		return respErr
	}
	c.sched.SetSink(sink)
	return respOK
}

func (c *Channel) loadCSV(args string) string {
	path := unquote(strings.TrimSpace(args))
	if path == "" {
		return respErr
	}
	samples, err := convert.ReadCSVFile(path, c.maxTimestamp)
	if err != nil {
		log.Error("loading interchange file",
			log.String("path", path), log.ErrorField(err))
		return respErr
	}
	frames := replay.Coalesce(samples, c.period)
	c.sched.Load(frames)
	log.Info("log loaded",
		log.String("path", path),
		log.Int("samples", len(samples)),
		log.Int("frames", len(frames)))
	return respOK
}

// unquote strips one layer of matching single or double quotes, the
// way front ends tend to pass paths with spaces.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
