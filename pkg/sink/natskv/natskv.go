// Package natskv publishes replayed values to a NATS JetStream
// key-value bucket.
package natskv

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/ohler55/ojg/oj"
	"github.com/valyala/fastjson"

	"github.com/robotlog/replay-service-go/log"
	"github.com/robotlog/replay-service-go/pkg/datalog"
	"github.com/robotlog/replay-service-go/pkg/replay"
)

const (
	clientName     = "replaysvc-publisher"
	connectTimeout = 5 * time.Second
	flushTimeout   = 10 * time.Millisecond
)

// Sink writes each published value as JSON to a KV bucket. Writes go
// through async publishes on the bucket subject: the timing loop must
// never block on a slow or absent server.
type Sink struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	prefix string // "$KV.<bucket>."
	parser fastjson.Parser
}

// New connects to nats://host:port and binds the bucket, creating it
// when missing.
func New(host string, port int, bucket string) (*Sink, error) {
	url := fmt.Sprintf("nats://%s:%d", host, port)
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", url, err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if _, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("binding bucket %s: %w", bucket, err)
	}
	log.Info("sink connected",
		log.String("url", url), log.String("bucket", bucket))
	return &Sink{
		conn:   conn,
		js:     js,
		prefix: fmt.Sprintf("$KV.%s.", bucket),
	}, nil
}

// Put publishes one value change. Only called from the timing loop, so
// the embedded fastjson parser needs no locking.
func (s *Sink) Put(key string, v replay.FrameValue) error {
	payload := map[string]any{
		"type":  s.wireType(v),
		"value": nativeValue(v),
		"meta":  v.Metadata,
	}
	subject := s.prefix + sanitizeKey(key)
	if _, err := s.js.PublishAsync(subject, []byte(oj.JSON(payload))); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// Flush nudges buffered publishes onto the wire. Best effort: a slow
// server loses the flush, not the loop.
func (s *Sink) Flush() {
	if err := s.conn.FlushTimeout(flushTimeout); err != nil {
		log.Debug("sink flush", log.ErrorField(err))
	}
}

func (s *Sink) Close() error {
	s.conn.Close()
	return nil
}

// wireType is the type tag published alongside the value. Raw payloads
// carry their original declared type out-of-band in the entry metadata
// JSON ({"type":"struct:Pose2d",...}); fall back to "raw" when absent.
func (s *Sink) wireType(v replay.FrameValue) string {
	if v.Type != datalog.TypeRaw || v.Metadata == "" {
		return v.Type.String()
	}
	parsed, err := s.parser.Parse(v.Metadata)
	if err != nil {
		return v.Type.String()
	}
	if t := parsed.GetStringBytes("type"); len(t) > 0 {
		return string(t)
	}
	return v.Type.String()
}

// nativeValue converts the interchange string encoding into the value
// published to the bucket. Undecodable scalars degrade to zero values
// rather than dropping the key.
func nativeValue(v replay.FrameValue) any {
	switch v.Type {
	case datalog.TypeBoolean:
		return parseBool(v.Value)
	case datalog.TypeInt64, datalog.TypeFloat, datalog.TypeDouble:
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return 0.0
		}
		return f
	case datalog.TypeBooleanArray:
		if v.Value == "" {
			return []bool{}
		}
		parts := strings.Split(v.Value, ",")
		vals := make([]bool, len(parts))
		for i, p := range parts {
			vals[i] = parseBool(p)
		}
		return vals
	case datalog.TypeInt64Array, datalog.TypeFloatArray, datalog.TypeDoubleArray:
		if v.Value == "" {
			return []float64{}
		}
		parts := strings.Split(v.Value, ",")
		vals := make([]float64, len(parts))
		for i, p := range parts {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				f = 0.0
			}
			vals[i] = f
		}
		return vals
	case datalog.TypeStringArray:
		if v.Value == "" {
			return []string{}
		}
		return strings.Split(v.Value, ",")
	default:
		// string and raw stay as-is; raw is hex-encoded
		return v.Value
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// sanitizeKey maps log entry names onto the KV key alphabet
// ([A-Za-z0-9-_/=.]); anything else becomes '_'. "DS:enabled" turns
// into "DS_enabled".
func sanitizeKey(key string) string {
	if key == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '/', r == '=', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
