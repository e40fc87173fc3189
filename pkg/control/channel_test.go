package control

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotlog/replay-service-go/pkg/replay"
)

func nopFactory(string, int) (replay.Sink, error) {
	return replay.NopSink{}, nil
}

func serve(t *testing.T, c *Channel, input string) []string {
	t.Helper()
	var out bytes.Buffer
	err := c.Serve(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	return strings.Fields(out.String())
}

func writeInterchangeFile(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.csv")
	content := "timestamp,key,type,value,meta\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestChannelSession(t *testing.T) {
	sched := replay.NewScheduler()
	c := New(sched, WithSinkFactory(nopFactory))

	input := strings.Join([]string{
		"SET_SERVER 127.0.0.1 5810",
		"LOAD_CSV /no/such/file.csv",
		"SEEK 5.0",
		"QUIT",
	}, "\n")
	assert.Equal(t, []string{"OK", "ERR", "OK", "BYE"}, serve(t, c, input))

	idx, playing, _ := sched.State()
	assert.Equal(t, 250, idx)
	assert.False(t, playing)
}

func TestChannelLoadAndTransport(t *testing.T) {
	path := writeInterchangeFile(t,
		"0.000000,DS:enabled,boolean,false,",
		"1.000000,DS:enabled,boolean,true,",
	)
	sched := replay.NewScheduler()
	c := New(sched, WithSinkFactory(nopFactory))

	input := strings.Join([]string{
		"LOAD_CSV " + path,
		"PUBLISH_ON",
		"PLAY",
		"PAUSE",
		"STOP",
		"PUBLISH_OFF",
	}, "\n")
	assert.Equal(t,
		[]string{"OK", "OK", "OK", "OK", "OK", "OK"},
		serve(t, c, input))

	idx, playing, publishing := sched.State()
	assert.Zero(t, idx)
	assert.False(t, playing)
	assert.False(t, publishing)
}

func TestChannelQuotedPath(t *testing.T) {
	path := writeInterchangeFile(t, "0.000000,k,double,1.5,")
	c := New(replay.NewScheduler(), WithSinkFactory(nopFactory))
	assert.Equal(t, []string{"OK", "BYE"},
		serve(t, c, "LOAD_CSV \""+path+"\"\nQUIT\n"))
}

func TestChannelErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "unknown verb", line: "REWIND"},
		{name: "seek without argument", line: "SEEK"},
		{name: "seek with garbage", line: "SEEK fast"},
		{name: "set server missing port", line: "SET_SERVER localhost"},
		{name: "set server bad port", line: "SET_SERVER localhost nope"},
		{name: "load without path", line: "LOAD_CSV"},
	}
	c := New(replay.NewScheduler(), WithSinkFactory(nopFactory))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the channel answers ERR and stays usable
			assert.Equal(t, []string{"ERR", "OK"},
				serve(t, c, tt.line+"\nPLAY\n"))
		})
	}
}

func TestChannelSinkFactoryFailure(t *testing.T) {
	c := New(replay.NewScheduler(),
		WithSinkFactory(func(string, int) (replay.Sink, error) {
			return nil, errors.New("connection refused")
		}))
	assert.Equal(t, []string{"ERR"}, serve(t, c, "SET_SERVER 10.0.0.2 4222"))
}

func TestChannelEOFWithoutQuit(t *testing.T) {
	c := New(replay.NewScheduler())
	var out bytes.Buffer
	err := c.Serve(context.Background(), strings.NewReader("PLAY\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out.String())
}

func TestChannelSkipsBlankLines(t *testing.T) {
	c := New(replay.NewScheduler())
	assert.Equal(t, []string{"OK"}, serve(t, c, "\n\n  \nPAUSE\n"))
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `"/tmp/a b.csv"`, want: "/tmp/a b.csv"},
		{in: `'/tmp/a.csv'`, want: "/tmp/a.csv"},
		{in: "/tmp/plain.csv", want: "/tmp/plain.csv"},
		{in: `"mismatched'`, want: `"mismatched'`},
		{in: `"`, want: `"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, unquote(tt.in))
	}
}
