package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/danmuck/rawlog/internal/testutil/testlog"
	"github.com/danmuck/rawlog/internal/testutil/tlstest"
	"github.com/stretchr/testify/require"
)

func sampleEnvelopes() []protocol.Envelope {
	envs := make([]protocol.Envelope, 0, 64)
	for i := 0; i < 64; i++ {
		if i%10 == 9 {
			envs = append(envs, protocol.Envelope{})
			continue
		}
		envs = append(envs, protocol.Envelope{
			TypeName: fmt.Sprintf("Sample%d", i%3),
			Version:  uint8(i % 4),
			Payload:  bytes.Repeat([]byte{byte(i)}, i*7),
		})
	}
	return envs
}

func writeEnvelopes(t *testing.T, ch *Channel, envs []protocol.Envelope) {
	t.Helper()
	s := protocol.NewStream(ch)
	for _, env := range envs {
		require.NoError(t, s.WriteEnvelope(env))
	}
	require.NoError(t, s.Close())
}

func readEnvelopes(t *testing.T, ch *Channel) []protocol.Envelope {
	t.Helper()
	s := protocol.NewStream(ch)
	defer s.Close()
	var out []protocol.Envelope
	for {
		env, err := s.ReadEnvelope()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, env)
	}
}

func requireSameEnvelopes(t *testing.T, want, got []protocol.Envelope) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].TypeName, got[i].TypeName, "envelope %d", i)
		require.Equal(t, want[i].Version, got[i].Version, "envelope %d", i)
		require.Equal(t, len(want[i].Payload), len(got[i].Payload), "envelope %d", i)
		require.True(t, bytes.Equal(want[i].Payload, got[i].Payload), "envelope %d", i)
	}
}

func TestFileRoundTripPerCompression(t *testing.T) {
	testlog.Start(t)

	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionSnappy} {
		t.Run(string(c), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "log"+ExtensionFor(c))
			w, err := CreateFile(path, c)
			require.NoError(t, err)
			envs := sampleEnvelopes()
			writeEnvelopes(t, w, envs)

			r, detected, err := OpenFile(path, CompressionAuto)
			require.NoError(t, err)
			require.Equal(t, c, detected)
			requireSameEnvelopes(t, envs, readEnvelopes(t, r))
		})
	}
}

func TestCreateFileCompressionFromExtension(t *testing.T) {
	testlog.Start(t)

	require.Equal(t, CompressionGzip, CompressionForPath("a/b.rawlog.gz"))
	require.Equal(t, CompressionSnappy, CompressionForPath("b.rawlog.sz"))
	require.Equal(t, CompressionNone, CompressionForPath("b.rawlog"))

	path := filepath.Join(t.TempDir(), "nested", "auto.rawlog.gz")
	w, err := CreateFile(path, CompressionAuto)
	require.NoError(t, err)
	writeEnvelopes(t, w, sampleEnvelopes()[:3])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0x1f, 0x8b}, raw[:2])
}

func TestDetect(t *testing.T) {
	testlog.Start(t)

	cases := map[string]struct {
		data []byte
		want Compression
	}{
		"empty":  {nil, CompressionNone},
		"plain":  {[]byte{7, 'P', 'o', 'i', 'n', 't'}, CompressionNone},
		"gzip":   {[]byte{0x1f, 0x8b, 0x08, 0x00}, CompressionGzip},
		"snappy": {append(append([]byte(nil), snappyMagic...), 0x00), CompressionSnappy},
		"short":  {snappyMagic[:4], CompressionNone},
	}
	for name, tc := range cases {
		br := bufio.NewReader(bytes.NewReader(tc.data))
		if got := Detect(br); got != tc.want {
			t.Fatalf("%s: got %q want %q", name, got, tc.want)
		}
		if br.Buffered() != len(tc.data) {
			t.Fatalf("%s: detect consumed input", name)
		}
	}
}

func TestParseCompression(t *testing.T) {
	testlog.Start(t)

	for raw, want := range map[string]Compression{
		"": CompressionAuto, "auto": CompressionAuto, "NONE": CompressionNone,
		"plain": CompressionNone, "gz": CompressionGzip, "snappy": CompressionSnappy,
	} {
		got, err := ParseCompression(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}
	_, err := ParseCompression("lz4")
	require.ErrorIs(t, err, ErrUnknownCompression)
}

func TestTruncatedGzipFileIsTruncated(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "full.rawlog.gz")
	w, err := CreateFile(path, CompressionGzip)
	require.NoError(t, err)
	writeEnvelopes(t, w, sampleEnvelopes())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	cut := filepath.Join(dir, "cut.rawlog.gz")
	require.NoError(t, os.WriteFile(cut, raw[:len(raw)/2], 0o644))

	r, _, err := OpenFile(cut, CompressionAuto)
	require.NoError(t, err)
	s := protocol.NewStream(r)
	defer s.Close()
	for {
		_, err = s.ReadEnvelope()
		if err != nil {
			break
		}
	}
	require.NotErrorIs(t, err, io.EOF)
	require.True(t, errors.Is(err, protocol.ErrTruncated) || errors.Is(err, protocol.ErrIO), "got %v", err)
}

func TestChannelDirectionAndClose(t *testing.T) {
	testlog.Start(t)

	var sink bytes.Buffer
	w := NewWriter("sink", &sink)
	_, err := w.ReadBytes(1)
	require.ErrorIs(t, err, ErrWriteOnly)
	require.NoError(t, w.WriteBytes([]byte("abc")))
	require.Zero(t, sink.Len(), "writes are buffered until flush")
	require.NoError(t, w.Flush())
	require.Equal(t, "abc", sink.String())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.WriteBytes([]byte("x")), protocol.ErrClosed)

	r := NewReader("src", bytes.NewReader([]byte{1, 2, 3}))
	require.ErrorIs(t, r.WriteBytes([]byte{1}), ErrReadOnly)
	b, err := r.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, b)
	require.False(t, r.AtEnd())
	b, err = r.ReadBytes(2)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, []byte{3}, b)
	require.True(t, r.AtEnd())
	_, err = r.ReadBytes(1)
	require.ErrorIs(t, err, io.EOF)
}

func TestBackoffDelay(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
	}
	require.Equal(t, time.Duration(0), cfg.Delay(0, nil))
	require.Equal(t, 250*time.Millisecond, cfg.Delay(1, nil))
	require.Equal(t, 500*time.Millisecond, cfg.Delay(2, nil))
	require.Equal(t, 2*time.Second, cfg.Delay(4, nil))
	require.Equal(t, 5*time.Second, cfg.Delay(6, nil))
	require.Equal(t, 5*time.Second, cfg.Delay(40, nil))

	cfg.Jitter = true
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		d := cfg.Delay(3, rng)
		require.GreaterOrEqual(t, d, 500*time.Millisecond)
		require.LessOrEqual(t, d, time.Second)
	}
}

func TestSocketStreamRoundTrip(t *testing.T) {
	testlog.Start(t)

	cfg := DefaultSocketConfig()
	cfg.ReadTimeout = 5 * time.Second
	runSocketRoundTrip(t, cfg, cfg)
}

func TestSocketStreamRoundTripMutualTLS(t *testing.T) {
	testlog.Start(t)

	pki := tlstest.New(t)
	server := DefaultSocketConfig()
	server.TLS = TLSConfig{Enabled: true, Mutual: true, CertFile: pki.Server.Cert, KeyFile: pki.Server.Key, CAFile: pki.CAFile}
	client := DefaultSocketConfig()
	client.TLS = TLSConfig{Enabled: true, Mutual: true, CertFile: pki.Client.Cert, KeyFile: pki.Client.Key, CAFile: pki.CAFile}
	runSocketRoundTrip(t, server, client)
}

func runSocketRoundTrip(t *testing.T, serverCfg, clientCfg SocketConfig) {
	t.Helper()
	ln, err := Listen("127.0.0.1:0", serverCfg)
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []protocol.Envelope, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			received <- nil
			return
		}
		s := protocol.NewStream(NewConn(conn, serverCfg))
		defer s.Close()
		var out []protocol.Envelope
		for {
			env, err := s.ReadEnvelope()
			if err != nil {
				break
			}
			out = append(out, env)
		}
		received <- out
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ch, err := Dial(ctx, ln.Addr().String(), clientCfg)
	require.NoError(t, err)
	envs := sampleEnvelopes()
	writeEnvelopes(t, ch, envs)

	select {
	case got := <-received:
		requireSameEnvelopes(t, envs, got)
	case <-ctx.Done():
		t.Fatalf("timed out waiting for server")
	}
}

func TestDialGivesUpAfterMaxAttempts(t *testing.T) {
	testlog.Start(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := DefaultSocketConfig()
	cfg.MaxAttempts = 2
	cfg.Backoff = BackoffConfig{InitialDelay: time.Millisecond}
	_, err = Dial(context.Background(), addr, cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "after 2 attempts")
}

func TestTLSConfigValidation(t *testing.T) {
	testlog.Start(t)

	require.NoError(t, TLSConfig{}.ValidateClient())
	require.ErrorIs(t, TLSConfig{Mutual: true}.ValidateServer(), ErrTLSMutualRequiresTLS)
	require.ErrorIs(t, TLSConfig{Enabled: true}.ValidateClient(), ErrTLSCAFileRequired)
	require.ErrorIs(t, TLSConfig{Enabled: true}.ValidateServer(), ErrTLSCertFileRequired)
	require.ErrorIs(t, TLSConfig{Enabled: true, CertFile: "c"}.ValidateServer(), ErrTLSKeyFileRequired)
	require.ErrorIs(t, TLSConfig{Enabled: true, Mutual: true, InsecureSkipVerify: true}.ValidateClient(), ErrTLSInsecureSkipNotAllow)
}
