package downloader

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/mikiSpoko200/computer-networks/internal/config"
	"github.com/mikiSpoko200/computer-networks/internal/output"
	"github.com/mikiSpoko200/computer-networks/internal/slogutil"
	"github.com/mikiSpoko200/computer-networks/internal/wire"
)

// fakeServer answers GET requests against an in-memory file, letting tests
// intercept individual requests to simulate loss, duplication, or garbage
// injected into the stream. It stands in for the remote half of the
// protocol described in §4.A.
type fakeServer struct {
	conn *net.UDPConn
	data []byte

	mu       sync.Mutex
	onReply  func(start, length uint64) []action
	requests int32
}

// action is one datagram a fakeServer sends back for a single GET.
type action struct {
	garbage bool
	repeat  int
}

func newFakeServer(t *testing.T, data []byte) *fakeServer {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	return &fakeServer{conn: conn, data: data}
}

func (s *fakeServer) addrParts(t *testing.T) (string, string) {
	t.Helper()
	addr := s.conn.LocalAddr().(*net.UDPAddr)
	return addr.IP.String(), strconv.Itoa(addr.Port)
}

func (s *fakeServer) close() {
	_ = s.conn.Close()
}

// serve loops until ctx is done, answering each GET with one or more DATA
// datagrams per onReply's instructions (defaulting to a single correct
// reply when onReply is nil).
func (s *fakeServer) serve(ctx context.Context) {
	buf := make([]byte, 128)
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n, remote, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				continue
			}
		}

		fields := strings.Fields(string(buf[:n]))
		if len(fields) != 3 || fields[0] != "GET" {
			continue
		}
		start, err1 := strconv.ParseUint(fields[1], 10, 64)
		length, err2 := strconv.ParseUint(fields[2], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		atomic.AddInt32(&s.requests, 1)

		acts := []action{{repeat: 1}}
		if s.onReply != nil {
			acts = s.onReply(start, length)
		}

		for _, a := range acts {
			for i := 0; i < max(a.repeat, 1); i++ {
				var datagram []byte
				if a.garbage {
					datagram = []byte("GARBAGE")
				} else {
					datagram = append([]byte(fmt.Sprintf("DATA %d %d\n", start, length)), s.data[start:start+length]...)
				}
				_, _ = s.conn.WriteToUDP(datagram, remote)
			}
		}
	}
}

func randomFileContent(size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(i % 251)
	}
	return out
}

func runDownload(t *testing.T, server *fakeServer, fileSize int, timeout time.Duration) []byte {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.serve(ctx)

	ip, port := server.addrParts(t)
	cfg, err := config.Parse(ip, port, "out.bin", strconv.Itoa(fileSize))
	require.NoError(t, err)
	cfg.Timeout = timeout

	fs := afero.NewMemMapFs()
	out, err := output.Create(fs, cfg.OutputFile)
	require.NoError(t, err)

	log := slogutil.New(slogutil.Config{Level: slogutil.ParseLevel("error")})

	d, err := New(cfg, out, log)
	require.NoError(t, err)
	defer d.Close()

	runCtx, runCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer runCancel()
	require.NoError(t, d.Run(runCtx))
	require.NoError(t, out.Close())

	got, err := afero.ReadFile(fs, cfg.OutputFile)
	require.NoError(t, err)
	return got
}

func TestRun_OrderedSmallFile(t *testing.T) {
	data := randomFileContent(3 * wire.SegmentSize)
	server := newFakeServer(t, data)
	defer server.close()

	got := runDownload(t, server, len(data), 200*time.Millisecond)
	require.Equal(t, data, got)
}

func TestRun_ShortFinalSegment(t *testing.T) {
	data := randomFileContent(2*wire.SegmentSize + 137)
	server := newFakeServer(t, data)
	defer server.close()

	got := runDownload(t, server, len(data), 200*time.Millisecond)
	require.Equal(t, data, got)
}

func TestRun_DroppedRequestIsRetransmitted(t *testing.T) {
	data := randomFileContent(3 * wire.SegmentSize)
	server := newFakeServer(t, data)
	defer server.close()

	var droppedOnce int32
	server.onReply = func(start, length uint64) []action {
		if start == wire.SegmentSize && atomic.CompareAndSwapInt32(&droppedOnce, 0, 1) {
			return nil // swallow the first response for the middle segment
		}
		return []action{{repeat: 1}}
	}

	got := runDownload(t, server, len(data), 120*time.Millisecond)
	require.Equal(t, data, got)
	require.GreaterOrEqual(t, atomic.LoadInt32(&server.requests), int32(4))
}

func TestRun_DuplicateResponsesIgnored(t *testing.T) {
	data := randomFileContent(3 * wire.SegmentSize)
	server := newFakeServer(t, data)
	defer server.close()

	server.onReply = func(start, length uint64) []action {
		return []action{{repeat: 3}}
	}

	got := runDownload(t, server, len(data), 200*time.Millisecond)
	require.Equal(t, data, got)
}

func TestRun_GarbageInterleavedInStream(t *testing.T) {
	data := randomFileContent(3 * wire.SegmentSize)
	server := newFakeServer(t, data)
	defer server.close()

	var sentGarbage int32
	server.onReply = func(start, length uint64) []action {
		if atomic.CompareAndSwapInt32(&sentGarbage, 0, 1) {
			return []action{{garbage: true, repeat: 1}, {repeat: 1}}
		}
		return []action{{repeat: 1}}
	}

	got := runDownload(t, server, len(data), 200*time.Millisecond)
	require.Equal(t, data, got)
}

func TestRun_LargeRandomizedFile(t *testing.T) {
	data := randomFileContent(37 * wire.SegmentSize + 42)
	server := newFakeServer(t, data)
	defer server.close()

	got := runDownload(t, server, len(data), 250*time.Millisecond)
	require.Equal(t, data, got)
}
