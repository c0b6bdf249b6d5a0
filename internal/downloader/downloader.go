// Package downloader implements the client's single-threaded, event-driven
// retransmission loop: send unacknowledged segments, wait for readiness or
// timeout, drain and persist what arrived, slide the window, and repeat
// until the file is complete.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/mikiSpoko200/computer-networks/internal/config"
	"github.com/mikiSpoko200/computer-networks/internal/output"
	"github.com/mikiSpoko200/computer-networks/internal/registry"
	"github.com/mikiSpoko200/computer-networks/internal/segment"
	"github.com/mikiSpoko200/computer-networks/internal/wire"
)

// Downloader owns the socket, readiness registry, window, and output file
// for the lifetime of a single transfer. None of its state is shared across
// goroutines; every method runs on the caller's goroutine.
type Downloader struct {
	fd         int
	serverAddr unix.SockaddrInet4

	reg    *registry.Registry
	window *segment.Window
	iter   *segment.RangeIterator
	out    *output.File

	fileSize          uint64
	bytesDownloaded   uint64
	timeout           time.Duration
	deadlineRemaining time.Duration

	recvBuf []byte
	log     *slog.Logger
}

// New opens a UDP socket, registers it with a fresh readiness registry, and
// seeds a window from cfg's file size. The socket and registry are
// unconditionally owned by the returned Downloader; call Close when done.
func New(cfg *config.Config, out *output.File, log *slog.Logger) (*Downloader, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("downloader: create socket: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("downloader: bind socket: %w", err)
	}

	reg, err := registry.New()
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("downloader: create readiness registry: %w", err)
	}

	if err := reg.AddInterest(registry.Read, fd); err != nil {
		_ = reg.Close()
		_ = unix.Close(fd)
		return nil, fmt.Errorf("downloader: register socket interest: %w", err)
	}

	var serverAddr unix.SockaddrInet4
	copy(serverAddr.Addr[:], cfg.ServerAddr.To4())
	serverAddr.Port = int(cfg.ServerPort)

	iter := segment.NewRangeIterator(cfg.FileSize)
	window := segment.NewWindow(iter)

	runID := uuid.NewString()

	return &Downloader{
		fd:                fd,
		serverAddr:        serverAddr,
		reg:               reg,
		window:            window,
		iter:              iter,
		out:               out,
		fileSize:          cfg.FileSize,
		timeout:           cfg.Timeout,
		deadlineRemaining: cfg.Timeout,
		recvBuf:           make([]byte, wire.MaxSize),
		log:               log.With("component", "downloader", "run_id", runID),
	}, nil
}

// Close releases the socket and registry file descriptors.
func (d *Downloader) Close() error {
	return errors.Join(d.reg.Close(), unix.Close(d.fd))
}

// Run drives the transfer to completion: send, wait, drain/slide, repeat,
// until every byte of the file has been persisted. It returns a non-nil
// error only for fatal conditions (§7); malformed or unexpected datagrams
// never surface past this method.
func (d *Downloader) Run(ctx context.Context) error {
	for d.bytesDownloaded < d.fileSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := d.sendPhase(); err != nil {
			return err
		}

		switch outcome, elapsed, err := d.waitPhase(); {
		case err != nil:
			return err
		case outcome == registry.Timeout:
			d.deadlineRemaining = d.timeout
			d.log.Info("retransmission deadline elapsed", "bytes_downloaded", d.bytesDownloaded)
			if err := d.slideAndPersist(); err != nil {
				return err
			}
		default:
			d.deadlineRemaining -= elapsed
			if d.deadlineRemaining < 0 {
				d.deadlineRemaining = 0
			}
			if err := d.drain(); err != nil {
				return err
			}
			if err := d.slideAndPersist(); err != nil {
				return err
			}
		}
	}

	if d.bytesDownloaded != d.fileSize {
		return fmt.Errorf("downloader: internal inconsistency: downloaded %d bytes, want %d", d.bytesDownloaded, d.fileSize)
	}

	return nil
}

// sendPhase sets the socket to blocking mode and transmits one request per
// currently unreceived segment.
func (d *Downloader) sendPhase() error {
	if err := unix.SetNonblock(d.fd, false); err != nil {
		return fmt.Errorf("downloader: set blocking mode: %w", err)
	}

	for _, seg := range d.window.Unreceived() {
		if err := unix.Sendto(d.fd, seg.Request(), 0, &d.serverAddr); err != nil {
			if errors.Is(err, unix.EAGAIN) {
				return fmt.Errorf("downloader: blocking send reported EAGAIN, this is a programming error: %w", err)
			}
			return fmt.Errorf("downloader: send request for range [%d,%d): %w", seg.Range.Start, seg.Range.End, err)
		}
	}

	return nil
}

// waitPhase sets the socket to non-blocking mode and waits on the registry
// for the current retransmission deadline.
func (d *Downloader) waitPhase() (registry.Kind, time.Duration, error) {
	if err := unix.SetNonblock(d.fd, true); err != nil {
		return 0, 0, fmt.Errorf("downloader: set nonblocking mode: %w", err)
	}

	notification, err := d.reg.AwaitEvents(d.deadlineRemaining)
	if err != nil {
		return 0, 0, fmt.Errorf("downloader: await readiness: %w", err)
	}

	return notification.Kind, notification.Elapsed, nil
}

// drain reads every pending datagram off the non-blocking socket until it
// reports WouldBlock, recording each valid response into the window. A
// signal arriving mid-read yields EINTR, which is retried rather than
// treated as fatal, the same as AwaitEvents.
func (d *Downloader) drain() error {
	for {
		n, from, err := unix.Recvfrom(d.fd, d.recvBuf, 0)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				return nil
			}
			return fmt.Errorf("downloader: recv from socket: %w", err)
		}

		d.handleDatagram(d.recvBuf[:n], from)
	}
}

// handleDatagram validates and decodes one datagram, dropping it silently
// on any failure per §7: wrong sender, invalid size, decode error, or a
// range outside the window / already received.
func (d *Downloader) handleDatagram(datagram []byte, from unix.Sockaddr) {
	sender, ok := from.(*unix.SockaddrInet4)
	if !ok || sender.Port != d.serverAddr.Port || sender.Addr != d.serverAddr.Addr {
		d.log.Debug("dropping datagram from unexpected sender")
		return
	}

	if len(datagram) < wire.MinSize || len(datagram) > wire.MaxSize {
		d.log.Debug("dropping datagram with invalid size", "size", len(datagram))
		return
	}

	resp, err := wire.DecodeResponse(datagram)
	if err != nil {
		d.log.Debug("dropping malformed datagram", "err", err)
		return
	}

	d.window.RecordReceived(segment.ByteRange{Start: resp.Start, End: resp.End()}, resp.Data)
}

// slideAndPersist drains the window's received prefix to the output file,
// advances bytesDownloaded, and tops the window back up from the range
// iterator. Run after both a timeout and a drain (§9 Open Question:
// slide-after-drain), so the acknowledged-but-unpersisted interval never
// grows larger than it needs to.
func (d *Downloader) slideAndPersist() error {
	for _, seg := range d.window.Shrink() {
		if err := d.out.Append(seg.Data()); err != nil {
			return fmt.Errorf("downloader: persist segment at offset %d: %w", seg.Range.Start, err)
		}
		d.bytesDownloaded += seg.Range.Len()
	}

	d.window.Extend(d.iter)

	return nil
}
