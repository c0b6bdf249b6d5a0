//go:build linux

// Package registry wraps the Linux epoll facility behind the small
// interest-set-plus-timed-wait API the downloader needs: add/delete
// interest in a file descriptor's readability or writability, and a single
// bounded wait call that reports either a timeout or a batch of ready
// events plus how long the kernel call actually blocked.
package registry

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// EventType is the kind of readiness interest registered for a descriptor.
type EventType int

const (
	Read EventType = iota
	Write
)

func (e EventType) flags() uint32 {
	if e == Write {
		return unix.EPOLLOUT
	}
	return unix.EPOLLIN
}

// maxEvents bounds how many ready descriptors a single AwaitEvents call can
// harvest; this downloader only ever registers one socket, so the default
// is generous rather than tuned.
const maxEvents = 16

// Registry is a thin wrapper over an epoll instance: an interest set, the
// kernel event facility's file descriptor, and a scratch buffer reused
// across calls to AwaitEvents.
type Registry struct {
	epollFD        int
	events         []unix.EpollEvent
	defaultTimeout time.Duration
}

// New creates a fresh epoll instance with no default wait timeout: every
// call to AwaitEvents must supply its own.
func New() (*Registry, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("registry: create epoll instance: %w", err)
	}
	return &Registry{epollFD: fd, events: make([]unix.EpollEvent, maxEvents)}, nil
}

// NewWithTimeout creates a registry paired with a default wait timeout,
// exposed via AwaitDefault for callers that always wait on the same
// retransmission deadline rather than tracking a remaining duration
// themselves.
func NewWithTimeout(timeout time.Duration) (*Registry, error) {
	r, err := New()
	if err != nil {
		return nil, err
	}
	r.defaultTimeout = timeout
	return r, nil
}

// AwaitDefault waits using the timeout passed to NewWithTimeout. Calling it
// on a Registry built with New (no default timeout set) waits with a zero
// timeout, i.e. returns immediately.
func (r *Registry) AwaitDefault() (Notification, error) {
	return r.AwaitEvents(r.defaultTimeout)
}

// AddInterest registers level-triggered interest in eventType for fd.
func (r *Registry) AddInterest(eventType EventType, fd int) error {
	ev := unix.EpollEvent{Events: eventType.flags(), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epollFD, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("registry: add interest fd=%d: %w", fd, err)
	}
	return nil
}

// DeleteInterest unregisters fd from the epoll instance entirely.
func (r *Registry) DeleteInterest(fd int) error {
	if err := unix.EpollCtl(r.epollFD, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("registry: delete interest fd=%d: %w", fd, err)
	}
	return nil
}

// Kind distinguishes the two possible outcomes of AwaitEvents.
type Kind int

const (
	Timeout Kind = iota
	Events
)

// Notification is the result of a single AwaitEvents call. Ready is valid
// only until the next AwaitEvents call on the same Registry. Elapsed is the
// actual wall-clock time spent blocked in the kernel wait, used by the
// downloader to amortize its retransmission deadline across partial
// wakeups.
type Notification struct {
	Kind    Kind
	Ready   []unix.EpollEvent
	Elapsed time.Duration
}

// AwaitEvents blocks for at most timeout waiting for any registered
// descriptor to become ready. The wait is interruptible only by readiness
// or timeout — no signal delivery is visible to the caller: a signal
// arriving mid-wait yields EINTR from the kernel, which is retried here
// against the remaining deadline rather than surfaced as an error.
func (r *Registry) AwaitEvents(timeout time.Duration) (Notification, error) {
	start := time.Now()
	deadline := start.Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}

		n, err := unix.EpollWait(r.epollFD, r.events, int(remaining.Milliseconds()))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return Notification{}, fmt.Errorf("registry: epoll wait: %w", err)
		}

		elapsed := time.Since(start)
		if n == 0 {
			return Notification{Kind: Timeout, Elapsed: elapsed}, nil
		}
		return Notification{Kind: Events, Ready: r.events[:n], Elapsed: elapsed}, nil
	}
}

// Close releases the underlying epoll file descriptor.
func (r *Registry) Close() error {
	if err := unix.Close(r.epollFD); err != nil {
		return fmt.Errorf("registry: close epoll instance: %w", err)
	}
	return nil
}
