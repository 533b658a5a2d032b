//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package ring

import (
	"fmt"
	"sync"
	"syscall"
	"time"
)

// BSDRing emulates EventRing on top of kqueue. Unlike io_uring, kqueue
// only reports readiness: the actual accept/recv/send/connect/close
// syscall runs at harvest time (Complete), in the same style
// connstate/poll_bsd.go's kqueue.wait loop drives connStater updates off
// readiness events, generalized here to perform the I/O itself and
// produce a RingCQE instead of flipping a liveness flag.
type BSDRing struct {
	mu      sync.Mutex
	kqfd    int
	pending map[int]*pendingOp // keyed by submission fd
	groups  map[uint16]*BufferGroup
	ready   []RingCQE // synchronous completions (Close) awaiting harvest
}

type pendingOp struct {
	op        OpType
	fd        int
	userData  uint32
	buf       []byte
	group     *BufferGroup
	addr      []byte
	zeroCopy  bool
	multishot bool
}

var _ EventRing = (*BSDRing)(nil)

// NewBSDRing opens a kqueue and wraps it as an EventRing.
func NewBSDRing() (*BSDRing, error) {
	fd, err := syscall.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("ring: kqueue: %w", err)
	}
	return &BSDRing{
		kqfd:    fd,
		pending: make(map[int]*pendingOp),
		groups:  make(map[uint16]*BufferGroup),
	}, nil
}

func (r *BSDRing) register(fd int, filter int16) error {
	ev := syscall.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  syscall.EV_ADD | syscall.EV_ENABLE | syscall.EV_CLEAR,
	}
	_, err := syscall.Kevent(r.kqfd, []syscall.Kevent_t{ev}, nil, nil)
	return err
}

func (r *BSDRing) unregister(fd int, filter int16) {
	ev := syscall.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  syscall.EV_DELETE,
	}
	syscall.Kevent(r.kqfd, []syscall.Kevent_t{ev}, nil, nil)
}

func (r *BSDRing) Accept(fd int, userData uint32, multishot bool) error {
	r.mu.Lock()
	r.pending[fd] = &pendingOp{op: OpAccept, fd: fd, userData: userData, multishot: multishot}
	r.mu.Unlock()
	return r.register(fd, syscall.EVFILT_READ)
}

func (r *BSDRing) Recv(fd int, userData uint32, buf []byte, group *BufferGroup, multishot bool) error {
	r.mu.Lock()
	r.pending[fd] = &pendingOp{op: OpRecv, fd: fd, userData: userData, buf: buf, group: group, multishot: multishot}
	r.mu.Unlock()
	return r.register(fd, syscall.EVFILT_READ)
}

func (r *BSDRing) Send(fd int, userData uint32, buf []byte, zeroCopy bool) error {
	r.mu.Lock()
	r.pending[fd] = &pendingOp{op: OpSend, fd: fd, userData: userData, buf: buf, zeroCopy: zeroCopy}
	r.mu.Unlock()
	return r.register(fd, syscall.EVFILT_WRITE)
}

func (r *BSDRing) Connect(fd int, userData uint32, addr []byte) error {
	r.mu.Lock()
	r.pending[fd] = &pendingOp{op: OpConnect, fd: fd, userData: userData, addr: addr}
	r.mu.Unlock()
	return r.register(fd, syscall.EVFILT_WRITE)
}

// Close performs the close(2) synchronously: there is no readiness to
// wait on, so the CQE is ready for the very next Complete call.
func (r *BSDRing) Close(fd int, userData uint32) error {
	err := syscall.Close(fd)
	res := int32(0)
	if err != nil {
		res = int32(-errnoOf(err))
	}
	r.mu.Lock()
	r.ready = append(r.ready, RingCQE{Result: res, UserData: userData, OpType: OpClose})
	r.mu.Unlock()
	return nil
}

// Submit is a no-op: kqueue has no separate submission phase, filters
// are registered immediately by the Accept/Recv/Send/Connect calls above.
func (r *BSDRing) Submit() error { return nil }

func (r *BSDRing) Complete(out []RingCQE, minCompletions int, timeout time.Duration) (int, error) {
	n := 0

	r.mu.Lock()
	for len(r.ready) > 0 && n < len(out) {
		out[n] = r.ready[0]
		r.ready = r.ready[1:]
		n++
	}
	r.mu.Unlock()

	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	events := make([]syscall.Kevent_t, 64)
	for n < len(out) {
		ts := &syscall.Timespec{}
		blocking := n < minCompletions
		if blocking {
			if !deadline.IsZero() {
				remaining := time.Until(deadline)
				if remaining <= 0 {
					break
				}
				*ts = syscall.NsecToTimespec(remaining.Nanoseconds())
			} else {
				ts = nil // wait indefinitely
			}
		}
		count, err := syscall.Kevent(r.kqfd, nil, events, ts)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return n, err
		}
		if count == 0 {
			if !blocking {
				break
			}
			continue
		}
		for i := 0; i < count && n < len(out); i++ {
			cqe, rearm := r.harvest(&events[i])
			out[n] = cqe
			n++
			if !rearm {
				filter := syscall.EVFILT_READ
				if cqe.OpType == OpSend || cqe.OpType == OpConnect {
					filter = syscall.EVFILT_WRITE
				}
				r.unregister(int(events[i].Ident), int16(filter))
			}
		}
		if !blocking {
			break
		}
	}
	return n, nil
}

// harvest performs the actual syscall for a ready fd and builds its
// RingCQE. rearm reports whether the submission stays registered
// (multishot accept/recv).
func (r *BSDRing) harvest(ev *syscall.Kevent_t) (RingCQE, bool) {
	fd := int(ev.Ident)
	r.mu.Lock()
	op, ok := r.pending[fd]
	if ok && !op.multishot {
		delete(r.pending, fd)
	}
	r.mu.Unlock()
	if !ok {
		return RingCQE{Result: -int32(syscall.EBADF), OpType: OpClose}, false
	}

	cqe := RingCQE{UserData: op.userData, OpType: op.op}

	switch op.op {
	case OpAccept:
		connFd, _, err := syscall.Accept(fd)
		if err != nil {
			cqe.Result = -int32(errnoOf(err))
		} else {
			cqe.Result = int32(connFd)
		}
	case OpRecv:
		buf := op.buf
		if op.group != nil {
			id, data, ok := op.group.Acquire()
			if !ok {
				cqe.Result = -int32(syscall.ENOBUFS)
				return cqe, op.multishot
			}
			buf = data
			cqe.BufferID = id
			cqe.Flags |= uint8(FlagBuffer)
		}
		n, err := syscall.Read(fd, buf)
		if err != nil {
			cqe.Result = -int32(errnoOf(err))
		} else {
			cqe.Result = int32(n)
		}
	case OpSend:
		n, err := syscall.Write(fd, op.buf)
		if err != nil {
			cqe.Result = -int32(errnoOf(err))
		} else {
			cqe.Result = int32(n)
		}
	case OpConnect:
		if errno, err := syscall.GetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_ERROR); err != nil {
			cqe.Result = -int32(errnoOf(err))
		} else if errno != 0 {
			cqe.Result = -int32(errno)
		} else {
			cqe.Result = 0
		}
	}

	if op.multishot {
		cqe.Flags |= uint8(FlagMore)
	}
	return cqe, op.multishot
}

func errnoOf(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return syscall.EIO
}

func (r *BSDRing) RegisterBufferGroup(groupID uint16, group *BufferGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	group.id = groupID
	r.groups[groupID] = group
	return nil
}

func (r *BSDRing) Shutdown() error {
	return syscall.Close(r.kqfd)
}
