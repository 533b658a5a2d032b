//go:build linux && (amd64 || arm64)

package ring

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"
)

// io_uring opcodes this backend submits. Values are the kernel UAPI
// constants; internal/iouring never needed RECV/SEND/ACCEPT's zero-copy
// and multishot siblings since it only ever issues plain READV/WRITEV.
const (
	opAccept  = 13
	opConnect = 16
	opClose   = 19
	opSend    = 26
	opRecv    = 27
	opSendZC  = 47
	opRecvZC  = 58
)

const (
	featSingleMmap = 1 << 0

	enterGetEvents = 1 << 0

	sqeBufferSelect = 1 << 5 // IOSQE_BUFFER_SELECT_BIT

	// set in sqe.ioprio to request a multishot accept/recv.
	acceptMultishot = 1 << 0
	recvMultishot   = 1 << 1

	cqeFBuffer = 1 << 0
	cqeFMore   = 1 << 1
	cqeFNotif  = 1 << 3
)

// uringSQE mirrors struct io_uring_sqe. Must stay exactly 64 bytes.
type uringSQE struct {
	Opcode      uint8
	Flags       uint8
	IoPrio      uint16
	Fd          int32
	Off         uint64
	Addr        uint64
	Len         uint32
	OpFlags     uint32
	UserData    uint64
	BufIndex    uint16
	Personality uint16
	SpliceFdIn  int32
	_           [2]uint64
}

// uringCQE mirrors struct io_uring_cqe. Must stay exactly 16 bytes.
type uringCQE struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

type sqOffsets struct {
	Head, Tail, RingMask, RingEntries, Flags, Dropped, Array uint32
	Resv1                                                    uint32
	Resv2                                                    uint64
}

type cqOffsets struct {
	Head, Tail, RingMask, RingEntries, Overflow, Cqes uint32
	Flags                                             uint64
	Resv1                                              uint32
	Resv2                                              uint64
}

type uringParams struct {
	SqEntries    uint32
	CqEntries    uint32
	Flags        uint32
	SqThreadCpu  uint32
	SqThreadIdle uint32
	Features     uint32
	WqFd         uint32
	Resv         [3]uint32
	SqOff        sqOffsets
	CqOff        cqOffsets
}

type submissionQueue struct {
	head, tail       *uint32
	ringMask         uint32
	ringEntries      uint32
	flags, dropped   *uint32
	array            *uint32
	sqes             []uringSQE
}

type completionQueue struct {
	head, tail     *uint32
	ringMask       uint32
	ringEntries    uint32
	overflow       *uint32
	cqes           []uringCQE
}

// LinuxRing is the io_uring-backed EventRing. It generalizes
// internal/iouring's single-mmap setup (SQ and CQ rings sharing one
// mapping under IORING_FEAT_SINGLE_MMAP, SQEs in a second mapping) to the
// full RingCQE op_type set plus multishot rearming and BUFFER-flag
// propagation; provided buffers are not handed to the kernel (see
// RegisterBufferGroup).
type LinuxRing struct {
	mu       sync.Mutex
	fd       int
	ringMem  []byte
	sqeMem   []byte
	sq       submissionQueue
	cq       completionQueue
	groups   map[uint16]*BufferGroup
	multishot map[uint32]struct {
		op   OpType
		fd   int
	}
}

var _ EventRing = (*LinuxRing)(nil)

// NewLinuxRing sets up an io_uring instance with the given submission
// queue depth (rounded up to a power of two by the kernel).
func NewLinuxRing(entries uint32) (*LinuxRing, error) {
	var params uringParams
	fd, err := ioUringSetup(entries, &params)
	if err != nil {
		return nil, fmt.Errorf("ring: io_uring_setup: %w", err)
	}
	if params.Features&featSingleMmap == 0 {
		syscall.Close(fd)
		return nil, fmt.Errorf("ring: kernel lacks IORING_FEAT_SINGLE_MMAP (need Linux 5.4+)")
	}

	r := &LinuxRing{
		fd:     fd,
		groups: make(map[uint16]*BufferGroup),
		multishot: make(map[uint32]struct {
			op OpType
			fd int
		}),
	}

	pageSize := uint32(syscall.Getpagesize())
	sqRingSize := params.SqOff.Array + params.SqEntries*4
	cqRingSize := params.CqOff.Cqes + params.CqEntries*uint32(unsafe.Sizeof(uringCQE{}))
	ringSize := sqRingSize
	if cqRingSize > ringSize {
		ringSize = cqRingSize
	}
	ringSize = (ringSize + pageSize - 1) &^ (pageSize - 1)

	ringMem, err := syscall.Mmap(fd, 0, int(ringSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("ring: mmap sq/cq ring: %w", err)
	}
	r.ringMem = ringMem

	sqeSize := params.SqEntries * uint32(unsafe.Sizeof(uringSQE{}))
	sqeMem, err := syscall.Mmap(fd, 0x10000000, int(sqeSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		syscall.Munmap(r.ringMem)
		syscall.Close(fd)
		return nil, fmt.Errorf("ring: mmap sqe array: %w", err)
	}
	r.sqeMem = sqeMem

	r.sq.head = (*uint32)(unsafe.Pointer(&r.ringMem[params.SqOff.Head]))
	r.sq.tail = (*uint32)(unsafe.Pointer(&r.ringMem[params.SqOff.Tail]))
	r.sq.ringMask = *(*uint32)(unsafe.Pointer(&r.ringMem[params.SqOff.RingMask]))
	r.sq.ringEntries = *(*uint32)(unsafe.Pointer(&r.ringMem[params.SqOff.RingEntries]))
	r.sq.flags = (*uint32)(unsafe.Pointer(&r.ringMem[params.SqOff.Flags]))
	r.sq.dropped = (*uint32)(unsafe.Pointer(&r.ringMem[params.SqOff.Dropped]))
	r.sq.array = (*uint32)(unsafe.Pointer(&r.ringMem[params.SqOff.Array]))
	r.sq.sqes = unsafe.Slice((*uringSQE)(unsafe.Pointer(&r.sqeMem[0])), params.SqEntries)

	r.cq.head = (*uint32)(unsafe.Pointer(&r.ringMem[params.CqOff.Head]))
	r.cq.tail = (*uint32)(unsafe.Pointer(&r.ringMem[params.CqOff.Tail]))
	r.cq.ringMask = *(*uint32)(unsafe.Pointer(&r.ringMem[params.CqOff.RingMask]))
	r.cq.ringEntries = *(*uint32)(unsafe.Pointer(&r.ringMem[params.CqOff.RingEntries]))
	r.cq.overflow = (*uint32)(unsafe.Pointer(&r.ringMem[params.CqOff.Overflow]))
	r.cq.cqes = unsafe.Slice((*uringCQE)(unsafe.Pointer(&r.ringMem[params.CqOff.Cqes])), params.CqEntries)

	return r, nil
}

func (r *LinuxRing) pushSQE(reset bool) *uringSQE {
	q := &r.sq
	tail := atomic.LoadUint32(q.tail)
	head := atomic.LoadUint32(q.head)
	if tail-head >= q.ringEntries {
		return nil
	}
	idx := tail & q.ringMask
	sqe := &q.sqes[idx]
	if reset {
		*sqe = uringSQE{}
	}
	arrayPtr := (*uint32)(unsafe.Pointer(uintptr(unsafe.Pointer(q.array)) + uintptr(idx)*4))
	*arrayPtr = idx
	atomic.AddUint32(q.tail, 1)
	return sqe
}

func (r *LinuxRing) Accept(fd int, userData uint32, multishot bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sqe := r.pushSQE(true)
	if sqe == nil {
		return fmt.Errorf("ring: submission queue full")
	}
	sqe.Opcode = opAccept
	sqe.Fd = int32(fd)
	sqe.UserData = uint64(userData)
	if multishot {
		sqe.IoPrio = acceptMultishot
		r.multishot[userData] = struct {
			op OpType
			fd int
		}{OpAccept, fd}
	}
	return nil
}

func (r *LinuxRing) Recv(fd int, userData uint32, buf []byte, group *BufferGroup, multishot bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sqe := r.pushSQE(true)
	if sqe == nil {
		return fmt.Errorf("ring: submission queue full")
	}
	sqe.Opcode = opRecv
	sqe.Fd = int32(fd)
	sqe.UserData = uint64(userData)
	if group != nil {
		sqe.Flags |= sqeBufferSelect
		sqe.BufIndex = group.id
	} else if len(buf) > 0 {
		sqe.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
		sqe.Len = uint32(len(buf))
	}
	if multishot {
		sqe.IoPrio |= recvMultishot
		r.multishot[userData] = struct {
			op OpType
			fd int
		}{OpRecv, fd}
	}
	return nil
}

func (r *LinuxRing) Send(fd int, userData uint32, buf []byte, zeroCopy bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sqe := r.pushSQE(true)
	if sqe == nil {
		return fmt.Errorf("ring: submission queue full")
	}
	sqe.Opcode = opSend
	if zeroCopy {
		sqe.Opcode = opSendZC
	}
	sqe.Fd = int32(fd)
	sqe.UserData = uint64(userData)
	if len(buf) > 0 {
		sqe.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
		sqe.Len = uint32(len(buf))
	}
	return nil
}

func (r *LinuxRing) Connect(fd int, userData uint32, addr []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sqe := r.pushSQE(true)
	if sqe == nil {
		return fmt.Errorf("ring: submission queue full")
	}
	sqe.Opcode = opConnect
	sqe.Fd = int32(fd)
	sqe.UserData = uint64(userData)
	if len(addr) > 0 {
		sqe.Addr = uint64(uintptr(unsafe.Pointer(&addr[0])))
	}
	sqe.Off = uint64(len(addr))
	return nil
}

func (r *LinuxRing) Close(fd int, userData uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sqe := r.pushSQE(true)
	if sqe == nil {
		return fmt.Errorf("ring: submission queue full")
	}
	sqe.Opcode = opClose
	sqe.Fd = int32(fd)
	sqe.UserData = uint64(userData)
	return nil
}

func (r *LinuxRing) Submit() error {
	r.mu.Lock()
	toSubmit := atomic.LoadUint32(r.sq.tail) - atomic.LoadUint32(r.sq.head)
	r.mu.Unlock()
	if toSubmit == 0 {
		return nil
	}
	for {
		_, errno := ioUringEnter(r.fd, toSubmit, 0, 0)
		if errno == syscall.EINTR {
			continue
		}
		if errno != 0 {
			return errno
		}
		return nil
	}
}

// Complete harvests up to len(out) completions. When minCompletions > 0
// it blocks (via io_uring_enter's GETEVENTS) until that many are
// available or timeout elapses; timeout<=0 means wait indefinitely.
func (r *LinuxRing) Complete(out []RingCQE, minCompletions int, timeout time.Duration) (int, error) {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	n := 0
	for n < len(out) {
		head := atomic.LoadUint32(r.cq.head)
		tail := atomic.LoadUint32(r.cq.tail)
		if head == tail {
			if n >= minCompletions {
				break
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				break
			}
			_, errno := ioUringEnter(r.fd, 0, 1, enterGetEvents)
			if errno != 0 && errno != syscall.EINTR && errno != syscall.EAGAIN {
				return n, errno
			}
			continue
		}
		raw := &r.cq.cqes[head&r.cq.ringMask]
		out[n] = r.translateCQE(raw)
		atomic.AddUint32(r.cq.head, 1)
		n++
	}
	return n, nil
}

func (r *LinuxRing) translateCQE(raw *uringCQE) RingCQE {
	r.mu.Lock()
	entry, tracked := r.multishot[uint32(raw.UserData)]
	r.mu.Unlock()

	c := RingCQE{
		Result:   raw.Res,
		UserData: uint32(raw.UserData),
	}
	if tracked {
		c.OpType = entry.op
	}
	if raw.Flags&cqeFMore != 0 {
		c.Flags |= uint8(FlagMore)
	} else if tracked {
		r.mu.Lock()
		delete(r.multishot, uint32(raw.UserData))
		r.mu.Unlock()
	}
	if raw.Flags&cqeFBuffer != 0 {
		c.Flags |= uint8(FlagBuffer)
		c.BufferID = uint16(raw.Flags >> 16)
	}
	if raw.Flags&cqeFNotif != 0 {
		c.OpType = OpSendZC
	}
	return c
}

// RegisterBufferGroup records group under groupID and stamps the id for
// buffer-select recvs. It does not hand the group's slots to the kernel,
// so a recv submitted against the group completes with -ENOBUFS.
func (r *LinuxRing) RegisterBufferGroup(groupID uint16, group *BufferGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	group.id = groupID
	r.groups[groupID] = group
	return nil
}

func (r *LinuxRing) Shutdown() error {
	var firstErr error
	if r.ringMem != nil {
		if err := syscall.Munmap(r.ringMem); err != nil && firstErr == nil {
			firstErr = err
		}
		r.ringMem = nil
	}
	if r.sqeMem != nil {
		if err := syscall.Munmap(r.sqeMem); err != nil && firstErr == nil {
			firstErr = err
		}
		r.sqeMem = nil
	}
	if r.fd >= 0 {
		if err := syscall.Close(r.fd); err != nil && firstErr == nil {
			firstErr = err
		}
		r.fd = -1
	}
	return firstErr
}
