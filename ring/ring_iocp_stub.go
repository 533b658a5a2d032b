//go:build windows

package ring

import "time"

// WindowsRing is a placeholder EventRing for Windows. An IOCP-backed
// implementation would mirror LinuxRing's shape (OVERLAPPED submissions,
// GetQueuedCompletionStatusEx for harvesting) but none exists yet; every
// method reports ErrUnsupportedPlatform so callers can detect this at
// startup rather than failing deep inside a submission path.
type WindowsRing struct{}

var _ EventRing = (*WindowsRing)(nil)

// NewWindowsRing always fails; it exists so callers on Windows get the
// same construction shape as the other backends.
func NewWindowsRing() (*WindowsRing, error) {
	return nil, ErrUnsupportedPlatform
}

func (*WindowsRing) Accept(fd int, userData uint32, multishot bool) error { return ErrUnsupportedPlatform }
func (*WindowsRing) Recv(fd int, userData uint32, buf []byte, group *BufferGroup, multishot bool) error {
	return ErrUnsupportedPlatform
}
func (*WindowsRing) Send(fd int, userData uint32, buf []byte, zeroCopy bool) error {
	return ErrUnsupportedPlatform
}
func (*WindowsRing) Connect(fd int, userData uint32, addr []byte) error { return ErrUnsupportedPlatform }
func (*WindowsRing) Close(fd int, userData uint32) error                { return ErrUnsupportedPlatform }
func (*WindowsRing) Submit() error                                      { return ErrUnsupportedPlatform }
func (*WindowsRing) Complete(out []RingCQE, minCompletions int, timeout time.Duration) (int, error) {
	return 0, ErrUnsupportedPlatform
}
func (*WindowsRing) RegisterBufferGroup(groupID uint16, group *BufferGroup) error {
	return ErrUnsupportedPlatform
}
func (*WindowsRing) Shutdown() error { return ErrUnsupportedPlatform }
