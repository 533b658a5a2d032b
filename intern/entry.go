package intern

const inlineCap = 15

// Entry is the stable record returned by Intern: a canonical pointer, a
// 16-bit monotonic id, and the cached SipHash-2-4 digest of the text.
// Matches spec.md's InternEntry attributes; the inline buffer optimizes
// the common case of short identifiers (names <= 15 bytes) by avoiding a
// second heap allocation for the backing bytes.
type Entry struct {
	hash      uint64
	id        uint16
	length    uint32
	inline    [inlineCap]byte
	overflow  []byte // used when length > inlineCap
	canonical string // string view over inline[:length] or overflow
}

func newEntry(text string, id uint16, hash uint64) *Entry {
	e := &Entry{id: id, hash: hash, length: uint32(len(text))}
	if len(text) <= inlineCap {
		copy(e.inline[:], text)
		e.canonical = string(e.inline[:len(text)])
	} else {
		e.overflow = append([]byte(nil), text...)
		e.canonical = string(e.overflow)
	}
	return e
}

// Text returns the interned identifier text.
func (e *Entry) Text() string { return e.canonical }

// ID returns the entry's monotonic intern id.
func (e *Entry) ID() uint16 { return e.id }

// Hash returns the entry's cached SipHash-2-4 digest.
func (e *Entry) Hash() uint64 { return e.hash }

// Canonical returns the stable identity pointer for this entry's text —
// equal identifiers always return the same pointer for the life of the
// process, making pointer comparison a valid identity check.
func (e *Entry) Canonical() *string { return &e.canonical }

func (e *Entry) matches(text string, hash uint64) bool {
	// length-first rejection is mandatory (spec.md testable property #3):
	// reject before ever touching hash or bytes.
	if int(e.length) != len(text) {
		return false
	}
	if e.hash != hash {
		return false
	}
	return e.canonical == text
}
