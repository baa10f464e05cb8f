// Package api
// Author: momentics
//
// Request/response message with header plus scatter-gather body lists.
//
// A Message is owned by a MessagePool. It must be acquired before it is
// populated and is handed back to the pool by the completion callback only.

package api

// DefaultMaxSGE is the number of scatter-gather entries allocated per VMsg
// when the pool is not told otherwise.
const DefaultMaxSGE = 4

// VMsg is one direction of a Message: a header and a bounded scatter-gather
// list whose entry count is set explicitly by the caller.
type VMsg struct {
	Header []byte
	sgl    [][]byte
	nents  int
}

func newVMsg(maxSGE int) VMsg {
	if maxSGE <= 0 {
		maxSGE = DefaultMaxSGE
	}
	return VMsg{sgl: make([][]byte, maxSGE)}
}

// MaxEntries returns the capacity of the scatter-gather list.
func (v *VMsg) MaxEntries() int { return len(v.sgl) }

// Nents returns the number of populated scatter-gather entries.
func (v *VMsg) Nents() int { return v.nents }

// SetNents sets the declared number of scatter-gather entries.
func (v *VMsg) SetNents(n int) error {
	if n < 0 || n > len(v.sgl) {
		return Errorf(ErrCodePrecondition, "nents %d out of range [0,%d]", n, len(v.sgl))
	}
	v.nents = n
	return nil
}

// SetEntry stores data at scatter-gather index i.
func (v *VMsg) SetEntry(i int, data []byte) error {
	if i < 0 || i >= len(v.sgl) {
		return Errorf(ErrCodePrecondition, "sge index %d out of range [0,%d)", i, len(v.sgl))
	}
	v.sgl[i] = data
	return nil
}

// Entries returns the first Nents scatter-gather entries.
func (v *VMsg) Entries() [][]byte { return v.sgl[:v.nents] }

// Len returns the total number of header and body bytes.
func (v *VMsg) Len() int {
	n := len(v.Header)
	for _, e := range v.Entries() {
		n += len(e)
	}
	return n
}

// Validate checks that the declared entry count matches the entries that
// were actually populated.
func (v *VMsg) Validate() error {
	for i, e := range v.sgl {
		if i < v.nents && e == nil {
			return Errorf(ErrCodePrecondition, "sge %d declared but not populated", i).
				WithContext("nents", v.nents)
		}
		if i >= v.nents && e != nil {
			return Errorf(ErrCodePrecondition, "sge %d populated beyond declared count", i).
				WithContext("nents", v.nents)
		}
	}
	return nil
}

// Reset clears the header and every entry and zeroes the entry count.
func (v *VMsg) Reset() {
	v.Header = nil
	for i := range v.sgl {
		v.sgl[i] = nil
	}
	v.nents = 0
}

// Message is a request (Out) and the response it receives (In).
type Message struct {
	Out VMsg
	In  VMsg

	// SN is the serial number assigned by the runtime on send.
	SN uint32
	// UserContext is opaque to the runtime.
	UserContext any

	released bool
}

// NewMessage allocates a message with maxSGE entries in each direction.
func NewMessage(maxSGE int) *Message {
	return &Message{Out: newVMsg(maxSGE), In: newVMsg(maxSGE)}
}

// Released reports whether the message sits in its pool. A released message
// must be acquired again before it is sent.
func (m *Message) Released() bool { return m.released }

// MarkReleased records pool ownership. Pools call it on Acquire and Release;
// messages created with NewMessage start out acquired.
func (m *Message) MarkReleased(released bool) { m.released = released }

// Reset returns the message to its freshly allocated state. Pool ownership
// is left alone.
func (m *Message) Reset() {
	m.Out.Reset()
	m.In.Reset()
	m.SN = 0
	m.UserContext = nil
}
