// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-session/api"
	"github.com/momentics/hioload-session/pool"
)

// Wire layout, big endian:
//
//	[4 len][1 type][4 sn][2 hdrLen][hdr][1 nents]{[4 entLen][ent]}*
//
// len counts every byte after itself.
const (
	prefixLen     = 4
	fixedLen      = 1 + 4 + 2 + 1
	maxEntries    = api.MaxFrameEntries
	MaxFrameBytes = 16 * 1024 * 1024
)

var (
	ErrFrameTooLarge = errors.New("tcp: frame exceeds maximum size")
	ErrFrameInvalid  = errors.New("tcp: malformed frame")
)

// encoder holds the per-write scratch: the fixed preamble, the entry length
// words and the net.Buffers slice handed to writev.
type encoder struct {
	head [prefixLen + 1 + 4 + 2]byte
	lens []byte
	bufs net.Buffers
}

var encoders = pool.NewSyncPool(
	func() *encoder { return &encoder{lens: make([]byte, 0, 1+4*4)} },
	func(e *encoder) {
		for i := range e.bufs {
			e.bufs[i] = nil
		}
		e.bufs = e.bufs[:0]
		e.lens = e.lens[:0]
	},
)

// encode lays f out as a net.Buffers so header and body entries reach the
// socket through a single writev without being copied together. The result
// aliases e and is valid until e goes back to the pool.
func (e *encoder) encode(f *api.Frame) (net.Buffers, error) {
	if len(f.Body) > maxEntries {
		return nil, errors.Wrapf(ErrFrameInvalid, "%d body entries", len(f.Body))
	}
	size := fixedLen + len(f.Header) + 4*len(f.Body)
	for _, b := range f.Body {
		size += len(b)
	}
	if size > MaxFrameBytes || len(f.Header) > api.MaxFrameHeader {
		return nil, ErrFrameTooLarge
	}

	binary.BigEndian.PutUint32(e.head[0:4], uint32(size))
	e.head[4] = byte(f.Type)
	binary.BigEndian.PutUint32(e.head[5:9], f.SN)
	binary.BigEndian.PutUint16(e.head[9:11], uint16(len(f.Header)))

	if n := 1 + 4*len(f.Body); cap(e.lens) < n {
		e.lens = make([]byte, n)
	} else {
		e.lens = e.lens[:n]
	}
	e.bufs = append(e.bufs[:0], e.head[:])
	if len(f.Header) > 0 {
		e.bufs = append(e.bufs, f.Header)
	}
	e.lens[0] = byte(len(f.Body))
	e.bufs = append(e.bufs, e.lens[:1])
	for i, b := range f.Body {
		l := e.lens[1+4*i : 5+4*i]
		binary.BigEndian.PutUint32(l, uint32(len(b)))
		e.bufs = append(e.bufs, l)
		if len(b) > 0 {
			e.bufs = append(e.bufs, b)
		}
	}
	return e.bufs, nil
}

// WriteFrame encodes f onto w.
func WriteFrame(w io.Writer, f *api.Frame) error {
	e := encoders.Get()
	defer encoders.Put(e)
	bufs, err := e.encode(f)
	if err != nil {
		return err
	}
	_, err = bufs.WriteTo(w)
	return err
}

// ReadFrame decodes one frame from r. A clean EOF before the first byte is
// returned as io.EOF.
func ReadFrame(r io.Reader) (*api.Frame, error) {
	var prefix [prefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size < fixedLen {
		return nil, errors.Wrapf(ErrFrameInvalid, "length %d", size)
	}
	if size > MaxFrameBytes {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "read frame body")
	}

	f := &api.Frame{
		Type: api.FrameType(buf[0]),
		SN:   binary.BigEndian.Uint32(buf[1:5]),
	}
	hdrLen := int(binary.BigEndian.Uint16(buf[5:7]))
	off := 7
	if off+hdrLen+1 > len(buf) {
		return nil, errors.Wrap(ErrFrameInvalid, "header overruns frame")
	}
	if hdrLen > 0 {
		f.Header = buf[off : off+hdrLen]
	}
	off += hdrLen
	nents := int(buf[off])
	off++
	if nents > 0 {
		f.Body = make([][]byte, nents)
	}
	for i := 0; i < nents; i++ {
		if off+4 > len(buf) {
			return nil, errors.Wrap(ErrFrameInvalid, "entry length overruns frame")
		}
		l := int(binary.BigEndian.Uint32(buf[off : off+4]))
		off += 4
		if off+l > len(buf) {
			return nil, errors.Wrap(ErrFrameInvalid, "entry overruns frame")
		}
		f.Body[i] = buf[off : off+l]
		off += l
	}
	if off != len(buf) {
		return nil, errors.Wrap(ErrFrameInvalid, "trailing bytes")
	}
	return f, nil
}
