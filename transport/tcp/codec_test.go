package tcp

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-session/api"
)

func TestFrameScatterGather(t *testing.T) {
	var buf bytes.Buffer
	in := &api.Frame{
		Type:   api.FrameRequest,
		SN:     7,
		Header: []byte("hello\x00"),
		Body:   [][]byte{[]byte("ab"), {}, []byte("cde")},
	}
	require.NoError(t, WriteFrame(&buf, in))

	out, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, api.FrameRequest, out.Type)
	assert.Equal(t, uint32(7), out.SN)
	assert.Equal(t, in.Header, out.Header)
	require.Len(t, out.Body, 3)
	assert.Equal(t, "ab", string(out.Body[0]))
	assert.Empty(t, out.Body[1])
	assert.Equal(t, "cde", string(out.Body[2]))

	_, err = ReadFrame(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], MaxFrameBytes+1)
	_, err := ReadFrame(bytes.NewReader(prefix[:]))
	assert.True(t, errors.Is(err, ErrFrameTooLarge))
}

func TestReadFrameRejectsTruncatedEntry(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, &api.Frame{Type: api.FrameResponse, Body: [][]byte{[]byte("xyz")}}))
	raw := buf.Bytes()
	// Claim a longer entry than the frame holds.
	binary.BigEndian.PutUint32(raw[len(raw)-7:len(raw)-3], 100)
	_, err := ReadFrame(bytes.NewReader(raw))
	assert.True(t, errors.Is(err, ErrFrameInvalid))
}
