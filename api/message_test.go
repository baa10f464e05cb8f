package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-session/api"
)

func TestVMsgEntryCount(t *testing.T) {
	m := api.NewMessage(2)
	assert.Equal(t, 2, m.Out.MaxEntries())
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(m.Out.SetNents(3)))
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(m.Out.SetEntry(2, []byte("x"))))

	require.NoError(t, m.Out.SetNents(1))
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(m.Out.Validate()), "declared but unset")

	require.NoError(t, m.Out.SetEntry(0, []byte("ab")))
	require.NoError(t, m.Out.Validate())
	m.Out.Header = []byte("hello\x00")
	assert.Equal(t, 8, m.Out.Len())

	require.NoError(t, m.Out.SetEntry(1, []byte("c")))
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(m.Out.Validate()), "set beyond count")
}

func TestMessageReset(t *testing.T) {
	m := api.NewMessage(0)
	assert.Equal(t, api.DefaultMaxSGE, m.In.MaxEntries())
	m.Out.Header = []byte("x")
	require.NoError(t, m.Out.SetEntry(0, []byte("y")))
	require.NoError(t, m.Out.SetNents(1))
	m.SN = 9
	m.UserContext = "ctx"

	m.Reset()
	assert.Nil(t, m.Out.Header)
	assert.Zero(t, m.Out.Nents())
	assert.Empty(t, m.Out.Entries())
	assert.NoError(t, m.Out.Validate())
	assert.Zero(t, m.SN)
	assert.Nil(t, m.UserContext)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "established", api.SessionEstablished.String())
	assert.Equal(t, "teardown", api.ConnTeardown.String())
	assert.Equal(t, "teardown", api.SessionStateTeardown.String())
}
