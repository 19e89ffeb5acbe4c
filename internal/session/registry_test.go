package session

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterUnregister(t *testing.T) {
	r := NewClientRegistry(2, 0)
	aConn, bConn := net.Pipe()
	defer aConn.Close()
	defer bConn.Close()

	c1, err := r.Register(aConn)
	require.NoError(t, err)
	assert.False(t, r.AtCapacity())

	c2, err := r.Register(bConn)
	require.NoError(t, err)
	assert.True(t, r.AtCapacity())

	_, err = r.Register(aConn)
	assert.Error(t, err, "registering past capacity should fail")

	r.Unregister(c1)
	assert.False(t, r.AtCapacity())
	r.Unregister(c2)
}

func TestRegistryLookupAndAllPlayers(t *testing.T) {
	r := NewClientRegistry(4, 0)
	players := newTestPlayerRegistry()

	aConn, aPeer := net.Pipe()
	defer aConn.Close()
	defer aPeer.Close()
	drain(aPeer)

	c, err := r.Register(aConn)
	require.NoError(t, err)

	_, ok := r.Lookup("alice")
	assert.False(t, ok, "unbound client should not be found by name")

	require.NoError(t, c.Login("alice", players))

	found, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, c, found)

	all := r.AllPlayers()
	require.Len(t, all, 1)
	assert.Equal(t, "alice", all[0].Name())
}

func TestRegistryWaitForEmptyReturnsImmediatelyWhenEmpty(t *testing.T) {
	r := NewClientRegistry(1, 0)
	done := make(chan struct{})
	go func() {
		r.WaitForEmpty()
		close(done)
	}()
	<-done
}

func TestRegistryWaitForEmptyBlocksUntilUnregister(t *testing.T) {
	r := NewClientRegistry(1, 0)
	aConn, aPeer := net.Pipe()
	defer aConn.Close()
	defer aPeer.Close()
	drain(aPeer)

	c, err := r.Register(aConn)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		r.WaitForEmpty()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitForEmpty returned before registry was empty")
	default:
	}

	r.Unregister(c)
	<-done
}
