package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGeneratesAndPersistsKey(t *testing.T) {
	dir := t.TempDir()

	node, err := Load(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, node.NodeID())
	assert.Len(t, node.PublicKey(), 32)

	info, err := os.Stat(filepath.Join(dir, keyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadIsStableAcrossRestarts(t *testing.T) {
	dir := t.TempDir()

	first, err := Load(dir)
	require.NoError(t, err)

	second, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, first.NodeID(), second.NodeID())
	assert.Equal(t, first.PublicKey(), second.PublicKey())
}

func TestLoadRejectsCorruptKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFile), []byte("short"), 0600))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestListenAndDial(t *testing.T) {
	node, err := Load(t.TempDir())
	require.NoError(t, err)

	ln, err := node.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
		close(done)
	}()

	conn, err := node.Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	conn.Close()
	<-done
}
