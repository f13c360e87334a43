package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveStreamAndRead(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	n, err := store.SaveStream("drafts/d1/ktp", strings.NewReader("%PDF-1.4 first"))
	require.NoError(t, err)
	assert.EqualValues(t, 14, n)

	_, err = store.SaveStream("drafts/d1/ktp", strings.NewReader("%PDF-1.4 second"))
	require.NoError(t, err)

	data, err := store.Read("drafts/d1/ktp")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 second", string(data))

	require.NoError(t, store.Delete("drafts/d1/ktp"))
	require.NoError(t, store.Delete("drafts/d1/ktp"))
}

func TestLocalStorageRejectsEscapingHandles(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidHandle)
	_, err = store.Save("/etc/passwd", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.ErrorIs(t, store.DeleteTree("."), ErrInvalidHandle)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	for _, name := range []string{"old", "pinned", "new"} {
		_, err = store.Save("drafts/"+name+"/ktp", []byte(name))
		require.NoError(t, err)
	}

	past := time.Now().Add(-48 * time.Hour)
	for _, name := range []string{"old", "pinned"} {
		draftDir := filepath.Join(dir, "drafts", name)
		require.NoError(t, os.Chtimes(filepath.Join(draftDir, "ktp"), past, past))
		require.NoError(t, os.Chtimes(draftDir, past, past))
	}

	deleted, err := store.CleanupOlderThan("drafts", 24*time.Hour, func(name string) bool { return name == "pinned" })
	require.NoError(t, err)
	assert.Equal(t, []string{"drafts/old"}, deleted)

	for _, name := range []string{"pinned", "new"} {
		_, err = os.Stat(filepath.Join(dir, "drafts", name, "ktp"))
		assert.NoError(t, err, name)
	}
}

func TestLocalStorageSaveStreamKeepsPreviousOnFailure(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveStream("drafts/d1/ktp", strings.NewReader("%PDF-1.4 first"))
	require.NoError(t, err)

	_, err = store.SaveStream("drafts/d1/ktp", io.MultiReader(strings.NewReader("%PDF"), failingReader{}))
	require.Error(t, err)

	data, err := store.Read("drafts/d1/ktp")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 first", string(data))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
