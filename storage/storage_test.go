package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	id := uuid.New()

	path, err := store.Upload(ctx, id, "voice note.webm", strings.NewReader("audio-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, id.String()[:2]+"/"))
	require.True(t, strings.HasSuffix(path, "voice_note.webm"))

	rc, err := store.Download(ctx, path)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	require.Equal(t, "audio-bytes", string(data))

	require.NoError(t, store.Delete(ctx, path))
	_, err = store.Download(ctx, path)
	require.True(t, errors.Is(err, ErrNotFound))

	// Deleting a missing object is not an error
	require.NoError(t, store.Delete(ctx, path))
}

func TestLocalStorage_RejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "../../etc/passwd")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestNewStorage_UnknownType(t *testing.T) {
	_, err := NewStorage(StorageConfig{Type: "floppy"})
	require.Error(t, err)
}

func TestNewStorage_S3RequiresBucket(t *testing.T) {
	_, err := NewStorage(StorageConfig{Type: StorageTypeS3, S3Region: "us-east-1"})
	require.Error(t, err)
}

func TestContentType(t *testing.T) {
	require.Equal(t, "audio/webm", ContentType("recording.webm"))
	require.Equal(t, "audio/mpeg", ContentType("ANSWER.MP3"))
	require.Equal(t, "application/json", ContentType("cases.json"))
	require.Equal(t, "application/octet-stream", ContentType("blob"))
}
