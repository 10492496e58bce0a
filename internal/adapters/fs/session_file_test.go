package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/sessionguard/internal/domain"
	"github.com/bft-labs/sessionguard/pkg/readiness"
)

func testSession() domain.Session {
	return domain.Session{
		Homeserver:        "https://matrix.example.org",
		UserID:            "@alice:example.org",
		DeviceID:          "ABCDEFGH",
		AccessToken:       "syt_token",
		BackupUploadState: readiness.BackupUploadUploading,
	}
}

func TestSessionFileRepository_LoadMissing(t *testing.T) {
	repo := NewSessionFileRepository(t.TempDir())

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrNoSession)
}

func TestSessionFileRepository_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	repo := NewSessionFileRepository(dir)
	ctx := context.Background()

	want := testSession()
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = os.Stat(repo.Path() + ".tmp")
	require.True(t, os.IsNotExist(err), "temp file left behind")

	raw, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	require.Contains(t, string(raw), `"backup_upload_state": "uploading"`)
}

func TestSessionFileRepository_Clear(t *testing.T) {
	repo := NewSessionFileRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.Clear(ctx), "clearing an absent session")
	require.NoError(t, repo.Save(ctx, testSession()))
	require.NoError(t, repo.Clear(ctx))

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, domain.ErrNoSession)
}

func TestSessionFileRepository_Corrupt(t *testing.T) {
	repo := NewSessionFileRepository(t.TempDir())
	require.NoError(t, os.WriteFile(repo.Path(), []byte("{not json"), 0o600))

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrNoSession)
}

func TestSessionProbe(t *testing.T) {
	repo := NewSessionFileRepository(t.TempDir())
	probe := NewSessionProbe(repo)
	ctx := context.Background()

	_, err := probe.IsLastDevice(ctx)
	require.ErrorIs(t, err, domain.ErrNoSession)

	s := testSession()
	s.IsLastDevice = true
	require.NoError(t, repo.Save(ctx, s))

	isLast, err := probe.IsLastDevice(ctx)
	require.NoError(t, err)
	require.True(t, isLast)
}
