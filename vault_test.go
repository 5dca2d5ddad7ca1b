package s3keep

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaeha-choi/s3keep/internal/objstore"
)

var testSecret = []byte("vault test secret")

func newTestVault(t *testing.T) (*Vault, *objstore.Memory) {
	t.Helper()
	mem := objstore.NewMemory()
	v, err := New(mem, testSecret)
	require.NoError(t, err)
	return v, mem
}

// dirContents walks dir and returns relative file path -> content.
func dirContents(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, testSecret)
	assert.Error(t, err)

	_, err = New(objstore.NewMemory(), nil)
	assert.Error(t, err)
}

func TestBackupNotADirectory(t *testing.T) {
	v, _ := newTestVault(t)
	dir := t.TempDir()
	writeFile(t, dir, "plain.txt", "x")

	_, err := v.Backup(context.Background(), filepath.Join(dir, "plain.txt"), "data", BackupOptions{})
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = v.Backup(context.Background(), filepath.Join(dir, "missing"), "data", BackupOptions{})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	src := t.TempDir()
	writeFile(t, src, "a.txt", "alpha")
	writeFile(t, src, "sub/b.txt", "beta")
	writeFile(t, src, "sub/deep/c.bin", "\x00\x01\x02")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "hollow"), 0755))

	res, err := v.Backup(ctx, src, "data", BackupOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Uploaded)
	assert.Zero(t, res.Errors)

	dst := filepath.Join(t.TempDir(), "restored")
	rres, err := v.Restore(ctx, dst, "data", RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, rres.Downloaded)
	assert.Zero(t, rres.Failed)
	assert.Zero(t, rres.Errors)

	assert.Equal(t, dirContents(t, src), dirContents(t, dst))

	info, err := os.Stat(filepath.Join(dst, "hollow"))
	require.NoError(t, err, "empty directory survives backup+restore")
	assert.True(t, info.IsDir())
}

func TestBackupIdempotent(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	src := t.TempDir()
	writeFile(t, src, "a.txt", "alpha")
	writeFile(t, src, "sub/b.txt", "beta")

	res, err := v.Backup(ctx, src, "data", BackupOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Uploaded)

	res, err = v.Backup(ctx, src, "data", BackupOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Uploaded, "unchanged tree uploads nothing")
}

func TestBackupDetectsSingleChange(t *testing.T) {
	v, mem := newTestVault(t)
	ctx := context.Background()

	src := t.TempDir()
	writeFile(t, src, "changed.txt", "before")
	writeFile(t, src, "same.txt", "stable")

	_, err := v.Backup(ctx, src, "data", BackupOptions{})
	require.NoError(t, err)

	manifest, ok := mem.Object("index.bin")
	require.True(t, ok)
	before, err := decodeManifest(testSecret, manifest)
	require.NoError(t, err)

	writeFile(t, src, "changed.txt", "after")
	res, err := v.Backup(ctx, src, "data", BackupOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Uploaded, "only the modified file uploads")

	manifest, ok = mem.Object("index.bin")
	require.True(t, ok)
	after, err := decodeManifest(testSecret, manifest)
	require.NoError(t, err)

	beforeSub := before.child("backup").child("data")
	afterSub := after.child("backup").child("data")
	assert.Equal(t, beforeSub.Files["same.txt"], afterSub.Files["same.txt"], "sibling checksum untouched")
	assert.NotEqual(t, beforeSub.Files["changed.txt"], afterSub.Files["changed.txt"])
}

func TestBackupEmptyDirMarker(t *testing.T) {
	v, mem := newTestVault(t)
	ctx := context.Background()

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "vacant"), 0755))

	res, err := v.Backup(ctx, src, "data", BackupOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Uploaded, "markers are not counted as uploads")

	marker, ok := mem.Object("backup/data/vacant")
	require.True(t, ok, "zero-byte marker object exists at the directory key")
	assert.Empty(t, marker)
}

func TestRestoreOverwriteSemantics(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	src := t.TempDir()
	writeFile(t, src, "a.txt", "alpha")
	writeFile(t, src, "sub/b.txt", "beta")

	_, err := v.Backup(ctx, src, "data", BackupOptions{})
	require.NoError(t, err)

	// Matching local checksums: nothing to download without overwrite.
	res, err := v.Restore(ctx, src, "data", RestoreOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Downloaded)

	// Overwrite forces every remote file down again.
	res, err = v.Restore(ctx, src, "data", RestoreOptions{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Downloaded)
}

func TestRestoreRefreshesModifiedFile(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	src := t.TempDir()
	writeFile(t, src, "a.txt", "manifest version")

	_, err := v.Backup(ctx, src, "data", BackupOptions{})
	require.NoError(t, err)

	writeFile(t, src, "a.txt", "local drift")
	res, err := v.Restore(ctx, src, "data", RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downloaded)

	data, err := os.ReadFile(filepath.Join(src, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "manifest version", string(data))
}

func TestRestorePartialFailureIsolation(t *testing.T) {
	v, mem := newTestVault(t)
	ctx := context.Background()

	src := t.TempDir()
	writeFile(t, src, "good1.txt", "one")
	writeFile(t, src, "bad.txt", "two")
	writeFile(t, src, "good2.txt", "three")

	_, err := v.Backup(ctx, src, "data", BackupOptions{})
	require.NoError(t, err)

	// Serve corrupted bytes for one object: its checksum can no longer verify.
	mem.CorruptObject("backup/data/bad.txt", []byte("corrupted"))

	dst := filepath.Join(t.TempDir(), "restored")
	res, err := v.Restore(ctx, dst, "data", RestoreOptions{})
	require.NoError(t, err, "per-file verification failure must not abort the restore")
	assert.Equal(t, 2, res.Downloaded)
	assert.Equal(t, 1, res.Failed)

	got := dirContents(t, dst)
	assert.Equal(t, map[string]string{"good1.txt": "one", "good2.txt": "three"}, got)

	for rel := range got {
		assert.False(t, strings.HasSuffix(rel, ".partial"), "no temp files left behind")
	}
}

func TestRestoreTransportErrorSkipped(t *testing.T) {
	v, mem := newTestVault(t)
	ctx := context.Background()

	src := t.TempDir()
	writeFile(t, src, "ok.txt", "fine")
	writeFile(t, src, "gone.txt", "lost")

	_, err := v.Backup(ctx, src, "data", BackupOptions{})
	require.NoError(t, err)

	mem.FailGet("backup/data/gone.txt")

	dst := filepath.Join(t.TempDir(), "restored")
	res, err := v.Restore(ctx, dst, "data", RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, map[string]string{"ok.txt": "fine"}, dirContents(t, dst))
}

func TestTamperedManifestAborts(t *testing.T) {
	v, mem := newTestVault(t)
	ctx := context.Background()

	src := t.TempDir()
	writeFile(t, src, "a.txt", "alpha")

	_, err := v.Backup(ctx, src, "data", BackupOptions{})
	require.NoError(t, err)

	manifest, ok := mem.Object("index.bin")
	require.True(t, ok)
	manifest[len(manifest)-1] ^= 0x01
	mem.SetObject("index.bin", manifest)

	_, err = v.Backup(ctx, src, "data", BackupOptions{})
	assert.ErrorIs(t, err, ErrIntegrity)

	_, err = v.Restore(ctx, t.TempDir(), "data", RestoreOptions{})
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestMultipleBackupRootsCoexist(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	one := t.TempDir()
	writeFile(t, one, "first.txt", "first")
	two := t.TempDir()
	writeFile(t, two, "second.txt", "second")

	_, err := v.Backup(ctx, one, "roots/one", BackupOptions{})
	require.NoError(t, err)
	_, err = v.Backup(ctx, two, "roots/two", BackupOptions{})
	require.NoError(t, err)

	dstOne := filepath.Join(t.TempDir(), "one")
	res, err := v.Restore(ctx, dstOne, "roots/one", RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, map[string]string{"first.txt": "first"}, dirContents(t, dstOne))

	dstTwo := filepath.Join(t.TempDir(), "two")
	res, err = v.Restore(ctx, dstTwo, "roots/two", RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"second.txt": "second"}, dirContents(t, dstTwo))
}

func TestRestoreMissingRemoteIsNoop(t *testing.T) {
	v, _ := newTestVault(t)

	dst := filepath.Join(t.TempDir(), "fresh")
	res, err := v.Restore(context.Background(), dst, "never/backed/up", RestoreOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Downloaded)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "restore target directory is created")
}
