package s3keep

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// backupTree co-traverses the local and remote subtrees rooted at the same
// relative path. Files whose checksum is absent from or differs in the remote
// node are uploaded and their checksum recorded; matching files are skipped,
// which is what makes a no-change backup upload nothing. An upload failure is
// logged, counted, and NOT recorded in the remote node, so the next run
// retries it. An empty local directory leaves a zero-byte marker object at
// the directory key so restore can recreate it.
func (v *Vault) backupTree(ctx context.Context, localDir, remoteKey string, local, remote *Node) (uploaded, errs int, err error) {
	for _, name := range local.sortedDirs() {
		u, e, err := v.backupTree(ctx,
			filepath.Join(localDir, name), path.Join(remoteKey, name),
			local.Dirs[name], remote.child(name))
		uploaded += u
		errs += e
		if err != nil {
			return uploaded, errs, err
		}
	}

	for _, name := range local.sortedFiles() {
		sum := local.Files[name]
		if remote.Files[name] == sum {
			continue
		}
		key := path.Join(remoteKey, name)
		v.log.Info().Str("key", key).Msg("uploading")
		if err := v.uploadFile(ctx, filepath.Join(localDir, name), key); err != nil {
			v.log.Error().Err(err).Str("key", key).Msg("upload failed, skipping")
			errs++
			continue
		}
		remote.Files[name] = sum
		uploaded++
	}

	if local.empty() {
		if err := v.store.Put(ctx, remoteKey, bytes.NewReader(nil), 0); err != nil {
			v.log.Error().Err(err).Str("key", remoteKey).Msg("directory marker failed")
			errs++
		}
	}
	return uploaded, errs, nil
}

func (v *Vault) uploadFile(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}
	return v.store.Put(ctx, key, f, info.Size())
}

// restoreTree mirrors the remote subtree into the local directory. A file is
// downloaded when overwrite is set, or when it is missing locally, or when
// the local checksum differs from the manifest's. Downloads land in a
// .partial sibling, are re-hashed, and only replace the target on a checksum
// match. Per-file transport errors and verification failures are counted and
// skipped; they never abort the traversal.
func (v *Vault) restoreTree(ctx context.Context, localDir, remoteKey string, local, remote *Node, overwrite bool) (downloaded, failed, errs int, err error) {
	for _, name := range remote.sortedDirs() {
		d, f, e, err := v.restoreTree(ctx,
			filepath.Join(localDir, name), path.Join(remoteKey, name),
			local.child(name), remote.Dirs[name], overwrite)
		downloaded += d
		failed += f
		errs += e
		if err != nil {
			return downloaded, failed, errs, err
		}
	}

	if err := os.MkdirAll(localDir, 0755); err != nil {
		return downloaded, failed, errs, fmt.Errorf("create %s: %w", localDir, err)
	}

	for _, name := range remote.sortedFiles() {
		sum := remote.Files[name]
		if !overwrite && local.Files[name] == sum {
			continue
		}

		key := path.Join(remoteKey, name)
		target := filepath.Join(localDir, name)
		tmp := target + ".partial"

		v.log.Info().Str("key", key).Msg("downloading")
		digest, err := v.fetchToTemp(ctx, key, tmp)
		if err != nil {
			v.log.Error().Err(err).Str("key", key).Msg("download failed, skipping")
			errs++
			continue
		}

		if digest != sum {
			v.log.Warn().Str("key", key).Msg("verification failed, discarding")
			if err := os.Remove(tmp); err != nil {
				return downloaded, failed, errs, fmt.Errorf("remove %s: %w", tmp, err)
			}
			failed++
			continue
		}

		if err := os.Rename(tmp, target); err != nil {
			return downloaded, failed, errs, fmt.Errorf("replace %s: %w", target, err)
		}
		local.Files[name] = sum
		downloaded++
	}
	return downloaded, failed, errs, nil
}

// fetchToTemp streams the object at key into tmp while hashing it, and
// returns the hex digest of what was written. The temp file is removed on
// every failure path.
func (v *Vault) fetchToTemp(ctx context.Context, key, tmp string) (string, error) {
	rc, err := v.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", tmp, err)
	}

	h := sha512.New()
	_, err = io.Copy(io.MultiWriter(f, h), rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
