package s3keep

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// DefaultHashWorkers bounds the per-directory checksum pool.
const DefaultHashWorkers = 4

// Vault performs one-way content-addressed synchronization between a local
// directory tree and an object store. Backup pushes changed files up and
// persists the signed manifest; Restore pulls missing or mismatched files
// down and never writes remote state.
type Vault struct {
	store  ObjectStore
	secret []byte

	log         zerolog.Logger
	hashWorkers int
}

// Option configures a Vault.
type Option func(*Vault)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(v *Vault) { v.log = log }
}

// WithHashWorkers sets the number of goroutines hashing files during local
// tree building. Transfers stay sequential regardless.
func WithHashWorkers(n int) Option {
	return func(v *Vault) {
		if n > 0 {
			v.hashWorkers = n
		}
	}
}

// New creates a Vault around an injected object store and the secret key used
// to sign and verify the manifest.
func New(store ObjectStore, secretKey []byte, opts ...Option) (*Vault, error) {
	if store == nil {
		return nil, errors.New("s3keep: object store is nil")
	}
	if len(secretKey) == 0 {
		return nil, errors.New("s3keep: secret key is empty")
	}

	v := &Vault{
		store:       store,
		secret:      secretKey,
		log:         zerolog.Nop(),
		hashWorkers: DefaultHashWorkers,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// BackupOptions controls a single backup run.
type BackupOptions struct {
	// FollowSymlinks descends into symlinked directories. Traversal fails
	// with ErrSymlinkCycle if following loops back into an ancestor.
	FollowSymlinks bool
}

// BackupResult reports what a backup run transferred.
type BackupResult struct {
	// Uploaded counts files uploaded. Directory markers are not counted.
	Uploaded int
	// Errors counts files skipped on upload failure. Their checksums were
	// not recorded, so the next run retries them.
	Errors int
}

// RestoreOptions controls a single restore run.
type RestoreOptions struct {
	// Overwrite re-downloads every remote file even when the local checksum
	// already matches the manifest.
	Overwrite bool
}

// RestoreResult reports what a restore run transferred.
type RestoreResult struct {
	// Downloaded counts files fetched, verified, and put in place.
	Downloaded int
	// Failed counts downloads discarded because their content did not match
	// the manifest checksum.
	Failed int
	// Errors counts files skipped on transport failure.
	Errors int
}

// Backup snapshots localPath, compares it against the manifest subtree for
// remotePath, uploads what differs, and persists the mutated manifest once
// all transfers are done. A crash mid-transfer leaves the previous manifest
// intact.
func (v *Vault) Backup(ctx context.Context, localPath, remotePath string, opts BackupOptions) (*BackupResult, error) {
	info, err := os.Stat(localPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, localPath)
	}

	_, localSub, localAbs, err := readLocalTree(localPath, opts.FollowSymlinks, v.hashWorkers)
	if err != nil {
		return nil, err
	}

	remoteFull, remoteSub, remoteKey, err := v.loadRemoteTree(ctx, remotePath)
	if err != nil {
		return nil, err
	}

	v.log.Debug().Msg("local tree:\n" + localSub.String())

	uploaded, errs, err := v.backupTree(ctx, localAbs, remoteKey, localSub, remoteSub)
	if err != nil {
		return nil, err
	}

	if err := v.saveRemoteTree(ctx, remoteFull); err != nil {
		return nil, err
	}

	v.log.Info().Int("uploaded", uploaded).Int("errors", errs).Msg("backup complete")
	return &BackupResult{Uploaded: uploaded, Errors: errs}, nil
}

// Restore mirrors the manifest subtree for remotePath into localPath,
// creating it if needed. The manifest is authoritative and read-only here;
// per-file failures are reported in the result, not raised.
func (v *Vault) Restore(ctx context.Context, localPath, remotePath string, opts RestoreOptions) (*RestoreResult, error) {
	_, localSub, localAbs, err := readLocalTree(localPath, false, v.hashWorkers)
	if err != nil {
		return nil, err
	}

	_, remoteSub, remoteKey, err := v.loadRemoteTree(ctx, remotePath)
	if err != nil {
		return nil, err
	}

	v.log.Debug().Msg("remote tree:\n" + remoteSub.String())

	downloaded, failed, errs, err := v.restoreTree(ctx, localAbs, remoteKey, localSub, remoteSub, opts.Overwrite)
	if err != nil {
		return nil, err
	}

	v.log.Info().Int("restored", downloaded).Int("failed", failed).Int("errors", errs).Msg("restore complete")
	return &RestoreResult{Downloaded: downloaded, Failed: failed, Errors: errs}, nil
}
