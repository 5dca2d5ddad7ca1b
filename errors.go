package s3keep

import "errors"

var (
	// ErrIntegrity is returned when the manifest signature does not verify.
	// The manifest is never trusted in that state and the whole operation
	// aborts before any transfer.
	ErrIntegrity = errors.New("s3keep: manifest signature mismatch")

	// ErrFormat is returned when manifest bytes cannot be decoded into a tree.
	ErrFormat = errors.New("s3keep: malformed manifest")

	// ErrNotDirectory is returned when a backup source path does not name an
	// existing directory.
	ErrNotDirectory = errors.New("s3keep: not a directory")

	// ErrBadRemoteSpec is returned for a malformed bucket::path argument.
	ErrBadRemoteSpec = errors.New("s3keep: remote must be bucket::path")

	// ErrSymlinkCycle is returned when symlink following revisits a directory
	// already on the traversal path.
	ErrSymlinkCycle = errors.New("s3keep: symlink cycle detected")
)
