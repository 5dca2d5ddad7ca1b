package s3keep

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// manifestKey is the fixed object key for the signed manifest. One manifest
// per bucket covers every backup root under "backup/".
const manifestKey = "index.bin"

// signatureSize is the length of the keyed-hash signature prefixed to the
// manifest payload.
const signatureSize = sha512.Size

const manifestVersion = 1

// manifestPayload is the versioned serialization schema for the remote tree.
type manifestPayload struct {
	Version int   `json:"version"`
	Tree    *Node `json:"tree"`
}

var (
	zenc, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	zdec, _ = zstd.NewReader(nil)
)

// encodeManifest serializes the tree and signs it:
// [64-byte HMAC-SHA512 over payload][zstd(json payload)].
func encodeManifest(secret []byte, root *Node) ([]byte, error) {
	raw, err := json.Marshal(manifestPayload{Version: manifestVersion, Tree: root})
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	payload := zenc.EncodeAll(raw, make([]byte, 0, len(raw)))

	mac := hmac.New(sha512.New, secret)
	mac.Write(payload)
	return append(mac.Sum(nil), payload...), nil
}

// decodeManifest verifies the signature over the payload bytes in constant
// time, then decodes the tree. A bad signature is ErrIntegrity; anything the
// codec cannot parse after verification is ErrFormat.
func decodeManifest(secret, data []byte) (*Node, error) {
	if len(data) < signatureSize {
		return nil, fmt.Errorf("%w: shorter than signature", ErrFormat)
	}
	sig, payload := data[:signatureSize], data[signatureSize:]

	mac := hmac.New(sha512.New, secret)
	mac.Write(payload)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, ErrIntegrity
	}

	raw, err := zdec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	var p manifestPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if p.Version != manifestVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, p.Version)
	}
	if p.Tree == nil {
		return nil, fmt.Errorf("%w: missing tree", ErrFormat)
	}
	normalizeTree(p.Tree)
	return p.Tree, nil
}

// normalizeTree replaces nil maps dropped by omitempty so traversal code can
// write into any node.
func normalizeTree(n *Node) {
	if n.Dirs == nil {
		n.Dirs = make(map[string]*Node)
	}
	if n.Files == nil {
		n.Files = make(map[string]string)
	}
	for _, c := range n.Dirs {
		normalizeTree(c)
	}
}

// normalizeRemotePath roots a caller-supplied remote path under the fixed
// "backup" segment. The leading-slash clean keeps ".." from escaping it.
func normalizeRemotePath(remotePath string) string {
	return path.Join("backup", path.Clean("/"+remotePath))
}

// loadRemoteTree fetches and verifies the manifest, then descends (creating
// missing nodes) to the working subtree for remotePath. A missing manifest is
// the first-ever backup, not an error: it yields an empty tree.
func (v *Vault) loadRemoteTree(ctx context.Context, remotePath string) (full, sub *Node, normPath string, err error) {
	normPath = normalizeRemotePath(remotePath)

	ok, err := v.store.Exists(ctx, manifestKey)
	if err != nil {
		return nil, nil, "", fmt.Errorf("check manifest: %w", err)
	}

	if !ok {
		v.log.Info().Msg("no existing backup found")
		full = newNode()
	} else {
		rc, err := v.store.Get(ctx, manifestKey)
		if err != nil {
			return nil, nil, "", fmt.Errorf("fetch manifest: %w", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, "", fmt.Errorf("fetch manifest: %w", err)
		}
		full, err = decodeManifest(v.secret, data)
		if err != nil {
			return nil, nil, "", err
		}
	}

	sub = full
	for _, seg := range strings.Split(normPath, "/") {
		sub = sub.child(seg)
	}
	return full, sub, normPath, nil
}

// saveRemoteTree signs and uploads the full tree, replacing the previous
// manifest. This is the only mutation of remote persisted state and runs once,
// after all transfers of a backup have finished.
func (v *Vault) saveRemoteTree(ctx context.Context, full *Node) error {
	data, err := encodeManifest(v.secret, full)
	if err != nil {
		return err
	}
	if err := v.store.Put(ctx, manifestKey, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("upload manifest: %w", err)
	}
	return nil
}
