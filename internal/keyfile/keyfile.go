// Package keyfile manages the secret key used to sign the backup manifest.
package keyfile

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// keyBytes is the amount of entropy behind a generated key. The key file
// holds its hex encoding.
const keyBytes = 64

// LoadOrCreate reads the key file at path, generating a fresh random key if
// the file does not exist. The file is kept owner-read/write only either way.
func LoadOrCreate(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) == 0 {
			return nil, fmt.Errorf("key file %s is empty", path)
		}
		// Tighten permissions left loose by older versions or manual edits.
		if err := os.Chmod(path, 0600); err != nil {
			return nil, fmt.Errorf("chmod key file: %w", err)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	raw := make([]byte, keyBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	key = []byte(hex.EncodeToString(raw))

	if err := os.WriteFile(path, key, 0600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}
