package refstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Object types stored in the object directory
const (
	typeBlob   = "blob"
	typeTree   = "tree"
	typeCommit = "commit"
)

// HashBytes calculates the SHA-256 hash of the given data, including the
// object header. The header binds a hash to its type, so a blob and a tree
// with identical payloads never collide.
func HashBytes(objectType string, data []byte) string {
	header := fmt.Sprintf("%s %d\x00", objectType, len(data))
	h := sha256.New()
	h.Write([]byte(header))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// IsValidHash checks whether a string looks like an object hash
func IsValidHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// objectPath returns where an object lives, fanned out on the first hash byte
func (r *Repo) objectPath(hash string) string {
	return filepath.Join(r.path, "objects", hash[:2], hash[2:])
}

// writeObject stores data under its content hash. Writing the same content
// twice is a no-op.
func (r *Repo) writeObject(objectType string, data []byte) (string, error) {
	hash := HashBytes(objectType, data)
	path := r.objectPath(hash)

	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	header := fmt.Sprintf("%s %d\x00", objectType, len(data))
	content := append([]byte(header), data...)
	if err := os.WriteFile(path, content, 0444); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	return hash, nil
}

// readObject loads an object and verifies its framing
func (r *Repo) readObject(hash string) (string, []byte, error) {
	if !IsValidHash(hash) {
		return "", nil, ErrObjectNotFound
	}

	content, err := os.ReadFile(r.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, ErrObjectNotFound
		}
		return "", nil, fmt.Errorf("failed to read object %s: %w", hash, err)
	}

	headerEnd := bytes.IndexByte(content, '\x00')
	if headerEnd == -1 {
		return "", nil, fmt.Errorf("invalid object format: header not found")
	}

	var objectType string
	var size int
	if _, err := fmt.Sscanf(string(content[:headerEnd]), "%s %d", &objectType, &size); err != nil {
		return "", nil, fmt.Errorf("invalid object header: %w", err)
	}

	data := content[headerEnd+1:]
	if len(data) != size {
		return "", nil, fmt.Errorf("object size mismatch: expected %d, got %d", size, len(data))
	}

	return objectType, data, nil
}

// hasObject reports whether an object exists in the store
func (r *Repo) hasObject(hash string) bool {
	_, err := os.Stat(r.objectPath(hash))
	return err == nil
}

// WriteBlob stores raw file content and returns its hash
func (r *Repo) WriteBlob(data []byte) (string, error) {
	return r.writeObject(typeBlob, data)
}

// ReadBlob returns the raw content of a blob object
func (r *Repo) ReadBlob(hash string) ([]byte, error) {
	objectType, data, err := r.readObject(hash)
	if err != nil {
		return nil, err
	}
	if objectType != typeBlob {
		return nil, fmt.Errorf("object %s is a %s, not a blob", hash, objectType)
	}
	return data, nil
}
