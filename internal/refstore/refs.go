package refstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// refLocks provides a mutex per reference to serialize updates
var refLocks = &sync.Map{}

// RefKind distinguishes branches from tags
type RefKind string

const (
	// RefBranch is a branch reference under refs/heads
	RefBranch RefKind = "heads"

	// RefTag is a tag reference under refs/tags
	RefTag RefKind = "tags"
)

// Ref is a named pointer to a commit
type Ref struct {
	Name       string
	CommitHash string
}

// lockRef acquires the lock for a reference and returns the unlock function
func (r *Repo) lockRef(kind RefKind, name string) func() {
	key := fmt.Sprintf("%s:%s:%s", r.path, kind, name)
	value, _ := refLocks.LoadOrStore(key, &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()
	return func() { mutex.Unlock() }
}

// refPath returns the file holding a reference
func (r *Repo) refPath(kind RefKind, name string) string {
	return filepath.Join(r.path, "refs", string(kind), name)
}

// validRefName rejects names that would escape the refs directory or collide
// with the file layout
func validRefName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return false
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return !strings.ContainsAny(name, " \t\n\\")
}

// SetRef creates or moves a reference to a commit. The write goes through a
// temp file and rename so a concurrent read never sees a partial hash.
func (r *Repo) SetRef(kind RefKind, name, commitHash string) error {
	if !validRefName(name) {
		return fmt.Errorf("invalid reference name: %q", name)
	}
	if !r.hasObject(commitHash) {
		return ErrObjectNotFound
	}

	unlock := r.lockRef(kind, name)
	defer unlock()

	path := r.refPath(kind, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create ref directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ref-*")
	if err != nil {
		return fmt.Errorf("failed to create temp ref: %w", err)
	}
	if _, err := tmp.WriteString(commitHash + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write ref: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close ref: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// GetRef reads a single reference
func (r *Repo) GetRef(kind RefKind, name string) (*Ref, error) {
	if !validRefName(name) {
		return nil, ErrRefNotFound
	}
	data, err := os.ReadFile(r.refPath(kind, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRefNotFound
		}
		return nil, err
	}
	hash := strings.TrimSpace(string(data))
	if !IsValidHash(hash) {
		return nil, fmt.Errorf("corrupt reference %s: %q", name, hash)
	}
	return &Ref{Name: name, CommitHash: hash}, nil
}

// DeleteRef removes a reference
func (r *Repo) DeleteRef(kind RefKind, name string) error {
	unlock := r.lockRef(kind, name)
	defer unlock()

	path := r.refPath(kind, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrRefNotFound
	}
	return os.Remove(path)
}

// ListRefs lists all references of a kind, sorted by name in ascending
// lexicographic order
func (r *Repo) ListRefs(kind RefKind) ([]Ref, error) {
	root := filepath.Join(r.path, "refs", string(kind))

	var refs []Ref
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(filepath.Base(name), ".ref-") {
			return nil // in-flight temp file
		}
		ref, err := r.GetRef(kind, name)
		if err != nil {
			return nil
		}
		refs = append(refs, *ref)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Resolve turns a revision into a commit hash. A revision is a branch name,
// a tag name, or a full commit hash, tried in that order.
func (r *Repo) Resolve(rev string) (string, error) {
	if ref, err := r.GetRef(RefBranch, rev); err == nil {
		return ref.CommitHash, nil
	}
	if ref, err := r.GetRef(RefTag, rev); err == nil {
		return ref.CommitHash, nil
	}
	if IsValidHash(rev) && r.hasObject(rev) {
		return rev, nil
	}
	return "", ErrRevisionNotFound
}
