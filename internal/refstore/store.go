// Package refstore is the repository store adapter: content-addressed blob,
// tree and commit objects plus loose branch/tag references, kept on the
// filesystem under a per-project directory. The API surface consumed by the
// service layer is read-oriented (list refs, resolve revisions, read blobs);
// the write side exists so repositories can be bootstrapped and seeded.
package refstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrRepoNotFound is returned when a project has no store repository
	ErrRepoNotFound = errors.New("store repository not found")

	// ErrObjectNotFound is returned when an object hash resolves to nothing
	ErrObjectNotFound = errors.New("object not found")

	// ErrRefNotFound is returned when a branch or tag does not exist
	ErrRefNotFound = errors.New("reference not found")

	// ErrRevisionNotFound is returned when a revision cannot be resolved
	// to a commit
	ErrRevisionNotFound = errors.New("revision not found")

	// ErrPathNotFound is returned when a file path does not exist at a revision
	ErrPathNotFound = errors.New("path not found")
)

// Store manages the repositories under a base directory, one per project code.
type Store struct {
	base  string
	perms os.FileMode
}

// NewStore creates a store rooted at base
func NewStore(base string, perms os.FileMode) *Store {
	return &Store{base: base, perms: perms}
}

// repoPath returns the directory holding a project's repository
func (s *Store) repoPath(code string) string {
	return filepath.Join(s.base, code)
}

// Init creates an empty repository for a project code. HEAD points at the
// default branch, which exists only once the first commit lands on it.
func (s *Store) Init(code, defaultBranch string) (*Repo, error) {
	path := s.repoPath(code)
	for _, dir := range []string{
		filepath.Join(path, "objects"),
		filepath.Join(path, "refs", "heads"),
		filepath.Join(path, "refs", "tags"),
	} {
		if err := os.MkdirAll(dir, s.perms); err != nil {
			return nil, fmt.Errorf("failed to create repository layout: %w", err)
		}
	}

	head := fmt.Sprintf("ref: refs/heads/%s\n", defaultBranch)
	if err := os.WriteFile(filepath.Join(path, "HEAD"), []byte(head), 0644); err != nil {
		return nil, fmt.Errorf("failed to write HEAD: %w", err)
	}

	return &Repo{path: path}, nil
}

// Open returns the repository for a project code
func (s *Store) Open(code string) (*Repo, error) {
	path := s.repoPath(code)
	if _, err := os.Stat(filepath.Join(path, "HEAD")); err != nil {
		return nil, ErrRepoNotFound
	}
	return &Repo{path: path}, nil
}

// Remove deletes a project's repository from disk
func (s *Store) Remove(code string) error {
	return os.RemoveAll(s.repoPath(code))
}

// Repo is a single on-disk repository
type Repo struct {
	path string
}

// DefaultBranch reads the branch name HEAD points at
func (r *Repo) DefaultBranch() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.path, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	content := strings.TrimSpace(string(data))
	const prefix = "ref: refs/heads/"
	if !strings.HasPrefix(content, prefix) {
		return "", fmt.Errorf("unexpected HEAD content: %q", content)
	}
	return strings.TrimPrefix(content, prefix), nil
}

// CommitFiles writes the given files as a snapshot commit and advances the
// branch to it. A missing branch is created; an existing branch head becomes
// the parent commit. Returns the new commit hash.
func (r *Repo) CommitFiles(branch, author, message string, files map[string][]byte) (string, error) {
	blobs := make(map[string]string, len(files))
	for path, content := range files {
		hash, err := r.WriteBlob(content)
		if err != nil {
			return "", err
		}
		blobs[path] = hash
	}

	treeHash, err := r.writeTreeFromPaths(blobs)
	if err != nil {
		return "", err
	}

	commit := &Commit{
		Tree:    treeHash,
		Author:  author,
		Message: message,
	}
	if head, err := r.GetRef(RefBranch, branch); err == nil {
		commit.Parents = []string{head.CommitHash}
	}

	hash, err := r.WriteCommit(commit)
	if err != nil {
		return "", err
	}
	if err := r.SetRef(RefBranch, branch, hash); err != nil {
		return "", err
	}
	return hash, nil
}

// BlobAt returns the raw content of the file at filePath in the snapshot the
// revision resolves to. Unknown revisions map to ErrRevisionNotFound and
// missing paths to ErrPathNotFound.
func (r *Repo) BlobAt(rev, filePath string) ([]byte, error) {
	commitHash, err := r.Resolve(rev)
	if err != nil {
		return nil, err
	}
	commit, err := r.ReadCommit(commitHash)
	if err != nil {
		return nil, err
	}

	treeHash := commit.Tree
	segments := strings.Split(strings.Trim(filePath, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return nil, ErrPathNotFound
	}

	for i, segment := range segments {
		entries, err := r.ReadTree(treeHash)
		if err != nil {
			return nil, err
		}
		entry, ok := findEntry(entries, segment)
		if !ok {
			return nil, ErrPathNotFound
		}
		if i == len(segments)-1 {
			if entry.Type != EntryBlob {
				return nil, ErrPathNotFound
			}
			return r.ReadBlob(entry.Hash)
		}
		if entry.Type != EntryTree {
			return nil, ErrPathNotFound
		}
		treeHash = entry.Hash
	}
	return nil, ErrPathNotFound
}

func findEntry(entries []TreeEntry, name string) (TreeEntry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}
