package refstore

import (
	"fmt"
	"sort"
	"strings"
)

// Tree entry types
const (
	EntryBlob = "blob"
	EntryTree = "tree"
)

// TreeEntry is a single entry in a tree object: a file (blob) or a
// subdirectory (tree).
type TreeEntry struct {
	Type string
	Hash string
	Name string
}

// serializeTree encodes entries line by line, sorted by name so identical
// trees always hash the same.
func serializeTree(entries []TreeEntry) ([]byte, error) {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	for _, e := range sorted {
		if e.Name == "" || strings.ContainsAny(e.Name, "/\n") {
			return nil, fmt.Errorf("invalid tree entry name: %q", e.Name)
		}
		if e.Type != EntryBlob && e.Type != EntryTree {
			return nil, fmt.Errorf("invalid tree entry type for %s: %q", e.Name, e.Type)
		}
		if !IsValidHash(e.Hash) {
			return nil, fmt.Errorf("invalid hash for tree entry %s", e.Name)
		}
		fmt.Fprintf(&b, "%s %s\t%s\n", e.Type, e.Hash, e.Name)
	}
	return []byte(b.String()), nil
}

// parseTree decodes a tree object payload
func parseTree(data []byte) ([]TreeEntry, error) {
	var entries []TreeEntry
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		head, name, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("invalid tree entry: %q", line)
		}
		entryType, hash, ok := strings.Cut(head, " ")
		if !ok || !IsValidHash(hash) {
			return nil, fmt.Errorf("invalid tree entry: %q", line)
		}
		entries = append(entries, TreeEntry{Type: entryType, Hash: hash, Name: name})
	}
	return entries, nil
}

// WriteTree stores a tree object and returns its hash
func (r *Repo) WriteTree(entries []TreeEntry) (string, error) {
	data, err := serializeTree(entries)
	if err != nil {
		return "", err
	}
	return r.writeObject(typeTree, data)
}

// ReadTree loads a tree object
func (r *Repo) ReadTree(hash string) ([]TreeEntry, error) {
	objectType, data, err := r.readObject(hash)
	if err != nil {
		return nil, err
	}
	if objectType != typeTree {
		return nil, fmt.Errorf("object %s is a %s, not a tree", hash, objectType)
	}
	return parseTree(data)
}

// writeTreeFromPaths builds the nested tree objects for a set of blob hashes
// keyed by slash-separated paths, and returns the root tree hash.
func (r *Repo) writeTreeFromPaths(blobs map[string]string) (string, error) {
	type node struct {
		blobs map[string]string // file name -> blob hash
		dirs  map[string]*node
	}
	newNode := func() *node {
		return &node{blobs: make(map[string]string), dirs: make(map[string]*node)}
	}

	root := newNode()
	for path, hash := range blobs {
		segments := strings.Split(strings.Trim(path, "/"), "/")
		cur := root
		for _, dir := range segments[:len(segments)-1] {
			next, ok := cur.dirs[dir]
			if !ok {
				next = newNode()
				cur.dirs[dir] = next
			}
			cur = next
		}
		cur.blobs[segments[len(segments)-1]] = hash
	}

	var write func(n *node) (string, error)
	write = func(n *node) (string, error) {
		entries := make([]TreeEntry, 0, len(n.blobs)+len(n.dirs))
		for name, hash := range n.blobs {
			entries = append(entries, TreeEntry{Type: EntryBlob, Hash: hash, Name: name})
		}
		for name, child := range n.dirs {
			hash, err := write(child)
			if err != nil {
				return "", err
			}
			entries = append(entries, TreeEntry{Type: EntryTree, Hash: hash, Name: name})
		}
		return r.WriteTree(entries)
	}

	return write(root)
}
