package refstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Commit is a snapshot of a repository with its metadata
type Commit struct {
	Hash      string    // hash of the serialized commit; set on read/write
	Tree      string    // root tree hash
	Parents   []string  // parent commit hashes
	Author    string    // "Name <email>"
	Message   string    // commit message
	Timestamp time.Time // commit time
}

// ShortMessage returns the first line of the commit message
func (c *Commit) ShortMessage() string {
	msg, _, _ := strings.Cut(c.Message, "\n")
	return msg
}

// serializeCommit encodes a commit as header lines followed by a blank line
// and the message.
func serializeCommit(c *Commit) ([]byte, error) {
	if !IsValidHash(c.Tree) {
		return nil, fmt.Errorf("invalid tree hash: %q", c.Tree)
	}
	for _, p := range c.Parents {
		if !IsValidHash(p) {
			return nil, fmt.Errorf("invalid parent hash: %q", p)
		}
	}
	if strings.ContainsRune(c.Author, '\n') {
		return nil, fmt.Errorf("invalid author: %q", c.Author)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&b, "parent %s\n", p)
	}
	fmt.Fprintf(&b, "author %s\n", c.Author)
	fmt.Fprintf(&b, "time %d\n", c.Timestamp.Unix())
	b.WriteByte('\n')
	b.WriteString(c.Message)
	return []byte(b.String()), nil
}

// parseCommit decodes a commit object payload
func parseCommit(data []byte) (*Commit, error) {
	headers, message, _ := strings.Cut(string(data), "\n\n")
	commit := &Commit{Message: message}

	for _, line := range strings.Split(headers, "\n") {
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("invalid commit header: %q", line)
		}
		switch key {
		case "tree":
			commit.Tree = value
		case "parent":
			commit.Parents = append(commit.Parents, value)
		case "author":
			commit.Author = value
		case "time":
			unix, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid commit time: %q", value)
			}
			commit.Timestamp = time.Unix(unix, 0).UTC()
		default:
			return nil, fmt.Errorf("unknown commit header: %q", key)
		}
	}

	if !IsValidHash(commit.Tree) {
		return nil, fmt.Errorf("commit has no valid tree")
	}
	return commit, nil
}

// WriteCommit stores a commit object. A zero timestamp is stamped with the
// current time. Returns the commit hash.
func (r *Repo) WriteCommit(c *Commit) (string, error) {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC().Truncate(time.Second)
	}
	data, err := serializeCommit(c)
	if err != nil {
		return "", err
	}
	hash, err := r.writeObject(typeCommit, data)
	if err != nil {
		return "", err
	}
	c.Hash = hash
	return hash, nil
}

// ReadCommit loads a commit object
func (r *Repo) ReadCommit(hash string) (*Commit, error) {
	objectType, data, err := r.readObject(hash)
	if err != nil {
		return nil, err
	}
	if objectType != typeCommit {
		return nil, fmt.Errorf("object %s is a %s, not a commit", hash, objectType)
	}
	commit, err := parseCommit(data)
	if err != nil {
		return nil, err
	}
	commit.Hash = hash
	return commit, nil
}
