package ps

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/jmolero/ComandaDB/core"
)

// The keyspace is flat: every collection lives as one blob at the root of
// the tree, named after the collection. Callers hold the appropriate lock.

// createBlob creates a blob object directly in the object store without filesystem I/O
func (s *Store) createBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	writer.Close()

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}

	return hash, nil
}

// headTree returns the tree hash from the current HEAD commit.
// Returns ZeroHash if the repository has no commits yet.
func (s *Store) headTree() (plumbing.Hash, error) {
	headRef, err := s.repo.Head()
	if err != nil {
		// No commits yet
		return plumbing.ZeroHash, nil
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get head commit: %w", err)
	}

	return commit.TreeHash, nil
}

// treeEntries reads all entries from an existing tree, keyed by name
func (s *Store) treeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)

	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}

	tree, err := object.GetTree(s.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}

	return entries, nil
}

// buildTree creates a tree object from the entry map, sorted by name
// (Git requirement)
func (s *Store) buildTree(entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	entrySlice := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		entrySlice = append(entrySlice, entry)
	}

	sort.Slice(entrySlice, func(i, j int) bool {
		return entrySlice[i].Name < entrySlice[j].Name
	})

	tree := &object.Tree{Entries: entrySlice}

	obj := s.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}

	return hash, nil
}

// commit creates a commit object on the current branch without using the
// worktree, then syncs the worktree for file-backed stores
func (s *Store) commit(treeHash plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	// Handle empty tree case - create an actual empty tree object
	actualTreeHash := treeHash
	if treeHash == plumbing.ZeroHash {
		emptyTree := &object.Tree{Entries: []object.TreeEntry{}}
		obj := s.repo.Storer.NewEncodedObject()
		if err := emptyTree.Encode(obj); err != nil {
			return Transaction{}, fmt.Errorf("failed to encode empty tree: %w", err)
		}
		var err error
		actualTreeHash, err = s.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to store empty tree: %w", err)
		}
	}

	// Get parent commit
	var parentHashes []plumbing.Hash
	headRef, err := s.repo.Head()
	if err == nil {
		parentHashes = []plumbing.Hash{headRef.Hash()}
	}

	sig := object.Signature{
		Name:  identity.Name,
		Email: identity.Email,
		When:  time.Now(),
	}

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     actualTreeHash,
		ParentHashes: parentHashes,
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode commit: %w", err)
	}

	commitHash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	// Update HEAD reference
	branchName := plumbing.Master
	if headRef != nil && headRef.Name().IsBranch() {
		branchName = headRef.Name()
	}

	ref := plumbing.NewHashReference(branchName, commitHash)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	if err := s.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return Transaction{
		Id:   commitHash.String(),
		When: sig.When,
	}, nil
}

// writeKeys stores every entry as a root-level blob and commits once
func (s *Store) writeKeys(updates map[string][]byte, identity core.Identity, message string) (Transaction, error) {
	if err := s.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	currentTree, err := s.headTree()
	if err != nil {
		return Transaction{}, err
	}

	entries, err := s.treeEntries(currentTree)
	if err != nil {
		return Transaction{}, err
	}

	for key, data := range updates {
		blobHash, err := s.createBlob(data)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", key, err)
		}

		entries[key] = object.TreeEntry{
			Name: key,
			Mode: filemode.Regular,
			Hash: blobHash,
		}
	}

	newTree, err := s.buildTree(entries)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	return s.commit(newTree, identity, message)
}

// readKey reads a root-level blob directly from the Git tree (bypasses
// worktree filesystem)
func (s *Store) readKey(key string) ([]byte, bool) {
	if !s.IsInitialized() {
		return nil, false
	}

	headRef, err := s.repo.Head()
	if err != nil {
		return nil, false
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, false
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, false
	}

	file, err := tree.File(key)
	if err != nil {
		return nil, false
	}

	content, err := file.Contents()
	if err != nil {
		return nil, false
	}

	return []byte(content), true
}

// listKeys returns the root-level blob names in tree order
func (s *Store) listKeys() []string {
	if !s.IsInitialized() {
		return nil
	}

	headRef, err := s.repo.Head()
	if err != nil {
		return nil // No commits yet = empty store
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil
	}

	var keys []string
	for _, entry := range tree.Entries {
		if entry.Mode == filemode.Regular {
			keys = append(keys, entry.Name)
		}
	}

	return keys
}

// syncWorktree updates the worktree filesystem to match HEAD
// For memory mode, this is skipped since reads use the Git tree directly
func (s *Store) syncWorktree() error {
	if s.memoryMode {
		return nil
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return err
	}

	headRef, err := s.repo.Head()
	if err != nil {
		return err
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return err
	}

	tree, err := commit.Tree()
	if err != nil {
		return err
	}

	// If tree is empty, manually clean the filesystem instead of reset
	// (git reset fails with "base dir cannot be removed" on empty tree)
	if len(tree.Entries) == 0 {
		fs := wt.Filesystem
		entries, err := fs.ReadDir("/")
		if err != nil {
			return nil // Dir might not exist, that's fine
		}
		for _, entry := range entries {
			if entry.Name() != ".git" {
				fs.Remove(entry.Name())
			}
		}
		return nil
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: headRef.Hash(),
	})
}
