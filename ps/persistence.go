package ps

import (
	"errors"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

var (
	ErrNotInitialized = errors.New("persistence layer not initialized")
)

// Store keeps every collection as a single blob in a Git repository, one
// commit per write. The commit history doubles as the transaction log.
type Store struct {
	repo       *git.Repository
	mu         sync.RWMutex
	memoryMode bool
}

// IsInitialized returns true if the store has a valid repository
func (s *Store) IsInitialized() bool {
	return s != nil && s.repo != nil
}

// ensureInitialized checks if the store is initialized and returns an error if not
func (s *Store) ensureInitialized() error {
	if !s.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// RLock acquires a read lock for concurrent read operations
func (s *Store) RLock() {
	s.mu.RLock()
}

// RUnlock releases the read lock
func (s *Store) RUnlock() {
	s.mu.RUnlock()
}

// Lock acquires a write lock for exclusive write operations
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the write lock
func (s *Store) Unlock() {
	s.mu.Unlock()
}

func NewMemoryStore() (*Store, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	return &Store{
		repo:       repo,
		memoryMode: true,
	}, nil
}

func NewFileStore(baseDir string) (*Store, error) {
	// Ensure base directory exists
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository

	_, statErr := os.Stat(fs.Root())
	if statErr != nil {
		// Directory doesn't exist, initialize new repo
		repo, err = git.Init(storer, git.WithWorkTree(wt))
		if err != nil {
			return nil, err
		}
	} else {
		// Directory exists, open existing repo
		repo, err = git.Open(storer, wt)
		if err != nil {
			return nil, err
		}
	}

	return &Store{
		repo: repo,
	}, nil
}
