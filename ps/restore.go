package ps

import (
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// Snapshot tags the given transaction, or HEAD when asof is nil, so the
// store can be recovered to it by name later.
func (s *Store) Snapshot(name string, asof *Transaction) error {
	if asof != nil {
		_, err := s.repo.CreateTag(name, plumbing.NewHash(asof.Id), nil)

		return err
	} else {
		headRef, err := s.repo.Head()
		if err != nil {
			return err
		}

		_, err = s.repo.CreateTag(name, headRef.Hash(), nil)

		return err
	}
}

// Recover resets the store to a named snapshot.
func (s *Store) Recover(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.repo.Tag(name)
	if err != nil {
		return err
	}

	return s.resetLocked(ref.Hash())
}

// RestoreTo resets the store to the state recorded by the given
// transaction. Later commits stay reachable through the log until the
// next write.
func (s *Store) RestoreTo(asof Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resetLocked(plumbing.NewHash(asof.Id))
}

func (s *Store) resetLocked(commit plumbing.Hash) error {
	wt, err := s.repo.Worktree()
	if err != nil {
		return err
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: commit,
	})
}
