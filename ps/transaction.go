package ps

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

type Transaction struct {
	Id     string
	When   time.Time
	Author string // "Name <email>" format
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

func (s *Store) LatestTransaction() Transaction {
	headRef, err := s.repo.Head()
	if err != nil || headRef == nil {
		// No commits yet
		return Transaction{}
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}

	author := ""
	if commit.Author.Name != "" || commit.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", commit.Author.Name, commit.Author.Email)
	}

	return Transaction{
		Id:     headRef.Hash().String(),
		When:   commit.Committer.When,
		Author: author,
	}
}

func (s *Store) TransactionsSince(asof time.Time) []Transaction {
	var transactions []Transaction

	cIter, _ := s.repo.Log(&git.LogOptions{
		Since: &asof,
	})

	cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, Transaction{
			Id:   c.Hash.String(),
			When: c.Committer.When,
		})
		return nil
	})

	return transactions
}

func (s *Store) TransactionsFrom(asof string) []Transaction {
	var transactions []Transaction

	cIter, _ := s.repo.Log(&git.LogOptions{
		From: plumbing.NewHash(asof),
	})

	cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, Transaction{
			Id:   c.Hash.String(),
			When: c.Committer.When,
		})
		return nil
	})

	return transactions
}

// Log returns the most recent transactions, newest first, with commit
// messages. Used by the shell's history view.
func (s *Store) Log(limit int) []LogEntry {
	var entries []LogEntry

	cIter, err := s.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil
	}

	cIter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(entries) >= limit {
			return errStopIteration
		}
		entries = append(entries, LogEntry{
			Transaction: Transaction{
				Id:     c.Hash.String(),
				When:   c.Committer.When,
				Author: fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email),
			},
			Message: c.Message,
		})
		return nil
	})

	return entries
}

type LogEntry struct {
	Transaction Transaction
	Message     string
}

var errStopIteration = fmt.Errorf("stop iteration")
