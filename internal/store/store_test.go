package store

import (
	"errors"
	"sync"
	"testing"

	"smartmailr/internal/model"
)

func testMessage(id string) model.Message {
	return model.Message{
		ID:      id,
		Sender:  "alice@example.com",
		Subject: "Weekly sync",
		Body:    "Can we meet tomorrow?",
	}
}

func TestCreateIsFirstWriterWins(t *testing.T) {
	s := NewCaseStore()
	msg := testMessage("msg_aaa")

	first, created := s.Create(msg)
	if !created {
		t.Fatal("first Create should report created")
	}

	second, created := s.Create(msg)
	if created {
		t.Fatal("second Create should not report created")
	}
	if first.ID != second.ID {
		t.Errorf("expected the same case, got %q and %q", first.ID, second.ID)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 case, got %d", s.Len())
	}
}

func TestCreateConcurrentSameMessage(t *testing.T) {
	s := NewCaseStore()
	msg := testMessage("msg_bbb")

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, created := s.Create(msg); created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if createdCount != 1 {
		t.Errorf("expected exactly one creation, got %d", createdCount)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 case, got %d", s.Len())
	}
}

func TestGetUnknownCase(t *testing.T) {
	s := NewCaseStore()
	if _, err := s.Get("msg_missing"); !errors.Is(err, ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound, got %v", err)
	}
}

func TestUpdateReturnsClone(t *testing.T) {
	s := NewCaseStore()
	msg := testMessage("msg_ccc")
	s.Create(msg)

	snap, err := s.Update(msg.ID, func(c *model.ProcessingCase) error {
		c.Advance(model.StateClassifying)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating the snapshot must not leak into the store.
	snap.FailReason = "mutated outside the store"
	snap.History = append(snap.History, model.StateFailed)

	fresh, _ := s.Get(msg.ID)
	if fresh.FailReason != "" {
		t.Error("snapshot mutation leaked into the store")
	}
	if len(fresh.History) != 2 {
		t.Errorf("expected history of 2 states, got %d", len(fresh.History))
	}
	if fresh.State != model.StateClassifying {
		t.Errorf("expected classifying, got %s", fresh.State)
	}
}

func TestUpdateSerializesPerCase(t *testing.T) {
	s := NewCaseStore()
	msg := testMessage("msg_ddd")
	s.Create(msg)

	const workers = 8
	const rounds = 50
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				s.Update(msg.ID, func(c *model.ProcessingCase) error {
					c.StatsFor(model.StageClassify).Attempts++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	snap, _ := s.Get(msg.ID)
	got := snap.Stages[model.StageClassify].Attempts
	if got != workers*rounds {
		t.Errorf("lost updates: expected %d increments, got %d", workers*rounds, got)
	}
}
