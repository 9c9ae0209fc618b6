package memory

import (
	"context"
	"errors"
	"time"

	"quiz-battle-arena/internal/domain"
)

var errDuplicateKey = errors.New("duplicate key")

func (s *Store) Enqueue(_ context.Context, entry domain.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.queue {
		if e.UserID == entry.UserID && e.Status == domain.QueueWaiting {
			return domain.ErrAlreadyQueued
		}
	}
	s.queue = append(s.queue, entry)
	return nil
}

func (s *Store) WaitingEntry(_ context.Context, userID string) (domain.QueueEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.queue {
		if e.UserID == userID && e.Status == domain.QueueWaiting {
			return e, true, nil
		}
	}
	return domain.QueueEntry{}, false, nil
}

func (s *Store) LatestMatch(_ context.Context, userID string, since time.Time) (domain.QueueEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest domain.QueueEntry
	found := false
	for _, e := range s.queue {
		if e.UserID != userID || e.Status != domain.QueueMatched || e.MatchedAt == nil || e.MatchedAt.Before(since) {
			continue
		}
		if !found || e.MatchedAt.After(*latest.MatchedAt) {
			latest, found = e, true
		}
	}
	return latest, found, nil
}

func (s *Store) CancelWaiting(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.queue {
		if e.UserID == userID && e.Status == domain.QueueWaiting {
			s.queue[i].Status = domain.QueueCancelled
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListWaiting(_ context.Context) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.QueueEntry
	for _, e := range s.queue {
		if e.Status == domain.QueueWaiting {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) MatchPair(_ context.Context, entryA, entryB string, battle domain.Battle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ia, ib := s.waitingIndexLocked(entryA), s.waitingIndexLocked(entryB)
	if ia < 0 || ib < 0 || ia == ib {
		return false, nil
	}
	if s.openLocked(battle.ChallengerID) || s.openLocked(battle.OpponentID) {
		return false, nil
	}
	if _, exists := s.battles[battle.ID]; exists {
		return false, domain.StorageError("match pair", errDuplicateKey)
	}
	s.battles[battle.ID] = battle
	s.order = append(s.order, battle.ID)

	matchedAt := battle.CreatedAt
	for _, i := range []int{ia, ib} {
		s.queue[i].Status = domain.QueueMatched
		s.queue[i].MatchedAt = &matchedAt
		s.queue[i].BattleID = battle.ID
	}
	return true, nil
}

func (s *Store) ExpireWaiting(_ context.Context, joinedBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i, e := range s.queue {
		if e.Status == domain.QueueWaiting && e.JoinedAt.Before(joinedBefore) {
			s.queue[i].Status = domain.QueueExpired
			n++
		}
	}
	return n, nil
}

func (s *Store) QueueStats(_ context.Context, now time.Time) (domain.QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := domain.QueueStats{
		WaitingByQuiz: make(map[string]int),
		WaitingByType: make(map[string]int),
	}
	var waited float64
	hourAgo := now.Add(-time.Hour)
	for _, e := range s.queue {
		switch e.Status {
		case domain.QueueWaiting:
			stats.Waiting++
			stats.WaitingByQuiz[e.QuizID]++
			stats.WaitingByType[string(e.QueueType)]++
			waited += now.Sub(e.JoinedAt).Seconds()
		case domain.QueueMatched:
			if e.MatchedAt != nil && !e.MatchedAt.Before(hourAgo) {
				stats.MatchedLastHour++
			}
		}
	}
	if stats.Waiting > 0 {
		stats.AvgWaitSeconds = waited / float64(stats.Waiting)
	}
	return stats, nil
}

func (s *Store) waitingIndexLocked(entryID string) int {
	for i, e := range s.queue {
		if e.ID == entryID && e.Status == domain.QueueWaiting {
			return i
		}
	}
	return -1
}
