package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-battle-arena/internal/app"
	"quiz-battle-arena/internal/domain"
)

// Store is an in-memory implementation of app.BattleStore and app.QueueStore.
// A single mutex makes every method, including CompleteBattle and MatchPair, atomic.
type Store struct {
	defaultRating int

	mu       sync.Mutex
	battles  map[string]domain.Battle
	order    []string
	progress map[string][]domain.ProgressEntry
	stats    map[string]domain.UserStats
	badges   map[string][]domain.BadgeAward
	queue    []domain.QueueEntry
}

var (
	_ app.BattleStore = (*Store)(nil)
	_ app.QueueStore  = (*Store)(nil)
)

func NewStore(defaultRating int) *Store {
	return &Store{
		defaultRating: defaultRating,
		battles:       make(map[string]domain.Battle),
		progress:      make(map[string][]domain.ProgressEntry),
		stats:         make(map[string]domain.UserStats),
		badges:        make(map[string][]domain.BadgeAward),
	}
}

func (s *Store) CreateBattle(_ context.Context, battle domain.Battle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.battles[battle.ID]; exists {
		return domain.StorageError("create battle", errDuplicateKey)
	}
	if s.openLocked(battle.ChallengerID) {
		return domain.ErrInBattle
	}
	if s.openLocked(battle.OpponentID) {
		return domain.ErrOpponentBusy
	}
	s.battles[battle.ID] = battle
	s.order = append(s.order, battle.ID)
	return nil
}

func (s *Store) GetBattle(_ context.Context, battleID string) (domain.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	battle, ok := s.battles[battleID]
	if !ok {
		return domain.Battle{}, domain.ErrBattleNotFound
	}
	return battle, nil
}

func (s *Store) TransitionBattle(_ context.Context, battleID string, from, to domain.BattleStatus, at time.Time) (bool, error) {
	if !from.CanTransition(to) {
		return false, domain.ErrStateConflict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	battle, ok := s.battles[battleID]
	if !ok {
		return false, domain.ErrBattleNotFound
	}
	if battle.Status != from {
		return false, nil
	}
	battle.Status = to
	switch to {
	case domain.BattleActive:
		battle.StartedAt = &at
	case domain.BattleCompleted:
		battle.CompletedAt = &at
	}
	s.battles[battleID] = battle
	return true, nil
}

func (s *Store) HasOpenBattle(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(userID), nil
}

func (s *Store) openLocked(userID string) bool {
	for _, b := range s.battles {
		if b.IsParticipant(userID) && (b.Status == domain.BattlePending || b.Status == domain.BattleActive) {
			return true
		}
	}
	return false
}

func (s *Store) ListBattlesByStatus(_ context.Context, status domain.BattleStatus, limit int) ([]domain.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Battle
	for _, id := range s.order {
		if b := s.battles[id]; b.Status == status {
			out = append(out, b)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) RecordAnswer(_ context.Context, entry domain.ProgressEntry) (domain.ProgressEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	battle, ok := s.battles[entry.BattleID]
	if !ok {
		return domain.ProgressEntry{}, domain.ErrBattleNotFound
	}
	if battle.Status != domain.BattleActive {
		return domain.ProgressEntry{}, domain.ErrBattleNotActive
	}
	answered := 0
	for _, p := range s.progress[entry.BattleID] {
		if p.UserID != entry.UserID {
			continue
		}
		if p.QuestionID == entry.QuestionID {
			return domain.ProgressEntry{}, domain.ErrAlreadyAnswered
		}
		answered++
	}
	entry.QuestionOrder = answered + 1
	s.progress[entry.BattleID] = append(s.progress[entry.BattleID], entry)
	return entry, nil
}

func (s *Store) ListProgress(_ context.Context, battleID string) ([]domain.ProgressEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProgressEntry(nil), s.progress[battleID]...), nil
}

func (s *Store) CompleteBattle(_ context.Context, battleID string, settle app.SettleFunc) (domain.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	battle, ok := s.battles[battleID]
	if !ok {
		return domain.Settlement{}, domain.ErrBattleNotFound
	}
	if battle.Status != domain.BattleActive {
		return domain.Settlement{}, domain.ErrBattleNotActive
	}

	in := domain.SettlementInput{
		Battle:          battle,
		Progress:        append([]domain.ProgressEntry(nil), s.progress[battleID]...),
		Stats:           make(map[string]domain.UserStats, 2),
		Held:            make(map[string]map[domain.BadgeKind]bool, 2),
		DirectOpponents: make(map[string]int, 2),
	}
	for _, id := range []string{battle.ChallengerID, battle.OpponentID} {
		in.Stats[id] = s.statsLocked(id)
		held := make(map[domain.BadgeKind]bool)
		for _, a := range s.badges[id] {
			held[a.Badge] = true
		}
		in.Held[id] = held
		in.DirectOpponents[id] = s.directOpponentsLocked(id)
	}

	out, err := settle(in)
	if err != nil {
		return domain.Settlement{}, err
	}
	if out.Battle.ID != battleID || out.Battle.Status != domain.BattleCompleted {
		return domain.Settlement{}, domain.ErrStateConflict
	}
	// the settle func is pure, so nothing is written until it succeeds
	s.battles[battleID] = out.Battle
	for _, st := range out.Stats {
		s.stats[st.UserID] = st
	}
	for _, a := range out.Awards {
		if !s.hasBadgeLocked(a.UserID, a.Badge) {
			s.badges[a.UserID] = append(s.badges[a.UserID], a)
		}
	}
	return out, nil
}

func (s *Store) GetStats(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked(userID), nil
}

func (s *Store) AddPoints(_ context.Context, userID string, points int) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.statsLocked(userID)
	st.AddPoints(points)
	s.stats[userID] = st
	return st, nil
}

func (s *Store) TopStats(_ context.Context, limit int) ([]domain.UserStats, error) {
	s.mu.Lock()
	rows := make([]domain.UserStats, 0, len(s.stats))
	for _, st := range s.stats {
		rows = append(rows, st)
	}
	s.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Rating != rows[j].Rating {
			return rows[i].Rating > rows[j].Rating
		}
		if rows[i].TotalPoints != rows[j].TotalPoints {
			return rows[i].TotalPoints > rows[j].TotalPoints
		}
		return rows[i].UserID < rows[j].UserID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) ListBadges(_ context.Context, userID string) ([]domain.BadgeAward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.BadgeAward(nil), s.badges[userID]...), nil
}

func (s *Store) CountDirectOpponents(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directOpponentsLocked(userID), nil
}

func (s *Store) statsLocked(userID string) domain.UserStats {
	if st, ok := s.stats[userID]; ok {
		return st
	}
	return domain.NewUserStats(userID, s.defaultRating)
}

func (s *Store) directOpponentsLocked(userID string) int {
	seen := make(map[string]struct{})
	for _, b := range s.battles {
		if b.ChallengerID == userID && b.ChallengeType == domain.ChallengeDirect {
			seen[b.OpponentID] = struct{}{}
		}
	}
	return len(seen)
}

func (s *Store) hasBadgeLocked(userID string, kind domain.BadgeKind) bool {
	for _, a := range s.badges[userID] {
		if a.Badge == kind {
			return true
		}
	}
	return false
}
