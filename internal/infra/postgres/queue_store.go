package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"quiz-battle-arena/internal/domain"

	"github.com/uptrace/bun"
)

var errPairGone = errors.New("queue entry no longer waiting")

func (s *Store) Enqueue(ctx context.Context, entry domain.QueueEntry) error {
	_, err := s.db.NewInsert().Model(&queueRow{
		ID:        entry.ID,
		UserID:    entry.UserID,
		QuizID:    entry.QuizID,
		QueueType: string(entry.QueueType),
		Status:    string(entry.Status),
		JoinedAt:  entry.JoinedAt,
	}).Exec(ctx)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyQueued
	}
	if err != nil {
		return domain.StorageError("enqueue", err)
	}
	return nil
}

func (s *Store) WaitingEntry(ctx context.Context, userID string) (domain.QueueEntry, bool, error) {
	row := new(queueRow)
	err := s.db.NewSelect().Model(row).
		Where("user_id = ?", userID).
		Where("status = ?", string(domain.QueueWaiting)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QueueEntry{}, false, nil
	}
	if err != nil {
		return domain.QueueEntry{}, false, domain.StorageError("waiting entry", err)
	}
	return row.toDomain(), true, nil
}

func (s *Store) LatestMatch(ctx context.Context, userID string, since time.Time) (domain.QueueEntry, bool, error) {
	row := new(queueRow)
	err := s.db.NewSelect().Model(row).
		Where("user_id = ?", userID).
		Where("status = ?", string(domain.QueueMatched)).
		Where("matched_at >= ?", since).
		Order("matched_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QueueEntry{}, false, nil
	}
	if err != nil {
		return domain.QueueEntry{}, false, domain.StorageError("latest match", err)
	}
	return row.toDomain(), true, nil
}

func (s *Store) CancelWaiting(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.NewUpdate().Model((*queueRow)(nil)).
		Set("status = ?", string(domain.QueueCancelled)).
		Where("user_id = ?", userID).
		Where("status = ?", string(domain.QueueWaiting)).
		Exec(ctx)
	if err != nil {
		return false, domain.StorageError("cancel waiting", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) ListWaiting(ctx context.Context) ([]domain.QueueEntry, error) {
	var rows []queueRow
	err := s.db.NewSelect().Model(&rows).
		Where("status = ?", string(domain.QueueWaiting)).
		Order("joined_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, domain.StorageError("list waiting", err)
	}
	out := make([]domain.QueueEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (s *Store) MatchPair(ctx context.Context, entryA, entryB string, battle domain.Battle) (bool, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockPlayers(ctx, tx, battle.ChallengerID, battle.OpponentID); err != nil {
			return err
		}
		for _, id := range []string{battle.ChallengerID, battle.OpponentID} {
			if open, err := hasOpenBattle(ctx, tx, id); err != nil {
				return err
			} else if open {
				return errPairGone
			}
		}
		res, err := tx.NewUpdate().Model((*queueRow)(nil)).
			Set("status = ?", string(domain.QueueMatched)).
			Set("matched_at = ?", battle.CreatedAt).
			Set("battle_id = ?", battle.ID).
			Where("id IN (?)", bun.In([]string{entryA, entryB})).
			Where("status = ?", string(domain.QueueWaiting)).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 2 {
			return errPairGone
		}
		_, err = tx.NewInsert().Model(battleFromDomain(battle)).Exec(ctx)
		return err
	})
	if errors.Is(err, errPairGone) {
		return false, nil
	}
	if err != nil {
		return false, domain.StorageError("match pair", err)
	}
	return true, nil
}

func (s *Store) ExpireWaiting(ctx context.Context, joinedBefore time.Time) (int, error) {
	res, err := s.db.NewUpdate().Model((*queueRow)(nil)).
		Set("status = ?", string(domain.QueueExpired)).
		Where("status = ?", string(domain.QueueWaiting)).
		Where("joined_at < ?", joinedBefore).
		Exec(ctx)
	if err != nil {
		return 0, domain.StorageError("expire waiting", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) QueueStats(ctx context.Context, now time.Time) (domain.QueueStats, error) {
	stats := domain.QueueStats{
		WaitingByQuiz: make(map[string]int),
		WaitingByType: make(map[string]int),
	}
	waiting, err := s.ListWaiting(ctx)
	if err != nil {
		return stats, err
	}
	var waited float64
	for _, e := range waiting {
		stats.Waiting++
		stats.WaitingByQuiz[e.QuizID]++
		stats.WaitingByType[string(e.QueueType)]++
		waited += now.Sub(e.JoinedAt).Seconds()
	}
	if stats.Waiting > 0 {
		stats.AvgWaitSeconds = waited / float64(stats.Waiting)
	}

	stats.MatchedLastHour, err = s.db.NewSelect().Model((*queueRow)(nil)).
		Where("status = ?", string(domain.QueueMatched)).
		Where("matched_at >= ?", now.Add(-time.Hour)).
		Count(ctx)
	if err != nil {
		return stats, domain.StorageError("queue stats", err)
	}
	return stats, nil
}
