package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"quiz-battle-arena/internal/app"
	"quiz-battle-arena/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store implements app.BattleStore and app.QueueStore on Postgres through bun.
// Status changes are conditional updates; completion and matching run in one transaction.
type Store struct {
	db            *bun.DB
	defaultRating int
}

var (
	_ app.BattleStore = (*Store)(nil)
	_ app.QueueStore  = (*Store)(nil)
)

func NewStore(db *bun.DB, defaultRating int) *Store {
	return &Store{db: db, defaultRating: defaultRating}
}

// CreateBattle inserts a battle unless either player already has an open one.
func (s *Store) CreateBattle(ctx context.Context, battle domain.Battle) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockPlayers(ctx, tx, battle.ChallengerID, battle.OpponentID); err != nil {
			return err
		}
		if open, err := hasOpenBattle(ctx, tx, battle.ChallengerID); err != nil {
			return err
		} else if open {
			return domain.ErrInBattle
		}
		if open, err := hasOpenBattle(ctx, tx, battle.OpponentID); err != nil {
			return err
		} else if open {
			return domain.ErrOpponentBusy
		}
		_, err := tx.NewInsert().Model(battleFromDomain(battle)).Exec(ctx)
		return err
	})
	return wrapStorage("create battle", err)
}

// lockPlayers takes transaction-scoped advisory locks on the players, in sorted order,
// so availability checks and battle inserts for the same user serialize.
func lockPlayers(ctx context.Context, tx bun.Tx, userIDs ...string) error {
	ids := append([]string(nil), userIDs...)
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", "player:"+id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetBattle(ctx context.Context, battleID string) (domain.Battle, error) {
	row := new(battleRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", battleID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Battle{}, domain.ErrBattleNotFound
	}
	if err != nil {
		return domain.Battle{}, domain.StorageError("get battle", err)
	}
	return row.toDomain(), nil
}

func (s *Store) TransitionBattle(ctx context.Context, battleID string, from, to domain.BattleStatus, at time.Time) (bool, error) {
	if !from.CanTransition(to) {
		return false, domain.ErrStateConflict
	}
	q := s.db.NewUpdate().Model((*battleRow)(nil)).
		Set("status = ?", string(to)).
		Where("id = ?", battleID).
		Where("status = ?", string(from))
	switch to {
	case domain.BattleActive:
		q = q.Set("started_at = ?", at)
	case domain.BattleCompleted:
		q = q.Set("completed_at = ?", at)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, domain.StorageError("transition battle", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}
	exists, err := s.db.NewSelect().Model((*battleRow)(nil)).Where("id = ?", battleID).Exists(ctx)
	if err != nil {
		return false, domain.StorageError("transition battle", err)
	}
	if !exists {
		return false, domain.ErrBattleNotFound
	}
	return false, nil
}

func (s *Store) HasOpenBattle(ctx context.Context, userID string) (bool, error) {
	open, err := hasOpenBattle(ctx, s.db, userID)
	if err != nil {
		return false, domain.StorageError("open battle", err)
	}
	return open, nil
}

func hasOpenBattle(ctx context.Context, db bun.IDB, userID string) (bool, error) {
	return db.NewSelect().Model((*battleRow)(nil)).
		Where("(challenger_id = ? OR opponent_id = ?)", userID, userID).
		Where("status IN (?)", bun.In([]string{string(domain.BattlePending), string(domain.BattleActive)})).
		Exists(ctx)
}

func (s *Store) ListBattlesByStatus(ctx context.Context, status domain.BattleStatus, limit int) ([]domain.Battle, error) {
	var rows []battleRow
	q := s.db.NewSelect().Model(&rows).Where("status = ?", string(status)).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, domain.StorageError("list battles", err)
	}
	out := make([]domain.Battle, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (s *Store) RecordAnswer(ctx context.Context, entry domain.ProgressEntry) (domain.ProgressEntry, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// serialize answers within a battle so question_order stays dense
		var status string
		err := tx.NewSelect().Model((*battleRow)(nil)).Column("status").
			Where("id = ?", entry.BattleID).For("UPDATE").Scan(ctx, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrBattleNotFound
		}
		if err != nil {
			return err
		}
		// completion holds the same row lock, so no answer lands after it
		if domain.BattleStatus(status) != domain.BattleActive {
			return domain.ErrBattleNotActive
		}

		answered, err := tx.NewSelect().Model((*progressRow)(nil)).
			Where("battle_id = ? AND user_id = ?", entry.BattleID, entry.UserID).Count(ctx)
		if err != nil {
			return err
		}
		entry.QuestionOrder = answered + 1

		res, err := tx.NewInsert().Model(&progressRow{
			BattleID:      entry.BattleID,
			UserID:        entry.UserID,
			QuestionID:    entry.QuestionID,
			QuestionOrder: entry.QuestionOrder,
			Answer:        entry.Answer,
			Correct:       entry.Correct,
			Points:        entry.Points,
			TimeTaken:     entry.TimeTaken,
			AnsweredAt:    entry.AnsweredAt,
		}).On("CONFLICT (battle_id, user_id, question_id) DO NOTHING").Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrAlreadyAnswered
		}
		return nil
	})
	if err != nil {
		return domain.ProgressEntry{}, wrapStorage("record answer", err)
	}
	return entry, nil
}

func (s *Store) ListProgress(ctx context.Context, battleID string) ([]domain.ProgressEntry, error) {
	return listProgress(ctx, s.db, battleID)
}

func listProgress(ctx context.Context, db bun.IDB, battleID string) ([]domain.ProgressEntry, error) {
	var rows []progressRow
	err := db.NewSelect().Model(&rows).
		Where("battle_id = ?", battleID).
		Order("answered_at ASC", "user_id ASC", "question_order ASC").
		Scan(ctx)
	if err != nil {
		return nil, domain.StorageError("list progress", err)
	}
	out := make([]domain.ProgressEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (s *Store) CompleteBattle(ctx context.Context, battleID string, settle app.SettleFunc) (domain.Settlement, error) {
	var out domain.Settlement
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(battleRow)
		err := tx.NewSelect().Model(row).Where("id = ?", battleID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrBattleNotFound
		}
		if err != nil {
			return err
		}
		if row.Status != string(domain.BattleActive) {
			return domain.ErrBattleNotActive
		}
		battle := row.toDomain()
		players := []string{battle.ChallengerID, battle.OpponentID}

		progress, err := listProgress(ctx, tx, battleID)
		if err != nil {
			return err
		}
		stats, err := s.lockStats(ctx, tx, players)
		if err != nil {
			return err
		}
		in := domain.SettlementInput{
			Battle:          battle,
			Progress:        progress,
			Stats:           stats,
			Held:            make(map[string]map[domain.BadgeKind]bool, 2),
			DirectOpponents: make(map[string]int, 2),
		}
		for _, id := range players {
			if in.Held[id], err = heldBadges(ctx, tx, id); err != nil {
				return err
			}
			if in.DirectOpponents[id], err = countDirectOpponents(ctx, tx, id); err != nil {
				return err
			}
		}

		out, err = settle(in)
		if err != nil {
			return err
		}
		if out.Battle.ID != battleID || out.Battle.Status != domain.BattleCompleted {
			return domain.ErrStateConflict
		}

		if _, err := tx.NewUpdate().Model(battleFromDomain(out.Battle)).WherePK().Exec(ctx); err != nil {
			return err
		}
		if err := upsertStats(ctx, tx, out.Stats); err != nil {
			return err
		}
		if len(out.Awards) > 0 {
			rows := make([]badgeRow, len(out.Awards))
			for i, a := range out.Awards {
				rows[i] = badgeRow{UserID: a.UserID, Badge: a.Badge.String(), EarnedAt: a.EarnedAt}
			}
			if _, err := tx.NewInsert().Model(&rows).On("CONFLICT (user_id, badge) DO NOTHING").Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Settlement{}, wrapStorage("complete battle", err)
	}
	return out, nil
}

// lockStats returns the stats rows for users, creating defaults, locked in user id order.
func (s *Store) lockStats(ctx context.Context, tx bun.Tx, users []string) (map[string]domain.UserStats, error) {
	sorted := append([]string(nil), users...)
	sort.Strings(sorted)
	seed := make([]statsRow, len(sorted))
	for i, id := range sorted {
		seed[i] = statsFromDomain(domain.NewUserStats(id, s.defaultRating))
	}
	if _, err := tx.NewInsert().Model(&seed).On("CONFLICT (user_id) DO NOTHING").Exec(ctx); err != nil {
		return nil, err
	}

	var rows []statsRow
	err := tx.NewSelect().Model(&rows).
		Where("user_id IN (?)", bun.In(sorted)).
		Order("user_id ASC").
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.UserStats, len(rows))
	for i := range rows {
		out[rows[i].UserID] = rows[i].toDomain()
	}
	return out, nil
}

func upsertStats(ctx context.Context, db bun.IDB, stats []domain.UserStats) error {
	if len(stats) == 0 {
		return nil
	}
	rows := make([]statsRow, len(stats))
	for i, st := range stats {
		rows[i] = statsFromDomain(st)
	}
	_, err := db.NewInsert().Model(&rows).
		On("CONFLICT (user_id) DO UPDATE").
		Set("total_battles = EXCLUDED.total_battles").
		Set("wins = EXCLUDED.wins").
		Set("losses = EXCLUDED.losses").
		Set("draws = EXCLUDED.draws").
		Set("total_points = EXCLUDED.total_points").
		Set("rating = EXCLUDED.rating").
		Set("win_streak = EXCLUDED.win_streak").
		Set("best_win_streak = EXCLUDED.best_win_streak").
		Set("questions_answered = EXCLUDED.questions_answered").
		Set("correct_answers = EXCLUDED.correct_answers").
		Set("avg_answer_time = EXCLUDED.avg_answer_time").
		Set("last_battle_at = EXCLUDED.last_battle_at").
		Exec(ctx)
	return err
}

func (s *Store) GetStats(ctx context.Context, userID string) (domain.UserStats, error) {
	row := new(statsRow)
	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewUserStats(userID, s.defaultRating), nil
	}
	if err != nil {
		return domain.UserStats{}, domain.StorageError("get stats", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AddPoints(ctx context.Context, userID string, points int) (domain.UserStats, error) {
	row := new(statsRow)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		seed := statsFromDomain(domain.NewUserStats(userID, s.defaultRating))
		if _, err := tx.NewInsert().Model(&seed).On("CONFLICT (user_id) DO NOTHING").Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().Model(row).
			Set("total_points = GREATEST(0, total_points + ?)", points).
			Where("user_id = ?", userID).
			Returning("*").
			Exec(ctx)
		return err
	})
	if err != nil {
		return domain.UserStats{}, domain.StorageError("add points", err)
	}
	return row.toDomain(), nil
}

func (s *Store) TopStats(ctx context.Context, limit int) ([]domain.UserStats, error) {
	var rows []statsRow
	q := s.db.NewSelect().Model(&rows).Order("rating DESC", "total_points DESC", "user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, domain.StorageError("top stats", err)
	}
	out := make([]domain.UserStats, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (s *Store) ListBadges(ctx context.Context, userID string) ([]domain.BadgeAward, error) {
	var rows []badgeRow
	if err := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Order("earned_at ASC").Scan(ctx); err != nil {
		return nil, domain.StorageError("list badges", err)
	}
	out := make([]domain.BadgeAward, 0, len(rows))
	for _, r := range rows {
		kind, err := domain.ParseBadgeKind(r.Badge)
		if err != nil {
			continue
		}
		out = append(out, domain.BadgeAward{UserID: r.UserID, Badge: kind, EarnedAt: r.EarnedAt})
	}
	return out, nil
}

func (s *Store) CountDirectOpponents(ctx context.Context, userID string) (int, error) {
	n, err := countDirectOpponents(ctx, s.db, userID)
	if err != nil {
		return 0, domain.StorageError("count opponents", err)
	}
	return n, nil
}

func countDirectOpponents(ctx context.Context, db bun.IDB, userID string) (int, error) {
	var n int
	err := db.NewSelect().Model((*battleRow)(nil)).
		ColumnExpr("COUNT(DISTINCT opponent_id)").
		Where("challenger_id = ?", userID).
		Where("challenge_type = ?", string(domain.ChallengeDirect)).
		Scan(ctx, &n)
	return n, err
}

func heldBadges(ctx context.Context, db bun.IDB, userID string) (map[domain.BadgeKind]bool, error) {
	var codes []string
	err := db.NewSelect().Model((*badgeRow)(nil)).Column("badge").Where("user_id = ?", userID).Scan(ctx, &codes)
	if err != nil {
		return nil, err
	}
	held := make(map[domain.BadgeKind]bool, len(codes))
	for _, code := range codes {
		if kind, err := domain.ParseBadgeKind(code); err == nil {
			held[kind] = true
		}
	}
	return held, nil
}

// wrapStorage passes domain errors through and marks everything else as a storage failure.
func wrapStorage(op string, err error) error {
	for _, kind := range []error{
		domain.ErrValidation, domain.ErrAccessDenied, domain.ErrNotFound,
		domain.ErrStateConflict, domain.ErrExpired, domain.ErrStorage,
		domain.ErrOpponentUnavailable,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return domain.StorageError(op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
