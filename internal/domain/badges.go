package domain

import "fmt"

// BadgeKind enumerates every achievement a player can earn.
type BadgeKind int

const (
	BadgeFirstWin BadgeKind = iota + 1
	BadgeTenWins
	BadgeSpeedDemon
	BadgePerfectScore
	BadgeWinStreak
	BadgeQuizMaster
	BadgeHighRoller
	BadgeSocialButterfly
)

// AllBadges lists the kinds in evaluation order.
var AllBadges = []BadgeKind{
	BadgeFirstWin,
	BadgeTenWins,
	BadgeSpeedDemon,
	BadgePerfectScore,
	BadgeWinStreak,
	BadgeQuizMaster,
	BadgeHighRoller,
	BadgeSocialButterfly,
}

const (
	speedDemonSeconds     = 5
	winStreakTarget       = 5
	tenWinsTarget         = 10
	quizMasterBattles     = 50
	highRollerRating      = 1500
	socialButterflyRivals = 10
)

var badgeCodes = map[BadgeKind]string{
	BadgeFirstWin:        "first_win",
	BadgeTenWins:         "ten_wins",
	BadgeSpeedDemon:      "speed_demon",
	BadgePerfectScore:    "perfect_score",
	BadgeWinStreak:       "win_streak",
	BadgeQuizMaster:      "quiz_master",
	BadgeHighRoller:      "high_roller",
	BadgeSocialButterfly: "social_butterfly",
}

func (k BadgeKind) String() string {
	if code, ok := badgeCodes[k]; ok {
		return code
	}
	return fmt.Sprintf("badge(%d)", int(k))
}

// ParseBadgeKind maps a stored code back to its kind.
func ParseBadgeKind(code string) (BadgeKind, error) {
	for kind, c := range badgeCodes {
		if c == code {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown badge %q", ErrValidation, code)
}

func (k BadgeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *BadgeKind) UnmarshalText(text []byte) error {
	kind, err := ParseBadgeKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// BattleSnapshot is the battle-specific input to badge evaluation.
type BattleSnapshot struct {
	BattleID string
	// Answers holds only the evaluated player's entries for this battle.
	Answers []ProgressEntry
	// DirectOpponents counts distinct players this user has directly challenged.
	DirectOpponents int
}

// Evaluate reports whether the badge condition holds.
func (k BadgeKind) Evaluate(stats UserStats, snap BattleSnapshot) bool {
	switch k {
	case BadgeFirstWin:
		return stats.Wins >= 1
	case BadgeTenWins:
		return stats.Wins >= tenWinsTarget
	case BadgeSpeedDemon:
		for _, a := range snap.Answers {
			if a.TimeTaken < speedDemonSeconds {
				return true
			}
		}
		return false
	case BadgePerfectScore:
		if len(snap.Answers) == 0 {
			return false
		}
		for _, a := range snap.Answers {
			if !a.Correct {
				return false
			}
		}
		return true
	case BadgeWinStreak:
		return stats.WinStreak >= winStreakTarget
	case BadgeQuizMaster:
		return stats.TotalBattles >= quizMasterBattles
	case BadgeHighRoller:
		return stats.Rating >= highRollerRating
	case BadgeSocialButterfly:
		return snap.DirectOpponents >= socialButterflyRivals
	default:
		return false
	}
}

// Progress returns how close stats are to the badge as a percentage.
// Battle-bound badges (speed_demon, perfect_score) report 0 or 100 from held.
func (k BadgeKind) Progress(stats UserStats, directOpponents int, held bool) float64 {
	if held {
		return 100
	}
	ratio := func(current, target int) float64 {
		if current >= target {
			return 100
		}
		if current <= 0 {
			return 0
		}
		return float64(current) * 100 / float64(target)
	}
	switch k {
	case BadgeFirstWin:
		return ratio(stats.Wins, 1)
	case BadgeTenWins:
		return ratio(stats.Wins, tenWinsTarget)
	case BadgeWinStreak:
		return ratio(stats.WinStreak, winStreakTarget)
	case BadgeQuizMaster:
		return ratio(stats.TotalBattles, quizMasterBattles)
	case BadgeHighRoller:
		return ratio(stats.Rating, highRollerRating)
	case BadgeSocialButterfly:
		return ratio(directOpponents, socialButterflyRivals)
	default:
		return 0
	}
}
