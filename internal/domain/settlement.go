package domain

// SettlementInput is everything the completion step reads, loaded under the battle lock.
type SettlementInput struct {
	Battle   Battle
	Progress []ProgressEntry
	// Stats holds both participants' rows, defaulted when missing.
	Stats map[string]UserStats
	// Held holds the badges each participant already owns.
	Held map[string]map[BadgeKind]bool
	// DirectOpponents counts distinct direct-challenge opponents per participant.
	DirectOpponents map[string]int
}

// Settlement is everything the completion step writes in one transaction.
type Settlement struct {
	Battle Battle
	Stats  []UserStats
	Awards []BadgeAward
}

// PlayerProgress returns the entries belonging to userID.
func (in SettlementInput) PlayerProgress(userID string) []ProgressEntry {
	var out []ProgressEntry
	for _, p := range in.Progress {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}
