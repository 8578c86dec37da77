package app

import (
	"fmt"
	"sort"

	"eduscroll-service/internal/domain"
)

// Experience constants shared by the leaderboard and profile stats so the
// two views never disagree.
const (
	ExpPerCorrectAnswer = 10
	ExpPerLevel         = 50
)

// DefaultRoster returns the fixed reference entries shown alongside the
// learner. Static configuration data, not derived from progress.
func DefaultRoster() []domain.RankingEntry {
	return []domain.RankingEntry{
		{DisplayName: "CyberNinja", Exp: 420},
		{DisplayName: "AnnaSecure", Exp: 350},
		{DisplayName: "PhishBuster", Exp: 310},
		{DisplayName: "SafeKid_21", Exp: 250},
		{DisplayName: "HashMaster", Exp: 220},
		{DisplayName: "NetGuardian", Exp: 200},
	}
}

// BuildLeaderboard merges the learner (10 exp per historically correct
// answer) into the roster, sorts descending by exp, and assigns dense
// 1-based positions. Ties keep concatenation order: roster first, the
// learner last among equals. Exactly one entry is the current user.
func BuildLeaderboard(userID, correctAnswersTotal int, roster []domain.RankingEntry) []domain.RankingEntry {
	entries := make([]domain.RankingEntry, 0, len(roster)+1)
	for _, entry := range roster {
		entry.IsCurrentUser = false
		entries = append(entries, entry)
	}
	entries = append(entries, domain.RankingEntry{
		DisplayName:   fmt.Sprintf("Guest #%d", userID),
		Exp:           correctAnswersTotal * ExpPerCorrectAnswer,
		IsCurrentUser: true,
	})

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Exp > entries[j].Exp
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

// ComputeProfileStats derives the profile view from progress records.
func ComputeProfileStats(records []domain.ProgressRecord) domain.ProfileStats {
	correct := totalCorrect(records)
	exp := correct * ExpPerCorrectAnswer
	return domain.ProfileStats{
		TotalLessonsCompleted: len(records),
		TotalCorrectAnswers:   correct,
		Exp:                   exp,
		Level:                 LevelForExp(exp),
		LevelProgress:         LevelProgress(exp),
	}
}

// LevelForExp maps accumulated experience to a level, starting at 1.
func LevelForExp(exp int) int {
	if exp < 0 {
		exp = 0
	}
	return 1 + exp/ExpPerLevel
}

// LevelProgress is the normalized progress toward the next level, in [0,1].
func LevelProgress(exp int) float64 {
	if exp <= 0 {
		return 0
	}
	return float64(exp%ExpPerLevel) / float64(ExpPerLevel)
}

func totalCorrect(records []domain.ProgressRecord) int {
	total := 0
	for _, record := range records {
		total += record.CorrectAnswers
	}
	return total
}
