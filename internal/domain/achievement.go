package domain

import "time"

// AchievementType identifies a rule in the fixed achievement table.
// A (user, type) pair is unique: a type is earned at most once.
type AchievementType string

const (
	AchievementFirstBlood   AchievementType = "FIRST_BLOOD"
	AchievementHatTrick     AchievementType = "HAT_TRICK"
	AchievementSharpshooter AchievementType = "SHARPSHOOTER"
	AchievementQuestMaster  AchievementType = "QUEST_MASTER"
	AchievementDiamondHands AchievementType = "DIAMOND_HANDS"
	AchievementWhale        AchievementType = "WHALE"
	AchievementOracle       AchievementType = "ORACLE"
)

// AchievementTypes lists every type in evaluation order.
var AchievementTypes = []AchievementType{
	AchievementFirstBlood,
	AchievementHatTrick,
	AchievementSharpshooter,
	AchievementQuestMaster,
	AchievementDiamondHands,
	AchievementWhale,
	AchievementOracle,
}

// Achievement records that a user earned a type.
type Achievement struct {
	Address  string
	Type     AchievementType
	EarnedAt time.Time
}
