package domain

// Signal bus channels carrying economy events to the WebSocket hub and any
// other subscriber. Payloads are JSON objects with an "event" field.
const (
	ChannelWagers       = "wagers"
	ChannelMarkets      = "markets"
	ChannelClaims       = "claims"
	ChannelAchievements = "achievements"
)

// Event names published on the channels above.
const (
	EventWagerPlaced       = "wager_placed"
	EventMarketCreated     = "market_created"
	EventMarketResolved    = "market_resolved"
	EventClaimSettled      = "claim_settled"
	EventAchievementEarned = "achievement_earned"
	EventQuestAccepted     = "quest_accepted"
	EventQuestCompleted    = "quest_completed"
)
