package topics

const (
	// Bets
	BetPlaced  = "bet_placed"
	BetRevoked = "bet_revoked"
	BetSettled = "bet_settled"

	// Matches
	MatchSettled = "match_settled"
)
