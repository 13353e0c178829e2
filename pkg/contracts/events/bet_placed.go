package events

import "time"

// Evento emitido pelo ledger-service após o commit de uma aposta
type BetPlaced struct {
	EventID    string    `json:"event_id"`
	BetID      int64     `json:"bet_id"`
	UserID     int64     `json:"user_id"`
	OddID      int64     `json:"odd_id"`
	MatchID    int64     `json:"match_id"`
	OddType    string    `json:"odd_type"`
	OddValue   string    `json:"odd_value"`
	Stake      string    `json:"stake_amount"`
	NewBalance string    `json:"new_balance"`
	PlacedAt   time.Time `json:"placed_at"`
}
