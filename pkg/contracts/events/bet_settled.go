package events

import "time"

// BetSettled é publicado para cada aposta resolvida (won | lost) numa liquidação
type BetSettled struct {
	EventID   string    `json:"event_id"`
	BetID     int64     `json:"bet_id"`
	UserID    int64     `json:"user_id"`
	MatchID   int64     `json:"match_id"`
	Status    string    `json:"bet_status"` // "won" | "lost"
	Stake     string    `json:"stake_amount"`
	Payout    string    `json:"payout"`
	SettledAt time.Time `json:"settled_at"`
}

// BetRevoked é publicado quando um admin estorna uma aposta pendente
type BetRevoked struct {
	EventID   string    `json:"event_id"`
	BetID     int64     `json:"bet_id"`
	UserID    int64     `json:"user_id"`
	Refund    string    `json:"refund_amount"`
	RevokedAt time.Time `json:"revoked_at"`
}
