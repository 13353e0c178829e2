package events

import "time"

// MatchSettled resume a liquidação de uma partida
type MatchSettled struct {
	EventID            string    `json:"event_id"`
	MatchID            int64     `json:"match_id"`
	WinnerID           *int64    `json:"winner_id,omitempty"`
	FirstScorerID      *int64    `json:"first_scorer_id,omitempty"`
	TotalPoints        *int64    `json:"total_points,omitempty"`
	GamesPlayed        *int64    `json:"games_played,omitempty"`
	HighestLeadAmount  *int64    `json:"highest_lead_amount,omitempty"`
	FirstTiltPlayerID  *int64    `json:"first_tilt_player_id,omitempty"`
	FirstAbusePlayerID *int64    `json:"first_abuse_player_id,omitempty"`
	Processed          int       `json:"processed"`
	Won                int       `json:"won"`
	Lost               int       `json:"lost"`
	Failed             int       `json:"failed"`
	TotalPayout        string    `json:"total_payout"`
	SettledAt          time.Time `json:"settled_at"`
}
