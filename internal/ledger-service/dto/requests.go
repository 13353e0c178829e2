package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type PlaceBetRequest struct {
	OddID       int64           `json:"odd_id"`
	StakeAmount decimal.Decimal `json:"stake_amount"` // aceita número ou string
}

type CreatePlayerRequest struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

type CreateMatchRequest struct {
	PlayerOneID int64     `json:"player_one_id"`
	PlayerTwoID int64     `json:"player_two_id"`
	MatchTime   time.Time `json:"match_time"` // RFC 3339
}

type CreateOddRequest struct {
	MatchID  int64               `json:"match_id"`
	PlayerID *int64              `json:"player_id"`
	OddType  string              `json:"odd_type"`
	OddValue *decimal.Decimal    `json:"odd_value"`
	OddLine  decimal.NullDecimal `json:"odd_line"`
}

// SettleRequest é o registro fechado de resultado; chaves fora desta lista são rejeitadas
type SettleRequest struct {
	WinnerID           *int64 `json:"winner_id"`
	FirstScorerID      *int64 `json:"first_scorer_id"`
	TotalPoints        *int64 `json:"total_points"`
	GamesPlayed        *int64 `json:"games_played"`
	HighestLeadAmount  *int64 `json:"highest_lead_amount"`
	FirstTiltPlayerID  *int64 `json:"first_tilt_player_id"`
	FirstAbusePlayerID *int64 `json:"first_abuse_player_id"`
}
