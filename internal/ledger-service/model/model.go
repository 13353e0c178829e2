package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale é o número de casas decimais de saldo, stake e payout
const MoneyScale = 2

// IsMoney indica se o valor cabe na escala monetária (no máximo 2 casas)
func IsMoney(v decimal.Decimal) bool {
	return v.Equal(v.Round(MoneyScale))
}

// User é a conta de um apostador. Balance só muda via Balances.Adjust.
type User struct {
	ID        int64           `json:"user_id"`
	Username  string          `json:"username"`
	IsAdmin   bool            `json:"is_admin"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// Credentials carrega o hash da senha junto com o usuário (nunca serializado)
type Credentials struct {
	User
	PasswordHash string `json:"-"`
}

type Player struct {
	ID      int64  `json:"player_id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchFinished MatchStatus = "finished"
)

// Outcome é o registro fechado de resultado de uma partida.
// Cada campo é opcional; nil significa "não informado".
type Outcome struct {
	WinnerID           *int64 `json:"winner_id,omitempty"`
	FirstScorerID      *int64 `json:"first_scorer_id,omitempty"`
	TotalPoints        *int64 `json:"total_points,omitempty"`
	GamesPlayed        *int64 `json:"games_played,omitempty"`
	HighestLeadAmount  *int64 `json:"highest_lead_amount,omitempty"`
	FirstTiltPlayerID  *int64 `json:"first_tilt_player_id,omitempty"`
	FirstAbusePlayerID *int64 `json:"first_abuse_player_id,omitempty"`
}

// Participants retorna as referências de jogador preenchidas no resultado
func (o Outcome) Participants() []*int64 {
	return []*int64{o.WinnerID, o.FirstScorerID, o.FirstTiltPlayerID, o.FirstAbusePlayerID}
}

// Counters retorna os contadores numéricos preenchidos no resultado
func (o Outcome) Counters() []*int64 {
	return []*int64{o.TotalPoints, o.GamesPlayed, o.HighestLeadAmount}
}

type Match struct {
	ID          int64       `json:"match_id"`
	PlayerOneID int64       `json:"player_one_id"`
	PlayerTwoID int64       `json:"player_two_id"`
	MatchTime   time.Time   `json:"match_time"`
	Status      MatchStatus `json:"match_status"`
	Outcome
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

// HasParticipant indica se o jogador disputa a partida
func (m Match) HasParticipant(playerID int64) bool {
	return playerID == m.PlayerOneID || playerID == m.PlayerTwoID
}

type OddType string

const (
	OddToWin            OddType = "to_win"
	OddFirstScorer      OddType = "first_scorer"
	OddTotalPointsOver  OddType = "total_points_over"
	OddTotalPointsUnder OddType = "total_points_under"
	OddGamesPlayed3Yes  OddType = "games_played_3_yes"
	OddGamesPlayed3No   OddType = "games_played_3_no"
	OddHighestLeadOver  OddType = "highest_lead_over"
	OddHighestLeadUnder OddType = "highest_lead_under"
	OddFirstTilt        OddType = "first_tilt"
	OddFirstAbuse       OddType = "first_abuse"
)

type Odd struct {
	ID       int64               `json:"odd_id"`
	MatchID  int64               `json:"match_id"`
	PlayerID *int64              `json:"player_id"`
	Type     OddType             `json:"odd_type"`
	Value    decimal.Decimal     `json:"odd_value"`
	Line     decimal.NullDecimal `json:"odd_line"`
	Active   bool                `json:"is_active"`
}

// OddQuote é a odd lida para colocação de aposta, junto com o status da partida
type OddQuote struct {
	Odd
	MatchStatus MatchStatus
}

// Open indica se a odd aceita novas apostas
func (q OddQuote) Open() bool {
	return q.Active && q.MatchStatus == MatchPending
}

type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
	BetRevoked BetStatus = "revoked"
)

// Terminal indica se o status não admite mais transições
func (s BetStatus) Terminal() bool {
	return s == BetWon || s == BetLost || s == BetRevoked
}

type Bet struct {
	ID         int64           `json:"bet_id"`
	UserID     int64           `json:"user_id"`
	OddID      int64           `json:"odd_id"`
	Stake      decimal.Decimal `json:"stake_amount"`
	Status     BetStatus       `json:"bet_status"`
	Payout     decimal.Decimal `json:"payout"`
	PlacedAt   time.Time       `json:"placed_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// PendingBet é uma aposta pendente junto com a odd que ela referencia
type PendingBet struct {
	Bet
	Odd Odd
}

// BetView é a aposta como o usuário enxerga no histórico
type BetView struct {
	Bet
	OddType       OddType             `json:"odd_type"`
	OddValue      decimal.Decimal     `json:"odd_value"`
	OddLine       decimal.NullDecimal `json:"odd_line"`
	MatchID       int64               `json:"match_id"`
	MatchTime     time.Time           `json:"match_time"`
	MatchStatus   MatchStatus         `json:"match_status"`
	PlayerOneName string              `json:"player_one_name"`
	PlayerTwoName string              `json:"player_two_name"`
}

// MatchCard é a partida aberta listada no catálogo, com suas odds ativas
type MatchCard struct {
	ID            int64       `json:"match_id"`
	MatchTime     time.Time   `json:"match_time"`
	Status        MatchStatus `json:"match_status"`
	PlayerOneID   int64       `json:"player_one_id"`
	PlayerTwoID   int64       `json:"player_two_id"`
	PlayerOneName string      `json:"player_one_name"`
	PlayerTwoName string      `json:"player_two_name"`
	Odds          []Odd       `json:"odds"`
}

type EntryKind string

const (
	EntryStake  EntryKind = "STAKE"
	EntryPayout EntryKind = "PAYOUT"
	EntryRefund EntryKind = "REFUND"
)

// Memo descreve a movimentação registrada no balance_ledger
type Memo struct {
	Kind  EntryKind
	BetID int64
}

type LedgerEntry struct {
	ID        int64
	UserID    int64
	Kind      EntryKind
	Amount    decimal.Decimal
	BetID     int64
	CreatedAt time.Time
}
