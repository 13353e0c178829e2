// Package rules decide se uma aposta vence, dado o resultado da partida e a odd.
// Funções puras: sem I/O, sem estado.
package rules

import (
	"github.com/shopspring/decimal"

	"github.com/radieske/wager-ledger/internal/ledger-service/model"
)

type condition func(line decimal.NullDecimal, participant *int64, o model.Outcome) bool

var table = map[model.OddType]condition{
	model.OddToWin: func(_ decimal.NullDecimal, p *int64, o model.Outcome) bool {
		return sameParticipant(p, o.WinnerID)
	},
	model.OddFirstScorer: func(_ decimal.NullDecimal, p *int64, o model.Outcome) bool {
		return sameParticipant(p, o.FirstScorerID)
	},
	model.OddTotalPointsOver: func(l decimal.NullDecimal, _ *int64, o model.Outcome) bool {
		return compare(o.TotalPoints, l) > 0
	},
	model.OddTotalPointsUnder: func(l decimal.NullDecimal, _ *int64, o model.Outcome) bool {
		return compare(o.TotalPoints, l) < 0
	},
	model.OddGamesPlayed3Yes: func(_ decimal.NullDecimal, _ *int64, o model.Outcome) bool {
		return o.GamesPlayed != nil && *o.GamesPlayed == 3
	},
	model.OddGamesPlayed3No: func(_ decimal.NullDecimal, _ *int64, o model.Outcome) bool {
		return o.GamesPlayed == nil || *o.GamesPlayed != 3
	},
	model.OddHighestLeadOver: func(l decimal.NullDecimal, _ *int64, o model.Outcome) bool {
		return compare(o.HighestLeadAmount, l) > 0
	},
	model.OddHighestLeadUnder: func(l decimal.NullDecimal, _ *int64, o model.Outcome) bool {
		return compare(o.HighestLeadAmount, l) < 0
	},
	model.OddFirstTilt: func(_ decimal.NullDecimal, p *int64, o model.Outcome) bool {
		return sameParticipant(p, o.FirstTiltPlayerID)
	},
	model.OddFirstAbuse: func(_ decimal.NullDecimal, p *int64, o model.Outcome) bool {
		return sameParticipant(p, o.FirstAbusePlayerID)
	},
}

// Recognized indica se o tipo de odd tem regra de liquidação
func Recognized(t model.OddType) bool {
	_, ok := table[t]
	return ok
}

// NeedsLine indica se o tipo é over/under e exige linha
func NeedsLine(t model.OddType) bool {
	switch t {
	case model.OddTotalPointsOver, model.OddTotalPointsUnder, model.OddHighestLeadOver, model.OddHighestLeadUnder:
		return true
	}
	return false
}

// NeedsParticipant indica se o tipo compara um jogador com o resultado
func NeedsParticipant(t model.OddType) bool {
	switch t {
	case model.OddToWin, model.OddFirstScorer, model.OddFirstTilt, model.OddFirstAbuse:
		return true
	}
	return false
}

// Evaluate retorna true se a aposta na odd vence com o resultado informado.
// Tipo desconhecido, campo de resultado ausente ou linha/jogador ausente perdem.
func Evaluate(t model.OddType, line decimal.NullDecimal, participant *int64, o model.Outcome) bool {
	cond, ok := table[t]
	if !ok {
		return false
	}
	return cond(line, participant, o)
}

// Payout calcula o valor pago: stake × multiplicador na vitória, zero na derrota
func Payout(stake, multiplier decimal.Decimal, won bool) decimal.Decimal {
	if !won {
		return decimal.Zero
	}
	return stake.Mul(multiplier).Round(model.MoneyScale)
}

func sameParticipant(p, want *int64) bool {
	return p != nil && want != nil && *p == *want
}

// compare devolve -1/0/1 entre o contador e a linha; 0 quando falta um dos dois
func compare(v *int64, line decimal.NullDecimal) int {
	if v == nil || !line.Valid {
		return 0
	}
	return decimal.NewFromInt(*v).Cmp(line.Decimal)
}
