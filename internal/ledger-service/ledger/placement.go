package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/ledger-service/model"
	"github.com/radieske/wager-ledger/pkg/contracts/events"
	"github.com/radieske/wager-ledger/pkg/contracts/topics"
)

// PlaceBet debita o stake e cria a aposta pendente numa única unidade de trabalho.
// É o único caminho pelo qual stake sai do saldo do usuário.
func (s *Service) PlaceBet(ctx context.Context, userID, oddID int64, stake decimal.Decimal) (Placement, error) {
	if stake.LessThanOrEqual(decimal.Zero) || !model.IsMoney(stake) {
		return Placement{}, fmt.Errorf("%w: stake must be positive with at most %d decimals", ErrInvalidInput, model.MoneyScale)
	}

	var (
		out   Placement
		quote model.OddQuote
	)
	err := s.store.Within(ctx, func(ctx context.Context, tx Tx) error {
		// ordem de travas: partida (compartilhada) antes do usuário
		var qerr error
		quote, qerr = tx.Odds().GetForShare(ctx, oddID)
		if qerr != nil && !errors.Is(qerr, ErrNotFound) {
			return qerr
		}

		balance, err := tx.Balances().GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if balance.LessThan(stake) {
			return fmt.Errorf("%w: balance %s, stake %s", ErrInsufficientFunds, balance, stake)
		}
		if qerr != nil || !quote.Open() {
			return fmt.Errorf("%w: odd %d", ErrOddNotActive, oddID)
		}

		bet, err := tx.Bets().Create(ctx, userID, oddID, stake)
		if err != nil {
			return err
		}
		if err := tx.Balances().Adjust(ctx, userID, stake.Neg(), model.Memo{Kind: model.EntryStake, BetID: bet.ID}); err != nil {
			return err
		}

		out = Placement{Bet: bet, NewBalance: balance.Sub(stake)}
		return nil
	})
	if err != nil {
		return Placement{}, err
	}

	if s.hooks.OnPlaced != nil {
		s.hooks.OnPlaced()
	}
	s.log.Info("bet placed",
		zap.Int64("bet_id", out.Bet.ID),
		zap.Int64("user_id", userID),
		zap.Int64("odd_id", oddID),
		zap.String("stake", stake.String()),
	)

	if s.publ != nil {
		ev := events.BetPlaced{
			EventID:    uuid.NewString(),
			BetID:      out.Bet.ID,
			UserID:     userID,
			OddID:      oddID,
			MatchID:    quote.MatchID,
			OddType:    string(quote.Type),
			OddValue:   quote.Value.String(),
			Stake:      stake.String(),
			NewBalance: out.NewBalance.String(),
			PlacedAt:   out.Bet.PlacedAt,
		}
		if err := s.publ.PublishBetPlaced(ctx, ev); err != nil {
			s.publishFailed(topics.BetPlaced, err)
		}
	}
	return out, nil
}
