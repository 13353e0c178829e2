package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/ledger-service/model"
	"github.com/radieske/wager-ledger/pkg/contracts/events"
	"github.com/radieske/wager-ledger/pkg/contracts/topics"
)

// RevokeBet estorna uma aposta pendente e devolve o stake ao dono
func (s *Service) RevokeBet(ctx context.Context, betID int64) (model.Bet, error) {
	var out model.Bet
	err := s.store.Within(ctx, func(ctx context.Context, tx Tx) error {
		bet, err := tx.Bets().GetForUpdate(ctx, betID)
		if err != nil {
			return err
		}
		if bet.Status.Terminal() {
			return fmt.Errorf("%w: cannot revoke a bet that is already %s", ErrInvalidState, bet.Status)
		}
		if err := tx.Bets().Revoke(ctx, betID); err != nil {
			return err
		}

		if _, err := tx.Balances().GetForUpdate(ctx, bet.UserID); err != nil {
			return err
		}
		if err := tx.Balances().Adjust(ctx, bet.UserID, bet.Stake, model.Memo{Kind: model.EntryRefund, BetID: bet.ID}); err != nil {
			return err
		}

		bet.Status = model.BetRevoked
		out = bet
		return nil
	})
	if err != nil {
		return model.Bet{}, err
	}

	if s.hooks.OnRevoked != nil {
		s.hooks.OnRevoked()
	}
	s.log.Info("bet revoked",
		zap.Int64("bet_id", out.ID),
		zap.Int64("user_id", out.UserID),
		zap.String("refund", out.Stake.String()),
	)

	if s.publ != nil {
		ev := events.BetRevoked{
			EventID:   uuid.NewString(),
			BetID:     out.ID,
			UserID:    out.UserID,
			Refund:    out.Stake.String(),
			RevokedAt: s.now(),
		}
		if err := s.publ.PublishBetRevoked(ctx, ev); err != nil {
			s.publishFailed(topics.BetRevoked, err)
		}
	}
	return out, nil
}
