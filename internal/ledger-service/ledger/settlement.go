package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/ledger-service/model"
	"github.com/radieske/wager-ledger/internal/ledger-service/rules"
	"github.com/radieske/wager-ledger/pkg/contracts/events"
	"github.com/radieske/wager-ledger/pkg/contracts/topics"
)

// decision é o resultado da regra para uma aposta, antes de aplicar no banco
type decision struct {
	bet    model.PendingBet
	status model.BetStatus
	payout decimal.Decimal
	err    error
}

// SettleMatch grava o resultado da partida, resolve cada aposta pendente e credita os vencedores.
// Liquidar de novo uma partida finished falha com ErrAlreadySettled, sem efeito algum.
func (s *Service) SettleMatch(ctx context.Context, matchID int64, outcome model.Outcome) (SettlementReport, error) {
	var (
		report  SettlementReport
		settled []decision
	)
	err := s.store.Within(ctx, func(ctx context.Context, tx Tx) error {
		// retries da unidade de trabalho recomeçam do zero
		report = SettlementReport{MatchID: matchID, TotalPayout: decimal.Zero}
		settled = settled[:0]

		match, err := tx.Matches().GetForUpdate(ctx, matchID)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrMatchNotFound, matchID)
		}
		if err != nil {
			return err
		}
		if match.Status == model.MatchFinished {
			return fmt.Errorf("%w: %d", ErrAlreadySettled, matchID)
		}
		if err := validateOutcome(match, outcome); err != nil {
			return err
		}

		if err := tx.Matches().Finish(ctx, matchID, outcome); err != nil {
			return err
		}
		if err := tx.Odds().DeactivateForMatch(ctx, matchID); err != nil {
			return err
		}

		pending, err := tx.Bets().PendingForMatch(ctx, matchID)
		if err != nil {
			return err
		}

		decisions := s.decide(pending, outcome)
		s.lockWinners(ctx, tx, decisions)

		for i := range decisions {
			d := &decisions[i]
			if d.err == nil {
				d.err = applyDecision(ctx, tx, d)
			}
			if d.err != nil {
				report.Failed++
				s.log.Error("settle bet failed",
					zap.Int64("match_id", matchID),
					zap.Int64("bet_id", d.bet.ID),
					zap.Error(d.err),
				)
				if s.hooks.OnBetFailure != nil {
					s.hooks.OnBetFailure()
				}
				continue
			}

			report.Processed++
			if d.status == model.BetWon {
				report.Won++
				report.TotalPayout = report.TotalPayout.Add(d.payout)
			} else {
				report.Lost++
			}
			settled = append(settled, *d)
		}
		return nil
	})
	if err != nil {
		return SettlementReport{}, err
	}

	for _, d := range settled {
		if s.hooks.OnResolved != nil {
			s.hooks.OnResolved(d.status)
		}
	}
	s.log.Info("match settled",
		zap.Int64("match_id", matchID),
		zap.Int("processed", report.Processed),
		zap.Int("won", report.Won),
		zap.Int("lost", report.Lost),
		zap.Int("failed", report.Failed),
		zap.String("total_payout", report.TotalPayout.String()),
	)
	s.publishSettlement(ctx, outcome, report, settled)
	return report, nil
}

// decide avalia cada aposta com a regra da odd; função pura sobre os dados lidos
func (s *Service) decide(pending []model.PendingBet, outcome model.Outcome) []decision {
	out := make([]decision, 0, len(pending))
	for _, pb := range pending {
		d := decision{bet: pb}
		if !pb.Odd.Value.IsPositive() {
			d.err = fmt.Errorf("%w: odd %d has multiplier %s", ErrInvalidInput, pb.Odd.ID, pb.Odd.Value)
			out = append(out, d)
			continue
		}
		if !rules.Recognized(pb.Odd.Type) {
			s.log.Warn("unrecognized odd type, bet settles as lost",
				zap.Int64("bet_id", pb.ID),
				zap.Int64("odd_id", pb.Odd.ID),
				zap.String("odd_type", string(pb.Odd.Type)),
			)
			if s.hooks.OnUnknownOdd != nil {
				s.hooks.OnUnknownOdd(string(pb.Odd.Type))
			}
		}

		won := rules.Evaluate(pb.Odd.Type, pb.Odd.Line, pb.Odd.PlayerID, outcome)
		d.payout = rules.Payout(pb.Stake, pb.Odd.Value, won)
		d.status = model.BetLost
		if won {
			d.status = model.BetWon
		}
		out = append(out, d)
	}
	return out
}

// lockWinners trava os usuários vencedores em ordem crescente de id.
// Falha ao travar um usuário marca só as apostas dele.
func (s *Service) lockWinners(ctx context.Context, tx Tx, decisions []decision) {
	byUser := map[int64][]int{}
	for i, d := range decisions {
		if d.err == nil && d.status == model.BetWon {
			byUser[d.bet.UserID] = append(byUser[d.bet.UserID], i)
		}
	}
	ids := make([]int64, 0, len(byUser))
	for id := range byUser {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if _, err := tx.Balances().GetForUpdate(ctx, id); err != nil {
			for _, i := range byUser[id] {
				decisions[i].err = fmt.Errorf("lock user %d: %w", id, err)
			}
		}
	}
}

// applyDecision grava a decisão de uma aposta dentro de um savepoint próprio
func applyDecision(ctx context.Context, tx Tx, d *decision) error {
	sp := fmt.Sprintf("bet_%d", d.bet.ID)
	if err := tx.Savepoint(ctx, sp); err != nil {
		return err
	}

	err := tx.Bets().Resolve(ctx, d.bet.ID, d.status, d.payout)
	if err == nil && d.status == model.BetWon {
		err = tx.Balances().Adjust(ctx, d.bet.UserID, d.payout, model.Memo{Kind: model.EntryPayout, BetID: d.bet.ID})
	}
	if err != nil {
		if rerr := tx.RollbackTo(ctx, sp); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return tx.Release(ctx, sp)
}

// validateOutcome recusa jogador fora da partida e contador negativo
func validateOutcome(m model.Match, o model.Outcome) error {
	for _, p := range o.Participants() {
		if p != nil && !m.HasParticipant(*p) {
			return fmt.Errorf("%w: player %d is not in match %d", ErrInvalidInput, *p, m.ID)
		}
	}
	for _, c := range o.Counters() {
		if c != nil && *c < 0 {
			return fmt.Errorf("%w: outcome counters must be non-negative", ErrInvalidInput)
		}
	}
	return nil
}

func (s *Service) publishSettlement(ctx context.Context, o model.Outcome, report SettlementReport, settled []decision) {
	if s.publ == nil {
		return
	}
	now := s.now()
	for _, d := range settled {
		ev := events.BetSettled{
			EventID:   uuid.NewString(),
			BetID:     d.bet.ID,
			UserID:    d.bet.UserID,
			MatchID:   report.MatchID,
			Status:    string(d.status),
			Stake:     d.bet.Stake.String(),
			Payout:    d.payout.String(),
			SettledAt: now,
		}
		if err := s.publ.PublishBetSettled(ctx, ev); err != nil {
			s.publishFailed(topics.BetSettled, err)
		}
	}

	ev := events.MatchSettled{
		EventID:            uuid.NewString(),
		MatchID:            report.MatchID,
		WinnerID:           o.WinnerID,
		FirstScorerID:      o.FirstScorerID,
		TotalPoints:        o.TotalPoints,
		GamesPlayed:        o.GamesPlayed,
		HighestLeadAmount:  o.HighestLeadAmount,
		FirstTiltPlayerID:  o.FirstTiltPlayerID,
		FirstAbusePlayerID: o.FirstAbusePlayerID,
		Processed:          report.Processed,
		Won:                report.Won,
		Lost:               report.Lost,
		Failed:             report.Failed,
		TotalPayout:        report.TotalPayout.String(),
		SettledAt:          now,
	}
	if err := s.publ.PublishMatchSettled(ctx, ev); err != nil {
		s.publishFailed(topics.MatchSettled, err)
	}
}
