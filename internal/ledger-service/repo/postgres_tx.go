package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
)

type pgTx struct{ tx *sql.Tx }

func (t *pgTx) Balances() ledger.Balances { return pgBalances{t.tx} }
func (t *pgTx) Bets() ledger.Bets         { return pgBets{t.tx} }
func (t *pgTx) Matches() ledger.Matches   { return pgMatches{t.tx} }
func (t *pgTx) Odds() ledger.Odds         { return pgOdds{t.tx} }

func (t *pgTx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "SAVEPOINT "+pq.QuoteIdentifier(name))
	return err
}

func (t *pgTx) RollbackTo(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+pq.QuoteIdentifier(name))
	return err
}

func (t *pgTx) Release(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+pq.QuoteIdentifier(name))
	return err
}

type pgBalances struct{ tx *sql.Tx }

func (b pgBalances) GetForUpdate(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := b.tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE user_id=$1 FOR UPDATE`, userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: user %d", ledger.ErrNotFound, userID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("lock user: %w", err)
	}
	return bal, nil
}

// Adjust aplica o delta só se o saldo continuar >= 0 e registra a movimentação no balance_ledger
func (b pgBalances) Adjust(ctx context.Context, userID int64, delta decimal.Decimal, memo model.Memo) error {
	res, err := b.tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + $1 WHERE user_id=$2 AND balance + $1 >= 0`, delta, userID)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := b.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE user_id=$1)`, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: user %d", ledger.ErrNotFound, userID)
		}
		return fmt.Errorf("%w: user %d, delta %s", ledger.ErrInsufficientFunds, userID, delta)
	}

	var betID *int64
	if memo.BetID != 0 {
		betID = &memo.BetID
	}
	if _, err := b.tx.ExecContext(ctx,
		`INSERT INTO balance_ledger(user_id, kind, amount, bet_id) VALUES($1,$2,$3,$4)`,
		userID, string(memo.Kind), delta, betID); err != nil {
		return fmt.Errorf("insert balance_ledger: %w", err)
	}
	return nil
}

type pgBets struct{ tx *sql.Tx }

func (b pgBets) Create(ctx context.Context, userID, oddID int64, stake decimal.Decimal) (model.Bet, error) {
	if !stake.IsPositive() {
		return model.Bet{}, fmt.Errorf("%w: stake must be positive", ledger.ErrInvalidInput)
	}
	bet := model.Bet{UserID: userID, OddID: oddID, Stake: stake, Status: model.BetPending, Payout: decimal.Zero}
	if err := b.tx.QueryRowContext(ctx, `
		INSERT INTO bets(user_id, odd_id, stake_amount, bet_status, payout)
		VALUES($1,$2,$3,'pending',0) RETURNING bet_id, placed_at`,
		userID, oddID, stake).Scan(&bet.ID, &bet.PlacedAt); err != nil {
		return model.Bet{}, fmt.Errorf("insert bet: %w", err)
	}
	return bet, nil
}

func (b pgBets) GetForUpdate(ctx context.Context, betID int64) (model.Bet, error) {
	bet, err := scanBet(b.tx.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE bet_id=$1 FOR UPDATE`, betID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bet{}, fmt.Errorf("%w: bet %d", ledger.ErrNotFound, betID)
	}
	if err != nil {
		return model.Bet{}, fmt.Errorf("lock bet: %w", err)
	}
	return bet, nil
}

// PendingForMatch trava as apostas em ordem de id; em READ COMMITTED o Postgres
// reavalia bet_status depois de esperar a trava, então apostas estornadas no meio caem fora
func (b pgBets) PendingForMatch(ctx context.Context, matchID int64) ([]model.PendingBet, error) {
	rows, err := b.tx.QueryContext(ctx, `
		SELECT b.bet_id, b.user_id, b.odd_id, b.stake_amount, b.bet_status, b.payout, b.placed_at, b.resolved_at,
		       o.odd_id, o.match_id, o.player_id, o.odd_type, o.odd_value, o.odd_line, o.is_active
		FROM bets b
		JOIN odds o ON o.odd_id = b.odd_id
		WHERE o.match_id=$1 AND b.bet_status='pending'
		ORDER BY b.bet_id
		FOR UPDATE OF b`, matchID)
	if err != nil {
		return nil, fmt.Errorf("lock pending bets: %w", err)
	}
	defer rows.Close()

	var out []model.PendingBet
	for rows.Next() {
		var pb model.PendingBet
		if err := rows.Scan(
			&pb.ID, &pb.UserID, &pb.OddID, &pb.Stake, &pb.Status, &pb.Payout, &pb.PlacedAt, &pb.ResolvedAt,
			&pb.Odd.ID, &pb.Odd.MatchID, &pb.Odd.PlayerID, &pb.Odd.Type, &pb.Odd.Value, &pb.Odd.Line, &pb.Odd.Active,
		); err != nil {
			return nil, err
		}
		out = append(out, pb)
	}
	return out, rows.Err()
}

func (b pgBets) Resolve(ctx context.Context, betID int64, status model.BetStatus, payout decimal.Decimal) error {
	if status != model.BetWon && status != model.BetLost {
		return fmt.Errorf("%w: resolve to %s", ledger.ErrInvalidTransition, status)
	}
	return b.transition(ctx, betID, status, payout)
}

func (b pgBets) Revoke(ctx context.Context, betID int64) error {
	return b.transition(ctx, betID, model.BetRevoked, decimal.Zero)
}

// transition só sai de pending; qualquer outro estado de origem é ErrInvalidTransition
func (b pgBets) transition(ctx context.Context, betID int64, status model.BetStatus, payout decimal.Decimal) error {
	res, err := b.tx.ExecContext(ctx, `
		UPDATE bets SET bet_status=$2, payout=$3, resolved_at=now()
		WHERE bet_id=$1 AND bet_status='pending'`, betID, string(status), payout)
	if err != nil {
		return fmt.Errorf("update bet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var cur model.BetStatus
	err = b.tx.QueryRowContext(ctx, `SELECT bet_status FROM bets WHERE bet_id=$1`, betID).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: bet %d", ledger.ErrNotFound, betID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidTransition, cur, status)
}

type pgMatches struct{ tx *sql.Tx }

func (m pgMatches) GetForUpdate(ctx context.Context, matchID int64) (model.Match, error) {
	mt, err := scanMatch(m.tx.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE match_id=$1 FOR UPDATE`, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Match{}, fmt.Errorf("%w: match %d", ledger.ErrNotFound, matchID)
	}
	if err != nil {
		return model.Match{}, fmt.Errorf("lock match: %w", err)
	}
	return mt, nil
}

// Finish grava as colunas fixas do resultado; nenhum nome de coluna vem da entrada
func (m pgMatches) Finish(ctx context.Context, matchID int64, o model.Outcome) error {
	res, err := m.tx.ExecContext(ctx, `
		UPDATE matches SET
			match_status='finished',
			winner_id=$2, first_scorer_id=$3, total_points=$4, games_played=$5,
			highest_lead_amount=$6, first_tilt_player_id=$7, first_abuse_player_id=$8,
			settled_at=now()
		WHERE match_id=$1 AND match_status='pending'`,
		matchID, o.WinnerID, o.FirstScorerID, o.TotalPoints, o.GamesPlayed,
		o.HighestLeadAmount, o.FirstTiltPlayerID, o.FirstAbusePlayerID)
	if err != nil {
		return fmt.Errorf("finish match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: match %d is not pending", ledger.ErrInvalidState, matchID)
	}
	return nil
}

type pgOdds struct{ tx *sql.Tx }

func (o pgOdds) GetForShare(ctx context.Context, oddID int64) (model.OddQuote, error) {
	var q model.OddQuote
	err := o.tx.QueryRowContext(ctx, `
		SELECT o.odd_id, o.match_id, o.player_id, o.odd_type, o.odd_value, o.odd_line, o.is_active, m.match_status
		FROM odds o
		JOIN matches m ON m.match_id = o.match_id
		WHERE o.odd_id=$1
		FOR SHARE OF m`, oddID).
		Scan(&q.ID, &q.MatchID, &q.PlayerID, &q.Type, &q.Value, &q.Line, &q.Active, &q.MatchStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OddQuote{}, fmt.Errorf("%w: odd %d", ledger.ErrNotFound, oddID)
	}
	if err != nil {
		return model.OddQuote{}, fmt.Errorf("read odd: %w", err)
	}
	return q, nil
}

func (o pgOdds) DeactivateForMatch(ctx context.Context, matchID int64) error {
	if _, err := o.tx.ExecContext(ctx, `UPDATE odds SET is_active=FALSE WHERE match_id=$1`, matchID); err != nil {
		return fmt.Errorf("deactivate odds: %w", err)
	}
	return nil
}
