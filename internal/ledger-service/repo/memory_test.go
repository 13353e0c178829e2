package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
)

func seedMemory(t *testing.T) (*Memory, model.User, model.Odd) {
	t.Helper()
	ctx := context.Background()
	m := NewMemory()
	u, err := m.CreateUser(ctx, "alice", "hash", decimal.NewFromInt(50))
	if err != nil {
		t.Fatal(err)
	}
	p1, _ := m.CreatePlayer(ctx, "Ana", "BR")
	p2, _ := m.CreatePlayer(ctx, "Bia", "PT")
	mt, err := m.CreateMatch(ctx, p1.ID, p2.ID, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	o, err := m.CreateOdd(ctx, model.Odd{MatchID: mt.ID, PlayerID: &p1.ID, Type: model.OddToWin, Value: decimal.NewFromInt(2)})
	if err != nil {
		t.Fatal(err)
	}
	return m, u, o
}

func TestAdjustRequiresLock(t *testing.T) {
	m, u, _ := seedMemory(t)
	err := m.Within(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		return tx.Balances().Adjust(ctx, u.ID, decimal.NewFromInt(1), model.Memo{Kind: model.EntryRefund})
	})
	if err == nil {
		t.Fatal("adjust without lock should fail")
	}
	if bal, _ := m.Balance(context.Background(), u.ID); !bal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("balance = %s", bal)
	}
}

func TestAdjustNeverGoesNegative(t *testing.T) {
	m, u, _ := seedMemory(t)
	err := m.Within(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.Balances().GetForUpdate(ctx, u.ID); err != nil {
			return err
		}
		return tx.Balances().Adjust(ctx, u.ID, decimal.NewFromInt(-51), model.Memo{Kind: model.EntryStake})
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("err = %v", err)
	}
}

func TestFailedUnitOfWorkLeavesNoTrace(t *testing.T) {
	m, u, o := seedMemory(t)
	boom := errors.New("boom")
	err := m.Within(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.Balances().GetForUpdate(ctx, u.ID); err != nil {
			return err
		}
		bet, err := tx.Bets().Create(ctx, u.ID, o.ID, decimal.NewFromInt(10))
		if err != nil {
			return err
		}
		if err := tx.Balances().Adjust(ctx, u.ID, decimal.NewFromInt(-10), model.Memo{Kind: model.EntryStake, BetID: bet.ID}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	bets, _ := m.BetsForUser(context.Background(), u.ID)
	if len(bets) != 0 || len(m.Entries(u.ID)) != 0 {
		t.Fatal("aborted unit of work leaked writes")
	}
}

func TestSavepointRollback(t *testing.T) {
	m, u, o := seedMemory(t)
	ctx := context.Background()

	var betID int64
	err := m.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		bet, err := tx.Bets().Create(ctx, u.ID, o.ID, decimal.NewFromInt(10))
		if err != nil {
			return err
		}
		betID = bet.ID
		if _, err := tx.Balances().GetForUpdate(ctx, u.ID); err != nil {
			return err
		}
		if err := tx.Savepoint(ctx, "sp"); err != nil {
			return err
		}
		if err := tx.Bets().Resolve(ctx, bet.ID, model.BetWon, decimal.NewFromInt(20)); err != nil {
			return err
		}
		if err := tx.Balances().Adjust(ctx, u.ID, decimal.NewFromInt(20), model.Memo{Kind: model.EntryPayout, BetID: bet.ID}); err != nil {
			return err
		}
		return tx.RollbackTo(ctx, "sp")
	})
	if err != nil {
		t.Fatal(err)
	}

	bets, _ := m.BetsForUser(ctx, u.ID)
	if len(bets) != 1 || bets[0].ID != betID || bets[0].Status != model.BetPending {
		t.Fatalf("bets = %+v", bets)
	}
	if bal, _ := m.Balance(ctx, u.ID); !bal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("balance = %s", bal)
	}
}

func TestResolveOnlyFromPending(t *testing.T) {
	m, u, o := seedMemory(t)
	ctx := context.Background()
	err := m.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		bet, err := tx.Bets().Create(ctx, u.ID, o.ID, decimal.NewFromInt(10))
		if err != nil {
			return err
		}
		if err := tx.Bets().Revoke(ctx, bet.ID); err != nil {
			return err
		}
		return tx.Bets().Resolve(ctx, bet.ID, model.BetWon, decimal.NewFromInt(20))
	})
	if !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Fatalf("err = %v", err)
	}
}

func TestLockUpgradeIsRefused(t *testing.T) {
	m, _, o := seedMemory(t)
	err := m.Within(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.Odds().GetForShare(ctx, o.ID); err != nil {
			return err
		}
		_, err := tx.Matches().GetForUpdate(ctx, o.MatchID)
		return err
	})
	if err == nil {
		t.Fatal("shared to exclusive upgrade should fail")
	}
}

func TestCreateUserFirstIsAdminAndUnique(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a, _ := m.CreateUser(ctx, "alice", "h", decimal.Zero)
	b, _ := m.CreateUser(ctx, "bob", "h", decimal.Zero)
	if !a.IsAdmin || b.IsAdmin {
		t.Fatal("only the first user is admin")
	}
	if _, err := m.CreateUser(ctx, "Alice", "h", decimal.Zero); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateBetRejectsNonPositiveStake(t *testing.T) {
	m, u, o := seedMemory(t)
	for _, stake := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		err := m.Within(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
			_, err := tx.Bets().Create(ctx, u.ID, o.ID, stake)
			return err
		})
		if !errors.Is(err, ledger.ErrInvalidInput) {
			t.Fatalf("stake %s: err = %v", stake, err)
		}
	}
	if bets, _ := m.BetsForUser(context.Background(), u.ID); len(bets) != 0 {
		t.Fatalf("bets = %+v", bets)
	}
}
