package repo

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
)

// staged são as escritas ainda não commitadas de uma unidade de trabalho
type staged struct {
	balances map[int64]decimal.Decimal
	bets     map[int64]model.Bet
	matches  map[int64]model.Match
	odds     map[int64]model.Odd
	entries  []model.LedgerEntry
}

func newStaged() staged {
	return staged{
		balances: map[int64]decimal.Decimal{},
		bets:     map[int64]model.Bet{},
		matches:  map[int64]model.Match{},
		odds:     map[int64]model.Odd{},
	}
}

func (s staged) clone() staged {
	c := newStaged()
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.bets {
		c.bets[k] = v
	}
	for k, v := range s.matches {
		c.matches[k] = v
	}
	for k, v := range s.odds {
		c.odds[k] = v
	}
	c.entries = append([]model.LedgerEntry(nil), s.entries...)
	return c
}

type memTx struct {
	m          *Memory
	locks      *heldLocks
	st         staged
	savepoints map[string]staged
}

func (t *memTx) Balances() ledger.Balances { return memBalances{t} }
func (t *memTx) Bets() ledger.Bets         { return memBets{t} }
func (t *memTx) Matches() ledger.Matches   { return memMatches{t} }
func (t *memTx) Odds() ledger.Odds         { return memOdds{t} }

func (t *memTx) Savepoint(_ context.Context, name string) error {
	t.savepoints[name] = t.st.clone()
	return nil
}

func (t *memTx) RollbackTo(_ context.Context, name string) error {
	sp, ok := t.savepoints[name]
	if !ok {
		return fmt.Errorf("savepoint %q does not exist", name)
	}
	t.st = sp.clone()
	return nil
}

func (t *memTx) Release(_ context.Context, name string) error {
	if _, ok := t.savepoints[name]; !ok {
		return fmt.Errorf("savepoint %q does not exist", name)
	}
	delete(t.savepoints, name)
	return nil
}

// commit aplica as escritas de uma vez; leitores fora da unidade nunca veem estado parcial
func (t *memTx) commit() {
	m := t.m
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, bal := range t.st.balances {
		u := m.users[id]
		u.Balance = bal
		m.users[id] = u
	}
	for id, b := range t.st.bets {
		m.bets[id] = b
	}
	for id, mt := range t.st.matches {
		m.matches[id] = mt
	}
	for id, o := range t.st.odds {
		m.odds[id] = o
	}
	m.entries = append(m.entries, t.st.entries...)
}

// leituras: escrita da própria unidade primeiro, depois o estado commitado

func (t *memTx) balance(userID int64) (decimal.Decimal, bool) {
	if b, ok := t.st.balances[userID]; ok {
		return b, true
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	u, ok := t.m.users[userID]
	return u.Balance, ok
}

func (t *memTx) bet(betID int64) (model.Bet, bool) {
	if b, ok := t.st.bets[betID]; ok {
		return b, true
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	b, ok := t.m.bets[betID]
	return b, ok
}

func (t *memTx) match(matchID int64) (model.Match, bool) {
	if mt, ok := t.st.matches[matchID]; ok {
		return mt, true
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	mt, ok := t.m.matches[matchID]
	return mt, ok
}

func (t *memTx) odd(oddID int64) (model.Odd, bool) {
	if o, ok := t.st.odds[oddID]; ok {
		return o, true
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	o, ok := t.m.odds[oddID]
	return o, ok
}

type memBalances struct{ t *memTx }

func (b memBalances) GetForUpdate(ctx context.Context, userID int64) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	if err := b.t.locks.acquire(userKey(userID), lockExclusive); err != nil {
		return decimal.Zero, err
	}
	bal, ok := b.t.balance(userID)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: user %d", ledger.ErrNotFound, userID)
	}
	return bal, nil
}

func (b memBalances) Adjust(_ context.Context, userID int64, delta decimal.Decimal, memo model.Memo) error {
	if !b.t.locks.holds(userKey(userID), lockExclusive) {
		return fmt.Errorf("adjust user %d without holding its lock", userID)
	}
	bal, ok := b.t.balance(userID)
	if !ok {
		return fmt.Errorf("%w: user %d", ledger.ErrNotFound, userID)
	}
	next := bal.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: balance %s, delta %s", ledger.ErrInsufficientFunds, bal, delta)
	}
	b.t.st.balances[userID] = next
	b.t.st.entries = append(b.t.st.entries, model.LedgerEntry{
		ID:        b.t.m.entrySeq.Add(1),
		UserID:    userID,
		Kind:      memo.Kind,
		Amount:    delta,
		BetID:     memo.BetID,
		CreatedAt: b.t.m.now(),
	})
	return nil
}

type memBets struct{ t *memTx }

func (b memBets) Create(_ context.Context, userID, oddID int64, stake decimal.Decimal) (model.Bet, error) {
	if !stake.IsPositive() {
		return model.Bet{}, fmt.Errorf("%w: stake must be positive", ledger.ErrInvalidInput)
	}
	bet := model.Bet{
		ID:       b.t.m.betSeq.Add(1),
		UserID:   userID,
		OddID:    oddID,
		Stake:    stake,
		Status:   model.BetPending,
		Payout:   decimal.Zero,
		PlacedAt: b.t.m.now(),
	}
	if err := b.t.locks.acquire(betKey(bet.ID), lockExclusive); err != nil {
		return model.Bet{}, err
	}
	b.t.st.bets[bet.ID] = bet
	return bet, nil
}

func (b memBets) GetForUpdate(ctx context.Context, betID int64) (model.Bet, error) {
	if err := ctx.Err(); err != nil {
		return model.Bet{}, err
	}
	if err := b.t.locks.acquire(betKey(betID), lockExclusive); err != nil {
		return model.Bet{}, err
	}
	bet, ok := b.t.bet(betID)
	if !ok {
		return model.Bet{}, fmt.Errorf("%w: bet %d", ledger.ErrNotFound, betID)
	}
	return bet, nil
}

// PendingForMatch trava as apostas candidatas em ordem de id e relê o status
// depois da trava, descartando as que outra unidade já tirou de pending
func (b memBets) PendingForMatch(ctx context.Context, matchID int64) ([]model.PendingBet, error) {
	ids := b.candidates(matchID)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]model.PendingBet, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.t.locks.acquire(betKey(id), lockExclusive); err != nil {
			return nil, err
		}
		bet, ok := b.t.bet(id)
		if !ok || bet.Status != model.BetPending {
			continue
		}
		odd, _ := b.t.odd(bet.OddID)
		out = append(out, model.PendingBet{Bet: bet, Odd: odd})
	}
	return out, nil
}

func (b memBets) candidates(matchID int64) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	add := func(bet model.Bet) {
		if seen[bet.ID] || bet.Status != model.BetPending {
			return
		}
		if o, ok := b.t.odd(bet.OddID); ok && o.MatchID == matchID {
			seen[bet.ID] = true
			ids = append(ids, bet.ID)
		}
	}

	for _, bet := range b.t.st.bets {
		add(bet)
	}
	b.t.m.mu.RLock()
	committed := make([]model.Bet, 0, len(b.t.m.bets))
	for _, bet := range b.t.m.bets {
		committed = append(committed, bet)
	}
	b.t.m.mu.RUnlock()
	for _, bet := range committed {
		add(bet)
	}
	return ids
}

func (b memBets) Resolve(_ context.Context, betID int64, status model.BetStatus, payout decimal.Decimal) error {
	if status != model.BetWon && status != model.BetLost {
		return fmt.Errorf("%w: resolve to %s", ledger.ErrInvalidTransition, status)
	}
	return b.transition(betID, status, payout)
}

func (b memBets) Revoke(_ context.Context, betID int64) error {
	return b.transition(betID, model.BetRevoked, decimal.Zero)
}

func (b memBets) transition(betID int64, status model.BetStatus, payout decimal.Decimal) error {
	if !b.t.locks.holds(betKey(betID), lockExclusive) {
		return fmt.Errorf("update bet %d without holding its lock", betID)
	}
	bet, ok := b.t.bet(betID)
	if !ok {
		return fmt.Errorf("%w: bet %d", ledger.ErrNotFound, betID)
	}
	if bet.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidTransition, bet.Status, status)
	}
	now := b.t.m.now()
	bet.Status = status
	bet.Payout = payout
	bet.ResolvedAt = &now
	b.t.st.bets[betID] = bet
	return nil
}

type memMatches struct{ t *memTx }

func (m memMatches) GetForUpdate(ctx context.Context, matchID int64) (model.Match, error) {
	if err := ctx.Err(); err != nil {
		return model.Match{}, err
	}
	if err := m.t.locks.acquire(matchKey(matchID), lockExclusive); err != nil {
		return model.Match{}, err
	}
	mt, ok := m.t.match(matchID)
	if !ok {
		return model.Match{}, fmt.Errorf("%w: match %d", ledger.ErrNotFound, matchID)
	}
	return mt, nil
}

func (m memMatches) Finish(_ context.Context, matchID int64, outcome model.Outcome) error {
	if !m.t.locks.holds(matchKey(matchID), lockExclusive) {
		return fmt.Errorf("finish match %d without holding its lock", matchID)
	}
	mt, ok := m.t.match(matchID)
	if !ok {
		return fmt.Errorf("%w: match %d", ledger.ErrNotFound, matchID)
	}
	if mt.Status != model.MatchPending {
		return fmt.Errorf("%w: match %d is %s", ledger.ErrInvalidState, matchID, mt.Status)
	}
	now := m.t.m.now()
	mt.Outcome = outcome
	mt.Status = model.MatchFinished
	mt.SettledAt = &now
	m.t.st.matches[matchID] = mt
	return nil
}

type memOdds struct{ t *memTx }

// GetForShare lê a odd e trava a partida dela em modo compartilhado
func (o memOdds) GetForShare(ctx context.Context, oddID int64) (model.OddQuote, error) {
	if err := ctx.Err(); err != nil {
		return model.OddQuote{}, err
	}
	odd, ok := o.t.odd(oddID)
	if !ok {
		return model.OddQuote{}, fmt.Errorf("%w: odd %d", ledger.ErrNotFound, oddID)
	}
	if err := o.t.locks.acquire(matchKey(odd.MatchID), lockShared); err != nil {
		return model.OddQuote{}, err
	}
	// relê depois da trava: a liquidação pode ter acabado de desativar a odd
	odd, _ = o.t.odd(oddID)
	mt, ok := o.t.match(odd.MatchID)
	if !ok {
		return model.OddQuote{}, fmt.Errorf("%w: match %d", ledger.ErrNotFound, odd.MatchID)
	}
	return model.OddQuote{Odd: odd, MatchStatus: mt.Status}, nil
}

func (o memOdds) DeactivateForMatch(_ context.Context, matchID int64) error {
	if !o.t.locks.holds(matchKey(matchID), lockExclusive) {
		return fmt.Errorf("deactivate odds of match %d without holding its lock", matchID)
	}
	o.t.m.mu.RLock()
	var ids []int64
	for id, odd := range o.t.m.odds {
		if odd.MatchID == matchID {
			ids = append(ids, id)
		}
	}
	o.t.m.mu.RUnlock()

	for _, id := range ids {
		odd, _ := o.t.odd(id)
		odd.Active = false
		o.t.st.odds[id] = odd
	}
	return nil
}
