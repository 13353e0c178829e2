package repo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
)

type userRow struct {
	model.User
	hash string
}

// Memory é o store em processo: mesmas garantias do Postgres (travas por entidade
// até o commit, escrita atômica no commit), usado em ambiente local e nos testes
type Memory struct {
	mu    sync.RWMutex
	locks *lockTable
	now   func() time.Time

	userSeq, playerSeq, matchSeq, oddSeq, betSeq, entrySeq atomic.Int64

	users   map[int64]userRow
	players map[int64]model.Player
	matches map[int64]model.Match
	odds    map[int64]model.Odd
	bets    map[int64]model.Bet
	entries []model.LedgerEntry
}

func NewMemory() *Memory {
	return &Memory{
		locks:   newLockTable(),
		now:     func() time.Time { return time.Now().UTC() },
		users:   make(map[int64]userRow),
		players: make(map[int64]model.Player),
		matches: make(map[int64]model.Match),
		odds:    make(map[int64]model.Odd),
		bets:    make(map[int64]model.Bet),
	}
}

// Within abre uma unidade de trabalho; travas são liberadas na saída, com ou sem commit
func (m *Memory) Within(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{m: m, locks: newHeldLocks(m.locks), st: newStaged(), savepoints: map[string]staged{}}
	defer tx.locks.releaseAll()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Balance lê o saldo commitado
func (m *Memory) Balance(_ context.Context, userID int64) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: user %d", ledger.ErrNotFound, userID)
	}
	return u.Balance, nil
}

// BetsForUser lista as apostas do usuário, mais recentes primeiro
func (m *Memory) BetsForUser(_ context.Context, userID int64) ([]model.BetView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.BetView{}
	for _, b := range m.bets {
		if b.UserID != userID {
			continue
		}
		o := m.odds[b.OddID]
		mt := m.matches[o.MatchID]
		out = append(out, model.BetView{
			Bet:           b,
			OddType:       o.Type,
			OddValue:      o.Value,
			OddLine:       o.Line,
			MatchID:       mt.ID,
			MatchTime:     mt.MatchTime,
			MatchStatus:   mt.Status,
			PlayerOneName: m.players[mt.PlayerOneID].Name,
			PlayerTwoName: m.players[mt.PlayerTwoID].Name,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.After(out[j].PlacedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Entries devolve uma cópia do balance_ledger de um usuário
func (m *Memory) Entries(userID int64) []model.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.LedgerEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// CreateUser cadastra o usuário; o primeiro cadastrado vira admin
func (m *Memory) CreateUser(_ context.Context, username, passwordHash string, balance decimal.Decimal) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return model.User{}, fmt.Errorf("%w: username already taken", ledger.ErrConflict)
		}
	}
	u := model.User{
		ID:        m.userSeq.Add(1),
		Username:  username,
		IsAdmin:   len(m.users) == 0,
		Balance:   balance,
		CreatedAt: m.now(),
	}
	m.users[u.ID] = userRow{User: u, hash: passwordHash}
	return u, nil
}

func (m *Memory) FindUserByUsername(_ context.Context, username string) (model.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return model.Credentials{User: u.User, PasswordHash: u.hash}, nil
		}
	}
	return model.Credentials{}, fmt.Errorf("%w: user %q", ledger.ErrNotFound, username)
}

func (m *Memory) CreatePlayer(_ context.Context, name, country string) (model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := model.Player{ID: m.playerSeq.Add(1), Name: name, Country: country}
	m.players[p.ID] = p
	return p, nil
}

func (m *Memory) ListPlayers(_ context.Context) ([]model.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) CreateMatch(_ context.Context, playerOneID, playerTwoID int64, at time.Time) (model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range []int64{playerOneID, playerTwoID} {
		if _, ok := m.players[id]; !ok {
			return model.Match{}, fmt.Errorf("%w: player %d", ledger.ErrNotFound, id)
		}
	}
	mt := model.Match{
		ID:          m.matchSeq.Add(1),
		PlayerOneID: playerOneID,
		PlayerTwoID: playerTwoID,
		MatchTime:   at,
		Status:      model.MatchPending,
	}
	m.matches[mt.ID] = mt
	return mt, nil
}

func (m *Memory) Match(_ context.Context, matchID int64) (model.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.matches[matchID]
	if !ok {
		return model.Match{}, fmt.Errorf("%w: match %d", ledger.ErrNotFound, matchID)
	}
	return mt, nil
}

// CreateOdd publica uma odd ativa numa partida ainda pendente
func (m *Memory) CreateOdd(_ context.Context, o model.Odd) (model.Odd, error) {
	// trava compartilhada na partida: não cruza com uma liquidação em andamento
	held := newHeldLocks(m.locks)
	if err := held.acquire(matchKey(o.MatchID), lockShared); err != nil {
		return model.Odd{}, err
	}
	defer held.releaseAll()

	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[o.MatchID]
	if !ok {
		return model.Odd{}, fmt.Errorf("%w: match %d", ledger.ErrNotFound, o.MatchID)
	}
	if mt.Status != model.MatchPending {
		return model.Odd{}, fmt.Errorf("%w: match %d is %s", ledger.ErrInvalidState, mt.ID, mt.Status)
	}
	o.ID = m.oddSeq.Add(1)
	o.Active = true
	m.odds[o.ID] = o
	return o, nil
}

// ListOpenMatches lista partidas pendentes com suas odds ativas, por horário
func (m *Memory) ListOpenMatches(_ context.Context) ([]model.MatchCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.MatchCard{}
	for _, mt := range m.matches {
		if mt.Status != model.MatchPending {
			continue
		}
		card := model.MatchCard{
			ID:            mt.ID,
			MatchTime:     mt.MatchTime,
			Status:        mt.Status,
			PlayerOneID:   mt.PlayerOneID,
			PlayerTwoID:   mt.PlayerTwoID,
			PlayerOneName: m.players[mt.PlayerOneID].Name,
			PlayerTwoName: m.players[mt.PlayerTwoID].Name,
			Odds:          []model.Odd{},
		}
		for _, o := range m.odds {
			if o.MatchID == mt.ID && o.Active {
				card.Odds = append(card.Odds, o)
			}
		}
		sort.Slice(card.Odds, func(i, j int) bool { return card.Odds[i].ID < card.Odds[j].ID })
		out = append(out, card)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MatchTime.Equal(out[j].MatchTime) {
			return out[i].MatchTime.Before(out[j].MatchTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Ping satisfaz o health check
func (m *Memory) Ping(context.Context) error { return nil }
