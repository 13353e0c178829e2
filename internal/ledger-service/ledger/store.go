package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/radieske/wager-ledger/internal/ledger-service/model"
)

// Balances é o livro de saldos. Só ele altera o saldo de um usuário.
type Balances interface {
	// GetForUpdate lê o saldo e trava a linha do usuário até o fim da unidade de trabalho
	GetForUpdate(ctx context.Context, userID int64) (decimal.Decimal, error)
	// Adjust aplica balance += delta; exige a trava obtida por GetForUpdate
	Adjust(ctx context.Context, userID int64, delta decimal.Decimal, memo model.Memo) error
}

// Bets guarda o ciclo de vida das apostas: pending → won | lost | revoked
type Bets interface {
	Create(ctx context.Context, userID, oddID int64, stake decimal.Decimal) (model.Bet, error)
	GetForUpdate(ctx context.Context, betID int64) (model.Bet, error)
	// PendingForMatch trava e retorna as apostas pendentes das odds da partida
	PendingForMatch(ctx context.Context, matchID int64) ([]model.PendingBet, error)
	Resolve(ctx context.Context, betID int64, status model.BetStatus, payout decimal.Decimal) error
	Revoke(ctx context.Context, betID int64) error
}

type Matches interface {
	GetForUpdate(ctx context.Context, matchID int64) (model.Match, error)
	// Finish grava o resultado e marca a partida como finished
	Finish(ctx context.Context, matchID int64, outcome model.Outcome) error
}

type Odds interface {
	// GetForShare lê a odd e trava a partida em modo compartilhado
	GetForShare(ctx context.Context, oddID int64) (model.OddQuote, error)
	DeactivateForMatch(ctx context.Context, matchID int64) error
}

// Tx é a visão de uma unidade de trabalho aberta
type Tx interface {
	Balances() Balances
	Bets() Bets
	Matches() Matches
	Odds() Odds

	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
}

// UnitOfWork executa fn de forma atômica: commit se fn retorna nil, rollback caso contrário.
// As travas adquiridas dentro de fn são liberadas só no commit ou rollback.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Reader faz leituras fora de unidade de trabalho (dados já commitados)
type Reader interface {
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	BetsForUser(ctx context.Context, userID int64) ([]model.BetView, error)
}

type Store interface {
	UnitOfWork
	Reader
}
