package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/ledger-service/model"
	"github.com/radieske/wager-ledger/pkg/contracts/events"
)

// Publisher recebe os eventos de domínio depois do commit
type Publisher interface {
	PublishBetPlaced(context.Context, events.BetPlaced) error
	PublishBetRevoked(context.Context, events.BetRevoked) error
	PublishBetSettled(context.Context, events.BetSettled) error
	PublishMatchSettled(context.Context, events.MatchSettled) error
}

// Hooks são callbacks de métricas; qualquer um pode ser nil
type Hooks struct {
	OnPlaced       func()
	OnRevoked      func()
	OnResolved     func(status model.BetStatus)
	OnBetFailure   func()
	OnUnknownOdd   func(oddType string)
	OnPublishError func(topic string)
}

// Service orquestra colocação, liquidação e estorno de apostas
type Service struct {
	log   *zap.Logger
	store Store
	publ  Publisher
	hooks Hooks
	now   func() time.Time
}

// NewService instancia o núcleo do ledger. publ pode ser nil (eventos descartados).
func NewService(log *zap.Logger, store Store, publ Publisher, hooks Hooks) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log, store: store, publ: publ, hooks: hooks, now: time.Now}
}

// Placement é o resultado de uma aposta aceita
type Placement struct {
	Bet        model.Bet       `json:"bet"`
	NewBalance decimal.Decimal `json:"newBalance"`
}

// SettlementReport resume uma liquidação
type SettlementReport struct {
	MatchID     int64           `json:"match_id"`
	Processed   int             `json:"processed"`
	Won         int             `json:"won"`
	Lost        int             `json:"lost"`
	Failed      int             `json:"failed"`
	TotalPayout decimal.Decimal `json:"total_payout"`
}

// GetBalance retorna o saldo commitado do usuário
func (s *Service) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return s.store.Balance(ctx, userID)
}

// ListBetsForUser retorna as apostas do usuário, mais recentes primeiro
func (s *Service) ListBetsForUser(ctx context.Context, userID int64) ([]model.BetView, error) {
	return s.store.BetsForUser(ctx, userID)
}

func (s *Service) publishFailed(topic string, err error) {
	s.log.Warn("publish event failed", zap.String("topic", topic), zap.Error(err))
	if s.hooks.OnPublishError != nil {
		s.hooks.OnPublishError(topic)
	}
}
