// Package catalog mantém jogadores, partidas e odds que o ledger consome.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
	"github.com/radieske/wager-ledger/internal/ledger-service/rules"
)

type Store interface {
	CreatePlayer(ctx context.Context, name, country string) (model.Player, error)
	ListPlayers(ctx context.Context) ([]model.Player, error)
	CreateMatch(ctx context.Context, playerOneID, playerTwoID int64, at time.Time) (model.Match, error)
	Match(ctx context.Context, matchID int64) (model.Match, error)
	CreateOdd(ctx context.Context, o model.Odd) (model.Odd, error)
	ListOpenMatches(ctx context.Context) ([]model.MatchCard, error)
}

// NewOdd é a odd a publicar; Line só vale para tipos over/under
type NewOdd struct {
	MatchID  int64
	PlayerID *int64
	Type     model.OddType
	Value    decimal.Decimal
	Line     decimal.NullDecimal
}

type Service struct {
	log   *zap.Logger
	store Store
	cache Cache // opcional
	ttl   time.Duration
}

func NewService(log *zap.Logger, store Store, cache Cache, ttl time.Duration) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log, store: store, cache: cache, ttl: ttl}
}

func (s *Service) CreatePlayer(ctx context.Context, name, country string) (model.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Player{}, fmt.Errorf("%w: player name is required", ledger.ErrInvalidInput)
	}
	return s.store.CreatePlayer(ctx, name, strings.TrimSpace(country))
}

func (s *Service) ListPlayers(ctx context.Context) ([]model.Player, error) {
	return s.store.ListPlayers(ctx)
}

func (s *Service) CreateMatch(ctx context.Context, playerOneID, playerTwoID int64, at time.Time) (model.Match, error) {
	if playerOneID <= 0 || playerTwoID <= 0 {
		return model.Match{}, fmt.Errorf("%w: both players are required", ledger.ErrInvalidInput)
	}
	if playerOneID == playerTwoID {
		return model.Match{}, fmt.Errorf("%w: a player cannot face themselves", ledger.ErrInvalidInput)
	}
	if at.IsZero() {
		return model.Match{}, fmt.Errorf("%w: match_time is required", ledger.ErrInvalidInput)
	}
	m, err := s.store.CreateMatch(ctx, playerOneID, playerTwoID, at.UTC())
	if err != nil {
		return model.Match{}, err
	}
	s.InvalidateOpenMatches(ctx)
	return m, nil
}

// CreateOdd valida a odd contra o tipo e a partida antes de publicar
func (s *Service) CreateOdd(ctx context.Context, in NewOdd) (model.Odd, error) {
	if !rules.Recognized(in.Type) {
		return model.Odd{}, fmt.Errorf("%w: unknown odd type %q", ledger.ErrInvalidInput, in.Type)
	}
	if !in.Value.IsPositive() {
		return model.Odd{}, fmt.Errorf("%w: odd_value must be greater than zero", ledger.ErrInvalidInput)
	}
	if rules.NeedsLine(in.Type) && !in.Line.Valid {
		return model.Odd{}, fmt.Errorf("%w: odd type %s requires odd_line", ledger.ErrInvalidInput, in.Type)
	}
	if !rules.NeedsLine(in.Type) {
		in.Line = decimal.NullDecimal{}
	}

	m, err := s.store.Match(ctx, in.MatchID)
	if err != nil {
		return model.Odd{}, err
	}
	if rules.NeedsParticipant(in.Type) {
		if in.PlayerID == nil {
			return model.Odd{}, fmt.Errorf("%w: odd type %s requires player_id", ledger.ErrInvalidInput, in.Type)
		}
		if !m.HasParticipant(*in.PlayerID) {
			return model.Odd{}, fmt.Errorf("%w: player %d is not in match %d", ledger.ErrInvalidInput, *in.PlayerID, m.ID)
		}
	} else {
		in.PlayerID = nil
	}

	o, err := s.store.CreateOdd(ctx, model.Odd{
		MatchID:  in.MatchID,
		PlayerID: in.PlayerID,
		Type:     in.Type,
		Value:    in.Value,
		Line:     in.Line,
	})
	if err != nil {
		return model.Odd{}, err
	}
	s.InvalidateOpenMatches(ctx)
	return o, nil
}

// ListOpenMatches serve do cache quando possível; falha de cache nunca derruba a leitura
func (s *Service) ListOpenMatches(ctx context.Context) ([]model.MatchCard, error) {
	if s.cache != nil {
		var cached []model.MatchCard
		ok, err := s.cache.GetOpenMatches(ctx, &cached)
		if err != nil {
			s.log.Warn("catalog cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	cards, err := s.store.ListOpenMatches(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetOpenMatches(ctx, cards, s.ttl); err != nil {
			s.log.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return cards, nil
}

// InvalidateOpenMatches descarta a listagem em cache (após escrita ou liquidação)
func (s *Service) InvalidateOpenMatches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOpenMatches(ctx); err != nil {
		s.log.Warn("catalog cache invalidate failed", zap.Error(err))
	}
}
