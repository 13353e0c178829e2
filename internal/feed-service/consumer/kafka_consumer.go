package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/feed-service/ws"
	"github.com/radieske/wager-ledger/pkg/contracts/topics"
)

// MessageReader é satisfeito por *kafka.Reader
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Broadcaster interface {
	Broadcast(update ws.Update) int
}

// Topics mapeia o nome real do tópico para o tipo do evento repassado
type Topics struct {
	BetSettled   string
	MatchSettled string
}

// Processor consome eventos de liquidação do Kafka e repassa aos inscritos via WebSocket
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Hub    Broadcaster
	Topics Topics

	OnConsumed  func()       // métricas (counter++)
	OnBroadcast func(int)    // métricas
	OnError     func(string) // métricas por fase

	retryDelay time.Duration
}

// só o match_id é necessário para rotear; o payload segue intacto
type envelope struct {
	MatchID int64 `json:"match_id"`
}

// Run inicia o loop principal de consumo das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	delay := p.retryDelay
	if delay == 0 {
		delay = 500 * time.Millisecond
	}
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		update, err := p.decode(m)
		if err != nil {
			p.Log.Warn("invalid message", zap.String("topic", m.Topic), zap.Error(err))
			p.fail("decode")
			continue
		}

		n := p.Hub.Broadcast(update)
		if p.OnBroadcast != nil {
			p.OnBroadcast(n)
		}
	}
}

func (p *Processor) decode(m kafka.Message) (ws.Update, error) {
	var kind string
	switch m.Topic {
	case p.topic(p.Topics.MatchSettled, topics.MatchSettled):
		kind = "match_settled"
	case p.topic(p.Topics.BetSettled, topics.BetSettled):
		kind = "bet_settled"
	default:
		return ws.Update{}, errors.New("unexpected topic " + m.Topic)
	}

	var env envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return ws.Update{}, err
	}
	if env.MatchID <= 0 {
		return ws.Update{}, errors.New("missing match_id")
	}
	return ws.Update{Type: kind, MatchID: env.MatchID, Payload: json.RawMessage(m.Value)}, nil
}

func (p *Processor) topic(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
