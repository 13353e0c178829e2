package producer

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"

	skafka "github.com/radieske/wager-ledger/internal/shared/kafka"
	"github.com/radieske/wager-ledger/pkg/contracts/events"
)

// Topics mapeia cada evento de domínio para o tópico configurado
type Topics struct {
	BetPlaced    string
	BetRevoked   string
	BetSettled   string
	MatchSettled string
}

// KafkaPublisher publica os eventos do ledger; chave = id da aposta ou da partida,
// para manter a ordem por entidade dentro da partição
type KafkaPublisher struct {
	Writer *kafka.Writer
	Topics Topics
}

func NewKafkaPublisher(w *kafka.Writer, t Topics) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topics: t}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	return skafka.WriteTopicJSON(ctx, p.Writer, p.Topics.BetPlaced, key(e.BetID), e)
}

func (p *KafkaPublisher) PublishBetRevoked(ctx context.Context, e events.BetRevoked) error {
	return skafka.WriteTopicJSON(ctx, p.Writer, p.Topics.BetRevoked, key(e.BetID), e)
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	return skafka.WriteTopicJSON(ctx, p.Writer, p.Topics.BetSettled, key(e.MatchID), e)
}

func (p *KafkaPublisher) PublishMatchSettled(ctx context.Context, e events.MatchSettled) error {
	return skafka.WriteTopicJSON(ctx, p.Writer, p.Topics.MatchSettled, key(e.MatchID), e)
}

func key(id int64) string { return strconv.FormatInt(id, 10) }
