// Package pubsub espalha os eventos de liquidação entre as instâncias do feed.
// Uma instância consome do Kafka e publica no Redis; todas assinam o canal
// e entregam aos próprios clientes WebSocket.
package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/feed-service/ws"
)

const ChannelSettlementBroadcast = "settlement_broadcast"

type RedisBroadcaster struct {
	r       *redis.Client
	log     *zap.Logger
	channel string
}

func NewRedisBroadcaster(r *redis.Client, log *zap.Logger) *RedisBroadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBroadcaster{r: r, log: log, channel: ChannelSettlementBroadcast}
}

// Broadcast publica no canal; retorna quantas instâncias receberam
func (b *RedisBroadcaster) Broadcast(update ws.Update) int {
	payload, err := json.Marshal(update)
	if err != nil {
		b.log.Warn("marshal update failed", zap.Error(err))
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	n, err := b.r.Publish(ctx, b.channel, payload).Result()
	if err != nil {
		b.log.Warn("redis publish failed", zap.Int64("match_id", update.MatchID), zap.Error(err))
		return 0
	}
	return int(n)
}

// Local é quem entrega aos clientes conectados nesta instância (o Hub)
type Local interface {
	Broadcast(update ws.Update) int
}

// StartRedisSubscriber escuta o canal e repassa cada evento ao hub local
// até o contexto ser cancelado
func StartRedisSubscriber(ctx context.Context, r *redis.Client, hub Local, log *zap.Logger) {
	sub := r.Subscribe(ctx, ChannelSettlementBroadcast)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var upd ws.Update
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					log.Warn("subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(upd)
			}
		}
	}()
}
