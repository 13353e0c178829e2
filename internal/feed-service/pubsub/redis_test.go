package pubsub

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/feed-service/ws"
)

type chanHub chan ws.Update

func (c chanHub) Broadcast(u ws.Update) int {
	c <- u
	return 1
}

// Integração contra um Redis real; roda só com FEED_TEST_REDIS_ADDR definido
func TestFanoutThroughRedis(t *testing.T) {
	addr := os.Getenv("FEED_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("FEED_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := make(chanHub, 1)
	StartRedisSubscriber(ctx, rdb, hub, zap.NewNop())

	b := NewRedisBroadcaster(rdb, nil)
	want := ws.Update{Type: "match_settled", MatchID: 42, Payload: json.RawMessage(`{"match_id":42}`)}

	// a assinatura é assíncrona; republica até alguém receber
	deadline := time.Now().Add(3 * time.Second)
	for b.Broadcast(want) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no subscriber received the update")
		}
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case got := <-hub:
		if got.MatchID != 42 || got.Type != "match_settled" {
			t.Fatalf("update = %+v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for fanout")
	}
}
