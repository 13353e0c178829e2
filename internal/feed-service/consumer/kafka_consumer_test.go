package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/feed-service/ws"
	"github.com/radieske/wager-ledger/pkg/contracts/events"
	"github.com/radieske/wager-ledger/pkg/contracts/topics"
)

// fakeReader entrega as mensagens em ordem e depois cancela o contexto do teste
type fakeReader struct {
	msgs   []kafka.Message
	errs   []error
	cancel context.CancelFunc
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

type fakeHub struct {
	mu      sync.Mutex
	updates []ws.Update
}

func (h *fakeHub) Broadcast(u ws.Update) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, u)
	return 1
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestProcessorRoutesByTopic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel: cancel,
		errs:   []error{errors.New("broker down")},
		msgs: []kafka.Message{
			{Topic: topics.MatchSettled, Value: mustJSON(t, events.MatchSettled{MatchID: 7, Processed: 2})},
			{Topic: topics.BetSettled, Value: mustJSON(t, events.BetSettled{BetID: 3, MatchID: 7, Status: "won"})},
			{Topic: topics.BetSettled, Value: []byte("{not json")},
			{Topic: topics.BetSettled, Value: mustJSON(t, events.BetSettled{BetID: 4})},
			{Topic: "other", Value: mustJSON(t, events.BetSettled{BetID: 5, MatchID: 7})},
		},
	}
	hub := &fakeHub{}
	stages := map[string]int{}
	consumed := 0
	p := &Processor{
		Log:        zap.NewNop(),
		Reader:     reader,
		Hub:        hub,
		OnConsumed: func() { consumed++ },
		OnError:    func(s string) { stages[s]++ },
		retryDelay: time.Millisecond,
	}

	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("run err = %v", err)
	}
	if consumed != 5 {
		t.Fatalf("consumed = %d", consumed)
	}
	if stages["read"] != 1 || stages["decode"] != 3 {
		t.Fatalf("error stages = %v", stages)
	}
	if len(hub.updates) != 2 {
		t.Fatalf("updates = %+v", hub.updates)
	}
	if hub.updates[0].Type != "match_settled" || hub.updates[0].MatchID != 7 {
		t.Fatalf("first update = %+v", hub.updates[0])
	}
	var bet events.BetSettled
	if err := json.Unmarshal(hub.updates[1].Payload, &bet); err != nil || bet.BetID != 3 {
		t.Fatalf("bet payload = %s (%v)", hub.updates[1].Payload, err)
	}
}

func TestProcessorUsesConfiguredTopics(t *testing.T) {
	p := &Processor{Topics: Topics{BetSettled: "prod.bet_settled"}}
	u, err := p.decode(kafka.Message{Topic: "prod.bet_settled", Value: []byte(`{"match_id":9}`)})
	if err != nil || u.Type != "bet_settled" || u.MatchID != 9 {
		t.Fatalf("update = %+v err = %v", u, err)
	}
	if _, err := p.decode(kafka.Message{Topic: topics.BetSettled, Value: []byte(`{"match_id":9}`)}); err == nil {
		t.Fatal("default topic name should not match when overridden")
	}
}
