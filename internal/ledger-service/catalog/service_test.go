package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/wager-ledger/internal/ledger-service/catalog"
	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
	"github.com/radieske/wager-ledger/internal/ledger-service/repo"
)

type fakeCache struct {
	data        []byte
	gets, sets  int
	invalidated int
	failGet     bool
}

func (c *fakeCache) GetOpenMatches(_ context.Context, dst any) (bool, error) {
	c.gets++
	if c.failGet {
		return false, errors.New("redis down")
	}
	if c.data == nil {
		return false, nil
	}
	return true, json.Unmarshal(c.data, dst)
}

func (c *fakeCache) SetOpenMatches(_ context.Context, v any, _ time.Duration) error {
	c.sets++
	b, err := json.Marshal(v)
	c.data = b
	return err
}

func (c *fakeCache) InvalidateOpenMatches(context.Context) error {
	c.invalidated++
	c.data = nil
	return nil
}

func ptr(v int64) *int64 { return &v }

func setup(t *testing.T) (*catalog.Service, *fakeCache, model.Match) {
	t.Helper()
	ctx := context.Background()
	cache := &fakeCache{}
	svc := catalog.NewService(nil, repo.NewMemory(), cache, time.Minute)

	a, err := svc.CreatePlayer(ctx, "Ana", "BR")
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.CreatePlayer(ctx, "Bia", "PT")
	if err != nil {
		t.Fatal(err)
	}
	m, err := svc.CreateMatch(ctx, a.ID, b.ID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	return svc, cache, m
}

func TestCreateOddValidation(t *testing.T) {
	svc, _, m := setup(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   catalog.NewOdd
		want error
	}{
		{"unknown type", catalog.NewOdd{MatchID: m.ID, Type: "most_aces", Value: decimal.NewFromInt(2)}, ledger.ErrInvalidInput},
		{"zero multiplier", catalog.NewOdd{MatchID: m.ID, Type: model.OddToWin, PlayerID: ptr(m.PlayerOneID), Value: decimal.Zero}, ledger.ErrInvalidInput},
		{"over without line", catalog.NewOdd{MatchID: m.ID, Type: model.OddTotalPointsOver, Value: decimal.NewFromInt(2)}, ledger.ErrInvalidInput},
		{"to_win without player", catalog.NewOdd{MatchID: m.ID, Type: model.OddToWin, Value: decimal.NewFromInt(2)}, ledger.ErrInvalidInput},
		{"player outside match", catalog.NewOdd{MatchID: m.ID, Type: model.OddFirstScorer, PlayerID: ptr(999), Value: decimal.NewFromInt(2)}, ledger.ErrInvalidInput},
		{"unknown match", catalog.NewOdd{MatchID: 42, Type: model.OddGamesPlayed3Yes, Value: decimal.NewFromInt(2)}, ledger.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateOdd(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateOddNormalizesFields(t *testing.T) {
	svc, _, m := setup(t)
	o, err := svc.CreateOdd(context.Background(), catalog.NewOdd{
		MatchID:  m.ID,
		Type:     model.OddGamesPlayed3Yes,
		PlayerID: ptr(m.PlayerOneID),
		Value:    decimal.RequireFromString("1.85"),
		Line:     decimal.NewNullDecimal(decimal.NewFromInt(3)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.PlayerID != nil || o.Line.Valid {
		t.Fatalf("player/line should be dropped for %s: %+v", o.Type, o)
	}
	if !o.Active {
		t.Fatal("new odd should be active")
	}
}

func TestCreateMatchRejectsSamePlayer(t *testing.T) {
	svc, _, m := setup(t)
	_, err := svc.CreateMatch(context.Background(), m.PlayerOneID, m.PlayerOneID, time.Now())
	if !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestListOpenMatchesUsesCache(t *testing.T) {
	svc, cache, m := setup(t)
	ctx := context.Background()

	if _, err := svc.CreateOdd(ctx, catalog.NewOdd{
		MatchID: m.ID, Type: model.OddToWin, PlayerID: ptr(m.PlayerTwoID), Value: decimal.RequireFromString("2.5"),
	}); err != nil {
		t.Fatal(err)
	}
	if cache.invalidated == 0 {
		t.Fatal("creating an odd should invalidate the listing")
	}

	first, err := svc.ListOpenMatches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || len(first[0].Odds) != 1 || first[0].PlayerOneName != "Ana" {
		t.Fatalf("unexpected listing: %+v", first)
	}
	if cache.sets != 1 {
		t.Fatalf("sets = %d, want 1", cache.sets)
	}

	second, err := svc.ListOpenMatches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cache.sets != 1 {
		t.Fatal("second listing should be served from cache")
	}
	if !second[0].Odds[0].Value.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("cached odd value = %s", second[0].Odds[0].Value)
	}
}

func TestListOpenMatchesSurvivesCacheFailure(t *testing.T) {
	svc, cache, _ := setup(t)
	cache.failGet = true
	cards, err := svc.ListOpenMatches(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 1 {
		t.Fatalf("cards = %d", len(cards))
	}
}
