package rules

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/radieske/wager-ledger/internal/ledger-service/model"
)

func ptr(v int64) *int64 { return &v }

func line(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestEvaluate(t *testing.T) {
	full := model.Outcome{
		WinnerID:           ptr(1),
		FirstScorerID:      ptr(2),
		TotalPoints:        ptr(41),
		GamesPlayed:        ptr(3),
		HighestLeadAmount:  ptr(7),
		FirstTiltPlayerID:  ptr(2),
		FirstAbusePlayerID: ptr(1),
	}
	noLine := decimal.NullDecimal{}

	tests := []struct {
		name        string
		oddType     model.OddType
		line        decimal.NullDecimal
		participant *int64
		outcome     model.Outcome
		want        bool
	}{
		{"to_win hit", model.OddToWin, noLine, ptr(1), full, true},
		{"to_win miss", model.OddToWin, noLine, ptr(2), full, false},
		{"to_win without participant", model.OddToWin, noLine, nil, full, false},
		{"first_scorer hit", model.OddFirstScorer, noLine, ptr(2), full, true},
		{"first_scorer miss", model.OddFirstScorer, noLine, ptr(1), full, false},
		{"total over hit", model.OddTotalPointsOver, line("40.5"), nil, full, true},
		{"total over miss", model.OddTotalPointsOver, line("41.5"), nil, full, false},
		{"total over equal line loses", model.OddTotalPointsOver, line("41"), nil, full, false},
		{"total under hit", model.OddTotalPointsUnder, line("41.5"), nil, full, true},
		{"total under equal line loses", model.OddTotalPointsUnder, line("41"), nil, full, false},
		{"total over without line", model.OddTotalPointsOver, noLine, nil, full, false},
		{"total under without result", model.OddTotalPointsUnder, line("41.5"), nil, model.Outcome{}, false},
		{"games 3 yes hit", model.OddGamesPlayed3Yes, noLine, nil, full, true},
		{"games 3 yes miss", model.OddGamesPlayed3Yes, noLine, nil, model.Outcome{GamesPlayed: ptr(2)}, false},
		{"games 3 no hit", model.OddGamesPlayed3No, noLine, nil, model.Outcome{GamesPlayed: ptr(2)}, true},
		{"games 3 no miss", model.OddGamesPlayed3No, noLine, nil, full, false},
		{"games 3 no without result", model.OddGamesPlayed3No, noLine, nil, model.Outcome{}, true},
		{"lead over hit", model.OddHighestLeadOver, line("6.5"), nil, full, true},
		{"lead over miss", model.OddHighestLeadOver, line("7.5"), nil, full, false},
		{"lead under hit", model.OddHighestLeadUnder, line("7.5"), nil, full, true},
		{"lead under miss", model.OddHighestLeadUnder, line("6.5"), nil, full, false},
		{"first tilt hit", model.OddFirstTilt, noLine, ptr(2), full, true},
		{"first tilt miss", model.OddFirstTilt, noLine, ptr(1), full, false},
		{"first abuse hit", model.OddFirstAbuse, noLine, ptr(1), full, true},
		{"first abuse missing result", model.OddFirstAbuse, noLine, ptr(1), model.Outcome{}, false},
		{"unknown type loses", model.OddType("most_aces"), line("1"), ptr(1), full, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.oddType, tt.line, tt.participant, tt.outcome)
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.oddType, got, tt.want)
			}
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	o := model.Outcome{TotalPoints: ptr(10)}
	first := Evaluate(model.OddTotalPointsOver, line("9.5"), nil, o)
	for i := 0; i < 10; i++ {
		if Evaluate(model.OddTotalPointsOver, line("9.5"), nil, o) != first {
			t.Fatal("Evaluate returned different results for the same input")
		}
	}
}

func TestRecognized(t *testing.T) {
	for _, typ := range []model.OddType{
		model.OddToWin, model.OddFirstScorer, model.OddTotalPointsOver, model.OddTotalPointsUnder,
		model.OddGamesPlayed3Yes, model.OddGamesPlayed3No, model.OddHighestLeadOver,
		model.OddHighestLeadUnder, model.OddFirstTilt, model.OddFirstAbuse,
	} {
		if !Recognized(typ) {
			t.Errorf("expected %s to be recognized", typ)
		}
	}
	if Recognized("handicap") {
		t.Error("expected handicap to be unrecognized")
	}
}

func TestPayout(t *testing.T) {
	stake := decimal.NewFromInt(40)

	if got := Payout(stake, decimal.RequireFromString("3.0"), true); !got.Equal(decimal.NewFromInt(120)) {
		t.Errorf("win payout = %s, want 120", got)
	}
	if got := Payout(stake, decimal.RequireFromString("3.0"), false); !got.IsZero() {
		t.Errorf("loss payout = %s, want 0", got)
	}
	// 10.01 × 1.333 = 13.34333 → 13.34
	if got := Payout(decimal.RequireFromString("10.01"), decimal.RequireFromString("1.333"), true); !got.Equal(decimal.RequireFromString("13.34")) {
		t.Errorf("rounded payout = %s, want 13.34", got)
	}
}
