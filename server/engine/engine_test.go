package engine

import (
	"errors"
	"testing"
)

func mustCards(t *testing.T, line string) []Card {
	t.Helper()
	cs, err := ParseCards(line, 1, 7)
	if err != nil {
		t.Fatalf("ParseCards(%q): %v", line, err)
	}
	return cs
}

func TestParseCardsFormats(t *testing.T) {
	cases := []struct {
		in   string
		want []Card
	}{
		{"As Kd", []Card{{14, 's'}, {13, 'd'}}},
		{"♠A,10h", []Card{{14, 's'}, {10, 'h'}}},
		{"黑桃A、红桃１０", []Card{{14, 's'}, {10, 'h'}}},
		{"Th/9c", []Card{{10, 'h'}, {9, 'c'}}},
		{"a♦ q♣", []Card{{14, 'd'}, {12, 'c'}}},
		{"sA 2H", []Card{{14, 's'}, {2, 'h'}}},
	}
	for _, tc := range cases {
		got, err := ParseCards(tc.in, 2, 2)
		if err != nil {
			t.Fatalf("ParseCards(%q): %v", tc.in, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("ParseCards(%q) = %v", tc.in, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("ParseCards(%q)[%d] = %v, want %v", tc.in, i, got[i], tc.want[i])
			}
		}
	}
}

func TestParseCardsErrors(t *testing.T) {
	if _, err := ParseCards("As", 2, 2); !errors.Is(err, ErrCardCount) {
		t.Fatalf("expected ErrCardCount, got %v", err)
	}
	if _, err := ParseCards("As as", 2, 2); !errors.Is(err, ErrDuplicateCard) {
		t.Fatalf("expected ErrDuplicateCard, got %v", err)
	}
	if _, err := ParseCards("As Xs", 2, 2); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
	if _, err := ParseCards("As 9", 2, 2); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken for a bare rank, got %v", err)
	}
}

func TestRemainingExcludesKnown(t *testing.T) {
	hero := mustCards(t, "As Ks")
	board := mustCards(t, "Ah 7d 2c")
	rest := Remaining(hero, board)
	if len(rest) != 47 {
		t.Fatalf("expected 47 cards, got %d", len(rest))
	}
	for _, c := range rest {
		for _, k := range append(hero, board...) {
			if c == k {
				t.Fatalf("known card %v left in deck", c)
			}
		}
	}
}

func TestEvaluateClasses(t *testing.T) {
	cases := []struct {
		hand, board string
		want        HandClass
	}{
		{"As Ks", "Ah 7d 2c", Pair},
		{"As Ks", "Ah Kd 2c", TwoPair},
		{"7s 7h", "7d Kd 2c", ThreeOfAKind},
		{"As 2h", "3d 4c 5s 9h", Straight},
		{"As Ks", "2s 7s 9s", Flush},
		{"7s 7h", "7d Kd Kc", FullHouse},
		{"7s 7h", "7d 7c Kc 2h 3d", FourOfAKind},
		{"As Ks", "Qs Js Ts 2d", StraightFlush},
		{"As Kd", "9h 7c 2s 3d 4h", HighCard},
	}
	for _, tc := range cases {
		_, class, err := Evaluate(mustCards(t, tc.hand), mustCards(t, tc.board))
		if err != nil {
			t.Fatalf("Evaluate(%s | %s): %v", tc.hand, tc.board, err)
		}
		if class != tc.want {
			t.Fatalf("Evaluate(%s | %s) class = %q, want %q", tc.hand, tc.board, class, tc.want)
		}
	}
}

func TestEvaluateLowerIsStronger(t *testing.T) {
	board := mustCards(t, "Ah 7d 2c Kc 9s")
	sets, _, err := Evaluate(mustCards(t, "7s 7h"), board)
	if err != nil {
		t.Fatal(err)
	}
	pair, _, err := Evaluate(mustCards(t, "As Qd"), board)
	if err != nil {
		t.Fatal(err)
	}
	if sets >= pair {
		t.Fatalf("trips should score lower than a pair: %d vs %d", sets, pair)
	}
	// Same holding on the flop and on six cards keeps its ordering.
	flop := mustCards(t, "Ah 7d 2c")
	a, _, _ := Evaluate(mustCards(t, "7s 7h"), flop)
	b, _, _ := Evaluate(mustCards(t, "As Qd"), flop)
	if a >= b {
		t.Fatalf("flop: trips %d should beat pair %d", a, b)
	}
	turn := mustCards(t, "Ah 7d 2c 9s")
	a, _, _ = Evaluate(mustCards(t, "7s 7h"), turn)
	b, _, _ = Evaluate(mustCards(t, "As Qd"), turn)
	if a >= b {
		t.Fatalf("turn: trips %d should beat pair %d", a, b)
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	if _, _, err := Evaluate(mustCards(t, "As"), mustCards(t, "Ah 7d 2c")); !errors.Is(err, ErrCardCount) {
		t.Fatalf("expected ErrCardCount, got %v", err)
	}
	if _, _, err := Evaluate(mustCards(t, "As Kd"), mustCards(t, "As 7d 2c")); !errors.Is(err, ErrDuplicateCard) {
		t.Fatalf("expected ErrDuplicateCard, got %v", err)
	}
}

func TestFeatures(t *testing.T) {
	dry := Features(mustCards(t, "Ah 7d 2c"))
	if dry.TwoTone || dry.Mono || dry.Paired || dry.StraightDraw || dry.FlushDraw {
		t.Fatalf("expected a dry board, got %+v", dry)
	}
	mono := Features(mustCards(t, "Ks Qs 2s"))
	if !mono.Mono || mono.TwoTone || !mono.FlushDraw {
		t.Fatalf("expected mono board, got %+v", mono)
	}
	paired := Features(mustCards(t, "7h 7d 2c"))
	if !paired.Paired {
		t.Fatalf("expected paired board, got %+v", paired)
	}
	conn := Features(mustCards(t, "9h 8d 6h"))
	if !conn.StraightDraw || !conn.TwoTone {
		t.Fatalf("expected connected two-tone board, got %+v", conn)
	}
	broadway := Features(mustCards(t, "Ah Kd Qc"))
	if !broadway.StraightDraw {
		t.Fatalf("expected ace-high straight draw, got %+v", broadway)
	}
	if f := Features(nil); f != (BoardFeatures{}) {
		t.Fatalf("empty board should have no features, got %+v", f)
	}
	river := Features(mustCards(t, "Ah 7h 2c Kd 9s"))
	if river.FlushDraw {
		t.Fatalf("no flush draw once the board is complete, got %+v", river)
	}
}

func TestCardString(t *testing.T) {
	if got := Join(mustCards(t, "As 10h")); got != "As Th" {
		t.Fatalf("Join = %q", got)
	}
	if got := Join(nil); got != "(none)" {
		t.Fatalf("Join(nil) = %q", got)
	}
}

func TestDescribeEveryStreet(t *testing.T) {
	hero := mustCards(t, "As Ks")
	for _, board := range []string{"Ah 7d 2c", "Ah 7d 2c 9h", "Ah 7d 2c 9h Kd"} {
		if got := Describe(hero, mustCards(t, board)); got == "" {
			t.Fatalf("Describe(%s) is empty", board)
		}
	}
	if got := Describe(mustCards(t, "7s 7h"), mustCards(t, "Ah 7d 2c 9h")); got == "" {
		t.Fatal("six-card set has no description")
	}
}
