package engine

import (
	"fmt"
	"math"

	poker "github.com/paulhankin/poker"
)

// Library scores grow with hand strength. Everything exported here flips
// them so that a smaller score is a stronger hand.
func flip(score int16) int { return int(math.MaxInt16) - int(score) }

// ToPH converts an engine card to the library representation.
func ToPH(c Card) poker.Card {
	var s poker.Suit
	switch c.Suit {
	case 'c':
		s = poker.Club
	case 'd':
		s = poker.Diamond
	case 'h':
		s = poker.Heart
	case 's':
		s = poker.Spade
	default:
		s = poker.Club
	}
	// Our ranks: 2..14 (Ace=14). Library: 1..13 (Ace=1).
	r := poker.Rank(c.Rank)
	if c.Rank == 14 {
		r = poker.Rank(1)
	}
	card, _ := poker.MakeCard(s, r)
	return card
}

// Rank7 scores a full seven card holding. Smaller is stronger.
func Rank7(cards *[7]poker.Card) int { return flip(poker.Eval7(cards)) }

// Evaluate scores hero's best five card hand using the two hole cards and a
// board of three to five cards.
func Evaluate(hand, board []Card) (int, HandClass, error) {
	if len(hand) != 2 {
		return 0, "", fmt.Errorf("%w: hand needs 2 cards, got %d", ErrCardCount, len(hand))
	}
	if len(board) < 3 || len(board) > 5 {
		return 0, "", fmt.Errorf("%w: board needs 3-5 cards, got %d", ErrCardCount, len(board))
	}
	if c, ok := Distinct(hand, board); !ok {
		return 0, "", fmt.Errorf("%w: %s", ErrDuplicateCard, c)
	}
	all := append(append([]Card{}, hand...), board...)
	for _, c := range all {
		if !c.Valid() {
			return 0, "", fmt.Errorf("%w: %v", ErrUnknownToken, c)
		}
	}
	pcs := make([]poker.Card, len(all))
	for i, c := range all {
		pcs[i] = ToPH(c)
	}
	var score int
	switch len(pcs) {
	case 7:
		var a7 [7]poker.Card
		copy(a7[:], pcs)
		score = Rank7(&a7)
	case 5:
		var a5 [5]poker.Card
		copy(a5[:], pcs)
		score = flip(poker.Eval5(&a5))
	default:
		best, _ := bestOfFiveSubsets(pcs)
		score = flip(best)
	}
	return score, classify(all), nil
}

// Describe returns the library's long-form name of the hand, or "" if it
// cannot describe the holding. Six cards are described by their best five.
func Describe(hand, board []Card) string {
	all := append(append([]Card{}, hand...), board...)
	pcs := make([]poker.Card, len(all))
	for i, c := range all {
		pcs[i] = ToPH(c)
	}
	if len(pcs) == 6 {
		_, five := bestOfFiveSubsets(pcs)
		pcs = five[:]
	}
	d, err := poker.Describe(pcs)
	if err != nil {
		return ""
	}
	return d
}

// bestOfFiveSubsets returns the strongest library score over every five card
// subset, and that subset.
func bestOfFiveSubsets(pcs []poker.Card) (int16, [5]poker.Card) {
	n := len(pcs)
	best := int16(math.MinInt16)
	var bestFive [5]poker.Card
	choose := [5]int{}
	var five [5]poker.Card
	var rec func(start, k int)
	rec = func(start, k int) {
		if k == 5 {
			for i := 0; i < 5; i++ {
				five[i] = pcs[choose[i]]
			}
			if score := poker.Eval5(&five); score > best {
				best, bestFive = score, five
			}
			return
		}
		for i := start; i <= n-(5-k); i++ {
			choose[k] = i
			rec(i+1, k+1)
		}
	}
	rec(0, 0)
	return best, bestFive
}

// classify names the best made hand among 5 to 7 cards.
func classify(cards []Card) HandClass {
	var rankCount [15]int
	suitRanks := map[byte]uint16{}
	var all uint16
	for _, c := range cards {
		rankCount[c.Rank]++
		suitRanks[c.Suit] |= 1 << c.Rank
		all |= 1 << c.Rank
	}
	flush := false
	for s, mask := range suitRanks {
		n := 0
		for _, c := range cards {
			if c.Suit == s {
				n++
			}
		}
		if n >= 5 {
			flush = true
			if hasStraight(mask) {
				return StraightFlush
			}
		}
	}
	quads, trips, pairs := 0, 0, 0
	for r := 2; r <= 14; r++ {
		switch rankCount[r] {
		case 4:
			quads++
		case 3:
			trips++
		case 2:
			pairs++
		}
	}
	switch {
	case quads > 0:
		return FourOfAKind
	case trips > 0 && (trips > 1 || pairs > 0):
		return FullHouse
	case flush:
		return Flush
	case hasStraight(all):
		return Straight
	case trips > 0:
		return ThreeOfAKind
	case pairs >= 2:
		return TwoPair
	case pairs == 1:
		return Pair
	}
	return HighCard
}

// hasStraight looks for five consecutive rank bits, counting the ace low too.
func hasStraight(mask uint16) bool {
	if mask&(1<<14) != 0 {
		mask |= 1 << 1
	}
	for lo := 1; lo <= 10; lo++ {
		run := uint16(0x1f) << lo
		if mask&run == run {
			return true
		}
	}
	return false
}
