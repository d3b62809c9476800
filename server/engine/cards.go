package engine

import (
	"fmt"
	"strings"
)

// FullDeck returns the 52 cards ordered by suit then rank.
func FullDeck() []Card {
	deck := make([]Card, 0, 52)
	for s := 0; s < 4; s++ {
		for rnk := 2; rnk <= 14; rnk++ {
			deck = append(deck, Card{Rank: rnk, Suit: Suits[s]})
		}
	}
	return deck
}

// Remaining returns the deck minus every card in known.
func Remaining(known ...[]Card) []Card {
	used := map[Card]bool{}
	for _, cs := range known {
		for _, c := range cs {
			used[c] = true
		}
	}
	out := make([]Card, 0, 52-len(used))
	for _, c := range FullDeck() {
		if !used[c] {
			out = append(out, c)
		}
	}
	return out
}

// Distinct reports the first card that appears more than once across all groups.
func Distinct(groups ...[]Card) (Card, bool) {
	seen := map[Card]bool{}
	for _, cs := range groups {
		for _, c := range cs {
			if seen[c] {
				return c, false
			}
			seen[c] = true
		}
	}
	return Card{}, true
}

func (c Card) Valid() bool {
	return c.Rank >= 2 && c.Rank <= 14 && strings.IndexByte(Suits, c.Suit) >= 0
}

func (c Card) String() string {
	ranks := "  23456789TJQKA"
	if !c.Valid() {
		return "??"
	}
	return fmt.Sprintf("%c%c", ranks[c.Rank], c.Suit)
}

// Strings renders cards as ["As","Kd",...].
func Strings(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

// Join renders cards space separated, or "(none)" for an empty slice.
func Join(cs []Card) string {
	if len(cs) == 0 {
		return "(none)"
	}
	return strings.Join(Strings(cs), " ")
}
