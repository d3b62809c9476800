package engine

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrUnknownToken  = errors.New("unrecognized card")
	ErrCardCount     = errors.New("wrong number of cards")
	ErrDuplicateCard = errors.New("duplicate card")
)

var fullWidth = strings.NewReplacer(
	"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
	"５", "5", "６", "6", "７", "7", "８", "8", "９", "9",
)

var suitAliases = []struct {
	alias string
	suit  byte
}{
	{"黑桃", 's'}, {"红桃", 'h'}, {"方片", 'd'}, {"方块", 'd'}, {"梅花", 'c'},
	{"♠", 's'}, {"♤", 's'}, {"♥", 'h'}, {"♡", 'h'},
	{"♦", 'd'}, {"♢", 'd'}, {"♣", 'c'}, {"♧", 'c'},
	{"s", 's'}, {"h", 'h'}, {"d", 'd'}, {"c", 'c'},
}

// ParseCards splits free-form text on commas, slashes, 、 and whitespace and
// parses every token. The result keeps input order.
func ParseCards(line string, min, max int) ([]Card, error) {
	tokens := strings.FieldsFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '，' || r == '、' || r == '/'
	})
	if len(tokens) < min || len(tokens) > max {
		if min == max {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrCardCount, min, len(tokens))
		}
		return nil, fmt.Errorf("%w: expected %d-%d, got %d", ErrCardCount, min, max, len(tokens))
	}
	out := make([]Card, 0, len(tokens))
	for _, tok := range tokens {
		c, err := ParseCard(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if c, ok := Distinct(out); !ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCard, c)
	}
	return out, nil
}

// ParseCard accepts rank-first ("As", "10h", "A♠", "A黑桃") and suit-first
// ("♠A", "黑桃A", "sA") tokens, case-insensitive, with full-width digits.
func ParseCard(tok string) (Card, error) {
	t := strings.ReplaceAll(strings.TrimSpace(fullWidth.Replace(tok)), " ", "")
	if t == "" {
		return Card{}, fmt.Errorf("%w: empty token", ErrUnknownToken)
	}
	if rank, rest, ok := cutRank(t); ok {
		if suit, ok := suitOf(rest); ok {
			return Card{Rank: rank, Suit: suit}, nil
		}
	}
	if suit, rest, ok := cutSuit(t); ok {
		if rank, ok := rankOf(rest); ok {
			return Card{Rank: rank, Suit: suit}, nil
		}
	}
	return Card{}, fmt.Errorf("%w: %q", ErrUnknownToken, tok)
}

func rankOf(s string) (int, bool) {
	switch strings.ToUpper(s) {
	case "A":
		return 14, true
	case "K":
		return 13, true
	case "Q":
		return 12, true
	case "J":
		return 11, true
	case "T", "10":
		return 10, true
	}
	if len(s) == 1 && s[0] >= '2' && s[0] <= '9' {
		return int(s[0] - '0'), true
	}
	return 0, false
}

func cutRank(t string) (int, string, bool) {
	if strings.HasPrefix(t, "10") {
		return 10, t[2:], true
	}
	rank, ok := rankOf(t[:1])
	if !ok {
		return 0, "", false
	}
	return rank, t[1:], true
}

func suitOf(s string) (byte, bool) {
	s = strings.ToLower(s)
	for _, a := range suitAliases {
		if s == a.alias {
			return a.suit, true
		}
	}
	return 0, false
}

func cutSuit(t string) (byte, string, bool) {
	lower := strings.ToLower(t)
	for _, a := range suitAliases {
		if strings.HasPrefix(lower, a.alias) {
			return a.suit, t[len(a.alias):], true
		}
	}
	return 0, "", false
}
