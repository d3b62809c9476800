package engine

import "sort"

// Features summarizes board texture. An empty board has no features.
func Features(board []Card) BoardFeatures {
	var f BoardFeatures
	if len(board) == 0 {
		return f
	}
	suits := map[byte]int{}
	ranks := map[int]int{}
	for _, c := range board {
		suits[c.Suit]++
		ranks[c.Rank]++
	}
	maxSuit := 0
	for _, n := range suits {
		maxSuit = max(maxSuit, n)
	}
	switch {
	case maxSuit >= 3:
		f.Mono = true
	case maxSuit == 2:
		f.TwoTone = true
	}
	f.FlushDraw = maxSuit >= 2 && len(board) < 5
	for _, n := range ranks {
		if n >= 2 {
			f.Paired = true
		}
	}

	// Aces play at both ends of the ladder.
	seen := map[int]bool{}
	for r := range ranks {
		seen[r] = true
		if r == 14 {
			seen[1] = true
		}
	}
	idxs := make([]int, 0, len(seen))
	for r := range seen {
		idxs = append(idxs, r)
	}
	sort.Ints(idxs)
	for i := 0; i+2 < len(idxs); i++ {
		if idxs[i+2]-idxs[i] <= 3 {
			f.StraightDraw = true
		}
	}
	if len(ranks) == 2 && len(idxs) == 2 && idxs[1]-idxs[0] == 1 {
		f.StraightDraw = true
	}
	return f
}
