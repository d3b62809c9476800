package engine

type Card struct {
	Rank int
	Suit byte
} // e.g. "As" => rank 14, suit 's'

// Suits in deck order.
const Suits = "cdhs"

// HandClass is the coarse category of a made hand.
type HandClass string

const (
	HighCard      HandClass = "High Card"
	Pair          HandClass = "Pair"
	TwoPair       HandClass = "Two Pair"
	ThreeOfAKind  HandClass = "Three of a Kind"
	Straight      HandClass = "Straight"
	Flush         HandClass = "Flush"
	FullHouse     HandClass = "Full House"
	FourOfAKind   HandClass = "Four of a Kind"
	StraightFlush HandClass = "Straight Flush"
)

// BoardFeatures describes the texture of the community cards.
type BoardFeatures struct {
	FlushDraw    bool `json:"flush_draw"`
	TwoTone      bool `json:"two_tone"`
	Mono         bool `json:"mono"`
	Paired       bool `json:"paired"`
	StraightDraw bool `json:"straight_draw"`
}
