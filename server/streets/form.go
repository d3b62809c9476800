package streets

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Ongao1/Poker-assistant/server/engine"
)

// MaxVillains is the most opponents a flop deal can seat: 47 undealt cards
// must cover two hole cards each plus the turn and river.
const MaxVillains = 22

var ErrInput = errors.New("invalid input")

// StreetSpec is one street to evaluate. Board holds every community card
// visible on that street.
type StreetSpec struct {
	Name   string
	Board  []engine.Card
	Trials int
	Call   *float64
}

type Request struct {
	Hero     []engine.Card
	Position string
	Villains int
	StackBB  *float64
	PotBB    *float64
	Streets  []StreetSpec
}

// Form carries the raw create-task fields.
type Form struct {
	Hero      string
	Position  string
	Flop      string
	Turn      string
	River     string
	Villains  string
	StackBB   string
	PotBB     string
	CallFlop  string
	CallTurn  string
	CallRiver string
}

type Defaults struct {
	Villains int
	Trials   [3]int // flop, turn, river
}

// ParseForm validates a create-task form. Every error wraps ErrInput.
func ParseForm(f Form, d Defaults) (Request, error) {
	bad := func(field string, err error) (Request, error) {
		return Request{}, fmt.Errorf("%w: %s: %w", ErrInput, field, err)
	}
	var req Request
	var err error

	req.Villains = d.Villains
	if v := strings.TrimSpace(f.Villains); v != "" {
		if req.Villains, err = strconv.Atoi(v); err != nil {
			return bad("villains", err)
		}
	}
	if req.Villains < 1 || req.Villains > MaxVillains {
		return bad("villains", fmt.Errorf("must be between 1 and %d, got %d", MaxVillains, req.Villains))
	}

	if req.Hero, err = engine.ParseCards(f.Hero, 2, 2); err != nil {
		return bad("hero", err)
	}
	if strings.TrimSpace(f.Flop) == "" {
		return bad("flop", errors.New("enter at least the three flop cards"))
	}
	flop, err := engine.ParseCards(f.Flop, 3, 3)
	if err != nil {
		return bad("flop", err)
	}
	var turn, river []engine.Card
	if strings.TrimSpace(f.Turn) != "" {
		if turn, err = engine.ParseCards(f.Turn, 1, 1); err != nil {
			return bad("turn", err)
		}
	}
	if strings.TrimSpace(f.River) != "" {
		if turn == nil {
			return bad("river", errors.New("river given without a turn"))
		}
		if river, err = engine.ParseCards(f.River, 1, 1); err != nil {
			return bad("river", err)
		}
	}
	if c, ok := engine.Distinct(req.Hero, flop, turn, river); !ok {
		return bad("cards", fmt.Errorf("%w: %s", engine.ErrDuplicateCard, c))
	}

	var calls [3]*float64
	for i, raw := range []struct{ name, val string }{
		{"call_flop", f.CallFlop}, {"call_turn", f.CallTurn}, {"call_river", f.CallRiver},
	} {
		if calls[i], err = optionalAmount(raw.val); err != nil {
			return bad(raw.name, err)
		}
	}
	if req.StackBB, err = optionalAmount(f.StackBB); err != nil {
		return bad("stack_bb", err)
	}
	if req.PotBB, err = optionalAmount(f.PotBB); err != nil {
		return bad("pot_bb", err)
	}
	req.Position = strings.TrimSpace(f.Position)
	req.Streets = BuildStreets(flop, turn, river, calls, d.Trials)
	return req, nil
}

// BuildStreets expands the flop and optional turn/river cards into
// cumulative boards. A river without a turn is ignored.
func BuildStreets(flop, turn, river []engine.Card, calls [3]*float64, trials [3]int) []StreetSpec {
	board := append([]engine.Card{}, flop...)
	out := []StreetSpec{{Name: "Flop", Board: board, Trials: trials[0], Call: calls[0]}}
	if len(turn) == 0 {
		return out
	}
	board = append(append([]engine.Card{}, board...), turn...)
	out = append(out, StreetSpec{Name: "Turn", Board: board, Trials: trials[1], Call: calls[1]})
	if len(river) == 0 {
		return out
	}
	board = append(append([]engine.Card{}, board...), river...)
	return append(out, StreetSpec{Name: "River", Board: board, Trials: trials[2], Call: calls[2]})
}

func optionalAmount(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("must be a non-negative number, got %v", v)
	}
	return &v, nil
}
