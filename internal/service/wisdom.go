package service

import (
	"fmt"
	"strings"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
	"github.com/arturoeanton/go-kb-answers/internal/port"
)

// Tier is what a wisdom level buys: how many candidates are retrieved and
// which model writes the answer.
type Tier struct {
	Candidates int
	Model      string
}

// WisdomTiers maps every accepted wisdom level to its tier.
type WisdomTiers map[domain.WisdomLevel]Tier

// DefaultWisdomTiers builds the standard table. HIGH and VERY_HIGH only
// differ by model.
func DefaultWisdomTiers(mediumModel, highModel, veryHighModel string) WisdomTiers {
	return WisdomTiers{
		domain.WisdomMedium:   {Candidates: 7, Model: mediumModel},
		domain.WisdomHigh:     {Candidates: 12, Model: highModel},
		domain.WisdomVeryHigh: {Candidates: 12, Model: veryHighModel},
	}
}

// Resolve looks up level; an empty level means MEDIUM.
func (t WisdomTiers) Resolve(level domain.WisdomLevel) (Tier, error) {
	if level == "" {
		level = domain.WisdomMedium
	}
	tier, ok := t[domain.WisdomLevel(strings.ToUpper(string(level)))]
	if !ok {
		return Tier{}, fmt.Errorf("%w: %q", port.ErrUnknownWisdomLevel, level)
	}
	return tier, nil
}
