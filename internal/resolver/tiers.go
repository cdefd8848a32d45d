package resolver

import "fmt"

// Tier is a named aggressiveness profile controlling how extreme confidence
// must be before the resolver declares a direction.
type Tier string

const (
	TierConservative Tier = "conservative"
	TierModerate     Tier = "moderate"
	TierAggressive   Tier = "aggressive"
)

// thresholds maps each tier to its UP/DOWN confidence cutoffs.
// confidence >= Up resolves UP; confidence <= Down resolves DOWN.
var thresholds = map[Tier]struct{ Up, Down int }{
	TierConservative: {Up: 70, Down: 30},
	TierModerate:     {Up: 62, Down: 38},
	TierAggressive:   {Up: 60, Down: 40},
}

// ParseTier validates a tier name, defaulting to moderate for empty input.
func ParseTier(s string) (Tier, error) {
	if s == "" {
		return TierModerate, nil
	}
	t := Tier(s)
	if _, ok := thresholds[t]; !ok {
		return "", fmt.Errorf("unknown aggressiveness tier %q", s)
	}
	return t, nil
}
