package clips

import (
	"fmt"
	"strings"
)

// Transition is the entry effect applied to a clip
type Transition string

const (
	TransitionNone Transition = "none"
	FadeIn         Transition = "fade_in"
	FadeOut        Transition = "fade_out"
	ZoomInFade     Transition = "zoom_in_fade"
	ZoomOutFade    Transition = "zoom_out_fade"
)

// DefaultTransitions is the set drawn from for every clip after the first
var DefaultTransitions = []Transition{FadeIn, FadeOut, ZoomInFade, ZoomOutFade}

// ParseTransition accepts the config/flag spelling of a transition
func ParseTransition(s string) (Transition, error) {
	switch t := Transition(strings.ToLower(strings.TrimSpace(s))); t {
	case TransitionNone, FadeIn, FadeOut, ZoomInFade, ZoomOutFade:
		return t, nil
	case "":
		return TransitionNone, nil
	default:
		return "", fmt.Errorf("unknown transition %q", s)
	}
}

// ParseTransitions parses a list, falling back to DefaultTransitions when empty
func ParseTransitions(names []string) ([]Transition, error) {
	if len(names) == 0 {
		return DefaultTransitions, nil
	}
	out := make([]Transition, 0, len(names))
	for _, n := range names {
		t, err := ParseTransition(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Overlaps reports whether the clip starts before the previous one ends
// and crossfades over it
func (t Transition) Overlaps() bool {
	switch t {
	case FadeIn, ZoomInFade, ZoomOutFade:
		return true
	}
	return false
}

// Scale returns the center zoom applied t seconds into the clip
func (t Transition) Scale(sec float64) float64 {
	switch t {
	case ZoomInFade:
		return 1 + 0.1*sec
	case ZoomOutFade:
		if s := 1.1 - 0.1*sec; s > 1 {
			return s
		}
	}
	return 1
}

func (t Transition) String() string {
	return string(t)
}
