// Package orientation tracks interface orientation and the logical sensor
// buffer size, and derives the detector hint and container transform from them.
package orientation

import "strings"

// Orientation is the device or interface orientation. Only the four cardinal
// values are mapped; the rest are accepted as input and ignored.
type Orientation int

const (
	Unknown Orientation = iota
	Portrait
	PortraitUpsideDown
	LandscapeLeft
	LandscapeRight
	FaceUp
	FaceDown
)

var names = [...]string{"unknown", "portrait", "portraitUpsideDown", "landscapeLeft", "landscapeRight", "faceUp", "faceDown"}

func (o Orientation) String() string {
	if o < 0 || int(o) >= len(names) {
		return names[Unknown]
	}
	return names[o]
}

// Parse maps a name (case-insensitive) to an Orientation. Unrecognised names
// yield Unknown, which the reconciler ignores.
func Parse(s string) Orientation {
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return Orientation(i)
		}
	}
	return Unknown
}

// Mapped reports whether o has a defined hint and transform.
func (o Orientation) Mapped() bool {
	switch o {
	case Portrait, PortraitUpsideDown, LandscapeLeft, LandscapeRight:
		return true
	}
	return false
}

// IsLandscape reports whether o is one of the landscape orientations.
func (o Orientation) IsLandscape() bool {
	return o == LandscapeLeft || o == LandscapeRight
}

// Hint is the rotation the detector should assume for the incoming frame so
// that its normalized output matches what is on screen.
type Hint int

const (
	HintUp Hint = iota
	HintRight
	HintDown
	HintLeft
)

func (h Hint) String() string {
	return [...]string{"up", "right", "down", "left"}[h&3]
}

// ParseHint is the inverse of Hint.String. Unknown names map to HintUp.
func ParseHint(s string) Hint {
	switch strings.ToLower(s) {
	case "right":
		return HintRight
	case "down":
		return HintDown
	case "left":
		return HintLeft
	default:
		return HintUp
	}
}

// QuarterTurns is the clockwise rotation the hint represents.
func (h Hint) QuarterTurns() int { return int(h & 3) }

var hints = map[Orientation]Hint{
	Portrait:           HintRight,
	PortraitUpsideDown: HintLeft,
	LandscapeLeft:      HintDown,
	LandscapeRight:     HintUp,
}

// HintFor returns the detector hint for o. ok is false for unmapped values.
func HintFor(o Orientation) (h Hint, ok bool) {
	h, ok = hints[o]
	return h, ok
}
