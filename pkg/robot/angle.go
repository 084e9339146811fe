package robot

import (
	"fmt"
	"math"
)

// TicksPerRev is the encoder resolution of one servo revolution.
const TicksPerRev = 4096

// Angle is a joint angle in degrees, in [-360, 360].
type Angle float64

// NewAngle validates deg and returns it as an Angle.
func NewAngle(deg float64) (Angle, error) {
	if math.IsNaN(deg) || deg < -360 || deg > 360 {
		return 0, fmt.Errorf("%w: %v", ErrAngleRange, deg)
	}
	return Angle(deg), nil
}

// Deg returns the angle in degrees.
func (a Angle) Deg() float64 {
	return float64(a)
}

// Encoded converts the angle to encoder ticks. Negative angles wrap into
// [0, TicksPerRev), so -90° encodes the same as 270°.
func (a Angle) Encoded() EncodedAngle {
	ticks := int(math.Round(float64(a) * TicksPerRev / 360))
	ticks %= TicksPerRev
	if ticks < 0 {
		ticks += TicksPerRev
	}
	return EncodedAngle(ticks)
}

// EncodedAngle is a raw encoder reading in [0, TicksPerRev).
type EncodedAngle uint16

// NewEncodedAngle validates ticks and returns it as an EncodedAngle.
func NewEncodedAngle(ticks int) (EncodedAngle, error) {
	if ticks < 0 || ticks >= TicksPerRev {
		return 0, fmt.Errorf("%w: %d", ErrEncodedRange, ticks)
	}
	return EncodedAngle(ticks), nil
}

// Angle converts ticks to degrees in [0, 360).
func (e EncodedAngle) Angle() Angle {
	return Angle(math.Mod(float64(e)*360/TicksPerRev, 360))
}

// Ticks returns the raw tick count.
func (e EncodedAngle) Ticks() int {
	return int(e)
}

// Constraint is the safe sweep of a motor. Only angles strictly between Min
// and Max are allowed; an inverted interval allows nothing.
type Constraint struct {
	Min Angle `yaml:"min" json:"min"`
	Max Angle `yaml:"max" json:"max"`
}

// FullRange is the ±180° constraint used when nothing is configured.
var FullRange = Constraint{Min: -180, Max: 180}

// Allows reports whether a lies strictly inside the constraint.
func (c Constraint) Allows(a Angle) bool {
	return a > c.Min && a < c.Max
}

// Validate checks that both bounds are valid angles.
func (c Constraint) Validate() error {
	if _, err := NewAngle(float64(c.Min)); err != nil {
		return fmt.Errorf("constraint min: %w", err)
	}
	if _, err := NewAngle(float64(c.Max)); err != nil {
		return fmt.Errorf("constraint max: %w", err)
	}
	return nil
}

func (c Constraint) String() string {
	return fmt.Sprintf("(%.1f°, %.1f°)", float64(c.Min), float64(c.Max))
}

// Position is a point in lamp space, in millimeters.
type Position struct {
	X float64 `json:"x" form:"x"`
	Y float64 `json:"y" form:"y"`
	Z float64 `json:"z" form:"z"`
}

// Normalized is a point on the camera frame, each axis in [-1, 1] with the
// origin at the frame center.
type Normalized struct {
	X float64 `json:"x" form:"x"`
	Y float64 `json:"y" form:"y"`
}

// Valid reports whether both coordinates are inside [-1, 1].
func (n Normalized) Valid() bool {
	return n.X >= -1 && n.X <= 1 && n.Y >= -1 && n.Y <= 1
}

// Norm returns the distance from the frame center.
func (n Normalized) Norm() float64 {
	return math.Hypot(n.X, n.Y)
}

// Distance returns the Euclidean distance between n and o.
func (n Normalized) Distance(o Normalized) float64 {
	return math.Hypot(n.X-o.X, n.Y-o.Y)
}
