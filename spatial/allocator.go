// Package spatial places payment QRs around an agent so that they face the
// viewer. Placement is a pure function of its inputs.
package spatial

import (
	"math"

	"github.com/vitwit/arpay/types"
)

// Strategy is one candidate placement relative to the agent. AngleOffset is
// measured in radians from the agent->viewer bearing, positive to the
// viewer's left when looking at the agent.
type Strategy struct {
	Name         string
	Distance     float64
	AngleOffset  float64
	HeightOffset float64
	Scale        float64
}

// Band is the vertical range in which a QR stays readable.
type Band struct {
	MinHeight float64
	MaxHeight float64
}

// DefaultStrategies are tried in order on successive placement attempts.
var DefaultStrategies = []Strategy{
	{Name: "front", Distance: 0.6, AngleOffset: 0, HeightOffset: 0.3, Scale: 0.35},
	{Name: "front-right", Distance: 0.8, AngleOffset: -math.Pi / 6, HeightOffset: 0.2, Scale: 0.35},
	{Name: "front-left", Distance: 0.8, AngleOffset: math.Pi / 6, HeightOffset: 0.2, Scale: 0.35},
	{Name: "above", Distance: 0.3, AngleOffset: 0, HeightOffset: 0.9, Scale: 0.3},
	{Name: "wide", Distance: 1.2, AngleOffset: 0, HeightOffset: 0, Scale: 0.45},
}

// DefaultBand keeps QRs between knee and just-above-head height.
var DefaultBand = Band{MinHeight: 0.5, MaxHeight: 2.2}

// Allocator maps (agent, viewer, attempt) to an anchor.
type Allocator struct {
	strategies []Strategy
	band       Band
}

// NewAllocator returns an allocator over strategies. An empty table falls
// back to DefaultStrategies; an inverted band is swapped.
func NewAllocator(strategies []Strategy, band Band) *Allocator {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	if band.MinHeight > band.MaxHeight {
		band.MinHeight, band.MaxHeight = band.MaxHeight, band.MinHeight
	}
	s := make([]Strategy, len(strategies))
	copy(s, strategies)
	return &Allocator{strategies: s, band: band}
}

var defaultAllocator = NewAllocator(DefaultStrategies, DefaultBand)

// Allocate uses the default allocator.
func Allocate(agent, viewer types.Vec3, attempt int) types.Anchor {
	return defaultAllocator.Allocate(agent, viewer, attempt)
}

// Strategies returns the number of distinct placements before attempts wrap.
func (a *Allocator) Strategies() int {
	return len(a.strategies)
}

// Allocate picks strategy attempt mod n and returns an anchor facing the viewer.
func (a *Allocator) Allocate(agent, viewer types.Vec3, attempt int) types.Anchor {
	n := len(a.strategies)
	idx := ((attempt % n) + n) % n
	s := a.strategies[idx]

	toViewer := viewer.Sub(agent)
	bearing := math.Atan2(toViewer.X, toViewer.Z)
	angle := bearing + s.AngleOffset

	pos := types.Vec3{
		X: agent.X + math.Sin(angle)*s.Distance,
		Y: clamp(agent.Y+s.HeightOffset, a.band.MinHeight, a.band.MaxHeight),
		Z: agent.Z + math.Cos(angle)*s.Distance,
	}

	return types.Anchor{
		Position: pos,
		Rotation: faceTowards(pos, viewer),
		Scale:    s.Scale,
		Strategy: s.Name,
	}
}

// faceTowards returns (pitch, yaw, 0) turning +Z at from towards to.
// Pitch is positive when the target is above.
func faceTowards(from, to types.Vec3) types.Vec3 {
	d := to.Sub(from)
	yaw := math.Atan2(d.X, d.Z)
	pitch := math.Atan2(d.Y, math.Hypot(d.X, d.Z))
	return types.Vec3{X: pitch, Y: yaw, Z: 0}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
