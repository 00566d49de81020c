// Package gain implements the per-block adaptive left-shift gain controller:
// it tracks how many sign-redundant ("unused") bits the loudest sample in a
// block carries and nudges a shared left-shift up or down to keep a target
// headroom, without ever amplifying into certain clipping.
package gain

import (
	"math"

	"github.com/RobMeades/urtpstream/internal/urtp"
)

// AutoShift tells Controller to run the adaptive algorithm. Any other value
// passed to New fixes the shift for the controller's lifetime, matching
// spec.md's "Fixed gain shift: {auto, 0..12}" configuration option.
const AutoShift = -1

// Controller tracks gain state for one capture session. It is not safe for
// concurrent use — it is owned by the single encode step that calls Process.
type Controller struct {
	fixedShift int // AutoShift, or a value in [0, urtp.MaxShift]

	shift      int
	minUnused  int32
	count      int
	lastLogged int32 // last decayed min-unused value, for diagnostics
}

// New creates a Controller. fixedShift is AutoShift for the adaptive
// algorithm, or a value in [0, urtp.MaxShift] to disable adaptation.
func New(fixedShift int) *Controller {
	return &Controller{
		fixedShift: fixedShift,
		minUnused:  math.MaxInt32,
	}
}

// Shift returns the left-shift currently in effect.
func (c *Controller) Shift() int {
	if c.fixedShift != AutoShift {
		return c.fixedShift
	}
	return c.shift
}

// LastMinUnused returns the most recently logged (decayed) minimum
// unused-bit count, for diagnostics/tests.
func (c *Controller) LastMinUnused() int32 {
	return c.lastLogged
}

// Process feeds one extractor sample (before gain) through the controller:
// it updates the block's running statistics, applies the block-boundary
// adjustment if this sample completes a block, and returns s shifted left
// by the shift currently in effect.
func (c *Controller) Process(s int32) int32 {
	ub := unusedBits(s)
	if ub < c.minUnused {
		c.minUnused = ub
	}
	c.count++
	if c.count >= urtp.SamplesPerBlock {
		c.atBlockBoundary()
	}

	shift := c.Shift()
	return s << uint(shift)
}

// atBlockBoundary applies the spec's block-boundary adjustment:
//
//  1. clamp shift to at most min_unused (never amplify into certain clipping)
//  2. nudge shift by one step toward the desired headroom
//  3. decay min_unused by one and log it for diagnostics
//  4. reset the block counter and the running min_unused baseline
//
// The decayed value from step 3 is never read back into the running
// baseline — step 4 resets that baseline to MaxInt32 unconditionally, so the
// decay is observable only in the logged diagnostic value, not in the
// controller's adaptation. That asymmetry is in the spec as written.
func (c *Controller) atBlockBoundary() {
	if c.fixedShift == AutoShift {
		if c.shift > int(c.minUnused) {
			c.shift = int(c.minUnused)
		}

		diff := c.minUnused - int32(c.shift)
		if diff > urtp.DesiredUnusedBits && c.shift < urtp.MaxShift {
			c.shift++
		} else if diff < urtp.DesiredUnusedBits && c.shift > 0 {
			c.shift--
		}
	}

	c.lastLogged = c.minUnused + 1

	c.count = 0
	c.minUnused = math.MaxInt32
}

// unusedBits counts the sign-redundant bits of s among bits 30..0: for a
// positive sample this is the number of leading zero bits, for a negative
// sample the number of leading one bits, either way the number of bits that
// could be shifted away without changing the sample's magnitude class.
func unusedBits(s int32) int32 {
	var signBit int32
	if s < 0 {
		signBit = 1
	}

	var n int32
	for b := 30; b >= 0; b-- {
		bit := (s >> uint(b)) & 1
		if bit != signBit {
			break
		}
		n++
	}
	return n
}
