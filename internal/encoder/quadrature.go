// Package encoder turns raw rotary encoder levels into debounced, throttled
// Intents. Decoding and debounce are pure (time is passed in); Run wraps
// them in a poll loop over a gpio.Reader.
package encoder

// phase packs the A/B levels into a two-bit Gray code value.
func phase(clk, dt bool) uint8 {
	var p uint8
	if clk {
		p |= 2
	}
	if dt {
		p |= 1
	}
	return p
}

// transitions maps [from][to] phase pairs to a position delta. Clockwise is
// 00 -> 01 -> 11 -> 10 -> 00. Pairs that flip both bits at once cannot come
// from a real rotation and map to 0 like unchanged pairs; step reports them
// separately so they leave state untouched.
var transitions = [4][4]int{
	//        to: 00  01  10  11
	/* 00 */ {0, +1, -1, 0},
	/* 01 */ {-1, 0, 0, +1},
	/* 10 */ {+1, 0, 0, -1},
	/* 11 */ {0, -1, +1, 0},
}

// legal reports whether moving between two phases flips exactly one line.
func legal(from, to uint8) bool {
	d := from ^ to
	return d == 1 || d == 2
}

// step applies one sampled level pair to s. It returns the position delta
// (-1, 0, +1). Unchanged and illegal samples return 0 and leave s untouched.
func (s *State) step(clk, dt bool) int {
	from := phase(s.LastCLK, s.LastDT)
	to := phase(clk, dt)
	if !legal(from, to) {
		return 0
	}
	delta := transitions[from][to]
	s.Position += delta
	s.LastCLK = clk
	s.LastDT = dt
	return delta
}
