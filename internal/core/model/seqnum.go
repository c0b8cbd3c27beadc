package model

// Wraparound constants for 32-bit sequence numbers surfaced as signed values.
const (
	wrapThreshold = -(int64(1) << 31)
	wrapSpan      = int64(1) << 32
)

// Unwrap corrects a sequence difference that went below -2^31 because the
// underlying 32-bit counter wrapped. Every accumulated byte counter compared
// against that threshold goes through here.
func Unwrap(d int64) int64 {
	if d < wrapThreshold {
		return d + wrapSpan
	}
	return d
}
