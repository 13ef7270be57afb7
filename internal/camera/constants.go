package camera

const (
	// Side of the bright square drawn by the test pattern, as a fraction of
	// the shorter frame side.
	PatternSquareFraction = 0.2

	// Pixels the square advances per frame.
	PatternStep = 4
)
