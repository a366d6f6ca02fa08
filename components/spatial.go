package components

// Location is a processor's fixed cell on the toroidal grid.
type Location struct {
	X, Y int
}
