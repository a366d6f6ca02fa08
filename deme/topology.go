package deme

// Index returns the linear index of (x, y), wrapping both coordinates.
func (d *Deme) Index(x, y int) int {
	return wrap(y, d.height)*d.width + wrap(x, d.width)
}

// Coords returns the (x, y) position of processor id.
func (d *Deme) Coords(id int) (x, y int) {
	return id % d.width, id / d.width
}

// Neighbors returns the four von Neumann neighbours of id in the order
// (x-1,y), (x+1,y), (x,y-1), (x,y+1). On grids narrower than three cells
// the same index may appear more than once.
func (d *Deme) Neighbors(id int) [4]int {
	x, y := d.Coords(id)
	return [4]int{
		d.Index(x-1, y),
		d.Index(x+1, y),
		d.Index(x, y-1),
		d.Index(x, y+1),
	}
}

// GetRandomNeighbor picks uniformly among the nine cells of the Moore
// neighbourhood of id, id itself included.
func (d *Deme) GetRandomNeighbor(id int) int {
	x, y := d.Coords(id)
	o := d.rng.Intn(9)
	return d.Index(x+o%3-1, y+o/3-1)
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
