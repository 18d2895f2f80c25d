package dense

// byValue sorts feature values along with the row indices they
// belong to.
type byValue struct {
	x   []float64
	inx []int
}

func (b *byValue) Len() int           { return len(b.x) }
func (b *byValue) Less(i, j int) bool { return b.x[i] < b.x[j] }
func (b *byValue) Swap(i, j int) {
	b.x[i], b.x[j] = b.x[j], b.x[i]
	b.inx[i], b.inx[j] = b.inx[j], b.inx[i]
}
