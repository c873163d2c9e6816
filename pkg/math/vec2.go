package math

// Vec2 is a 2D vector. Bezier control points of easing curves use it.
type Vec2 struct {
	X, Y float32
}

// OnDiagonal reports whether the point lies on the x == y line.
func (v Vec2) OnDiagonal() bool {
	return v.X == v.Y
}
