package world

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// obstacleEntry wraps an obstacle for R-tree storage. The stored rect is
// the obstacle bound inflated by the world's current margin.
type obstacleEntry struct {
	obs  Obstacle
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *obstacleEntry) Bounds() rtreego.Rect {
	return e.rect
}

// buildIndex creates an R-tree over the obstacle set with each bound
// inflated by margin, so box-level queries are already conservative.
func buildIndex(obstacles []Obstacle, margin float64) *rtreego.Rtree {
	tree := rtreego.NewTree(2, 2, 16)

	for _, obs := range obstacles {
		rect, err := boundToRect(obs.Bound(), margin)
		if err != nil {
			continue
		}
		tree.Insert(&obstacleEntry{obs: obs, rect: rect})
	}

	return tree
}

// boundToRect converts an orb bound to an rtreego rect, padded so zero-area
// bounds stay valid.
func boundToRect(b orb.Bound, pad float64) (rtreego.Rect, error) {
	const eps = 1e-9
	return rtreego.NewRect(
		rtreego.Point{b.Min.X() - pad, b.Min.Y() - pad},
		[]float64{
			b.Max.X() - b.Min.X() + 2*pad + eps,
			b.Max.Y() - b.Min.Y() + 2*pad + eps,
		},
	)
}

// search returns the obstacles whose inflated bounds intersect b.
func (w *World) search(b orb.Bound) []Obstacle {
	rect, err := boundToRect(b, 0)
	if err != nil {
		return nil
	}

	results := w.index.SearchIntersect(rect)
	obstacles := make([]Obstacle, 0, len(results))
	for _, item := range results {
		obstacles = append(obstacles, item.(*obstacleEntry).obs)
	}
	return obstacles
}
