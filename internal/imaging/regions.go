package imaging

import "image"

// Region collects the connected set pixels reachable from (startX, startY),
// marking each in visited (len(visited) must equal len(m.Bits)). Connectivity
// is 8-neighbour when diagonal is true, otherwise 4-neighbour.
//
// Uses an explicit stack so large regions cannot overflow the goroutine stack.
func (m *Mask) Region(visited []bool, startX, startY int, diagonal bool) []image.Point {
	var region []image.Point
	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.X < 0 || p.Y < 0 || p.X >= m.Width || p.Y >= m.Height {
			continue
		}
		i := p.Y*m.Width + p.X
		if visited[i] || !m.Bits[i] {
			continue
		}
		visited[i] = true
		region = append(region, p)
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				if !diagonal && dx != 0 && dy != 0 {
					continue
				}
				stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
	return region
}

// Regions returns every connected region of set pixels in scan order.
func (m *Mask) Regions(diagonal bool) [][]image.Point {
	visited := make([]bool, len(m.Bits))
	var regions [][]image.Point
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			if m.Bits[i] && !visited[i] {
				regions = append(regions, m.Region(visited, x, y, diagonal))
			}
		}
	}
	return regions
}

// Not returns the complement of m.
func (m *Mask) Not() *Mask {
	out := NewMask(m.Width, m.Height)
	for i, b := range m.Bits {
		out.Bits[i] = !b
	}
	return out
}

// Or returns the union of m and o.
func (m *Mask) Or(o *Mask) *Mask {
	out := m.Clone()
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if o.At(x, y) {
				out.Bits[y*m.Width+x] = true
			}
		}
	}
	return out
}

// RemoveSmallRegions clears 8-connected regions with fewer than minArea
// pixels, in place, and returns the number of regions removed.
func (m *Mask) RemoveSmallRegions(minArea int) int {
	if minArea <= 1 {
		return 0
	}
	removed := 0
	for _, r := range m.Regions(true) {
		if len(r) >= minArea {
			continue
		}
		for _, p := range r {
			m.Bits[p.Y*m.Width+p.X] = false
		}
		removed++
	}
	return removed
}
