package sketch

// Reachable runs a depth-first search over the bin graph, where every
// present cell is a directed edge regardless of its weight. A bin always
// reaches itself.
func (s *Sketch) Reachable(from, to int) bool {
	if from == to {
		return true
	}
	visited := make([]bool, s.bins)
	stack := []int{from}
	visited[from] = true

	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		row := s.cells[u*s.bins : (u+1)*s.bins]
		for v, w := range row {
			if w == absent || visited[v] {
				continue
			}
			if v == to {
				return true
			}
			visited[v] = true
			stack = append(stack, v)
		}
	}
	return false
}
