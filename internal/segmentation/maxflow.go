package segmentation

import "math"

// flowEpsilon treats residual capacities below it as saturated.
const flowEpsilon = 1e-9

// flowGraph is a directed graph with paired residual edges, solved with
// Dinic's algorithm. Nodes are dense integers.
type flowGraph struct {
	head  []int32
	next  []int32
	to    []int32
	cap   []float64
	level []int32
	iter  []int32
}

func newFlowGraph(nodes, edgeHint int) *flowGraph {
	g := &flowGraph{
		head:  make([]int32, nodes),
		next:  make([]int32, 0, 2*edgeHint),
		to:    make([]int32, 0, 2*edgeHint),
		cap:   make([]float64, 0, 2*edgeHint),
		level: make([]int32, nodes),
		iter:  make([]int32, nodes),
	}
	for i := range g.head {
		g.head[i] = -1
	}
	return g
}

// addEdge adds u→v with capacity c and v→u with capacity rc, sharing one
// residual pair.
func (g *flowGraph) addEdge(u, v int, c, rc float64) {
	g.to = append(g.to, int32(v))
	g.cap = append(g.cap, c)
	g.next = append(g.next, g.head[u])
	g.head[u] = int32(len(g.to) - 1)

	g.to = append(g.to, int32(u))
	g.cap = append(g.cap, rc)
	g.next = append(g.next, g.head[v])
	g.head[v] = int32(len(g.to) - 1)
}

func (g *flowGraph) bfs(s, t int) bool {
	for i := range g.level {
		g.level[i] = -1
	}
	queue := make([]int32, 0, len(g.head))
	g.level[s] = 0
	queue = append(queue, int32(s))
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for e := g.head[u]; e != -1; e = g.next[e] {
			v := g.to[e]
			if g.cap[e] > flowEpsilon && g.level[v] < 0 {
				g.level[v] = g.level[u] + 1
				queue = append(queue, v)
			}
		}
	}
	return g.level[t] >= 0
}

func (g *flowGraph) dfs(u, t int32, f float64) float64 {
	if u == t {
		return f
	}
	for ; g.iter[u] != -1; g.iter[u] = g.next[g.iter[u]] {
		e := g.iter[u]
		v := g.to[e]
		if g.cap[e] <= flowEpsilon || g.level[v] != g.level[u]+1 {
			continue
		}
		if d := g.dfs(v, t, math.Min(f, g.cap[e])); d > flowEpsilon {
			g.cap[e] -= d
			g.cap[e^1] += d
			return d
		}
	}
	return 0
}

// maxFlow saturates the graph and returns the flow value.
func (g *flowGraph) maxFlow(s, t int) float64 {
	var flow float64
	for g.bfs(s, t) {
		copy(g.iter, g.head)
		for {
			f := g.dfs(int32(s), int32(t), math.Inf(1))
			if f <= flowEpsilon {
				break
			}
			flow += f
		}
	}
	return flow
}

// sourceSide reports which nodes are still reachable from s in the residual
// graph after maxFlow; they form the source side of the minimum cut.
func (g *flowGraph) sourceSide(s int) []bool {
	seen := make([]bool, len(g.head))
	stack := []int32{int32(s)}
	seen[s] = true
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for e := g.head[u]; e != -1; e = g.next[e] {
			v := g.to[e]
			if !seen[v] && g.cap[e] > flowEpsilon {
				seen[v] = true
				stack = append(stack, v)
			}
		}
	}
	return seen
}
