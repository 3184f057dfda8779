// Package graphhealth computes the undirected link-graph topology metrics
// of §4.7: density, orphan rate, connectedness, clustering, path length,
// and centrality distributions, all derived from resolved wikilink edges.
package graphhealth

import (
	"context"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

const largeGraphThreshold = 100
const sampledStarts = 50

// Metrics is the full set of topology outputs for one graph snapshot. Every
// real-valued field is rounded to three decimals.
type Metrics struct {
	NoteCount               int
	LinkCount               int
	LinkDensity             float64
	OrphanCount             int
	OrphanRate              float64
	EntityCoverage          float64
	Connectedness           float64
	ClusterCount            int
	GiniCoefficient         float64
	ClusteringCoefficient   float64
	AvgPathLength           float64
	DegreeCentralityStdDev  float64
	BetweennessTop5PctShare float64
}

// Note is one vault note, as seen by the graph builder.
type Note struct {
	Path  string
	Links []string // raw wikilink targets, as written in the note
}

// graph is the undirected adjacency representation built from resolved
// note-to-note links.
type graph struct {
	nodes     []string
	index     map[string]int
	adjacency [][]int
}

// resolveTarget maps a raw wikilink target to a note path: exact basename
// match first, then hyphen/space normalization (§4.7).
func resolveTarget(target string, byBasename map[string]string, byNormalized map[string]string) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))
	if path, ok := byBasename[base]; ok {
		return path, true
	}
	normalized := strings.ToLower(strings.ReplaceAll(base, "-", " "))
	normalized = strings.Join(strings.Fields(normalized), " ")
	if path, ok := byNormalized[normalized]; ok {
		return path, true
	}
	return "", false
}

func buildGraph(notes []Note) *graph {
	byBasename := make(map[string]string, len(notes))
	byNormalized := make(map[string]string, len(notes))
	for _, n := range notes {
		base := strings.TrimSuffix(filepath.Base(n.Path), filepath.Ext(n.Path))
		byBasename[base] = n.Path
		normalized := strings.ToLower(strings.ReplaceAll(base, "-", " "))
		normalized = strings.Join(strings.Fields(normalized), " ")
		byNormalized[normalized] = n.Path
	}

	g := &graph{index: make(map[string]int, len(notes))}
	for _, n := range notes {
		g.index[n.Path] = len(g.nodes)
		g.nodes = append(g.nodes, n.Path)
	}
	g.adjacency = make([][]int, len(g.nodes))

	seen := make(map[[2]int]bool)
	for _, n := range notes {
		from := g.index[n.Path]
		for _, target := range n.Links {
			resolved, ok := resolveTarget(target, byBasename, byNormalized)
			if !ok {
				continue
			}
			to, ok := g.index[resolved]
			if !ok || to == from {
				continue
			}
			key := edgeKey(from, to)
			if seen[key] {
				continue
			}
			seen[key] = true
			g.adjacency[from] = append(g.adjacency[from], to)
			g.adjacency[to] = append(g.adjacency[to], from)
		}
	}
	return g
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Compute builds the adjacency graph from notes and derives every metric of
// §4.7. entityNoteCount is the number of notes that are themselves entity
// targets (denominator of entityCoverage). Pure and re-entrant: running
// twice on identical input yields an identical Metrics value.
func Compute(ctx context.Context, notes []Note, entityNoteCount int) (Metrics, error) {
	g := buildGraph(notes)
	n := len(g.nodes)

	var m Metrics
	m.NoteCount = n
	if n == 0 {
		return m, nil
	}

	linkCount := 0
	linkTargets := make(map[int]bool)
	degree := make([]int, n)
	for i, neighbors := range g.adjacency {
		degree[i] = len(neighbors)
		for _, j := range neighbors {
			if j > i {
				linkCount++
			}
			linkTargets[j] = true
		}
	}
	m.LinkCount = linkCount
	m.LinkDensity = round3(float64(linkCount) / float64(n))

	orphans := 0
	for _, d := range degree {
		if d == 0 {
			orphans++
		}
	}
	m.OrphanCount = orphans
	m.OrphanRate = round3(float64(orphans) / float64(n))

	coverage := float64(len(linkTargets)) / float64(maxInt(entityNoteCount, 1))
	if coverage > 1 {
		coverage = 1
	}
	m.EntityCoverage = round3(coverage)

	components := connectedComponents(g)
	largest := 0
	for _, c := range components {
		if len(c) > largest {
			largest = len(c)
		}
	}
	m.Connectedness = round3(float64(largest) / float64(n))
	m.ClusterCount = len(components)

	m.GiniCoefficient = round3(giniCoefficient(degree))
	m.ClusteringCoefficient = round3(meanClusteringCoefficient(g))
	m.DegreeCentralityStdDev = round3(stdDev(degree))

	avgPath, err := avgPathLength(ctx, g)
	if err != nil {
		return m, err
	}
	m.AvgPathLength = round3(avgPath)

	share, err := betweennessTop5PctShare(ctx, g)
	if err != nil {
		return m, err
	}
	m.BetweennessTop5PctShare = round3(share)

	return m, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*1000) / 1000
}

func connectedComponents(g *graph) [][]int {
	visited := make([]bool, len(g.nodes))
	var components [][]int
	for start := range g.nodes {
		if visited[start] {
			continue
		}
		var component []int
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			component = append(component, cur)
			for _, next := range g.adjacency[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

func giniCoefficient(degree []int) float64 {
	n := len(degree)
	if n == 0 {
		return 0
	}
	sorted := append([]int(nil), degree...)
	sort.Ints(sorted)

	var numerator, sum float64
	for i, d := range sorted {
		numerator += float64(2*(i+1)-n-1) * float64(d)
		sum += float64(d)
	}
	if sum == 0 {
		return 0
	}
	return numerator / (float64(n) * sum)
}

func meanClusteringCoefficient(g *graph) float64 {
	n := len(g.nodes)
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range g.nodes {
		neighbors := g.adjacency[i]
		k := len(neighbors)
		if k < 2 {
			continue
		}
		neighborSet := make(map[int]bool, k)
		for _, nb := range neighbors {
			neighborSet[nb] = true
		}
		links := 0
		for _, a := range neighbors {
			for _, b := range g.adjacency[a] {
				if b != i && neighborSet[b] {
					links++
				}
			}
		}
		links /= 2
		possible := k * (k - 1) / 2
		sum += float64(links) / float64(possible)
	}
	return sum / float64(n)
}

func stdDev(values []int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += float64(v)
	}
	mean /= float64(n)

	var variance float64
	for _, v := range values {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= float64(n)
	return math.Sqrt(variance)
}

// bfsDistances returns shortest-path hop counts from start to every
// reachable node.
func bfsDistances(g *graph, start int) []int {
	dist := make([]int, len(g.nodes))
	for i := range dist {
		dist[i] = -1
	}
	dist[start] = 0
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.adjacency[cur] {
			if dist[next] == -1 {
				dist[next] = dist[cur] + 1
				queue = append(queue, next)
			}
		}
	}
	return dist
}

func startSample(n int) []int {
	if n <= largeGraphThreshold {
		starts := make([]int, n)
		for i := range starts {
			starts[i] = i
		}
		return starts
	}
	step := n / sampledStarts
	if step < 1 {
		step = 1
	}
	var starts []int
	for i := 0; i < n && len(starts) < sampledStarts; i += step {
		starts = append(starts, i)
	}
	return starts
}

// avgPathLength averages BFS shortest-path length over every connected
// ordered pair reachable from the sampled starts, parallelized by
// errgroup with one goroutine per sampled start (§4.7, §5).
func avgPathLength(ctx context.Context, g *graph) (float64, error) {
	n := len(g.nodes)
	if n < 2 {
		return 0, nil
	}
	starts := startSample(n)

	var mu sync.Mutex
	var totalHops, totalPairs float64

	eg, egCtx := errgroup.WithContext(ctx)
	for _, s := range starts {
		start := s
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}
			dist := bfsDistances(g, start)
			var hops, pairs float64
			for i, d := range dist {
				if i != start && d >= 0 {
					hops += float64(d)
					pairs++
				}
			}
			mu.Lock()
			totalHops += hops
			totalPairs += pairs
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	if totalPairs == 0 {
		return 0, nil
	}
	return totalHops / totalPairs, nil
}

// betweennessTop5PctShare computes unweighted betweenness centrality via
// Brandes' algorithm over the sampled starts and returns the share of
// total betweenness held by the top 5% of nodes.
func betweennessTop5PctShare(ctx context.Context, g *graph) (float64, error) {
	n := len(g.nodes)
	if n < 2 {
		return 0, nil
	}
	starts := startSample(n)

	var mu sync.Mutex
	betweenness := make([]float64, n)

	eg, egCtx := errgroup.WithContext(ctx)
	for _, s := range starts {
		start := s
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}
			contribution := brandesFromSource(g, start)
			mu.Lock()
			for i, v := range contribution {
				betweenness[i] += v
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	total := 0.0
	sorted := append([]float64(nil), betweenness...)
	for _, v := range sorted {
		total += v
	}
	if total == 0 {
		return 0, nil
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	topN := int(math.Ceil(float64(n) * 0.05))
	if topN < 1 {
		topN = 1
	}
	if topN > n {
		topN = n
	}
	var topSum float64
	for i := 0; i < topN; i++ {
		topSum += sorted[i]
	}
	return topSum / total, nil
}

// brandesFromSource runs one source iteration of Brandes' betweenness
// algorithm, returning each node's partial centrality contribution from
// paths rooted at start.
func brandesFromSource(g *graph, start int) []float64 {
	n := len(g.nodes)
	dist := make([]int, n)
	sigma := make([]float64, n)
	for i := range dist {
		dist[i] = -1
	}
	dist[start] = 0
	sigma[start] = 1

	var stack []int
	predecessors := make([][]int, n)
	queue := []int{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		stack = append(stack, v)
		for _, w := range g.adjacency[v] {
			if dist[w] < 0 {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
			if dist[w] == dist[v]+1 {
				sigma[w] += sigma[v]
				predecessors[w] = append(predecessors[w], v)
			}
		}
	}

	delta := make([]float64, n)
	contribution := make([]float64, n)
	for i := len(stack) - 1; i >= 0; i-- {
		w := stack[i]
		for _, v := range predecessors[w] {
			delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
		}
		if w != start {
			contribution[w] += delta[w]
		}
	}
	return contribution
}
