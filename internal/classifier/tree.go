package classifier

import (
	"math/rand"
	"sort"
)

// treeNode is a node of a binary classification tree. Leaves have feature -1.
type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	positive  bool
}

type decisionTree struct {
	nodes []treeNode
}

func (t *decisionTree) predict(row func(feature int) float64) bool {
	n := 0
	for t.nodes[n].feature >= 0 {
		node := t.nodes[n]
		if row(node.feature) <= node.threshold {
			n = node.left
		} else {
			n = node.right
		}
	}
	return t.nodes[n].positive
}

// treeBuilder grows one CART tree with Gini impurity.
type treeBuilder struct {
	columns     [][]float64
	labels      []bool
	groups      [][]int
	mtry        int
	minNodeSize int
	rng         *rand.Rand

	tree     decisionTree
	decrease []float64
}

func newTreeBuilder(columns [][]float64, labels []bool, groups [][]int, mtry, minNodeSize int, rng *rand.Rand) *treeBuilder {
	return &treeBuilder{
		columns:     columns,
		labels:      labels,
		groups:      groups,
		mtry:        mtry,
		minNodeSize: minNodeSize,
		rng:         rng,
		decrease:    make([]float64, len(groups)),
	}
}

// grow builds the tree over the sample rows; rows may repeat.
func (b *treeBuilder) grow(sample []int) decisionTree {
	b.split(sample)
	return b.tree
}

func (b *treeBuilder) split(rows []int) int {
	pos := 0
	for _, r := range rows {
		if b.labels[r] {
			pos++
		}
	}
	id := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, treeNode{feature: -1, positive: 2*pos > len(rows)})

	if pos == 0 || pos == len(rows) || len(rows) <= b.minNodeSize {
		return id
	}

	best := b.bestSplit(rows, pos)
	if best.feature < 0 {
		return id
	}

	var left, right []int
	for _, r := range rows {
		if b.columns[best.feature][r] <= best.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	b.decrease[best.group] += best.gain

	l := b.split(left)
	r := b.split(right)
	b.tree.nodes[id].feature = best.feature
	b.tree.nodes[id].threshold = best.threshold
	b.tree.nodes[id].left = l
	b.tree.nodes[id].right = r
	return id
}

type candidate struct {
	feature   int
	group     int
	threshold float64
	gain      float64
}

// bestSplit searches the columns of mtry randomly chosen field groups.
func (b *treeBuilder) bestSplit(rows []int, pos int) candidate {
	best := candidate{feature: -1}
	n := float64(len(rows))
	parent := n * gini(float64(pos), n)

	order := make([]int, len(rows))
	for _, g := range b.rng.Perm(len(b.groups))[:b.mtry] {
		for _, feature := range b.groups[g] {
			values := b.columns[feature]
			copy(order, rows)
			sort.Slice(order, func(i, j int) bool { return values[order[i]] < values[order[j]] })

			leftPos := 0
			for k := 0; k < len(order)-1; k++ {
				if b.labels[order[k]] {
					leftPos++
				}
				lo, hi := values[order[k]], values[order[k+1]]
				if lo == hi {
					continue
				}
				nl := float64(k + 1)
				nr := n - nl
				gain := parent - nl*gini(float64(leftPos), nl) - nr*gini(float64(pos-leftPos), nr)
				if gain > best.gain+1e-12 {
					best = candidate{feature: feature, group: g, threshold: (lo + hi) / 2, gain: gain}
				}
			}
		}
	}
	return best
}

func gini(pos, n float64) float64 {
	p := pos / n
	return 2 * p * (1 - p)
}
