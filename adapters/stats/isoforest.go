package stats

import (
	"fmt"
	"math"
	"math/rand"
)

// isoNode is a node in a single isolation tree. Leaves record the size of
// the partition that reached them so scoring can add the expected remaining
// path length.
type isoNode struct {
	left      *isoNode
	right     *isoNode
	splitAttr int
	splitVal  float64
	size      int
}

func (n *isoNode) isLeaf() bool {
	return n.left == nil && n.right == nil
}

// isoForest is a seeded ensemble of isolation trees. Anomaly scores follow
// Liu et al.: s(x) = 2^(-E[h(x)] / c(psi)), so scores near 1 mark isolates.
type isoForest struct {
	trees      []*isoNode
	sampleSize int
}

// fitIsoForest builds the ensemble over the standardized sample. Each tree
// trains on a random subsample of at most sampleSize rows, with a height
// limit of ceil(log2(subsample)).
func fitIsoForest(data [][]float64, trees, sampleSize int, rng *rand.Rand) (*isoForest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty training sample")
	}
	if len(data[0]) == 0 {
		return nil, fmt.Errorf("training sample has no features")
	}
	if trees <= 0 || sampleSize <= 0 {
		return nil, fmt.Errorf("invalid forest parameters: %d trees, subsample %d", trees, sampleSize)
	}

	psi := sampleSize
	if psi > len(data) {
		psi = len(data)
	}
	heightLimit := int(math.Ceil(math.Log2(float64(psi))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	forest := &isoForest{
		trees:      make([]*isoNode, 0, trees),
		sampleSize: psi,
	}
	for i := 0; i < trees; i++ {
		sample := subsample(data, psi, rng)
		forest.trees = append(forest.trees, buildIsoTree(sample, 0, heightLimit, rng))
	}
	return forest, nil
}

// subsample draws psi rows without replacement.
func subsample(data [][]float64, psi int, rng *rand.Rand) [][]float64 {
	if psi >= len(data) {
		return data
	}
	picked := rng.Perm(len(data))[:psi]
	sample := make([][]float64, psi)
	for i, idx := range picked {
		sample[i] = data[idx]
	}
	return sample
}

func buildIsoTree(data [][]float64, depth, limit int, rng *rand.Rand) *isoNode {
	if depth >= limit || len(data) <= 1 {
		return &isoNode{size: len(data)}
	}

	features := len(data[0])
	attr := rng.Intn(features)

	min, max := data[0][attr], data[0][attr]
	for _, row := range data {
		if row[attr] < min {
			min = row[attr]
		}
		if row[attr] > max {
			max = row[attr]
		}
	}
	if min == max {
		// Constant partition: nothing left to isolate on this attribute.
		return &isoNode{size: len(data)}
	}

	split := min + rng.Float64()*(max-min)
	var left, right [][]float64
	for _, row := range data {
		if row[attr] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &isoNode{
		splitAttr: attr,
		splitVal:  split,
		size:      len(data),
		left:      buildIsoTree(left, depth+1, limit, rng),
		right:     buildIsoTree(right, depth+1, limit, rng),
	}
}

// score returns the anomaly score of one row in (0, 1).
func (f *isoForest) score(row []float64) float64 {
	total := 0.0
	for _, tree := range f.trees {
		total += pathLength(row, tree, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/avgPathLength(f.sampleSize))
}

// scores evaluates every row of the sample.
func (f *isoForest) scores(data [][]float64) []float64 {
	out := make([]float64, len(data))
	for i, row := range data {
		out[i] = f.score(row)
	}
	return out
}

func pathLength(row []float64, node *isoNode, depth int) float64 {
	if node.isLeaf() {
		return float64(depth) + avgPathLength(node.size)
	}
	if row[node.splitAttr] < node.splitVal {
		return pathLength(row, node.left, depth+1)
	}
	return pathLength(row, node.right, depth+1)
}

const eulerMascheroni = 0.5772156649

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points.
func avgPathLength(n int) float64 {
	switch {
	case n > 2:
		h := math.Log(float64(n-1)) + eulerMascheroni
		return 2*h - 2*float64(n-1)/float64(n)
	case n == 2:
		return 1
	default:
		return 0
	}
}
