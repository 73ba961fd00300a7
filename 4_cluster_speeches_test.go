package sotu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// blockSimilarity builds a square similarity matrix with two clearly separated
// groups: indices [0, split) and [split, n). Every pair carries a distinct
// perturbation, so no two points have interchangeable similarity profiles and
// each group has a unique best exemplar.
func blockSimilarity(n, split int) *mat.Dense {
	s := mat.NewDense(n, n, nil)
	pair := 0
	for i := 0; i < n; i++ {
		s.Set(i, i, 1.0)
		for j := i + 1; j < n; j++ {
			base := 0.1
			if (i < split) == (j < split) {
				base = 0.9
			}
			v := base + 0.001*float64(pair)
			pair++
			s.Set(i, j, v)
			s.Set(j, i, v)
		}
	}
	return s
}

func TestAffinityPropagationTwoGroups(t *testing.T) {
	s := blockSimilarity(6, 3)
	result := affinityPropagation(s)

	require.Len(t, result.exemplars, 2)
	assert.True(t, result.converged)

	// All members of a group share one exemplar, and the groups differ.
	for i := 1; i < 3; i++ {
		assert.Equal(t, result.assignment[0], result.assignment[i])
	}
	for i := 4; i < 6; i++ {
		assert.Equal(t, result.assignment[3], result.assignment[i])
	}
	assert.NotEqual(t, result.assignment[0], result.assignment[3])
}

func TestAffinityPropagationTiedCandidates(t *testing.T) {
	// Points 0 and 1 have identical similarity profiles, like two near-copies
	// of the same speech. Interchangeable candidates must not each claim an
	// exemplar slot and split their group.
	s := mat.NewDense(6, 6, nil)
	set := func(i, j int, v float64) {
		s.Set(i, j, v)
		s.Set(j, i, v)
	}
	for i := 0; i < 6; i++ {
		s.Set(i, i, 1.0)
	}
	set(0, 1, 0.900)
	set(0, 2, 0.905)
	set(1, 2, 0.905)
	set(3, 4, 0.910)
	set(3, 5, 0.912)
	set(4, 5, 0.914)
	for _, i := range []int{0, 1, 2} {
		for _, j := range []int{3, 4, 5} {
			set(i, j, 0.1+0.002*float64(j-3))
		}
	}

	result := affinityPropagation(s)

	require.Len(t, result.exemplars, 2)
	assert.Equal(t, result.assignment[0], result.assignment[1], "tied points must share a cluster")
	for i := 1; i < 3; i++ {
		assert.Equal(t, result.assignment[0], result.assignment[i])
	}
	for i := 4; i < 6; i++ {
		assert.Equal(t, result.assignment[3], result.assignment[i])
	}
	assert.NotEqual(t, result.assignment[0], result.assignment[3])
}

func TestAffinityPropagationExemplarsAssignToThemselves(t *testing.T) {
	s := blockSimilarity(8, 4)
	result := affinityPropagation(s)

	for _, k := range result.exemplars {
		assert.Equal(t, k, result.assignment[k], "exemplar %d must belong to its own cluster", k)
	}
	for i, exemplar := range result.assignment {
		assert.Contains(t, result.exemplars, exemplar, "point %d assigned to a non-exemplar", i)
	}
}

func TestClusterMatrixShapesResult(t *testing.T) {
	matrix := &SimilarityMatrix{
		RowLabels: []string{"1861 Lincoln", "1862 Lincoln", "1863 Lincoln", "1925 Coolidge", "1926 Coolidge", "1927 Coolidge"},
		ColLabels: []string{"1861 Lincoln", "1862 Lincoln", "1863 Lincoln", "1925 Coolidge", "1926 Coolidge", "1927 Coolidge"},
		Data:      blockSimilarity(6, 3),
	}

	result := clusterMatrix(matrix)

	assert.Equal(t, 6, result.Summary.TotalSpeeches)
	assert.Equal(t, 2, result.Summary.TotalClusters)
	assert.Equal(t, []int{3, 3}, result.Summary.ClusterSizes)

	total := 0
	for _, cluster := range result.Clusters {
		total += len(cluster.Members)

		foundExemplar := false
		for _, member := range cluster.Members {
			assert.Equal(t, matrix.RowLabels[member.Index], member.Label)
			if member.Index == cluster.ExemplarIndex {
				foundExemplar = true
				assert.Equal(t, 1.0, member.Similarity, "exemplar self similarity")
			}
		}
		assert.True(t, foundExemplar, "cluster %d does not contain its exemplar", cluster.ClusterID)
		assert.Equal(t, matrix.RowLabels[cluster.ExemplarIndex], cluster.ExemplarLabel)
	}
	assert.Equal(t, 6, total, "every speech belongs to exactly one cluster")
}

func TestAffinityPropagationDeterministic(t *testing.T) {
	s := blockSimilarity(6, 3)
	first := affinityPropagation(s)
	second := affinityPropagation(s)

	assert.Equal(t, first.exemplars, second.exemplars)
	assert.Equal(t, first.assignment, second.assignment)
	assert.Equal(t, first.sweeps, second.sweeps)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))

	values := []float64{3, 1, 2}
	median(values)
	assert.Equal(t, []float64{3, 1, 2}, values, "input must not be reordered")
}
