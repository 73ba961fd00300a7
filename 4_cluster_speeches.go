package sotu

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// ClusterMember represents one speech within a cluster
type ClusterMember struct {
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	Similarity float64 `json:"similarity_to_exemplar"`
}

// SpeechCluster represents a cluster of similar speeches. The exemplar is the
// member with minimum aggregate dissimilarity to the rest of the cluster, as
// found by affinity propagation.
type SpeechCluster struct {
	ClusterID     int             `json:"cluster_id"`
	ExemplarIndex int             `json:"exemplar_index"`
	ExemplarLabel string          `json:"exemplar_label"`
	Members       []ClusterMember `json:"members"`
}

// ClusteringResult represents the output of clustering
type ClusteringResult struct {
	Clusters []SpeechCluster `json:"clusters"`
	Summary  ClusterSummary  `json:"summary"`
}

// ClusterSummary provides metadata about clustering results
type ClusterSummary struct {
	TotalSpeeches int   `json:"total_speeches"`
	TotalClusters int   `json:"total_clusters"`
	ClusterSizes  []int `json:"cluster_sizes"`
	Sweeps        int   `json:"sweeps"`
	Converged     bool  `json:"converged"`
}

// ClusterSpeechesCmd: Clusters speeches from the stored square similarity matrix
var ClusterSpeechesCmd = &cobra.Command{
	Use:   "cluster-speeches",
	Short: "Cluster speeches by similarity using affinity propagation",
	Run: func(cmd *cobra.Command, args []string) {
		if err := clusterAllSpeeches(); err != nil {
			log.Printf("Failed to cluster speeches: %v", err)
			return
		}
		log.Println("Speech clustering complete.")
	},
}

// clusterAllSpeeches loads the full matrix and performs exemplar clustering
func clusterAllSpeeches() error {
	db, err := openSpeechDB()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	matrix, err := loadMatrix(db, "full")
	if err != nil {
		return fmt.Errorf("failed to load similarity matrix, run build-matrix first: %w", err)
	}
	if !matrix.IsSquare() {
		return fmt.Errorf("clustering requires a square similarity matrix")
	}

	n, _ := matrix.Dims()
	log.Printf("Clustering %d speeches with affinity propagation...", n)

	result := clusterMatrix(matrix)

	log.Printf("Found %d clusters after %d sweeps (converged=%t)",
		result.Summary.TotalClusters, result.Summary.Sweeps, result.Summary.Converged)
	for _, cluster := range result.Clusters {
		log.Printf("  Cluster %d: %d speeches, exemplar %s",
			cluster.ClusterID, len(cluster.Members), cluster.ExemplarLabel)
	}

	if err := os.MkdirAll("clusters", 0755); err != nil {
		return fmt.Errorf("failed to create clusters directory: %w", err)
	}
	if err := saveClusters(result); err != nil {
		return fmt.Errorf("failed to save clusters: %w", err)
	}

	return nil
}

// clusterMatrix runs affinity propagation and shapes the result for reporting
func clusterMatrix(matrix *SimilarityMatrix) ClusteringResult {
	ap := affinityPropagation(matrix.Data)

	byExemplar := make(map[int][]int)
	for i, exemplar := range ap.assignment {
		byExemplar[exemplar] = append(byExemplar[exemplar], i)
	}

	clusters := make([]SpeechCluster, 0, len(byExemplar))
	for exemplar, members := range byExemplar {
		cluster := SpeechCluster{
			ExemplarIndex: exemplar,
			ExemplarLabel: matrix.RowLabels[exemplar],
			Members:       make([]ClusterMember, 0, len(members)),
		}
		for _, idx := range members {
			cluster.Members = append(cluster.Members, ClusterMember{
				Index:      idx,
				Label:      matrix.RowLabels[idx],
				Similarity: matrix.At(idx, exemplar),
			})
		}
		clusters = append(clusters, cluster)
	}

	// Sort clusters by size (largest first), ties by exemplar index
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i].Members) != len(clusters[j].Members) {
			return len(clusters[i].Members) > len(clusters[j].Members)
		}
		return clusters[i].ExemplarIndex < clusters[j].ExemplarIndex
	})
	sizes := make([]int, len(clusters))
	for i := range clusters {
		clusters[i].ClusterID = i
		sizes[i] = len(clusters[i].Members)
	}

	n, _ := matrix.Dims()
	return ClusteringResult{
		Clusters: clusters,
		Summary: ClusterSummary{
			TotalSpeeches: n,
			TotalClusters: len(clusters),
			ClusterSizes:  sizes,
			Sweeps:        ap.sweeps,
			Converged:     ap.converged,
		},
	}
}

const (
	apDamping           = 0.9
	apMaxSweeps         = 200
	apMinSweeps         = 40
	apConvergenceSweeps = 15
	apJitterSeed        = 1
	apJitterScale       = 1e-9
)

// apResult holds the raw affinity propagation output
type apResult struct {
	exemplars  []int
	assignment []int
	sweeps     int
	converged  bool
}

// affinityPropagation clusters points from a square similarity matrix by
// message passing. Responsibilities and availabilities are damped each sweep;
// the preference (self-similarity on the diagonal) is the median off-diagonal
// similarity, which biases toward a moderate number of clusters. The run ends
// when the exemplar set is stable for apConvergenceSweeps sweeps, counted only
// after apMinSweeps so a slowly decaying transient is not mistaken for a
// fixed point.
func affinityPropagation(sim *mat.Dense) apResult {
	n, _ := sim.Dims()

	// Working copy with the preference on the diagonal. Exactly tied
	// similarities (identical speeches) leave the messages oscillating between
	// interchangeable candidates, with the self-evidence diagonal settling at
	// exactly zero; a tiny seeded jitter breaks the ties. The scale is far
	// below any real similarity difference and the fixed seed keeps runs
	// deterministic.
	rng := rand.New(rand.NewSource(apJitterSeed))
	s := mat.NewDense(n, n, nil)
	offDiag := make([]float64, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := sim.At(i, j) + apJitterScale*rng.Float64()
			s.Set(i, j, v)
			if i != j {
				offDiag = append(offDiag, v)
			}
		}
	}
	preference := median(offDiag)
	for k := 0; k < n; k++ {
		s.Set(k, k, preference+apJitterScale*rng.Float64())
	}

	r := mat.NewDense(n, n, nil)
	a := mat.NewDense(n, n, nil)

	var exemplars []int
	stable := 0
	sweeps := 0
	converged := false

	for sweeps = 1; sweeps <= apMaxSweeps; sweeps++ {
		// Responsibilities: r(i,k) <- s(i,k) - max_{k' != k}(a(i,k') + s(i,k'))
		for i := 0; i < n; i++ {
			max1, max2 := math.Inf(-1), math.Inf(-1)
			argmax := -1
			for k := 0; k < n; k++ {
				v := a.At(i, k) + s.At(i, k)
				if v > max1 {
					max2 = max1
					max1 = v
					argmax = k
				} else if v > max2 {
					max2 = v
				}
			}
			for k := 0; k < n; k++ {
				best := max1
				if k == argmax {
					best = max2
				}
				r.Set(i, k, apDamping*r.At(i, k)+(1-apDamping)*(s.At(i, k)-best))
			}
		}

		// Availabilities: a(i,k) <- min(0, r(k,k) + sum_{i' not in {i,k}} max(0, r(i',k)))
		// and a(k,k) <- sum_{i' != k} max(0, r(i',k))
		for k := 0; k < n; k++ {
			colSum := 0.0
			for i := 0; i < n; i++ {
				if i != k {
					colSum += math.Max(0, r.At(i, k))
				}
			}
			for i := 0; i < n; i++ {
				var v float64
				if i == k {
					v = colSum
				} else {
					v = r.At(k, k) + colSum - math.Max(0, r.At(i, k))
					if v > 0 {
						v = 0
					}
				}
				a.Set(i, k, apDamping*a.At(i, k)+(1-apDamping)*v)
			}
		}

		current := make([]int, 0, n)
		for k := 0; k < n; k++ {
			if r.At(k, k)+a.At(k, k) > 0 {
				current = append(current, k)
			}
		}

		if equalInts(current, exemplars) {
			stable++
			if sweeps >= apMinSweeps && stable >= apConvergenceSweeps && len(exemplars) > 0 {
				converged = true
				break
			}
		} else {
			stable = 0
			exemplars = current
		}
	}
	if sweeps > apMaxSweeps {
		sweeps = apMaxSweeps
	}

	if len(exemplars) == 0 {
		// No point identified itself as an exemplar. Fall back to a single
		// cluster around the point with maximum aggregate similarity.
		best, bestSum := 0, math.Inf(-1)
		for k := 0; k < n; k++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += sim.At(i, k)
			}
			if sum > bestSum {
				bestSum = sum
				best = k
			}
		}
		exemplars = []int{best}
	}

	assignment := make([]int, n)
	isExemplar := make(map[int]bool, len(exemplars))
	for _, k := range exemplars {
		isExemplar[k] = true
	}
	for i := 0; i < n; i++ {
		if isExemplar[i] {
			assignment[i] = i
			continue
		}
		best, bestSim := exemplars[0], math.Inf(-1)
		for _, k := range exemplars {
			if sim.At(i, k) > bestSim {
				bestSim = sim.At(i, k)
				best = k
			}
		}
		assignment[i] = best
	}

	return apResult{
		exemplars:  exemplars,
		assignment: assignment,
		sweeps:     sweeps,
		converged:  converged,
	}
}

// median returns the median of the values; the input is not modified
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// saveClusters saves the clustering results to JSON file
func saveClusters(result ClusteringResult) error {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal clusters: %w", err)
	}

	if err := os.WriteFile("clusters/clusters.json", jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write clusters file: %w", err)
	}

	return nil
}
