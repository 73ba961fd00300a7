package sotu

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// GenerateReportCmd: Generates the cluster report in markdown and HTML
var GenerateReportCmd = &cobra.Command{
	Use:   "generate-report",
	Short: "Generate the cluster report in both markdown and HTML formats",
	Run: func(cmd *cobra.Command, args []string) {
		report := generateReportFromClusters()
		if err := os.WriteFile("report.md", []byte(report), 0644); err != nil {
			log.Printf("Failed to write report file: %v", err)
			return
		}
		log.Println("Report generated: report.md")

		htmlContent := generateCompleteHTML(report)
		if err := os.WriteFile("report.html", []byte(htmlContent), 0644); err != nil {
			log.Printf("Failed to write HTML file: %v", err)
			return
		}
		log.Println("HTML report generated: report.html")
	},
}

// generateReportFromClusters generates a report from the clustering results
func generateReportFromClusters() string {
	result, err := loadClusters()
	if err != nil {
		log.Printf("Failed to load clusters: %v", err)
		return "# State of the Union Clusters\n\nNo clustering results found. Run cluster-speeches first.\n"
	}

	if len(result.Clusters) == 0 {
		return "# State of the Union Clusters\n\nClustering produced no clusters.\n"
	}

	return formatClusterReport(result)
}

// loadClusters loads clustering results from file
func loadClusters() (ClusteringResult, error) {
	data, err := os.ReadFile("clusters/clusters.json")
	if err != nil {
		return ClusteringResult{}, fmt.Errorf("failed to read clusters file: %w", err)
	}

	var result ClusteringResult
	if err := json.Unmarshal(data, &result); err != nil {
		return ClusteringResult{}, fmt.Errorf("failed to parse clusters: %w", err)
	}

	return result, nil
}

// formatClusterReport renders the clustering results as markdown
func formatClusterReport(result ClusteringResult) string {
	var b strings.Builder

	b.WriteString("# State of the Union Clusters\n\n")
	fmt.Fprintf(&b, "%d speeches grouped into %d clusters by pairwise text similarity.\n\n",
		result.Summary.TotalSpeeches, result.Summary.TotalClusters)
	if !result.Summary.Converged {
		fmt.Fprintf(&b, "_Affinity propagation did not converge within %d sweeps; results may be unstable._\n\n",
			result.Summary.Sweeps)
	}

	for _, cluster := range result.Clusters {
		fmt.Fprintf(&b, "## Cluster %d: exemplar %s\n\n", cluster.ClusterID+1, cluster.ExemplarLabel)
		fmt.Fprintf(&b, "%d speeches.\n\n", len(cluster.Members))
		for _, member := range cluster.Members {
			if member.Index == cluster.ExemplarIndex {
				fmt.Fprintf(&b, "- **%s** (exemplar)\n", member.Label)
			} else {
				fmt.Fprintf(&b, "- %s (similarity %.3f)\n", member.Label, member.Similarity)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Cluster | Exemplar | Size |\n")
	b.WriteString("|---------|----------|------|\n")
	for _, cluster := range result.Clusters {
		fmt.Fprintf(&b, "| %d | %s | %d |\n", cluster.ClusterID+1, cluster.ExemplarLabel, len(cluster.Members))
	}

	return b.String()
}
