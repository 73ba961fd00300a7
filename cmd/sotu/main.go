package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/nickschm12/sotu"
	"github.com/spf13/cobra"
)

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	// Set configuration for the sotu package
	sotu.Config.CorpusDir = getenv("SOTU_CORPUS_DIR", "corpus")
	sotu.Config.DatabasePath = getenv("SOTU_DB", "sotu.db")

	rootCmd := &cobra.Command{
		Use:   "sotu",
		Short: "State of the Union speech clustering CLI",
	}

	// Add all commands from the sotu package
	rootCmd.AddCommand(sotu.LoadSpeechesCmd)
	rootCmd.AddCommand(sotu.CleanSpeechesCmd)
	rootCmd.AddCommand(sotu.BuildMatrixCmd)
	rootCmd.AddCommand(sotu.ClusterSpeechesCmd)
	rootCmd.AddCommand(sotu.GenerateReportCmd)
	rootCmd.AddCommand(sotu.GenerateHTMLCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cleanCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: load-speeches -> clean-speeches -> build-matrix -> cluster-speeches -> generate-report",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Running full pipeline...")
		sotu.LoadSpeechesCmd.Run(cmd, args)
		sotu.CleanSpeechesCmd.Run(cmd, args)
		sotu.BuildMatrixCmd.Run(cmd, args)
		sotu.ClusterSpeechesCmd.Run(cmd, args)
		sotu.GenerateReportCmd.Run(cmd, args)
		log.Println("Pipeline complete.")
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean clustering results and reports",
	Run: func(cmd *cobra.Command, args []string) {
		files, err := os.ReadDir("clusters")
		if err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Failed to read clusters: %v", err)
			}
		} else {
			for _, file := range files {
				if file.IsDir() {
					continue
				}
				if err := os.Remove(filepath.Join("clusters", file.Name())); err != nil {
					log.Printf("Failed to remove %s: %v", file.Name(), err)
				}
			}
		}

		for _, name := range []string{"report.md", "report.html"} {
			if err := os.Remove(name); err != nil {
				if !os.IsNotExist(err) {
					log.Printf("Failed to remove %s: %v", name, err)
				}
			}
		}

		log.Println("Cleaned clusters directory, report.md and report.html.")
	},
}
