package sotu

import (
	"bytes"
	_ "embed"
	"html/template"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/report.html
var htmlTemplate string

//go:embed templates/styles.css
var cssStyles string

// GenerateHTMLCmd: Renders report.md into a standalone report.html
var GenerateHTMLCmd = &cobra.Command{
	Use:   "generate-html",
	Short: "Generate HTML version of the cluster report",
	Run: func(cmd *cobra.Command, args []string) {
		reportData, err := os.ReadFile("report.md")
		if err != nil {
			log.Printf("Failed to read report.md: %v", err)
			return
		}

		htmlContent := generateCompleteHTML(string(reportData))

		if err := os.WriteFile("report.html", []byte(htmlContent), 0644); err != nil {
			log.Printf("Failed to write HTML file: %v", err)
			return
		}

		log.Println("HTML report generated: report.html")
	},
}

// generateCompleteHTML generates a complete HTML document with embedded CSS
func generateCompleteHTML(markdownContent string) string {
	// The template carries its own title, so drop the leading h1 and any
	// blank lines before the first content line.
	lines := strings.Split(markdownContent, "\n")
	var filteredLines []string
	for i, line := range lines {
		if i == 0 && strings.HasPrefix(line, "# ") {
			continue
		}
		if len(filteredLines) == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		filteredLines = append(filteredLines, line)
	}
	cleanMarkdown := strings.Join(filteredLines, "\n")

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(cleanMarkdown), &buf); err != nil {
		log.Printf("Failed to convert markdown to HTML: %v", err)
		return ""
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		log.Printf("Failed to parse HTML template: %v", err)
		return ""
	}

	data := struct {
		Title string
		Date  string
		Body  template.HTML
		CSS   template.CSS
	}{
		Title: "State of the Union Clusters",
		Date:  time.Now().Format("2 January 2006"),
		Body:  template.HTML(buf.String()),
		CSS:   template.CSS(cssStyles),
	}

	var result bytes.Buffer
	if err := tmpl.Execute(&result, data); err != nil {
		log.Printf("Failed to execute template: %v", err)
		return ""
	}

	return result.String()
}
