package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docctl/internal/markdown"
)

func init() {
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Preview a summary as HTML",
	Long: `Render a markdown summary to the HTML fragment the web preview shows.
Use - to read from stdin.

Examples:
  docctl render summary.md > preview.html
  echo "**bold** and [link](https://example.com)" | docctl render -`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	text, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	html := markdown.Render(text)
	return a.emit(map[string]string{"html": html}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, html)
		return err
	})
}

// readInput reads path, or stdin when path is "-".
func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
