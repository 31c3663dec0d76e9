package admin

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/taskpilot/internal/fuzzy"
)

type matchResult struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Percent string  `json:"percent"`
}

// MatchCmd returns the match command
func MatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match [candidate...]",
		Short: "Fuzzy-match a name against candidates",
		Long:  "Score candidates against a query with the similarity ratio used for \"did you mean\" suggestions. Candidates are read from stdin, one per line, when none are given.",
		RunE:  runMatch,
	}

	cmd.Flags().StringP("query", "q", "", "Name to look for")
	cmd.Flags().Float64P("threshold", "t", fuzzy.DefaultThreshold, "Minimum similarity in [0, 1]")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("--threshold must be within [0, 1]")
	}

	candidates := args
	if len(candidates) == 0 {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				candidates = append(candidates, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read candidates: %w", err)
		}
	}

	matches := fuzzy.FindSimilar(query, candidates, func(s string) string { return s }, threshold)

	out := cmd.OutOrStdout()
	if outputFormat(cmd) == "json" {
		results := make([]matchResult, len(matches))
		for i, m := range matches {
			results[i] = matchResult{Name: m.Name, Score: m.Score, Percent: m.Percent()}
		}
		return writeJSON(out, results)
	}

	if len(matches) == 0 {
		fmt.Fprintln(out, "No similar names found")
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(out, "%4s  %s\n", m.Percent(), m.Name)
	}
	return nil
}
