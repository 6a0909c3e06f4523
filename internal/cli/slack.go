package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/alanmeadows/triage/internal/slackdir"
	"github.com/alanmeadows/triage/internal/store"
)

var slackCmd = &cobra.Command{
	Use:   "slack",
	Short: "Slack directory utilities for the notification step",
	Long: `Maintain a local snapshot of the Slack workspace directory and resolve
people and groups against it, so CI notifications can mention the right
owners without calling the Slack API from every job.`,
}

var (
	slackIncludeBots bool
	slackLimit       int
	slackIDsJSON     bool
	slackDirOutput   string
	slackDirPretty   bool
)

func init() {
	slackDirectoryCmd.Flags().StringVarP(&slackDirOutput, "output", "o", "", "Snapshot file (defaults to the configured directory file)")
	slackDirectoryCmd.Flags().BoolVar(&slackDirPretty, "pretty", false, "Indent the snapshot JSON")
	slackIDsCmd.Flags().BoolVar(&slackIncludeBots, "include-bots", false, "Include bot users in results")
	slackIDsCmd.Flags().IntVar(&slackLimit, "limit", 1, "Maximum matches per query (0 for all)")
	slackIDsCmd.Flags().BoolVar(&slackIDsJSON, "json", false, "Output matches as JSON")
	slackCmd.AddCommand(slackDirectoryCmd)
	slackCmd.AddCommand(slackIDsCmd)
	slackCmd.AddCommand(slackSanitizeCmd)
}

var slackDirectoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Download the workspace directory snapshot",
	Long: `Fetch users and user groups from the Slack API and write the snapshot
to the configured directory file. If only one of the two listings
fails, a partial snapshot is still written.`,
	Example: `  SLACK_BOT_TOKEN=xoxb-... triage slack directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.Slack.Token == "" {
			return errors.New("no Slack token configured (set SLACK_BOT_TOKEN)")
		}

		out := slackDirOutput
		if out == "" {
			out = appConfig.Slack.DirectoryFile
		}

		f := slackdir.NewFetcher(appConfig.Slack.Token)
		dir, err := f.Download(cmd.Context(), out, slackDirPretty)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d users and %d groups to %s\n",
			len(dir.Users), len(dir.Groups), out)
		return nil
	},
}

var slackIDsCmd = &cobra.Command{
	Use:   "ids <name>...",
	Short: "Resolve names to Slack IDs",
	Long: `Fuzzy-match each name against the downloaded directory snapshot.
Exact matches on a normalized field score highest; substring matches
rank below them. Deleted users never match and bots are excluded
unless --include-bots is given.`,
	Example: `  triage slack ids "Jane Doe" platform-oncall
  triage slack ids buildbot --include-bots --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := slackdir.Load(appConfig.Slack.DirectoryFile)
		if err != nil {
			return fmt.Errorf("directory snapshot unavailable, run `triage slack directory` first: %w", err)
		}

		opts := slackdir.LookupOptions{IncludeBots: slackIncludeBots, Limit: slackLimit}
		results := make(map[string][]slackdir.Match, len(args))
		for _, query := range args {
			results[query] = dir.Lookup(query, opts)
		}

		if slackIDsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
		cellStyle := lipgloss.NewStyle().Padding(0, 1)

		var rows [][]string
		for _, query := range args {
			matches := results[query]
			if len(matches) == 0 {
				rows = append(rows, []string{query, "-", "-", "-", "no match"})
				continue
			}
			for _, m := range matches {
				rows = append(rows, []string{query, m.ID, m.Kind, m.Name, m.Reason})
			}
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("QUERY", "ID", "KIND", "NAME", "REASON").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})

		fmt.Fprintln(cmd.OutOrStdout(), t)
		return nil
	},
}

var slackSanitizeCmd = &cobra.Command{
	Use:   "sanitize [file]",
	Short: "Extract a clean JSON payload from agent output",
	Long: `Read agent output from a file (or stdin) and print the JSON object it
contains, reformatted with sorted keys and indentation. Tool-call
markup and surrounding prose are stripped. A file argument is rewritten
in place so downstream consumers read valid JSON. Exits non-zero when
no JSON object can be recovered.`,
	Example: `  triage slack sanitize slack_message.json
  echo '<content>{"text": "hi"}</content>' | triage slack sanitize`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		var err error
		if len(args) > 0 {
			raw, err = os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
		} else {
			raw, err = io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
		}

		clean, err := slackdir.Sanitize(string(raw))
		if err != nil {
			return err
		}

		if len(args) > 0 {
			if err := store.WriteFileAtomic(args[0], []byte(clean), 0644); err != nil {
				return fmt.Errorf("rewriting %s: %w", args[0], err)
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), clean)
		return nil
	},
}
