package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/shareaudit/sharescan/internal/analyze"
	"github.com/shareaudit/sharescan/internal/store"
	"github.com/shareaudit/sharescan/internal/tree"
)

var analyzeMatch string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input]",
	Short: "Walk a crawled tree and print publicly shared folder paths",
	Long: `Analyze loads a persisted tree, computes each node's root-relative
path, and streams the paths of folders shared with the "anyone" principal,
followed by folder/file tallies. --match substitutes a JSONPath predicate
evaluated against each node's document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		var match analyze.Predicate
		if analyzeMatch != "" {
			if match, err = analyze.JSONPath(analyzeMatch); err != nil {
				return err
			}
		}

		node, err := store.Open(osfs.New("/"), input).Load()
		if err != nil {
			return err
		}

		p := analyze.New(os.Stdout, cfg.Analyze.Concurrency, cfg.Analyze.Separator, match, log)
		stats, err := p.Run(cmd.Context(), tree.FromNode(node))
		if err != nil {
			return err
		}

		fmt.Printf("folders: %d\nfiles: %d\nshared: %d\n", stats.Folders, stats.Files, stats.Shared)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMatch, "match", "", "JSONPath predicate replacing the default anyone-shared filter")
	rootCmd.AddCommand(analyzeCmd)
}
