package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/socialgraph"
)

var buildGraphCmd = &cobra.Command{
	Use:   "build-graph",
	Short: "Link similar users into a neighbor graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		histories, err := core.LoadHistories(viper.GetString("histories"))
		if err != nil {
			return err
		}

		embedder, err := newEmbedder()
		if err != nil {
			return err
		}

		cfg := *socialgraph.DefaultConfig
		cfg.TopK = viper.GetInt("top-k")
		cfg.MinReviews = viper.GetInt("min-reviews")

		records, err := socialgraph.NewBuilder(embedder, &cfg).Build(cmd.Context(), histories)
		if err != nil {
			return err
		}

		out := viper.GetString("out")
		if err := core.SaveNeighbors(out, records); err != nil {
			return err
		}
		log.Printf("[GRAPH] wrote %d neighbor records to %s", len(records), out)
		return nil
	},
}

func init() {
	f := buildGraphCmd.Flags()
	f.String("histories", "histories.jsonl", "review histories, one user per JSONL line")
	f.Int("top-k", socialgraph.DefaultConfig.TopK, "neighbors kept per user")
	f.Int("min-reviews", socialgraph.DefaultConfig.MinReviews, "minimum reviews for graph inclusion")
	f.String("out", "neighbors.jsonl", "output neighbor graph file")
}
