package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/dialogue"
	"github.com/Vandarkun/datasets/retrieval"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate recommendation dialogues against built profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := core.LoadProfiles(viper.GetString("profiles"))
		if err != nil {
			return err
		}
		if limit := viper.GetInt("limit"); limit > 0 && limit < len(profiles) {
			profiles = profiles[:limit]
		}

		embedder, err := newEmbedder()
		if err != nil {
			return err
		}

		// Indexes are optional: without them retrieval degrades to the
		// explicit unavailable labels instead of failing the run.
		var memories *retrieval.MemoryRetriever
		if base := viper.GetString("memory-index"); base != "" {
			idx, err := retrieval.LoadMemoryIndex(cmd.Context(), base, base+".meta.jsonl")
			if err != nil {
				return fmt.Errorf("memory index: %w", err)
			}
			memories = retrieval.NewMemoryRetriever(idx, embedder, nil)
		}
		var catalog *retrieval.CatalogRetriever
		if base := viper.GetString("catalog-index"); base != "" {
			idx, err := retrieval.LoadCatalogIndex(cmd.Context(), base, base+".meta.jsonl")
			if err != nil {
				return fmt.Errorf("catalog index: %w", err)
			}
			catalog = retrieval.NewCatalogRetriever(idx, embedder)
		}

		client, err := newLLMClient()
		if err != nil {
			return err
		}

		cfg := dialogue.DefaultConfig()
		cfg.MaxTotalTurns = viper.GetInt("max-turns")
		cfg.MaxRejections = viper.GetInt("max-rejections")
		cfg.ProviderReview = !viper.GetBool("no-provider-review")
		cfg.RelatedMemories = !viper.GetBool("no-related-memories")

		controller := dialogue.NewController(client, client, client, memories, catalog, cfg)

		records, failures := dialogue.RunBatch(cmd.Context(), controller, profiles, viper.GetInt("workers"))
		for _, f := range failures {
			log.Printf("[RUN] failed %v", f)
		}
		if len(records) == 0 {
			return fmt.Errorf("no dialogues completed (%d failures)", len(failures))
		}

		out := viper.GetString("out")
		if err := core.SaveDialogues(out, records); err != nil {
			return err
		}
		log.Printf("[RUN] wrote %d dialogues to %s (%d failures)", len(records), out, len(failures))
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.String("profiles", "profiles.json", "profile file from build-profiles")
	f.String("memory-index", "", "memory index path from build-index")
	f.String("catalog-index", "", "catalog index path from build-index")
	f.Int("limit", 0, "simulate at most this many profiles (0 = all)")
	f.Int("max-turns", dialogue.DefaultConfig().MaxTotalTurns, "hard per-dialogue turn limit")
	f.Int("max-rejections", dialogue.DefaultConfig().MaxRejections, "rejections before the seeker turns accepting")
	f.Bool("no-provider-review", false, "disable the provider review gate")
	f.Bool("no-related-memories", false, "disable retrieval over similar users' memories")
	f.String("out", "dialogues.jsonl", "output transcript file")
}
