package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/retrieval"
)

var buildIndexCmd = &cobra.Command{
	Use:   "build-index",
	Short: "Build the memory and catalog vector indexes",
	Long: `build-index embeds profile memories and/or catalog items into
persistent vector indexes. Each index is saved as a pair of files: the
vector store and a JSONL metadata sidecar that must stay together.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profilesPath := viper.GetString("profiles")
		catalogPath := viper.GetString("catalog")
		if profilesPath == "" && catalogPath == "" {
			return fmt.Errorf("nothing to index: pass --profiles and/or --catalog")
		}

		embedder, err := newEmbedder()
		if err != nil {
			return err
		}

		if profilesPath != "" {
			profiles, err := core.LoadProfiles(profilesPath)
			if err != nil {
				return err
			}
			idx, err := retrieval.BuildMemoryIndex(cmd.Context(), profiles, embedder)
			if err != nil {
				return err
			}
			base := viper.GetString("memory-out")
			if err := idx.Save(base, base+".meta.jsonl"); err != nil {
				return err
			}
			log.Printf("[INDEX] wrote memory index (%d entries) to %s", len(idx.Entries), base)
		}

		if catalogPath != "" {
			items, err := core.LoadCatalog(catalogPath)
			if err != nil {
				return err
			}
			idx, err := retrieval.BuildCatalogIndex(cmd.Context(), items, embedder)
			if err != nil {
				return err
			}
			base := viper.GetString("catalog-out")
			if err := idx.Save(base, base+".meta.jsonl"); err != nil {
				return err
			}
			log.Printf("[INDEX] wrote catalog index (%d items) to %s", len(idx.Items), base)
		}
		return nil
	},
}

func init() {
	f := buildIndexCmd.Flags()
	f.String("profiles", "", "profile file to index memories from")
	f.String("catalog", "", "catalog JSONL to index items from")
	f.String("memory-out", "memories.idx", "memory index output path")
	f.String("catalog-out", "catalog.idx", "catalog index output path")
}
