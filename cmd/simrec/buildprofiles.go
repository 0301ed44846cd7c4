package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/profile"
)

var buildProfilesCmd = &cobra.Command{
	Use:   "build-profiles",
	Short: "Build user profiles from review histories",
	RunE: func(cmd *cobra.Command, args []string) error {
		histories, err := core.LoadHistories(viper.GetString("histories"))
		if err != nil {
			return err
		}

		// Neighbor lookups are optional; without a graph file every
		// profile simply carries no related users.
		var neighbors map[string][]string
		if path := viper.GetString("neighbors"); path != "" {
			neighbors = core.LoadNeighborMap(path)
		}

		client, err := newLLMClient()
		if err != nil {
			return err
		}
		builder := profile.NewBuilder(client, neighbors, nil)

		profiles, failures := builder.BuildAll(cmd.Context(), histories, viper.GetInt("workers"))
		for _, f := range failures {
			log.Printf("[PROFILE] skipped %v", f)
		}
		if len(profiles) == 0 {
			return fmt.Errorf("no profiles built (%d failures)", len(failures))
		}

		out := viper.GetString("out")
		if err := core.SaveProfiles(out, profiles); err != nil {
			return err
		}
		log.Printf("[PROFILE] wrote %d profiles to %s (%d failures)", len(profiles), out, len(failures))
		return nil
	},
}

func init() {
	f := buildProfilesCmd.Flags()
	f.String("histories", "histories.jsonl", "review histories, one user per JSONL line")
	f.String("neighbors", "", "optional neighbor graph JSONL from build-graph")
	f.String("out", "profiles.json", "output profile file")
}
