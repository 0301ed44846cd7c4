// Command simrec runs the persona dialogue simulation pipeline: profile
// building, social graph construction, index building, and batch dialogue
// simulation.
package main

import (
	"log"
	"os"
)

func main() {
	log.SetFlags(log.LstdFlags)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
