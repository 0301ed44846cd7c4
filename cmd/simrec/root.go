package main

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Vandarkun/datasets/embedding"
	"github.com/Vandarkun/datasets/llm"
	"github.com/Vandarkun/datasets/llm/anthropic"
	"github.com/Vandarkun/datasets/llm/openai"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "simrec",
	Short: "Retrieval-augmented persona dialogue simulation pipeline",
	Long: `simrec builds user personas from review histories, links similar
users into a social graph, indexes persona memories and the item catalog,
and simulates recommendation dialogues against the resulting personas.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default simrec.yaml in the working directory)")
	pf.String("llm", "anthropic", "completion backend: anthropic or openai")
	pf.String("model", "", "model identifier override")
	pf.String("api-key", "", "API key (or SIMREC_API_KEY)")
	pf.String("base-url", "", "base URL for OpenAI-compatible backends")
	pf.String("embedder", "mock", "embedding backend: "+strings.Join(embedderKinds(), " or "))
	pf.String("onnx-model", "", "path to the ONNX embedding model (onnx builds)")
	pf.String("onnx-tokenizer", "", "path to tokenizer.json (onnx builds)")
	pf.Int("workers", 4, "concurrent units in batch stages")

	rootCmd.AddCommand(buildProfilesCmd, buildGraphCmd, buildIndexCmd, runCmd)
}

// initConfig layers configuration: flags override environment variables,
// which override the config file.
func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("simrec")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("SIMREC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return err
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	log.Printf("[CONFIG] using %s", viper.ConfigFileUsed())
	return nil
}

// newLLMClient builds the configured completion client.
func newLLMClient() (llm.Client, error) {
	switch kind := viper.GetString("llm"); kind {
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey: viper.GetString("api-key"),
			Model:  viper.GetString("model"),
		})
	case "openai":
		return openai.New(openai.Config{
			APIKey:  viper.GetString("api-key"),
			BaseURL: viper.GetString("base-url"),
			Model:   viper.GetString("model"),
		})
	default:
		return nil, fmt.Errorf("unknown llm backend %q", kind)
	}
}

// newEmbedder wraps the configured embedding backend in a cache.
func newEmbedder() (embedding.Provider, error) {
	inner, err := newEmbedderBackend(viper.GetString("embedder"))
	if err != nil {
		return nil, err
	}
	return embedding.NewCached(inner, 1<<16)
}
