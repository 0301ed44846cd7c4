//go:build onnx

package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/Vandarkun/datasets/embedding"
	"github.com/Vandarkun/datasets/embedding/mock"
	"github.com/Vandarkun/datasets/embedding/onnx"
)

func embedderKinds() []string {
	return []string{"mock", "onnx"}
}

func newEmbedderBackend(kind string) (embedding.Provider, error) {
	switch kind {
	case "mock":
		return mock.New(), nil
	case "onnx":
		return onnx.New(onnx.Config{
			ModelPath:     viper.GetString("onnx-model"),
			TokenizerPath: viper.GetString("onnx-tokenizer"),
		})
	default:
		return nil, fmt.Errorf("unknown embedder %q", kind)
	}
}
