//go:build !onnx

package main

import (
	"fmt"

	"github.com/Vandarkun/datasets/embedding"
	"github.com/Vandarkun/datasets/embedding/mock"
)

func embedderKinds() []string {
	return []string{"mock"}
}

func newEmbedderBackend(kind string) (embedding.Provider, error) {
	switch kind {
	case "mock":
		return mock.New(), nil
	case "onnx":
		return nil, fmt.Errorf("onnx embedder requires building with -tags onnx")
	default:
		return nil, fmt.Errorf("unknown embedder %q", kind)
	}
}
