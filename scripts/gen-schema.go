//go:build ignore

package main

import (
	"fmt"
	"os"

	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
	"github.com/ormasoftchile/rbdoctor/pkg/registry"
)

func main() {
	if err := os.MkdirAll("schemas", 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}

	data, err := manifest.GenerateJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating manifest schema: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/txtx-manifest.json", data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/txtx-manifest.json")

	regData, err := registry.GenerateJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating registry schema: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/registry.json", regData, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/registry.json")
}
