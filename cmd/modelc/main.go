// Command modelc compiles a yaml graph manifest into the reference
// backend's binary model blob.
//
//	modelc -in graph.yaml -out model.bin
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/decisionlayer/tickbatch/pkg/infer/refgraph"
)

func main() {
	in := flag.String("in", "", "yaml graph manifest")
	out := flag.String("out", "model.bin", "output model blob")
	flag.Parse()

	if *in == "" {
		slog.Error("missing -in manifest")
		os.Exit(2)
	}

	src, err := os.ReadFile(*in)
	if err != nil {
		slog.Error("read manifest", "err", err)
		os.Exit(1)
	}

	def, err := refgraph.ParseManifest(src)
	if err != nil {
		slog.Error("parse manifest", "err", err)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		slog.Error("create output", "err", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := def.Save(f); err != nil {
		slog.Error("write model blob", "err", err)
		os.Exit(1)
	}

	slog.Info("model compiled",
		"inputs", len(def.Inputs),
		"outputs", len(def.Outputs),
		"out", *out,
	)
}
