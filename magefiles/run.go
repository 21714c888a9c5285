//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Run mg.Namespace

// Opens a stage in the viewer, e.g. mage run:viewer STG_02_00.
func (Run) Viewer(stage string) error {
	return sh.RunV("go", "run", "./cmd/stageviewer", "-data", dataDir(), "-stage", stage)
}

// Serves the asset tree over HTTP.
func (Run) Server() error {
	return sh.RunV("go", "run", "./cmd/assetserver", "-data", dataDir())
}

func dataDir() string {
	if d := os.Getenv("STAGEGRAPH_DATA"); d != "" {
		return d
	}
	return "data"
}
