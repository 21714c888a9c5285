//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Build mg.Namespace

var binaries = []string{"stageviewer", "stagetool", "assetserver"}

// Builds every binary into bin/.
func (Build) All() error {
	for _, b := range binaries {
		if err := sh.RunV("go", "build", "-o", "bin/"+b, "./cmd/"+b); err != nil {
			return err
		}
	}
	return nil
}

// Builds the binaries that need neither cgo nor SDL2.
func (Build) Tools() error {
	env := map[string]string{"CGO_ENABLED": "0"}
	for _, b := range []string{"stagetool", "assetserver"} {
		if err := sh.RunWithV(env, "go", "build", "-o", "bin/"+b, "./cmd/"+b); err != nil {
			return err
		}
	}
	return nil
}

// Runs the tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Runs go vet and gofmt.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	out, err := sh.Output("gofmt", "-l", "cmd", "internal", "pkg")
	if err != nil {
		return err
	}
	if out != "" {
		return fmt.Errorf("unformatted files:\n%s", out)
	}
	return nil
}

// Removes build output.
func Clean() error {
	return sh.Rm("bin")
}
