// Package rrestest builds small resource bundles for tests.
package rrestest

import (
	"testing"

	"github.com/Faultbox/stagegraph/pkg/rres"
)

// Quad returns a one-batch unit quad model using a single material.
func Quad(name, texture string) *rres.Model {
	return &rres.Model{
		Name: name,
		Vertices: []rres.Vertex{
			{Position: [3]float32{-1, 0, -1}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{0, 0}},
			{Position: [3]float32{1, 0, -1}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{1, 0}},
			{Position: [3]float32{1, 0, 1}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{1, 1}},
			{Position: [3]float32{-1, 0, 1}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{0, 1}},
		},
		Indices: []uint16{0, 1, 2, 0, 2, 3},
		Materials: []rres.Material{
			{Name: name + "_mat", Texture: texture, Color: [4]float32{1, 1, 1, 1}, Lit: true},
		},
		Batches: []rres.Batch{{Material: 0, IndexStart: 0, IndexCount: 6}},
	}
}

// Checker returns a 2x2 RGBA8 texture.
func Checker(name string) *rres.Texture {
	return &rres.Texture{
		Name:   name,
		Format: rres.FormatRGBA8,
		Width:  2,
		Height: 2,
		Data: []byte{
			255, 255, 255, 255, 0, 0, 0, 255,
			0, 0, 0, 255, 255, 255, 255, 255,
		},
	}
}

// Lights returns a looping scene animation whose ambient red channel ramps
// from 0 to 1 over frameCount frames, with one white light.
func Lights(name string, frameCount uint16) *rres.SceneAnim {
	s := &rres.SceneAnim{
		AnimInfo: rres.AnimInfo{Name: name, FrameCount: frameCount, Loop: true},
		Lights: []rres.LightTrack{{
			Color:     [4]rres.Track{rres.Constant(1), rres.Constant(1), rres.Constant(1), rres.Constant(1)},
			Direction: [3]rres.Track{rres.Constant(0), rres.Constant(-1), rres.Constant(0)},
		}},
	}
	s.Ambient[0] = rres.Track{Keys: []rres.Key{{Frame: 0, Value: 0}, {Frame: float32(frameCount), Value: 1}}}
	s.Ambient[1] = rres.Constant(0.25)
	s.Ambient[2] = rres.Constant(0.25)
	s.Ambient[3] = rres.Constant(1)
	return s
}

// Model returns an archive with one quad model per name and a texture for
// each of them.
func Model(names ...string) *rres.Archive {
	a := &rres.Archive{Version: rres.Version}
	for _, n := range names {
		a.Models = append(a.Models, Quad(n, n+"_tex"))
		a.Textures = append(a.Textures, Checker(n+"_tex"))
	}
	return a
}

// Encode encodes a, failing the test on error.
func Encode(tb testing.TB, a *rres.Archive) []byte {
	tb.Helper()
	data, err := rres.Encode(a)
	if err != nil {
		tb.Fatalf("encoding archive: %v", err)
	}
	return data
}
