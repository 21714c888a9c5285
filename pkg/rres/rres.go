// Package rres decodes resource bundle archives: models, textures and the
// animation tracks that drive them.
//
// An archive is a big-endian chunk stream:
//
//	magic "RRES" | version u16 | chunk count u16
//	chunk: tag [4]byte | name (u16 length + bytes) | payload size u32 | payload
//
// Supported chunk tags are MDL0, TEX0, SCN0, CHR0, CLR0 and VIS0.
package rres

import (
	"errors"
	"fmt"
)

// Magic identifies a resource bundle.
const Magic = "RRES"

// Version is the newest format revision this package reads and writes.
const Version uint16 = 1

// FramesPerSecond is the rate all animation frame numbers are expressed in.
const FramesPerSecond = 60

// Chunk tags.
const (
	TagModel      = "MDL0"
	TagTexture    = "TEX0"
	TagSceneAnim  = "SCN0"
	TagModelAnim  = "CHR0"
	TagColorAnim  = "CLR0"
	TagVisibility = "VIS0"
)

// Decode errors. Every error returned by Decode matches ErrDecode.
var (
	ErrDecode          = errors.New("rres: decode error")
	ErrInvalidMagic    = fmt.Errorf("%w: invalid magic", ErrDecode)
	ErrUnsupported     = fmt.Errorf("%w: unsupported version", ErrDecode)
	ErrTruncated       = fmt.Errorf("%w: truncated data", ErrDecode)
	ErrUnknownChunk    = fmt.Errorf("%w: unknown chunk", ErrDecode)
	ErrIndexOutOfRange = fmt.Errorf("%w: index out of range", ErrDecode)
)

// Archive is a decoded resource bundle.
type Archive struct {
	Version    uint16
	Models     []*Model
	Textures   []*Texture
	SceneAnims []*SceneAnim
	ModelAnims []*ModelAnim
	ColorAnims []*ColorAnim
	VisAnims   []*VisAnim
}

// Vertex is one interleaved model vertex.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// Material describes the surface of a batch.
type Material struct {
	Name    string
	Texture string // empty for untextured materials
	Color   [4]float32
	Lit     bool // false for materials that ignore scene lighting
}

// Batch is a run of indices drawn with one material.
type Batch struct {
	Material   uint16
	IndexStart uint32
	IndexCount uint32
}

// Model is an MDL0 chunk.
type Model struct {
	Name      string
	Vertices  []Vertex
	Indices   []uint16
	Materials []Material
	Batches   []Batch
}

// Bounds returns the axis aligned bounding box of the model's vertices.
func (m *Model) Bounds() (min, max [3]float32) {
	if len(m.Vertices) == 0 {
		return min, max
	}
	min = m.Vertices[0].Position
	max = min
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v.Position[i] < min[i] {
				min[i] = v.Position[i]
			}
			if v.Position[i] > max[i] {
				max[i] = v.Position[i]
			}
		}
	}
	return min, max
}

// TextureFormat says how texture data is stored.
type TextureFormat uint8

const (
	// FormatRGBA8 is raw 8-bit RGBA, Width*Height*4 bytes.
	FormatRGBA8 TextureFormat = iota
	// FormatEncoded is an embedded image file (PNG, BMP or TGA).
	FormatEncoded
)

// Texture is a TEX0 chunk.
type Texture struct {
	Name   string
	Format TextureFormat
	Width  uint16
	Height uint16
	Data   []byte
}

// AnimInfo is shared by every animation chunk.
type AnimInfo struct {
	Name       string
	FrameCount uint16
	Loop       bool
}

// LightTrack animates one light of a scene animation.
type LightTrack struct {
	Color     [4]Track
	Direction [3]Track
}

// SceneAnim is an SCN0 chunk: global ambient color and lights.
type SceneAnim struct {
	AnimInfo
	Ambient [4]Track
	Lights  []LightTrack
}

// ModelAnim is a CHR0 chunk: a transform track for the named model.
type ModelAnim struct {
	AnimInfo
	Target      string
	Translation [3]Track
	Rotation    [3]Track // degrees
	Scale       [3]Track
}

// ColorAnim is a CLR0 chunk: a color track for one material.
type ColorAnim struct {
	AnimInfo
	Material string
	Color    [4]Track
}

// VisAnim is a VIS0 chunk: visibility keys for one material. Values are
// sampled with step interpolation; anything above 0.5 is visible.
type VisAnim struct {
	AnimInfo
	Material string
	Visible  Track
}

// FindModel returns the model with the given name, or nil.
func (a *Archive) FindModel(name string) *Model {
	for _, m := range a.Models {
		if m.Name == name {
			return m
		}
	}
	return nil
}
