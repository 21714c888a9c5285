package rres

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Decode parses a resource bundle.
func Decode(data []byte) (*Archive, error) {
	r := &reader{r: bytes.NewReader(data)}

	var magic [4]byte
	r.read(&magic)
	if r.err != nil {
		return nil, errors.Wrap(r.err, "reading header")
	}
	if string(magic[:]) != Magic {
		return nil, errors.Wrapf(ErrInvalidMagic, "got %q", magic[:])
	}

	a := &Archive{}
	a.Version = r.u16()
	count := r.u16()
	if r.err != nil {
		return nil, errors.Wrap(r.err, "reading header")
	}
	if a.Version == 0 || a.Version > Version {
		return nil, errors.Wrapf(ErrUnsupported, "version %d", a.Version)
	}

	for i := 0; i < int(count); i++ {
		if err := a.readChunk(r); err != nil {
			return nil, errors.Wrapf(err, "chunk %d", i)
		}
	}
	return a, nil
}

func (a *Archive) readChunk(r *reader) error {
	var tag [4]byte
	r.read(&tag)
	name := r.str()
	size := r.u32()
	if r.err != nil {
		return r.err
	}
	payload := r.bytes(int(size))
	if r.err != nil {
		return errors.Wrapf(r.err, "%s %q payload", tag[:], name)
	}

	cr := &reader{r: bytes.NewReader(payload)}
	switch string(tag[:]) {
	case TagModel:
		m := cr.model(name)
		if cr.err == nil {
			cr.err = m.validate()
		}
		a.Models = append(a.Models, m)
	case TagTexture:
		t := cr.texture(name)
		if cr.err == nil {
			cr.err = t.validate()
		}
		a.Textures = append(a.Textures, t)
	case TagSceneAnim:
		a.SceneAnims = append(a.SceneAnims, cr.sceneAnim(name))
	case TagModelAnim:
		a.ModelAnims = append(a.ModelAnims, cr.modelAnim(name))
	case TagColorAnim:
		a.ColorAnims = append(a.ColorAnims, cr.colorAnim(name))
	case TagVisibility:
		a.VisAnims = append(a.VisAnims, cr.visAnim(name))
	default:
		return errors.Wrapf(ErrUnknownChunk, "tag %q", tag[:])
	}
	if cr.err != nil {
		return errors.Wrapf(cr.err, "%s %q", tag[:], name)
	}
	return nil
}

func (m *Model) validate() error {
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return errors.Wrapf(ErrIndexOutOfRange, "index %d references vertex %d of %d", i, idx, len(m.Vertices))
		}
	}
	for i, b := range m.Batches {
		if int(b.Material) >= len(m.Materials) {
			return errors.Wrapf(ErrIndexOutOfRange, "batch %d material %d of %d", i, b.Material, len(m.Materials))
		}
		if uint64(b.IndexStart)+uint64(b.IndexCount) > uint64(len(m.Indices)) {
			return errors.Wrapf(ErrIndexOutOfRange, "batch %d indices [%d,+%d) of %d", i, b.IndexStart, b.IndexCount, len(m.Indices))
		}
	}
	return nil
}

func (t *Texture) validate() error {
	if t.Format == FormatRGBA8 && len(t.Data) != int(t.Width)*int(t.Height)*4 {
		return errors.Wrapf(ErrTruncated, "rgba8 %dx%d has %d bytes", t.Width, t.Height, len(t.Data))
	}
	if t.Format > FormatEncoded {
		return errors.Wrapf(ErrUnsupported, "texture format %d", t.Format)
	}
	return nil
}

// reader keeps the first error and turns every later read into a no-op.
type reader struct {
	r   *bytes.Reader
	err error
}

func (r *reader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.BigEndian, v); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = ErrTruncated
		}
		r.err = err
	}
}

func (r *reader) u8() uint8 {
	var v uint8
	r.read(&v)
	return v
}

func (r *reader) u16() uint16 {
	var v uint16
	r.read(&v)
	return v
}

func (r *reader) u32() uint32 {
	var v uint32
	r.read(&v)
	return v
}

func (r *reader) f32() float32 {
	var v float32
	r.read(&v)
	return v
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil || n == 0 {
		return nil
	}
	if n > r.r.Len() {
		r.err = ErrTruncated
		return nil
	}
	buf := make([]byte, n)
	_, _ = io.ReadFull(r.r, buf)
	return buf
}

func (r *reader) str() string {
	n := r.u16()
	return string(r.bytes(int(n)))
}

// count reads an element count and checks that at least elemSize*n bytes
// remain, so corrupt counts cannot trigger huge allocations.
func (r *reader) count(elemSize int) int {
	n := int(r.u32())
	if r.err == nil && n*elemSize > r.r.Len() {
		r.err = ErrTruncated
		return 0
	}
	return n
}

func (r *reader) track() Track {
	n := r.count(8)
	if n == 0 {
		return Track{}
	}
	t := Track{Keys: make([]Key, n)}
	for i := range t.Keys {
		t.Keys[i].Frame = r.f32()
		t.Keys[i].Value = r.f32()
	}
	return t
}

func (r *reader) tracks(ts []Track) {
	for i := range ts {
		ts[i] = r.track()
	}
}

func (r *reader) animInfo(name string) AnimInfo {
	info := AnimInfo{Name: name}
	info.FrameCount = r.u16()
	info.Loop = r.u8() != 0
	return info
}

func (r *reader) model(name string) *Model {
	m := &Model{Name: name}

	if n := r.count(32); n > 0 {
		m.Vertices = make([]Vertex, n)
		r.read(m.Vertices)
	}
	if n := r.count(2); n > 0 {
		m.Indices = make([]uint16, n)
		r.read(m.Indices)
	}
	if n := r.count(21); n > 0 {
		m.Materials = make([]Material, n)
		for i := range m.Materials {
			mat := &m.Materials[i]
			mat.Name = r.str()
			mat.Texture = r.str()
			r.read(&mat.Color)
			mat.Lit = r.u8() != 0
		}
	}
	if n := r.count(10); n > 0 {
		m.Batches = make([]Batch, n)
		r.read(m.Batches)
	}
	return m
}

func (r *reader) texture(name string) *Texture {
	t := &Texture{Name: name}
	t.Format = TextureFormat(r.u8())
	t.Width = r.u16()
	t.Height = r.u16()
	n := r.count(1)
	t.Data = r.bytes(n)
	return t
}

func (r *reader) sceneAnim(name string) *SceneAnim {
	s := &SceneAnim{AnimInfo: r.animInfo(name)}
	r.tracks(s.Ambient[:])
	if n := r.count(28); n > 0 {
		s.Lights = make([]LightTrack, n)
		for i := range s.Lights {
			r.tracks(s.Lights[i].Color[:])
			r.tracks(s.Lights[i].Direction[:])
		}
	}
	return s
}

func (r *reader) modelAnim(name string) *ModelAnim {
	m := &ModelAnim{AnimInfo: r.animInfo(name)}
	m.Target = r.str()
	r.tracks(m.Translation[:])
	r.tracks(m.Rotation[:])
	r.tracks(m.Scale[:])
	return m
}

func (r *reader) colorAnim(name string) *ColorAnim {
	c := &ColorAnim{AnimInfo: r.animInfo(name)}
	c.Material = r.str()
	r.tracks(c.Color[:])
	return c
}

func (r *reader) visAnim(name string) *VisAnim {
	v := &VisAnim{AnimInfo: r.animInfo(name)}
	v.Material = r.str()
	v.Visible = r.track()
	return v
}
