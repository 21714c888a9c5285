package rres

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Encode serializes an archive. Chunks are written grouped by kind in the
// order models, textures, SCN0, CHR0, CLR0, VIS0.
func Encode(a *Archive) ([]byte, error) {
	type chunk struct {
		tag, name string
		payload   []byte
	}
	var chunks []chunk
	add := func(tag, name string, fill func(w *writer)) {
		w := &writer{}
		fill(w)
		chunks = append(chunks, chunk{tag, name, w.buf.Bytes()})
	}

	for _, m := range a.Models {
		if err := m.validate(); err != nil {
			return nil, errors.Wrapf(err, "model %q", m.Name)
		}
		add(TagModel, m.Name, func(w *writer) { w.model(m) })
	}
	for _, t := range a.Textures {
		if err := t.validate(); err != nil {
			return nil, errors.Wrapf(err, "texture %q", t.Name)
		}
		add(TagTexture, t.Name, func(w *writer) { w.texture(t) })
	}
	for _, s := range a.SceneAnims {
		add(TagSceneAnim, s.Name, func(w *writer) { w.sceneAnim(s) })
	}
	for _, m := range a.ModelAnims {
		add(TagModelAnim, m.Name, func(w *writer) { w.modelAnim(m) })
	}
	for _, c := range a.ColorAnims {
		add(TagColorAnim, c.Name, func(w *writer) { w.colorAnim(c) })
	}
	for _, v := range a.VisAnims {
		add(TagVisibility, v.Name, func(w *writer) { w.visAnim(v) })
	}
	if len(chunks) > math.MaxUint16 {
		return nil, errors.Errorf("rres: too many chunks (%d)", len(chunks))
	}

	out := &writer{}
	out.buf.WriteString(Magic)
	out.put(Version)
	out.put(uint16(len(chunks)))
	for _, c := range chunks {
		out.buf.WriteString(c.tag)
		out.str(c.name)
		out.put(uint32(len(c.payload)))
		out.buf.Write(c.payload)
	}
	return out.buf.Bytes(), nil
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) put(v any) {
	// bytes.Buffer writes cannot fail.
	_ = binary.Write(&w.buf, binary.BigEndian, v)
}

func (w *writer) str(s string) {
	w.put(uint16(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) flag(b bool) {
	if b {
		w.put(uint8(1))
	} else {
		w.put(uint8(0))
	}
}

func (w *writer) track(t Track) {
	w.put(uint32(len(t.Keys)))
	for _, k := range t.Keys {
		w.put(k.Frame)
		w.put(k.Value)
	}
}

func (w *writer) tracks(ts []Track) {
	for _, t := range ts {
		w.track(t)
	}
}

func (w *writer) animInfo(info AnimInfo) {
	w.put(info.FrameCount)
	w.flag(info.Loop)
}

func (w *writer) model(m *Model) {
	w.put(uint32(len(m.Vertices)))
	w.put(m.Vertices)
	w.put(uint32(len(m.Indices)))
	w.put(m.Indices)
	w.put(uint32(len(m.Materials)))
	for _, mat := range m.Materials {
		w.str(mat.Name)
		w.str(mat.Texture)
		w.put(mat.Color)
		w.flag(mat.Lit)
	}
	w.put(uint32(len(m.Batches)))
	w.put(m.Batches)
}

func (w *writer) texture(t *Texture) {
	w.put(uint8(t.Format))
	w.put(t.Width)
	w.put(t.Height)
	w.put(uint32(len(t.Data)))
	w.buf.Write(t.Data)
}

func (w *writer) sceneAnim(s *SceneAnim) {
	w.animInfo(s.AnimInfo)
	w.tracks(s.Ambient[:])
	w.put(uint32(len(s.Lights)))
	for _, l := range s.Lights {
		w.tracks(l.Color[:])
		w.tracks(l.Direction[:])
	}
}

func (w *writer) modelAnim(m *ModelAnim) {
	w.animInfo(m.AnimInfo)
	w.str(m.Target)
	w.tracks(m.Translation[:])
	w.tracks(m.Rotation[:])
	w.tracks(m.Scale[:])
}

func (w *writer) colorAnim(c *ColorAnim) {
	w.animInfo(c.AnimInfo)
	w.str(c.Material)
	w.tracks(c.Color[:])
}

func (w *writer) visAnim(v *VisAnim) {
	w.animInfo(v.AnimInfo)
	w.str(v.Material)
	w.track(v.Visible)
}
