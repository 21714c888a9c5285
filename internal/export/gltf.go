// Package export writes assembled stages to interchange formats.
package export

import (
	"bytes"
	"image/png"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/stagegraph/internal/engine/model"
	"github.com/Faultbox/stagegraph/internal/engine/texture"
	"github.com/Faultbox/stagegraph/internal/stage"
	"github.com/Faultbox/stagegraph/pkg/rres"
)

const extUnlit = "KHR_materials_unlit"

type meshKey struct {
	archive string
	model   *rres.Model
}

type exporter struct {
	doc       *gltf.Document
	meshes    map[meshKey]uint32
	materials map[meshKey][]uint32
	textures  map[texture.Key]uint32
	sampler   uint32
	unlit     bool
}

// GLTF builds a glTF document for a loaded stage. Stage archives sit at the
// origin; every object placement becomes a node carrying its transform.
// Placements that share an archive share its meshes.
func GLTF(a *stage.Assets) (*gltf.Document, error) {
	e := &exporter{
		doc:       gltf.NewDocument(),
		meshes:    make(map[meshKey]uint32),
		materials: make(map[meshKey][]uint32),
		textures:  make(map[texture.Key]uint32),
	}
	e.doc.Scenes[0].Name = a.Desc.ID
	e.sampler = uint32(len(e.doc.Samplers))
	e.doc.Samplers = append(e.doc.Samplers, &gltf.Sampler{
		Name:      "default",
		MinFilter: gltf.MinLinear,
		MagFilter: gltf.MagLinear,
		WrapS:     gltf.WrapRepeat,
		WrapT:     gltf.WrapRepeat,
	})

	for _, sa := range a.Stage {
		if err := e.addArchive(sa.Key, sa.Archive, mgl32.Vec3{}, mgl32.QuatIdent()); err != nil {
			return nil, err
		}
	}
	for _, p := range a.Objects {
		if err := e.addArchive(p.Source, p.Archive, p.Translation, Rotation(p.Rotation)); err != nil {
			return nil, err
		}
	}
	if e.unlit {
		e.doc.ExtensionsUsed = append(e.doc.ExtensionsUsed, extUnlit)
	}
	return e.doc, nil
}

// Rotation converts placement angles in degrees, applied X then Y then Z,
// to a quaternion.
func Rotation(deg mgl32.Vec3) mgl32.Quat {
	qx := mgl32.QuatRotate(mgl32.DegToRad(deg[0]), mgl32.Vec3{1, 0, 0})
	qy := mgl32.QuatRotate(mgl32.DegToRad(deg[1]), mgl32.Vec3{0, 1, 0})
	qz := mgl32.QuatRotate(mgl32.DegToRad(deg[2]), mgl32.Vec3{0, 0, 1})
	return qx.Mul(qy).Mul(qz)
}

func (e *exporter) addArchive(key string, a *rres.Archive, t mgl32.Vec3, r mgl32.Quat) error {
	for _, m := range a.Models {
		if !model.HasGeometry(m) {
			continue
		}
		mesh, err := e.mesh(key, a, m)
		if err != nil {
			return err
		}
		e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, uint32(len(e.doc.Nodes)))
		e.doc.Nodes = append(e.doc.Nodes, &gltf.Node{
			Name:        m.Name,
			Mesh:        gltf.Index(mesh),
			Translation: [3]float32(t),
			Rotation:    [4]float32{r.V[0], r.V[1], r.V[2], r.W},
			Scale:       [3]float32{1, 1, 1},
		})
	}
	return nil
}

func (e *exporter) mesh(key string, a *rres.Archive, m *rres.Model) (uint32, error) {
	mk := meshKey{key, m}
	if idx, ok := e.meshes[mk]; ok {
		return idx, nil
	}
	if _, err := model.BuildMesh(m); err != nil {
		return 0, errors.Wrapf(err, "exporting model %q of %s", m.Name, key)
	}

	positions := make([][3]float32, len(m.Vertices))
	normals := make([][3]float32, len(m.Vertices))
	uvs := make([][2]float32, len(m.Vertices))
	for i, v := range m.Vertices {
		positions[i] = v.Position
		normals[i] = v.Normal
		uvs[i] = v.UV
	}
	attributes := gltf.Attribute{
		gltf.POSITION:   modeler.WritePosition(e.doc, positions),
		gltf.NORMAL:     modeler.WriteNormal(e.doc, normals),
		gltf.TEXCOORD_0: modeler.WriteTextureCoord(e.doc, uvs),
	}

	mats, err := e.modelMaterials(mk, a, m)
	if err != nil {
		return 0, err
	}

	mesh := &gltf.Mesh{Name: m.Name}
	for _, b := range m.Batches {
		indices := m.Indices[b.IndexStart : b.IndexStart+b.IndexCount]
		mesh.Primitives = append(mesh.Primitives, &gltf.Primitive{
			Attributes: attributes,
			Indices:    gltf.Index(modeler.WriteIndices(e.doc, indices)),
			Material:   gltf.Index(mats[b.Material]),
		})
	}

	idx := uint32(len(e.doc.Meshes))
	e.doc.Meshes = append(e.doc.Meshes, mesh)
	e.meshes[mk] = idx
	return idx, nil
}

func (e *exporter) modelMaterials(mk meshKey, a *rres.Archive, m *rres.Model) ([]uint32, error) {
	if mats, ok := e.materials[mk]; ok {
		return mats, nil
	}
	mats := make([]uint32, len(m.Materials))
	for i, mat := range m.Materials {
		color := [4]float32(mat.Color)
		gm := &gltf.Material{
			Name:        mat.Name,
			DoubleSided: true,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &color,
				MetallicFactor:  gltf.Float(0),
			},
		}
		if mat.Color[3] < 1 {
			gm.AlphaMode = gltf.AlphaBlend
		}
		if !mat.Lit {
			gm.Extensions = gltf.Extensions{extUnlit: map[string]any{}}
			e.unlit = true
		}
		if mat.Texture != "" {
			tex, ok, err := e.texture(mk.archive, a, mat.Texture)
			if err != nil {
				return nil, err
			}
			if ok {
				gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: tex}
			}
		}
		mats[i] = uint32(len(e.doc.Materials))
		e.doc.Materials = append(e.doc.Materials, gm)
	}
	e.materials[mk] = mats
	return mats, nil
}

// texture returns the glTF texture for a named archive texture. A name the
// archive does not hold reports ok=false and leaves the material untextured.
func (e *exporter) texture(archive string, a *rres.Archive, name string) (uint32, bool, error) {
	key := texture.Key{Archive: archive, Name: name}
	if idx, ok := e.textures[key]; ok {
		return idx, true, nil
	}
	var src *rres.Texture
	for _, t := range a.Textures {
		if t.Name == name {
			src = t
			break
		}
	}
	if src == nil {
		return 0, false, nil
	}

	img, err := texture.Decode(src)
	if err != nil {
		return 0, false, errors.Wrapf(err, "decoding texture %q of %s", name, archive)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return 0, false, errors.Wrapf(err, "encoding texture %q", name)
	}
	image, err := modeler.WriteImage(e.doc, name, "image/png", &buf)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to write gltf image")
	}

	idx := uint32(len(e.doc.Textures))
	e.doc.Textures = append(e.doc.Textures, &gltf.Texture{
		Name:    name,
		Sampler: gltf.Index(e.sampler),
		Source:  gltf.Index(image),
	})
	e.textures[key] = idx
	return idx, true, nil
}

// WriteBinary writes doc as a binary .glb.
func WriteBinary(w io.Writer, doc *gltf.Document) error {
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	return enc.Encode(doc)
}

// Write writes doc as .gltf JSON with its buffers embedded as data URIs.
func Write(w io.Writer, doc *gltf.Document) error {
	for _, b := range doc.Buffers {
		if b.URI == "" {
			b.EmbeddedResource()
		}
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = false
	return enc.Encode(doc)
}
