package export_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/stagegraph/internal/engine/scene"
	"github.com/Faultbox/stagegraph/internal/export"
	"github.com/Faultbox/stagegraph/internal/resolve"
	"github.com/Faultbox/stagegraph/internal/stage"
	"github.com/Faultbox/stagegraph/pkg/rres"
	"github.com/Faultbox/stagegraph/pkg/rres/rrestest"
)

func testAssets(t *testing.T) *stage.Assets {
	t.Helper()
	d, ok := stage.Find("STG_02_00")
	require.True(t, ok)

	rock := rrestest.Model("SCR_Rock")
	rock.Models[0].Materials[0].Lit = false

	return &stage.Assets{
		Desc:  d,
		Stage: []scene.Archive{{Key: "stage", Archive: rrestest.Model("STG_Floor")}},
		Objects: []resolve.Placement{
			{
				Archive:     rrestest.Model("MDL_Chest"),
				Source:      "zack_and_wiki/Model/MDL_Chest_ALL.brres",
				Translation: mgl32.Vec3{1, 2, 3},
				Rotation:    mgl32.Vec3{0, 90, 0},
			},
			{Archive: rock, Source: "zack_and_wiki/Model/SCR_02_00_ALL.brres", Fallback: true},
			{Archive: rock, Source: "zack_and_wiki/Model/SCR_02_00_ALL.brres", Fallback: true, Translation: mgl32.Vec3{-4, 0, 0}},
		},
	}
}

func TestGLTF(t *testing.T) {
	doc, err := export.GLTF(testAssets(t))
	require.NoError(t, err)

	assert.Equal(t, "STG_02_00", doc.Scenes[0].Name)
	assert.Len(t, doc.Nodes, 4)
	assert.Len(t, doc.Scenes[0].Nodes, 4)
	// The two fallback placements share one mesh.
	assert.Len(t, doc.Meshes, 3)
	require.NotNil(t, doc.Nodes[2].Mesh)
	require.NotNil(t, doc.Nodes[3].Mesh)
	assert.Equal(t, *doc.Nodes[2].Mesh, *doc.Nodes[3].Mesh)
	assert.Len(t, doc.Textures, 3)
	assert.Len(t, doc.Images, 3)

	chest := doc.Nodes[1]
	assert.Equal(t, "MDL_Chest", chest.Name)
	assert.Equal(t, [3]float32{1, 2, 3}, chest.Translation)
	assert.Equal(t, [3]float32{-4, 0, 0}, doc.Nodes[3].Translation)

	assert.Contains(t, doc.ExtensionsUsed, "KHR_materials_unlit")
	var unlit int
	for _, m := range doc.Materials {
		if _, ok := m.Extensions["KHR_materials_unlit"]; ok {
			unlit++
		}
	}
	assert.Equal(t, 1, unlit)
}

func TestGLTF_MissingTextureLeavesMaterialUntextured(t *testing.T) {
	a := testAssets(t)
	a.Stage[0].Archive.Textures = nil

	doc, err := export.GLTF(a)
	require.NoError(t, err)
	assert.Len(t, doc.Textures, 2)
	assert.Nil(t, doc.Materials[0].PBRMetallicRoughness.BaseColorTexture)
}

func TestGLTF_ModelsWithoutGeometryAreSkipped(t *testing.T) {
	a := testAssets(t)
	floor := a.Stage[0].Archive
	floor.Models = append(floor.Models, &rres.Model{Name: "Bones"})

	doc, err := export.GLTF(a)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 4)
	assert.Len(t, doc.Meshes, 3)
}

func TestGLTF_SameNamedModelsGetTheirOwnMesh(t *testing.T) {
	a := testAssets(t)
	floor := a.Stage[0].Archive
	floor.Models = append(floor.Models, rrestest.Quad("STG_Floor", "STG_Floor_tex"))

	doc, err := export.GLTF(a)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 5)
	assert.Len(t, doc.Meshes, 4)
	require.NotNil(t, doc.Nodes[0].Mesh)
	require.NotNil(t, doc.Nodes[1].Mesh)
	assert.NotEqual(t, *doc.Nodes[0].Mesh, *doc.Nodes[1].Mesh)
}

func TestRotation(t *testing.T) {
	q := export.Rotation(mgl32.Vec3{0, 90, 0})
	v := q.Rotate(mgl32.Vec3{1, 0, 0})
	assert.InDelta(t, 0, v[0], 1e-5)
	assert.InDelta(t, 0, v[1], 1e-5)
	assert.InDelta(t, -1, v[2], 1e-5)

	assert.True(t, export.Rotation(mgl32.Vec3{}).ApproxEqual(mgl32.QuatIdent()))
}

func TestWrite(t *testing.T) {
	doc, err := export.GLTF(testAssets(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, doc))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "asset")
	assert.Contains(t, decoded, "nodes")

	buf.Reset()
	require.NoError(t, export.WriteBinary(&buf, doc))
	assert.Equal(t, "glTF", buf.String()[:4])
}
