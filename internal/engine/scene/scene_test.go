package scene_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/model"
	"github.com/Faultbox/stagegraph/internal/engine/renderinst"
	"github.com/Faultbox/stagegraph/internal/engine/scene"
	"github.com/Faultbox/stagegraph/internal/resolve"
	"github.com/Faultbox/stagegraph/pkg/rres"
	"github.com/Faultbox/stagegraph/pkg/rres/rrestest"
)

const (
	stageKey    = "zack_and_wiki/Stage/STG_01_00_ALL.brres"
	fallbackKey = "zack_and_wiki/Model/Fallback.brres"
)

func stageArchive() *rres.Archive {
	a := rrestest.Model("STG_Floor", "STG_Wall")
	a.SceneAnims = []*rres.SceneAnim{rrestest.Lights("day", 120), rrestest.Lights("night", 60)}
	return a
}

type recorder struct {
	calls  int
	layers []scene.Layer
}

func (r *recorder) SetLayers(layers []scene.Layer) {
	r.calls++
	r.layers = layers
}

func TestAssemble(t *testing.T) {
	dev := gfx.NewHeadlessDevice()
	cache := gfx.NewRenderCache(dev)
	defer cache.Destroy()

	fallback := rrestest.Model("MDL_Fallback")
	objects := []resolve.Placement{
		{Archive: rrestest.Model("MDL_Chest"), Source: "zack_and_wiki/Model/MDL_Chest.brres",
			Translation: mgl32.Vec3{1, 0, 0}, Rotation: mgl32.Vec3{90, 0, 0}},
		{Archive: fallback, Source: fallbackKey, Fallback: true, Translation: mgl32.Vec3{0, 2, 0}},
		{Archive: fallback, Source: fallbackKey, Fallback: true, Translation: mgl32.Vec3{0, 0, 3}},
	}

	s, err := scene.Assemble(dev, cache, "STG_01_00", []scene.Archive{{Key: stageKey, Archive: stageArchive()}}, objects)
	require.NoError(t, err)
	assert.Equal(t, scene.StateAssembled, s.State())

	insts := s.Instances()
	require.Len(t, insts, 5)
	names := make([]string, len(insts))
	for i, inst := range insts {
		names[i] = inst.Name()
	}
	assert.Equal(t, []string{"STG_Floor", "STG_Wall", "MDL_Chest", "MDL_Fallback", "MDL_Fallback"}, names)

	// Stage archives keep the identity transform; objects are placed.
	assert.Equal(t, mgl32.Ident4(), insts[0].ModelMatrix())
	assert.Equal(t, model.PlacementMatrix(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{90, 0, 0}), insts[2].ModelMatrix())
	assert.Equal(t, mgl32.Translate3D(0, 0, 3), insts[4].ModelMatrix())

	// Only the first scene animation of the stage archive is used, and it
	// lights only that archive's instances.
	require.Len(t, s.LightSettings(), 1)
	ls := s.LightSettings()[0]
	assert.Same(t, ls, insts[0].LightSetting())
	assert.Same(t, ls, insts[1].LightSetting())
	assert.Nil(t, insts[2].LightSetting())
	assert.False(t, insts[0].Definition().Hacks().LightingFudge)
	assert.True(t, insts[2].Definition().Hacks().LightingFudge)

	// Placements sharing the fallback archive share its definition.
	assert.Same(t, insts[3].Definition(), insts[4].Definition())
	assert.Len(t, s.Definitions(), 4)
	assert.Equal(t, 4, s.Textures().Len())

	groups := s.Groups()
	require.Len(t, groups, 4)
	assert.True(t, groups[0].Stage)
	assert.Same(t, ls, groups[0].Light)
	assert.False(t, groups[1].Stage)
	assert.Equal(t, fallbackKey, groups[3].Archive)

	b := s.Bounds()
	require.True(t, b.Valid)
	assert.InDelta(t, 4, b.Max[2], 1e-5)

	s.Destroy()
	s.Destroy()
	assert.Equal(t, scene.StateDestroyed, s.State())
	stats := dev.Stats()
	assert.Zero(t, stats.Buffers)
	assert.Zero(t, stats.Textures)
	assert.Zero(t, stats.InvalidDestroys)
}

func TestLightSettingsFollowClock(t *testing.T) {
	dev := gfx.NewHeadlessDevice()
	cache := gfx.NewRenderCache(dev)
	s, err := scene.Assemble(dev, cache, "STG", []scene.Archive{{Key: stageKey, Archive: stageArchive()}}, nil)
	require.NoError(t, err)
	defer s.Destroy()

	ls := s.LightSettings()[0]
	s.Clock().SetTimeInMilliseconds(1000) // frame 60 of 120
	s.CalcLightSettings()
	assert.InDelta(t, 0.5, ls.Ambient[0], 1e-4)

	first := *ls
	s.CalcLightSettings()
	assert.Equal(t, first, *ls)
}

func TestPrepareToRenderStates(t *testing.T) {
	dev := gfx.NewHeadlessDevice()
	cache := gfx.NewRenderCache(dev)
	s, err := scene.Assemble(dev, cache, "STG", []scene.Archive{{Key: stageKey, Archive: stageArchive()}}, nil)
	require.NoError(t, err)

	m := renderinst.NewManager()
	require.NoError(t, s.PrepareToRender(m))
	assert.Equal(t, scene.StateRendering, s.State())
	assert.Equal(t, 2, m.NumSubmitted())

	s.Destroy()
	assert.ErrorIs(t, s.PrepareToRender(m), scene.ErrDestroyed)
}

func TestAssembleFailureReleasesResources(t *testing.T) {
	dev := gfx.NewHeadlessDevice()
	cache := gfx.NewRenderCache(dev)

	broken := rrestest.Model("MDL_Broken")
	broken.Models[0].Batches[0].IndexCount = 99
	objects := []resolve.Placement{
		{Archive: rrestest.Model("MDL_Good"), Source: "good"},
		{Archive: broken, Source: "broken"},
	}
	s, err := scene.Assemble(dev, cache, "STG", []scene.Archive{{Key: stageKey, Archive: stageArchive()}}, objects)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "broken")

	stats := dev.Stats()
	assert.Zero(t, stats.Buffers)
	assert.Zero(t, stats.Textures)
}

func TestAssembleDeviceError(t *testing.T) {
	dev := gfx.NewHeadlessDevice()
	dev.MemoryLimit = 64
	cache := gfx.NewRenderCache(dev)

	_, err := scene.Assemble(dev, cache, "STG", []scene.Archive{{Key: stageKey, Archive: stageArchive()}}, nil)
	assert.ErrorIs(t, err, gfx.ErrOutOfMemory)
	assert.Zero(t, dev.Stats().Bytes)
}

func TestAssembleSameNamedModels(t *testing.T) {
	dev := gfx.NewHeadlessDevice()
	cache := gfx.NewRenderCache(dev)
	defer cache.Destroy()

	raised := rrestest.Quad("Obj", "Obj_tex")
	for i := range raised.Vertices {
		raised.Vertices[i].Position[1] = 10
	}
	src := rrestest.Model("Obj")
	src.Models = append(src.Models, raised)
	arc, err := rres.Decode(rrestest.Encode(t, src))
	require.NoError(t, err)

	s, err := scene.Assemble(dev, cache, "STG", []scene.Archive{{Key: stageKey, Archive: arc}}, nil)
	require.NoError(t, err)
	defer s.Destroy()

	require.Len(t, s.Definitions(), 2)
	insts := s.Instances()
	require.Len(t, insts, 2)
	assert.NotSame(t, insts[0].Definition(), insts[1].Definition())
	assert.Equal(t, float32(0), insts[0].WorldBounds().Max[1])
	assert.Equal(t, float32(10), insts[1].WorldBounds().Min[1])
}

func TestAssembleSkipsModelsWithoutGeometry(t *testing.T) {
	dev := gfx.NewHeadlessDevice()
	cache := gfx.NewRenderCache(dev)
	defer cache.Destroy()

	prop := rrestest.Model("Prop")
	prop.Models = append(prop.Models, &rres.Model{Name: "Bones"})
	arc, err := rres.Decode(rrestest.Encode(t, prop))
	require.NoError(t, err)

	objects := []resolve.Placement{{Archive: arc, Source: "zack_and_wiki/Model/Prop.brres"}}
	s, err := scene.Assemble(dev, cache, "STG", []scene.Archive{{Key: stageKey, Archive: stageArchive()}}, objects)
	require.NoError(t, err)
	defer s.Destroy()

	names := make([]string, 0, len(s.Instances()))
	for _, inst := range s.Instances() {
		names = append(names, inst.Name())
	}
	assert.Equal(t, []string{"STG_Floor", "STG_Wall", "Prop"}, names)
	assert.Len(t, s.Definitions(), 3)
}

func TestLayerPanel(t *testing.T) {
	dev := gfx.NewHeadlessDevice()
	cache := gfx.NewRenderCache(dev)

	single, err := scene.Assemble(dev, cache, "one", []scene.Archive{{Key: "a", Archive: rrestest.Model("Only")}}, nil)
	require.NoError(t, err)
	defer single.Destroy()
	var none recorder
	assert.False(t, single.BindLayerPanel(&none))
	assert.Zero(t, none.calls)

	s, err := scene.Assemble(dev, cache, "many", []scene.Archive{{Key: stageKey, Archive: stageArchive()}}, nil)
	require.NoError(t, err)
	defer s.Destroy()

	var panel recorder
	require.True(t, s.BindLayerPanel(&panel))
	assert.Equal(t, []scene.Layer{{Name: "STG_Floor", Visible: true}, {Name: "STG_Wall", Visible: true}}, panel.layers)

	assert.True(t, s.ToggleLayer(1))
	assert.Equal(t, 2, panel.calls)
	assert.False(t, panel.layers[1].Visible)
	assert.False(t, s.Instances()[1].Visible())
	assert.False(t, s.ToggleLayer(7))

	m := renderinst.NewManager()
	require.NoError(t, s.PrepareToRender(m))
	assert.Equal(t, 1, m.NumSubmitted())
}

func TestRegistry(t *testing.T) {
	ints := scene.NewTag[int]("ints")
	strs := scene.NewTag[string]("strs")
	var r scene.Registry

	assert.Empty(t, scene.All(&r, ints))
	scene.Register(&r, ints, 1)
	scene.Register(&r, ints, 2)
	scene.Register(&r, strs, "a")
	assert.Equal(t, []int{1, 2}, scene.All(&r, ints))
	assert.Equal(t, 1, scene.Count(&r, strs))
	assert.Equal(t, "ints", ints.String())

	r.Reset()
	assert.Zero(t, scene.Count(&r, ints))
}
