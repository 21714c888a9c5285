package gldevice

import (
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
)

func TestTextureFormat(t *testing.T) {
	internal, format, xtype := textureFormat(gfx.FormatRGBA8)
	if internal != gl.RGBA8 || format != gl.RGBA || xtype != gl.UNSIGNED_BYTE {
		t.Errorf("RGBA8 maps to %#x %#x %#x", internal, format, xtype)
	}
	internal, format, xtype = textureFormat(gfx.FormatD24S8)
	if internal != gl.DEPTH24_STENCIL8 || format != gl.DEPTH_STENCIL || xtype != gl.UNSIGNED_INT_24_8 {
		t.Errorf("D24S8 maps to %#x %#x %#x", internal, format, xtype)
	}

	if attachmentPoint(gfx.FormatRGBA8) != gl.COLOR_ATTACHMENT0 {
		t.Error("color targets should attach to COLOR_ATTACHMENT0")
	}
	if attachmentPoint(gfx.FormatD24S8) != gl.DEPTH_STENCIL_ATTACHMENT {
		t.Error("depth targets should attach to DEPTH_STENCIL_ATTACHMENT")
	}
}

func TestFlipRows(t *testing.T) {
	// 1x3 image, one pixel per row.
	pixels := []byte{
		1, 1, 1, 1,
		2, 2, 2, 2,
		3, 3, 3, 3,
	}
	flipRows(pixels, 1, 3)
	want := []byte{3, 3, 3, 3, 2, 2, 2, 2, 1, 1, 1, 1}
	for i := range want {
		if pixels[i] != want[i] {
			t.Fatalf("flipped pixels = %v, want %v", pixels, want)
		}
	}
}

func TestBlockBindings(t *testing.T) {
	if blockBindings["SceneParams"] != gfx.BindingScene {
		t.Error("SceneParams should bind to the scene binding")
	}
	if blockBindings["InstanceParams"] != gfx.BindingInstance {
		t.Error("InstanceParams should bind to the instance binding")
	}
}
