package window

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"
)

func TestWindowFlags(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		fullscreen bool
	}{
		{"windowed", Config{}, false},
		{"fullscreen", Config{Fullscreen: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := windowFlags(tt.cfg)
			if flags&sdl.WINDOW_OPENGL == 0 {
				t.Error("window is not an OpenGL window")
			}
			if flags&sdl.WINDOW_RESIZABLE == 0 {
				t.Error("window is not resizable")
			}
			if got := flags&sdl.WINDOW_FULLSCREEN_DESKTOP == sdl.WINDOW_FULLSCREEN_DESKTOP; got != tt.fullscreen {
				t.Errorf("fullscreen = %v, want %v", got, tt.fullscreen)
			}
		})
	}
}

func TestGLAttributesRequestCoreProfile(t *testing.T) {
	want := map[sdl.GLattr]int{
		sdl.GL_CONTEXT_MAJOR_VERSION: 4,
		sdl.GL_CONTEXT_MINOR_VERSION: 1,
		sdl.GL_CONTEXT_PROFILE_MASK:  sdl.GL_CONTEXT_PROFILE_CORE,
		sdl.GL_DEPTH_SIZE:            0,
	}
	got := make(map[sdl.GLattr]int)
	for _, a := range glAttributes {
		got[a.attr] = a.value
	}
	for attr, v := range want {
		if got[attr] != v {
			t.Errorf("attribute %d = %d, want %d", attr, got[attr], v)
		}
	}
}
