package texture

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/logger"
	"github.com/Faultbox/stagegraph/pkg/rres"
)

// ErrDestroyed is returned when a destroyed holder is asked to add textures.
var ErrDestroyed = errors.New("texture: holder destroyed")

// Key identifies a texture by the archive it came from and its name.
type Key struct {
	Archive string
	Name    string
}

// Holder is a content-addressed texture cache. It owns every device
// texture it creates; callers hold plain gfx.Texture values that stay valid
// until Destroy.
type Holder struct {
	device    gfx.Device
	textures  map[Key]gfx.Texture
	order     []Key
	fallback  gfx.Texture
	destroyed bool
	log       *zap.Logger
}

// NewHolder returns an empty holder creating textures on device.
func NewHolder(device gfx.Device) *Holder {
	return &Holder{
		device:   device,
		textures: make(map[Key]gfx.Texture),
		log:      logger.Named("texture"),
	}
}

// AddArchiveTextures decodes and uploads the textures of one archive.
// Textures already held under the same key are skipped, so archives shared
// by several placements are uploaded once.
func (h *Holder) AddArchiveTextures(archive string, textures []*rres.Texture) error {
	if h.destroyed {
		return ErrDestroyed
	}
	for _, t := range textures {
		key := Key{Archive: archive, Name: t.Name}
		if _, ok := h.textures[key]; ok {
			continue
		}
		img, err := Decode(t)
		if err != nil {
			return err
		}
		desc := gfx.TextureDesc{Width: img.Rect.Dx(), Height: img.Rect.Dy(), Format: gfx.FormatRGBA8}
		tex, err := h.device.CreateTexture(desc)
		if err != nil {
			return fmt.Errorf("texture %q: %w", t.Name, err)
		}
		if err := h.device.UploadTexture(tex, img.Pix); err != nil {
			h.device.DestroyTexture(tex)
			return fmt.Errorf("texture %q: %w", t.Name, err)
		}
		h.textures[key] = tex
		h.order = append(h.order, key)
	}
	h.log.Debug("archive textures added", zap.String("archive", archive), zap.Int("held", len(h.order)))
	return nil
}

// Lookup returns the texture name of archive.
func (h *Holder) Lookup(archive, name string) (gfx.Texture, bool) {
	tex, ok := h.textures[Key{Archive: archive, Name: name}]
	return tex, ok
}

// Fallback returns a 1x1 white texture used by materials whose texture is
// missing, creating it on first use.
func (h *Holder) Fallback() (gfx.Texture, error) {
	if h.fallback.ID != 0 {
		return h.fallback, nil
	}
	tex, err := h.device.CreateTexture(gfx.TextureDesc{Width: 1, Height: 1, Format: gfx.FormatRGBA8})
	if err != nil {
		return gfx.Texture{}, err
	}
	if err := h.device.UploadTexture(tex, []byte{255, 255, 255, 255}); err != nil {
		h.device.DestroyTexture(tex)
		return gfx.Texture{}, err
	}
	h.fallback = tex
	return tex, nil
}

// Len returns the number of archive textures held.
func (h *Holder) Len() int {
	return len(h.order)
}

// Keys returns the held keys in insertion order.
func (h *Holder) Keys() []Key {
	return append([]Key(nil), h.order...)
}

// Destroy releases every texture. Later calls do nothing.
func (h *Holder) Destroy() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	for _, key := range h.order {
		h.device.DestroyTexture(h.textures[key])
	}
	if h.fallback.ID != 0 {
		h.device.DestroyTexture(h.fallback)
	}
	h.textures = nil
	h.order = nil
	h.fallback = gfx.Texture{}
}
