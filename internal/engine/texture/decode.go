// Package texture decodes archive textures and owns their device copies.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/Faultbox/stagegraph/pkg/rres"
)

var (
	// ErrDecode is returned for texture data that cannot be decoded.
	ErrDecode = errors.New("texture: decode failed")
	// ErrUnsupportedFormat is returned for image files of an unknown or
	// unsupported kind.
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported format", ErrDecode)
)

// Decode converts an archive texture to RGBA pixels.
func Decode(t *rres.Texture) (*image.RGBA, error) {
	switch t.Format {
	case rres.FormatRGBA8:
		want := int(t.Width) * int(t.Height) * 4
		if len(t.Data) != want || want == 0 {
			return nil, fmt.Errorf("%w: %q has %d bytes for %dx%d", ErrDecode, t.Name, len(t.Data), t.Width, t.Height)
		}
		return &image.RGBA{
			Pix:    t.Data,
			Stride: int(t.Width) * 4,
			Rect:   image.Rect(0, 0, int(t.Width), int(t.Height)),
		}, nil
	case rres.FormatEncoded:
		img, err := DecodeImage(t.Data)
		if err != nil {
			return nil, fmt.Errorf("texture %q: %w", t.Name, err)
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: texture %q format %d", ErrUnsupportedFormat, t.Name, t.Format)
}

// DecodeImage decodes a PNG, BMP or TGA file. PNG and BMP are recognized
// by their signature; anything else is tried as TGA, which has none.
func DecodeImage(data []byte) (*image.RGBA, error) {
	kind, _ := filetype.Match(data)

	var (
		img image.Image
		err error
	)
	switch kind.Extension {
	case "png":
		img, err = png.Decode(bytes.NewReader(data))
	case "bmp":
		img, err = bmp.Decode(bytes.NewReader(data))
	case "jpg", "gif", "webp", "tif":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind.Extension)
	default:
		return DecodeTGA(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, kind.Extension, err)
	}
	return ToRGBA(img), nil
}

// ToRGBA returns img as *image.RGBA with its origin at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	return rgba
}
