// Package imaging is the codec collaborator of the pipeline: decoding
// sources, interpolation-based resizing and per-format encoding. It knows
// nothing about upscale planning or output layout.
package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"

	// Register decoders for the source formats jpeg/png cannot cover.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mano8/imgtools-m8/errors"
)

// Codec decodes, resizes and encodes raster images.
type Codec interface {
	// Decode reads and decodes the image at path.
	Decode(path string) (image.Image, error)
	// Resize scales img to exactly width x height using interpolation.
	Resize(img image.Image, width, height int) image.Image
	// Encode serializes img according to spec.
	Encode(img image.Image, spec FormatSpec) ([]byte, error)
}

// Native is the pure-Go Codec: stdlib decoders plus golang.org/x/image for
// bmp/tiff/webp sources, Lanczos3 resampling for resizing, and chai2010/webp
// for webp output.
type Native struct{}

// NewNative creates the default codec.
func NewNative() *Native {
	return &Native{}
}

func (c *Native) Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO(path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.NewDecode(path, err)
	}
	return img, nil
}

func (c *Native) Resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
}

func (c *Native) Encode(img image.Image, spec FormatSpec) ([]byte, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	ext := spec.NormalizedExt()
	switch {
	case spec.IsJPEG():
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: spec.quality()}); err != nil {
			return nil, errors.NewEncode(ext, err)
		}
	case ext == ".png":
		enc := png.Encoder{CompressionLevel: pngLevel(spec.Compression)}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, errors.NewEncode(ext, err)
		}
	case ext == ".webp":
		opts := &webp.Options{Quality: float32(spec.quality())}
		if err := webp.Encode(&buf, img, opts); err != nil {
			return nil, errors.NewEncode(ext, err)
		}
	default:
		return nil, errors.NewInvalidSetting("ext", spec.Ext, "unsupported output format")
	}
	return buf.Bytes(), nil
}

// pngLevel maps the 0..9 zlib-style configuration range onto the four
// levels the stdlib encoder offers; -1 keeps the encoder default.
func pngLevel(compression int) png.CompressionLevel {
	switch {
	case compression < 0:
		return png.DefaultCompression
	case compression == 0:
		return png.NoCompression
	case compression <= 5:
		return png.BestSpeed
	default:
		return png.BestCompression
	}
}

// Size returns the dimensions of img.
func Size(img image.Image) (width, height int) {
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

var _ Codec = (*Native)(nil)
