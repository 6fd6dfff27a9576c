// Package decoder turns uploaded bytes into pixel grids: container
// sniffing, JPEG/PNG/WebP/HEIC decoding, EXIF orientation and alpha
// flattening, plus the PNG encoder used for filter output.
package decoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	"github.com/ollama/ollama/model/imageproc"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/emo-check/pkg/types"
)

// Format is a sniffed container format.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatHEIC Format = "heic"
)

// DefaultMaxPixels caps decoded size at 24 megapixels. Uploads above
// it are rejected before the pixel buffer is allocated.
const DefaultMaxPixels = 24000000

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Config holds decoder limits.
type Config struct {
	MaxPixels int
}

// Decoder decodes uploads into grids.
type Decoder struct {
	config Config
}

// New creates a Decoder with default limits.
func New() *Decoder {
	return &Decoder{config: Config{MaxPixels: DefaultMaxPixels}}
}

// NewWithConfig creates a Decoder with custom limits. A zero MaxPixels
// disables the size guard.
func NewWithConfig(config Config) *Decoder {
	return &Decoder{config: config}
}

// DetectFormat sniffs the container by magic bytes. The MIME type an
// upload claims is never consulted.
func DetectFormat(data []byte) (Format, error) {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG, nil
	case len(data) >= 8 && bytes.Equal(data[:8], pngSignature):
		return FormatPNG, nil
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP, nil
	case isHEIF(data):
		return FormatHEIC, nil
	}
	return "", types.ErrUnsupportedFormat
}

// isHEIF checks for an ISO-BMFF ftyp box with a HEIF brand.
func isHEIF(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "hevc", "mif1", "msf1":
		return true
	}
	return false
}

// Decode sniffs, bounds-checks and decodes an upload, applies EXIF
// orientation, flattens alpha over white and returns the pixel grid.
func (d *Decoder) Decode(data []byte) (*types.Grid, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", types.ErrDecode)
	}

	format, err := DetectFormat(data)
	if err != nil {
		return nil, err
	}
	if err := d.checkBounds(data, format); err != nil {
		return nil, err
	}

	var img image.Image
	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case FormatPNG:
		img, err = png.Decode(bytes.NewReader(data))
	case FormatWebP:
		img, err = decodeWebP(data)
	case FormatHEIC:
		img, err = goheif.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrDecode, format, err)
	}

	img = applyOrientation(img, orientation(data, format))
	img = imageproc.Composite(img)

	grid := types.GridFromImage(img)
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return grid, nil
}

// checkBounds reads only the header to reject oversized or degenerate
// images cheaply.
func (d *Decoder) checkBounds(data []byte, format Format) error {
	var cfg image.Config
	var err error
	switch format {
	case FormatJPEG:
		cfg, err = jpeg.DecodeConfig(bytes.NewReader(data))
	case FormatPNG:
		cfg, err = png.DecodeConfig(bytes.NewReader(data))
	case FormatWebP:
		cfg, err = webp.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
		}
	case FormatHEIC:
		cfg, err = goheif.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return fmt.Errorf("%w: %s header: %v", types.ErrDecode, format, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return types.ErrEmptyPixelData
	}
	if d.config.MaxPixels > 0 && cfg.Width*cfg.Height > d.config.MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixel limit",
			types.ErrDecode, cfg.Width, cfg.Height, d.config.MaxPixels)
	}
	return nil
}

// decodeWebP tries the cgo decoder first, then the registered pure-Go
// fallback; lossless and extended files sometimes fail in one decoder
// but not the other.
func decodeWebP(data []byte) (image.Image, error) {
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// orientation extracts the EXIF orientation tag (1..8), returning 1
// (upright) whenever the metadata is missing or unreadable.
func orientation(data []byte, format Format) int {
	var r io.Reader
	switch format {
	case FormatJPEG:
		r = bytes.NewReader(data)
	case FormatHEIC:
		raw, err := goheif.ExtractExif(bytes.NewReader(data))
		if err != nil || len(raw) == 0 {
			return 1
		}
		// goheif returns the APP1 payload; strip the Exif prefix so the
		// parser sees a bare TIFF header.
		raw = bytes.TrimPrefix(raw, []byte("Exif\x00\x00"))
		r = bytes.NewReader(raw)
	default:
		// PNG and WebP carry EXIF so rarely that decoders ignore it.
		return 1
	}

	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// applyOrientation maps EXIF orientation values 2..8 onto the
// transform that re-uprights the image.
func applyOrientation(img image.Image, o int) image.Image {
	switch o {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// ResizeForModel scales a grid to the square input size a scoring
// backbone expects. Downscales average over the source area, upscales
// interpolate bilinearly; the result is deterministic for a given size.
func ResizeForModel(g *types.Grid, size int) *types.Grid {
	if g.W == size && g.H == size {
		return g.Clone()
	}
	filter := imaging.Box
	if size > g.W || size > g.H {
		filter = imaging.Linear
	}
	return types.GridFromImage(imaging.Resize(g.Image(), size, size, filter))
}

// EncodePNG serializes a grid for transport. PNG keeps filter output
// lossless and byte-stable for identical input.
func EncodePNG(g *types.Grid) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, g.Image()); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}
