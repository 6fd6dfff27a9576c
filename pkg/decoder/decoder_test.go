package decoder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"

	"github.com/menta2k/emo-check/pkg/types"
)

// createTestImage creates a simple gradient test image.
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.SetNRGBA(x, y, color.NRGBA{r, g, 128, 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg encode failed: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func encodeWebP(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		t.Fatalf("webp encode failed: %v", err)
	}
	return buf.Bytes()
}

// fakeHEIC builds just enough of an ISO-BMFF header to be sniffed.
func fakeHEIC() []byte {
	return []byte{0, 0, 0, 24, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c', 0, 0, 0, 0}
}

func TestDetectFormat(t *testing.T) {
	img := createTestImage(16, 16)

	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"jpeg", encodeJPEG(t, img), FormatJPEG},
		{"png", encodePNG(t, img), FormatPNG},
		{"webp", encodeWebP(t, img), FormatWebP},
		{"heic", fakeHEIC(), FormatHEIC},
	}

	for _, test := range tests {
		got, err := DetectFormat(test.data)
		if err != nil {
			t.Errorf("%s: DetectFormat failed: %v", test.name, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s: DetectFormat = %s, expected %s", test.name, got, test.want)
		}
	}
}

func TestDetectFormatUnsupported(t *testing.T) {
	payloads := [][]byte{
		[]byte("MZ\x90\x00\x03\x00\x00\x00\x04\x00\x00\x00"), // PE executable
		{0x7F, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0},        // ELF executable
		[]byte("GIF89a......"),
		[]byte("plain text, definitely not an image"),
		{},
	}
	for i, data := range payloads {
		if _, err := DetectFormat(data); !errors.Is(err, types.ErrUnsupportedFormat) {
			t.Errorf("Payload %d: expected ErrUnsupportedFormat, got %v", i, err)
		}
	}
}

func TestDecodeFormats(t *testing.T) {
	d := New()
	img := createTestImage(32, 24)

	tests := []struct {
		name string
		data []byte
	}{
		{"jpeg", encodeJPEG(t, img)},
		{"png", encodePNG(t, img)},
		{"webp", encodeWebP(t, img)},
	}

	for _, test := range tests {
		grid, err := d.Decode(test.data)
		if err != nil {
			t.Errorf("%s: Decode failed: %v", test.name, err)
			continue
		}
		if grid.W != 32 || grid.H != 24 {
			t.Errorf("%s: got %dx%d, expected 32x24", test.name, grid.W, grid.H)
		}
		if err := grid.Validate(); err != nil {
			t.Errorf("%s: decoded grid invalid: %v", test.name, err)
		}
	}
}

func TestDecodeLosslessRoundTrip(t *testing.T) {
	d := New()
	img := createTestImage(20, 20)

	grid, err := d.Decode(encodePNG(t, img))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	r, g, b := grid.At(10, 5)
	wr, wg, wb := uint8((10*255)/20), uint8((5*255)/20), uint8(128)
	if r != wr || g != wg || b != wb {
		t.Errorf("Pixel (10,5) = (%d,%d,%d), expected (%d,%d,%d)", r, g, b, wr, wg, wb)
	}
}

func TestDecodeFlattensAlpha(t *testing.T) {
	d := New()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	// Fully transparent image must flatten to white, not black.
	grid, err := d.Decode(encodePNG(t, img))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	r, g, b := grid.At(4, 4)
	if r != 255 || g != 255 || b != 255 {
		t.Errorf("Transparent pixel flattened to (%d,%d,%d), expected white", r, g, b)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	d := New()
	if _, err := d.Decode(nil); !errors.Is(err, types.ErrDecode) {
		t.Errorf("Expected ErrDecode for nil payload, got %v", err)
	}
	if _, err := d.Decode([]byte{}); !errors.Is(err, types.ErrDecode) {
		t.Errorf("Expected ErrDecode for empty payload, got %v", err)
	}
}

func TestDecodeCorruptPayload(t *testing.T) {
	d := New()

	// Valid PNG signature followed by garbage.
	data := append(append([]byte{}, pngSignature...), []byte("not actually a png")...)
	if _, err := d.Decode(data); !errors.Is(err, types.ErrDecode) {
		t.Errorf("Expected ErrDecode for corrupt PNG, got %v", err)
	}

	// Truncated JPEG.
	full := encodeJPEG(t, createTestImage(32, 32))
	if _, err := d.Decode(full[:len(full)/3]); !errors.Is(err, types.ErrDecode) {
		t.Errorf("Expected ErrDecode for truncated JPEG, got %v", err)
	}
}

func TestDecodeUnsupportedPayload(t *testing.T) {
	d := New()
	data := []byte("MZ\x90\x00 this is an executable, not a photo")
	if _, err := d.Decode(data); !errors.Is(err, types.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeOversized(t *testing.T) {
	d := NewWithConfig(Config{MaxPixels: 100})
	data := encodePNG(t, createTestImage(20, 20))
	if _, err := d.Decode(data); !errors.Is(err, types.ErrDecode) {
		t.Errorf("Expected ErrDecode for oversized image, got %v", err)
	}
}

func TestApplyOrientation(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	src.SetNRGBA(3, 0, color.NRGBA{255, 0, 0, 255})

	tests := []struct {
		orientation int
		w, h        int
		redX, redY  int
	}{
		{1, 4, 2, 3, 0},
		{2, 4, 2, 0, 0}, // mirrored horizontally
		{3, 4, 2, 0, 1}, // rotated 180
		{6, 2, 4, 1, 3}, // rotated 90 clockwise
		{8, 2, 4, 0, 0}, // rotated 90 counter-clockwise
	}

	for _, test := range tests {
		out := applyOrientation(src, test.orientation)
		b := out.Bounds()
		if b.Dx() != test.w || b.Dy() != test.h {
			t.Errorf("Orientation %d: got %dx%d, expected %dx%d",
				test.orientation, b.Dx(), b.Dy(), test.w, test.h)
			continue
		}
		r, _, _, _ := out.At(b.Min.X+test.redX, b.Min.Y+test.redY).RGBA()
		if uint8(r>>8) != 255 {
			t.Errorf("Orientation %d: red marker not at (%d,%d)",
				test.orientation, test.redX, test.redY)
		}
	}
}

func TestResizeForModel(t *testing.T) {
	tests := []struct {
		w, h, size int
	}{
		{100, 60, 32},
		{100, 60, 224},
		{16, 300, 64},
		{50, 50, 50},
	}
	for _, test := range tests {
		out := ResizeForModel(types.GridFromImage(createTestImage(test.w, test.h)), test.size)
		if out.W != test.size || out.H != test.size {
			t.Errorf("ResizeForModel(%dx%d, %d) produced %dx%d",
				test.w, test.h, test.size, out.W, out.H)
		}
	}
}

func TestResizeForModelDeterministic(t *testing.T) {
	g := types.GridFromImage(createTestImage(127, 83))
	a := ResizeForModel(g, 224)
	b := ResizeForModel(g, 224)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("Same grid resized to different pixels")
	}
}

func TestResizeForModelUniform(t *testing.T) {
	// Area averaging and bilinear interpolation both preserve a solid
	// color exactly.
	g := types.NewGrid(90, 90)
	for i := 0; i < len(g.Pix); i += 3 {
		g.Pix[i], g.Pix[i+1], g.Pix[i+2] = 200, 100, 50
	}
	for _, size := range []int{32, 224} {
		out := ResizeForModel(g, size)
		for i := 0; i < len(out.Pix); i += 3 {
			if out.Pix[i] != 200 || out.Pix[i+1] != 100 || out.Pix[i+2] != 50 {
				t.Fatalf("Size %d: pixel %d = (%d,%d,%d), expected (200,100,50)",
					size, i/3, out.Pix[i], out.Pix[i+1], out.Pix[i+2])
			}
		}
	}
}

func TestResizeForModelDoesNotMutateInput(t *testing.T) {
	g := types.GridFromImage(createTestImage(64, 64))
	before := append([]uint8(nil), g.Pix...)
	ResizeForModel(g, 32)
	ResizeForModel(g, 64)
	if !bytes.Equal(g.Pix, before) {
		t.Error("ResizeForModel mutated its input grid")
	}
}

func TestEncodePNGDeterministic(t *testing.T) {
	grid := types.GridFromImage(createTestImage(30, 30))

	a, err := EncodePNG(grid)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	b, err := EncodePNG(grid)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("EncodePNG produced different bytes for the same grid")
	}

	decoded, err := png.Decode(bytes.NewReader(a))
	if err != nil {
		t.Fatalf("Encoded PNG does not decode: %v", err)
	}
	if decoded.Bounds().Dx() != 30 || decoded.Bounds().Dy() != 30 {
		t.Errorf("Round trip changed dimensions to %v", decoded.Bounds())
	}
}

func TestEncodePNGInvalidGrid(t *testing.T) {
	if _, err := EncodePNG(&types.Grid{}); !errors.Is(err, types.ErrEmptyPixelData) {
		t.Errorf("Expected ErrEmptyPixelData, got %v", err)
	}
}
