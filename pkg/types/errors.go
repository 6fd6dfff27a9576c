package types

import "errors"

// Sentinel errors for the pipeline. Stage errors wrap these with
// fmt.Errorf("...: %w", ...) so callers classify with errors.Is.
var (
	// ErrUnsupportedFormat means the payload's magic bytes match none of
	// the accepted containers (JPEG, PNG, WebP, HEIC).
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrDecode means the payload claimed a known container but could
	// not be decoded, or was empty or over the size limit.
	ErrDecode = errors.New("image decode failed")

	// ErrEmptyPixelData means decoding produced a grid with zero
	// dimensions or no samples.
	ErrEmptyPixelData = errors.New("empty pixel data")

	// ErrUnknownModel means the model selector is outside the closed
	// set. Detected before any pixel work.
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnknownFilter means the filter selector is outside the closed
	// set. Detected before any pixel work.
	ErrUnknownFilter = errors.New("unknown filter")

	// ErrInference means a loaded backbone failed at run time. The
	// failure is per-request; the backbone stays registered.
	ErrInference = errors.New("inference failed")

	// ErrModelUnavailable means the selector is valid but no backbone
	// for it is loaded.
	ErrModelUnavailable = errors.New("model unavailable")
)
