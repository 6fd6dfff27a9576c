package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/menta2k/emo-check/pkg/types"
)

// EmoClass is the metadata class name whose probability becomes the
// raw score.
const EmoClass = "emo"

// Metadata is the JSON sidecar exported next to each ONNX file.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

var runtimeMu sync.Mutex

// InitRuntime prepares the shared ONNX runtime. libraryPath may be
// empty to use the loader's default search. Safe to call more than
// once.
func InitRuntime(libraryPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime: %w", err)
	}
	return nil
}

// ShutdownRuntime releases the shared ONNX runtime. Call after every
// backbone is closed.
func ShutdownRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// ONNXBackbone scores through an onnxruntime session. The session
// binds fixed input/output tensors, so runs are serialized with a
// per-backbone mutex; two backbones never block each other.
type ONNXBackbone struct {
	name     string
	metadata Metadata
	emoIndex int

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// LoadONNX creates a backbone from an ONNX file and its metadata
// sidecar. InitRuntime must have succeeded first.
func LoadONNX(name, modelPath, metadataPath string) (*ONNXBackbone, error) {
	raw, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var metadata Metadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	if err := validateMetadata(metadata); err != nil {
		return nil, err
	}

	emoIndex := -1
	for i, class := range metadata.Classes {
		if class == EmoClass {
			emoIndex = i
		}
	}
	if emoIndex < 0 {
		return nil, fmt.Errorf("metadata for %s lists no %q class", name, EmoClass)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session for %s: %w", name, err)
	}

	return &ONNXBackbone{
		name:     name,
		metadata: metadata,
		emoIndex: emoIndex,
		session:  session,
		input:    input,
		output:   output,
	}, nil
}

func validateMetadata(m Metadata) error {
	if len(m.InputShape) != 4 {
		return fmt.Errorf("input_shape must have 4 dims, got %d", len(m.InputShape))
	}
	if len(m.Classes) < 2 {
		return fmt.Errorf("classes must list at least 2 entries, got %d", len(m.Classes))
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("image_size must be positive, got %d", m.ImageSize)
	}
	return nil
}

// Name returns the human-readable model name, e.g. "ResNet152".
func (b *ONNXBackbone) Name() string { return b.name }

// InputSize returns the native square input in pixels.
func (b *ONNXBackbone) InputSize() int { return b.metadata.ImageSize }

// Score copies the tensor in, runs the session and softmaxes the
// logits. The raw score is the emo-class probability.
func (b *ONNXBackbone) Score(ctx context.Context, input []float32) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	data := b.input.GetData()
	if len(input) != len(data) {
		return 0, 0, fmt.Errorf("%w: %s: input has %d values, tensor wants %d",
			types.ErrInference, b.name, len(input), len(data))
	}
	copy(data, input)

	if err := b.session.Run(); err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", types.ErrInference, b.name, err)
	}

	probs := softmax(b.output.GetData())
	if b.emoIndex >= len(probs) {
		return 0, 0, fmt.Errorf("%w: %s: %d logits, emo class at %d",
			types.ErrInference, b.name, len(probs), b.emoIndex)
	}

	confidence := 0.0
	for _, p := range probs {
		if p > confidence {
			confidence = p
		}
	}
	return probs[b.emoIndex], confidence, nil
}

// Close destroys the session and its bound tensors.
func (b *ONNXBackbone) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		b.session.Destroy()
		b.session = nil
	}
	if b.input != nil {
		b.input.Destroy()
		b.input = nil
	}
	if b.output != nil {
		b.output.Destroy()
		b.output = nil
	}
	return nil
}

// softmax converts logits to probabilities, shifted by the max logit
// for numerical stability.
func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}
	probs := make([]float64, len(logits))
	sum := 0.0
	for i, l := range logits {
		probs[i] = math.Exp(float64(l - maxLogit))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
