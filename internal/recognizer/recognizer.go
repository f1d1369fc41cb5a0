// Package recognizer turns handwritten answer strokes into text. Inference
// is optional: when no model backend is available the package hands out a
// Stub so callers never need to special-case a missing runtime.
package recognizer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
)

// ErrUnavailable is returned by Stub.Predict.
var ErrUnavailable = errors.New("handwriting recognition unavailable")

// Point is a sample on a pen stroke, in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pen movement.
type Stroke []Point

// Recognizer predicts the text written by a set of strokes.
type Recognizer interface {
	Predict(strokes []Stroke) (string, error)
	Available() bool
}

// Stub is the recognizer used when no model can be loaded.
type Stub struct {
	Reason string
}

func (Stub) Predict([]Stroke) (string, error) { return "", ErrUnavailable }
func (Stub) Available() bool                   { return false }

// Open returns the best recognizer for modelPath. It always returns a
// usable value; when the model or the runtime is missing the result is a
// Stub carrying the reason.
func Open(modelPath string) Recognizer {
	if !runtimeCompiled {
		return stub("onnx runtime not compiled in (build with -tags onnx)")
	}
	if modelPath == "" {
		return stub("no model path configured")
	}
	r, err := newONNX(modelPath)
	if err != nil {
		return stub(err.Error())
	}
	slog.Debug("handwriting recognizer loaded", "model", modelPath)
	return r
}

func stub(reason string) Stub {
	slog.Debug("handwriting recognizer disabled", "reason", reason)
	return Stub{Reason: reason}
}

// Describe returns a one-line status for diagnostics.
func Describe(r Recognizer) string {
	switch v := r.(type) {
	case Stub:
		return "unavailable: " + v.Reason
	case *ONNX:
		return "onnx model " + v.path
	}
	if r.Available() {
		return "available"
	}
	return "unavailable"
}

// ONNX is the model-backed recognizer. Inference is not wired yet: the
// model file is validated on load and Predict returns an empty prediction.
type ONNX struct {
	path string
	size int64
}

func newONNX(path string) (*ONNX, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if fi.IsDir() || fi.Size() == 0 {
		return nil, fmt.Errorf("model file %s is empty or not a regular file", path)
	}
	return &ONNX{path: path, size: fi.Size()}, nil
}

// Predict returns an empty prediction until inference is wired.
func (o *ONNX) Predict([]Stroke) (string, error) { return "", nil }

func (o *ONNX) Available() bool { return true }

// Normalize scales strokes into the unit box, preserving aspect ratio and
// anchoring the bounding box at the origin. Empty input returns nil.
func Normalize(strokes []Stroke) []Stroke {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	n := 0
	for _, s := range strokes {
		for _, p := range s {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
			n++
		}
	}
	if n == 0 {
		return nil
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}

	out := make([]Stroke, 0, len(strokes))
	for _, s := range strokes {
		ns := make(Stroke, len(s))
		for i, p := range s {
			ns[i] = Point{X: (p.X - minX) / span, Y: (p.Y - minY) / span}
		}
		out = append(out, ns)
	}
	return out
}
