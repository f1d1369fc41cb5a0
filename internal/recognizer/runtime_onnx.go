//go:build onnx

package recognizer

const runtimeCompiled = true
