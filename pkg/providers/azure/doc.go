// Package azure adapts the Microsoft Cognitive Services Speech SDK to the
// stt and tts contracts. The SDK links a native library through cgo, so the
// adapters are compiled only with the azure build tag.
package azure
