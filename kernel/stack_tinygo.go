//go:build tinygo

package kernel

// TinyGo has no runtime stack dump.
func captureStack() []byte { return nil }
