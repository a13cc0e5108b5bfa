//go:build !cgo

package signtext

import "image"

// Read always fails without cgo.
func Read(img image.Image, opts Options) (*Result, error) {
	if _, _, err := prepare(img); err != nil {
		return nil, err
	}
	return nil, ErrUnavailable
}

// Available reports whether the recogniser can be used.
func Available() bool { return false }

// Describe reports the missing backend.
func Describe() Info {
	return Info{Backend: "none", Error: ErrUnavailable.Error()}
}
