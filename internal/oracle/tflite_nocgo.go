//go:build !cgo

package oracle

// TFLite is unavailable without cgo; Open always fails.
type TFLite struct{}

// Open reports ErrUnavailable.
func Open(path string, opts Options) (*TFLite, error) {
	return nil, ErrUnavailable
}

func (t *TFLite) InputShape() (int, int, int) { return 0, 0, 0 }
func (t *TFLite) Input() []float32            { return nil }
func (t *TFLite) Output() []float32           { return nil }
func (t *TFLite) Invoke() error               { return ErrUnavailable }
func (t *TFLite) Shape() Shape                { return Shape{} }
func (t *TFLite) Close() error                { return nil }
