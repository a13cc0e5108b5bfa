// Package signtext reads the legend printed on a detected sign tile.
//
// It wraps the Tesseract OCR engine through gosseract/v2. Tiles are converted
// to grayscale and upscaled before recognition since signs found at small
// scales are often under a hundred pixels across.
//
// # Prerequisites
//
// Tesseract and its language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Builds without cgo compile a stub whose Read returns ErrUnavailable.
package signtext
