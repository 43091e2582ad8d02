package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/stencil-tools-mcp/internal/stencil"
)

// EncodedImage contains a pixel buffer encoded as base64 PNG.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes a buffer as a base64 PNG.
func EncodePNG(b stencil.PixelBuffer) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, b.ToImage(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &EncodedImage{
		Width:       b.Width(),
		Height:      b.Height(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// ExportResult describes a file written by Export.
type ExportResult struct {
	Path      string `json:"path"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	Paletted  bool   `json:"paletted"`
	Colors    int    `json:"colors,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
}

// Export writes a buffer to path. The format follows the file extension
// (png, jpg, gif, tif, bmp).
//
// With paletted set, the output must be a .png file; the buffer is written as
// an 8-bit paletted PNG. Buffers with at most 256 colours keep their exact
// colours; others are re-quantized to 256 colours first.
func Export(b stencil.PixelBuffer, path string, paletted bool) (*ExportResult, error) {
	if b.Empty() {
		return nil, fmt.Errorf("nothing to export: %w", stencil.ErrEmptyBuffer)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	res := &ExportResult{Path: path, Width: b.Width(), Height: b.Height(), Paletted: paletted}
	if paletted {
		if f, err := imaging.FormatFromFilename(path); err != nil || f != imaging.PNG {
			return nil, fmt.Errorf("paletted export requires a .png path: %s", path)
		}
		img := palettedImage(b)
		if err := savePNG(img, path); err != nil {
			return nil, err
		}
		res.Format = "png"
		res.Colors = len(img.Palette)
	} else {
		f, err := imaging.FormatFromFilename(path)
		if err != nil {
			return nil, fmt.Errorf("unsupported export format: %w", err)
		}
		if err := imaging.Save(b.ToImage(), path); err != nil {
			return nil, fmt.Errorf("failed to save image: %w", err)
		}
		res.Format = strings.ToLower(f.String())
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat exported file: %w", err)
	}
	res.SizeBytes = stat.Size()
	return res, nil
}

func palettedImage(b stencil.PixelBuffer) *image.Paletted {
	if img, ok := stencil.Paletted(b); ok {
		return img
	}
	return stencil.Quantizer{Tier: stencil.TierHigh, N: 256}.Paletted(b.ToImage())
}

func savePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode paletted image: %w", err)
	}
	return f.Close()
}
