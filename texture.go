package mosaic

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrEmptyImage = errors.New("image has no pixels")

// ImageInfo is what the scene needs to know about the photo: its size.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

// Ratio is width over height.
func (i ImageInfo) Ratio() float64 {
	return float64(i.Width) / float64(i.Height)
}

// ProbeImage reads only the header of the image at path.
func ProbeImage(path string) (ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, err
	}
	defer f.Close()

	info, err := ProbeImageReader(f)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

func ProbeImageReader(r io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, ErrEmptyImage
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// ImageRatio probes path and falls back to fallback when the image can't be
// read. The scene is still built, just with the configured proportions.
func ImageRatio(path string, fallback float64, log Logger) float64 {
	if path == "" {
		return fallback
	}
	info, err := ProbeImage(path)
	if err != nil {
		orNop(log).Warnf("texture: %v; using image ratio %.3f", err, fallback)
		return fallback
	}
	orNop(log).Infof("texture: %s is %dx%d %s", path, info.Width, info.Height, info.Format)
	return info.Ratio()
}
