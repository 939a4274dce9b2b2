package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kastheco/monothematic/palette"
)

// Extraction methods.
const (
	MethodHistogram = "histogram"
	MethodKMeans    = "kmeans"
)

const (
	// Pixels sampled per image at most; larger images are strided.
	maxHistogramSamples = 1 << 18
	maxKMeansSamples    = 1 << 14

	// 16 levels per channel.
	binShift = 4
	binCount = 1 << (3 * (8 - binShift))

	kmeansK     = 5
	kmeansDelta = 0.01
)

// ErrNoPixels is returned for images without a single visible pixel.
var ErrNoPixels = errors.New("image has no opaque pixels")

// Extract decodes the image at path and returns its dominant color using the
// named method. An empty method means histogram.
func Extract(ctx context.Context, path, method string) (palette.Color, error) {
	f, err := os.Open(path)
	if err != nil {
		return palette.Color{}, fmt.Errorf("open wallpaper: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return palette.Color{}, fmt.Errorf("decode wallpaper %s: %w", path, err)
	}

	switch method {
	case "", MethodHistogram:
		return Histogram(ctx, img)
	case MethodKMeans:
		return KMeans(ctx, img)
	}
	return palette.Color{}, fmt.Errorf("unknown extraction method %q", method)
}

// Histogram buckets pixels into a 16x16x16 RGB cube and returns the center of
// the fullest bucket. Ties go to the lowest bucket index.
func Histogram(ctx context.Context, img image.Image) (palette.Color, error) {
	var counts [binCount]int
	total := 0
	err := samplePixels(ctx, img, maxHistogramSamples, func(r, g, b uint8) {
		bin := int(r>>binShift)<<(2*(8-binShift)) | int(g>>binShift)<<(8-binShift) | int(b>>binShift)
		counts[bin]++
		total++
	})
	if err != nil {
		return palette.Color{}, err
	}
	if total == 0 {
		return palette.Color{}, ErrNoPixels
	}

	best := 0
	for i, n := range counts {
		if n > counts[best] {
			best = i
		}
	}

	mask := 1<<(8-binShift) - 1
	center := func(level int) float64 {
		return float64(level<<binShift+1<<(binShift-1)) / 255
	}
	c := colorful.Color{
		R: center(best >> (2 * (8 - binShift)) & mask),
		G: center(best >> (8 - binShift) & mask),
		B: center(best & mask),
	}
	return palette.FromColorful(c), nil
}

// okLabObservation is a pixel in OkLab space, shifted so a and b fall in
// [0,1] like the unit-cube seeds kmeans starts from.
type okLabObservation struct {
	l, a, b float64
}

func (o okLabObservation) Coordinates() clusters.Coordinates {
	return clusters.Coordinates{o.l, o.a, o.b}
}

func (o okLabObservation) Distance(pos clusters.Coordinates) float64 {
	return o.Coordinates().Distance(pos)
}

// KMeans clusters sampled pixels in OkLab and returns the center of the
// largest cluster.
func KMeans(ctx context.Context, img image.Image) (palette.Color, error) {
	var d clusters.Observations
	distinct := make(map[[3]uint8]struct{})
	err := samplePixels(ctx, img, maxKMeansSamples, func(r, g, b uint8) {
		l, a, bb := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.OkLab()
		d = append(d, okLabObservation{l: l, a: a + 0.5, b: bb + 0.5})
		distinct[[3]uint8{r, g, b}] = struct{}{}
	})
	if err != nil {
		return palette.Color{}, err
	}
	if len(d) == 0 {
		return palette.Color{}, ErrNoPixels
	}

	km, err := kmeans.NewWithOptions(kmeansDelta, nil)
	if err != nil {
		return palette.Color{}, fmt.Errorf("kmeans: %w", err)
	}
	// More clusters than distinct colors leaves some permanently empty.
	parts, err := km.Partition(d, min(kmeansK, len(distinct)))
	if err != nil {
		return palette.Color{}, fmt.Errorf("kmeans: %w", err)
	}

	best := -1
	for i, c := range parts {
		if best < 0 || len(c.Observations) > len(parts[best].Observations) {
			best = i
		}
	}
	if best < 0 || len(parts[best].Center) < 3 {
		return palette.Color{}, errors.New("kmeans: no clusters")
	}
	center := parts[best].Center
	c := colorful.OkLab(center[0], center[1]-0.5, center[2]-0.5)
	return palette.FromColorful(c.Clamped()), nil
}

// samplePixels calls fn with the straight 8-bit RGB of up to limit visible
// pixels, spread evenly over img.
func samplePixels(ctx context.Context, img image.Image, limit int, fn func(r, g, b uint8)) error {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	step := 1
	if n := w * h; n > limit {
		step = int(math.Ceil(math.Sqrt(float64(n) / float64(limit))))
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			if a != 0xffff {
				r = r * 0xffff / a
				g = g * 0xffff / a
				b = b * 0xffff / a
			}
			fn(uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return nil
}
