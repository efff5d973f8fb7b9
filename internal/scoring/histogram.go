package scoring

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"go.uber.org/zap"

	"consistency-server/internal/models"
)

const (
	// thumbSize is the side length both images are resized to before comparison.
	thumbSize = 64
	// histBins is the per-channel histogram resolution.
	histBins = 32

	// Blend weights of the fallback score.
	histogramWeight = 0.7
	pixelWeight     = 0.3
)

// HistogramScorer is the backend-free fallback: a weighted blend of
// per-channel histogram correlation and normalized pixel-difference similarity,
// both computed on same-sized resized copies.
type HistogramScorer struct {
	logger *zap.Logger
}

var _ Scorer = (*HistogramScorer)(nil)

// NewHistogramScorer creates the fallback strategy.
func NewHistogramScorer(logger *zap.Logger) *HistogramScorer {
	return &HistogramScorer{logger: logger.Named("HistogramScorer")}
}

// Method implements Scorer.
func (s *HistogramScorer) Method() string { return models.ScoringMethodHistogram }

// Represent decodes and downsamples the candidate image.
func (s *HistogramScorer) Represent(_ context.Context, img []byte) (*Representation, error) {
	thumb, hist, err := decodeAndSummarize(img)
	if err != nil {
		return nil, err
	}
	return &Representation{Histogram: hist, Thumb: thumb}, nil
}

// Compare scores the candidate against one stored reference by re-decoding the
// reference artifact from disk.
func (s *HistogramScorer) Compare(_ context.Context, rep *Representation, ref models.Reference) (float64, error) {
	data, err := os.ReadFile(ref.ImagePath)
	if err != nil {
		return 0, fmt.Errorf("%w: reference %s: %v", models.ErrImageRead, ref.ID, err)
	}
	refThumb, refHist, err := decodeAndSummarize(data)
	if err != nil {
		return 0, fmt.Errorf("reference %s: %w", ref.ID, err)
	}

	histSim := histogramCorrelation(rep.Histogram, refHist)
	pixSim := pixelSimilarity(rep.Thumb, refThumb)

	return clamp01(histogramWeight*histSim + pixelWeight*pixSim), nil
}

// decodeAndSummarize decodes image bytes and produces the 64x64 RGB thumbnail
// plus the per-channel histogram used for comparison.
func decodeAndSummarize(data []byte) ([]uint8, []float64, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrImageDecode, err)
	}

	thumb := resizeRGB(src, thumbSize, thumbSize)

	hist := make([]float64, 3*histBins)
	for i := 0; i < len(thumb); i += 3 {
		hist[int(thumb[i])*histBins/256]++
		hist[histBins+int(thumb[i+1])*histBins/256]++
		hist[2*histBins+int(thumb[i+2])*histBins/256]++
	}
	return thumb, hist, nil
}

// resizeRGB produces a nearest-neighbour resized RGB byte buffer (w*h*3).
func resizeRGB(src image.Image, w, h int) []uint8 {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	out := make([]uint8, 0, w*h*3)
	for y := 0; y < h; y++ {
		sy := bounds.Min.Y + y*srcH/h
		for x := 0; x < w; x++ {
			sx := bounds.Min.X + x*srcW/w
			r, g, b, _ := src.At(sx, sy).RGBA()
			out = append(out, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return out
}

// histogramCorrelation averages the Pearson correlation of the three channel
// histograms. A NaN correlation (degenerate histogram) counts as 0.
func histogramCorrelation(a, b []float64) float64 {
	if len(a) != 3*histBins || len(b) != 3*histBins {
		return 0
	}
	var sum float64
	for ch := 0; ch < 3; ch++ {
		c := pearson(a[ch*histBins:(ch+1)*histBins], b[ch*histBins:(ch+1)*histBins])
		if !math.IsNaN(c) {
			sum += c
		}
	}
	return sum / 3
}

func pearson(a, b []float64) float64 {
	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	return cov / math.Sqrt(varA*varB) // NaN when a channel has zero variance
}

// pixelSimilarity is 1 minus the normalized mean absolute difference of the
// two same-sized thumbnails.
func pixelSimilarity(a, b []uint8) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var total float64
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		total += float64(d)
	}
	return 1 - total/(255*float64(len(a)))
}
