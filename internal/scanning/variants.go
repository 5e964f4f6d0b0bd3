package scanning

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
)

// imageVariant is a preprocessed rendition of the upload fed to a local engine
type imageVariant struct {
	name string
	data []byte
}

// buildVariants renders the original image plus two enhanced versions that
// help Tesseract with low-contrast phone photos
func buildVariants(data []byte) ([]imageVariant, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	// Grayscale, stronger contrast, sharpen, then lift the midtones
	enhanced := imaging.Grayscale(src)
	enhanced = imaging.AdjustContrast(enhanced, 30)
	enhanced = imaging.Sharpen(enhanced, 1.5)
	enhanced = imaging.AdjustGamma(enhanced, 1.2)

	// Smooth sensor noise before pushing contrast close to a binarization
	highContrast := imaging.Grayscale(src)
	highContrast = imaging.Blur(highContrast, 0.8)
	highContrast = imaging.AdjustContrast(highContrast, 70)

	variants := []imageVariant{{name: "original", data: data}}
	for _, v := range []struct {
		name string
		img  image.Image
	}{
		{"enhanced", enhanced},
		{"high_contrast", highContrast},
	} {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, v.img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("encoding %s variant: %w", v.name, err)
		}
		variants = append(variants, imageVariant{name: v.name, data: buf.Bytes()})
	}
	return variants, nil
}

// scoreLines rates a recognition result: average confidence plus bonuses for
// the amount of text and the number of non-empty lines
func scoreLines(lines []Line) float64 {
	if len(lines) == 0 {
		return 0
	}
	var confSum float64
	totalChars := 0
	nonEmpty := 0
	for _, l := range lines {
		confSum += l.Confidence
		text := strings.TrimSpace(l.Text)
		totalChars += len([]rune(text))
		if text != "" {
			nonEmpty++
		}
	}
	avg := confSum / float64(len(lines))
	charBonus := math.Min(float64(totalChars), 240) / 240 * 0.5
	lineBonus := math.Min(float64(nonEmpty), 20) / 20 * 0.3
	return avg + charBonus + lineBonus
}
