package scanning

import (
	"context"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractConfig holds Tesseract configuration
type TesseractConfig struct {
	// TessdataPrefix overrides the traineddata directory
	TessdataPrefix string
	// SinglePass skips the preprocessed image variants
	SinglePass bool
}

// Tesseract implements the Engine interface using a local Tesseract install.
// A fresh gosseract client is created per pass so the engine is safe for
// concurrent requests.
type Tesseract struct {
	cfg TesseractConfig
}

// NewTesseract creates a new Tesseract engine
func NewTesseract(cfg TesseractConfig) *Tesseract {
	return &Tesseract{cfg: cfg}
}

// Name returns the engine id
func (t *Tesseract) Name() string {
	return "tesseract"
}

// Recognize runs every image variant and keeps the best scoring result
func (t *Tesseract) Recognize(ctx context.Context, image []byte, language string) ([]Line, error) {
	variants := []imageVariant{{name: "original", data: image}}
	if !t.cfg.SinglePass {
		built, err := buildVariants(image)
		if err != nil {
			return nil, newEngineError(t.Name(), KindMalformedImage, err)
		}
		variants = built
	}

	langs := tesseractLanguages(language)
	var (
		best      []Line
		bestScore = -1.0
		bestName  string
		failures  []error
	)
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return nil, classifyRequestError(t.Name(), err)
		}
		lines, err := t.recognizeVariant(ctx, v.data, langs)
		if err != nil {
			if kind, _ := KindOf(err); kind == KindTimeout {
				return nil, err
			}
			slog.Debug("Tesseract variant failed", "variant", v.name, "error", err)
			failures = append(failures, err)
			continue
		}
		score := scoreLines(lines)
		slog.Debug("Tesseract variant scored", "variant", v.name, "lines", len(lines), "score", score)
		if len(lines) > 0 && score > bestScore {
			best, bestScore, bestName = lines, score, v.name
		}
	}

	if best == nil {
		if len(failures) == len(variants) {
			return nil, failures[len(failures)-1]
		}
		return nil, newEngineError(t.Name(), KindNoTextFound, nil)
	}
	slog.Debug("Tesseract selected variant", "variant", bestName, "score", bestScore)
	return best, nil
}

// Close is a no-op; clients are closed after each pass
func (t *Tesseract) Close() error {
	return nil
}

type tesseractResult struct {
	lines []Line
	err   error
}

// recognizeVariant runs one blocking gosseract pass. The pass keeps running
// in the background if ctx expires, but its result is discarded.
func (t *Tesseract) recognizeVariant(ctx context.Context, data []byte, langs []string) ([]Line, error) {
	done := make(chan tesseractResult, 1)
	go func() {
		client := gosseract.NewClient()
		defer client.Close()

		if t.cfg.TessdataPrefix != "" {
			if err := client.SetTessdataPrefix(t.cfg.TessdataPrefix); err != nil {
				done <- tesseractResult{err: newEngineError(t.Name(), KindTransport, err)}
				return
			}
		}
		if err := client.SetLanguage(langs...); err != nil {
			done <- tesseractResult{err: newEngineError(t.Name(), KindTransport, err)}
			return
		}
		if err := client.SetImageFromBytes(data); err != nil {
			done <- tesseractResult{err: newEngineError(t.Name(), KindMalformedImage, err)}
			return
		}
		boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
		if err != nil {
			done <- tesseractResult{err: newEngineError(t.Name(), KindTransport, err)}
			return
		}
		done <- tesseractResult{lines: boxesToLines(boxes, t.Name())}
	}()

	select {
	case <-ctx.Done():
		return nil, classifyRequestError(t.Name(), ctx.Err())
	case r := <-done:
		return r.lines, r.err
	}
}

// boxesToLines converts text-line level boxes into engine lines
func boxesToLines(boxes []gosseract.BoundingBox, engine string) []Line {
	lines := make([]Line, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, Line{
			Text: text,
			BBox: RectBBox(
				float64(b.Box.Min.X), float64(b.Box.Min.Y),
				float64(b.Box.Max.X), float64(b.Box.Max.Y),
			),
			Confidence: clampConfidence(b.Confidence / 100.0),
			Engine:     engine,
		})
	}
	return lines
}

// tesseractLanguages maps a language hint to traineddata names
func tesseractLanguages(language string) []string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "", "korean", "ko", "kor":
		return []string{"kor", "eng"}
	case "english", "en", "eng":
		return []string{"eng"}
	case "japanese", "ja", "jpn":
		return []string{"jpn", "eng"}
	}
	return strings.Split(language, "+")
}
