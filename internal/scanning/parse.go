package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// transcriptionPrompt is the shared prompt used by the vision model engines
const transcriptionPrompt = `You are an OCR engine. Transcribe every line of text visible in the image exactly as printed, in reading order (top to bottom, left to right). Do not translate, correct, summarize or add text that is not visible. The text is most likely written in %s.

For each line report:
1. **text**: the characters of the line, keeping digits, commas, currency symbols and asterisks exactly as shown.
2. **bbox**: the line's bounding box in image pixels as [x_min, y_min, x_max, y_max].
3. **confidence**: how sure you are of the transcription, from 0.0 to 1.0.

Return ONLY valid JSON in this exact format:
{
  "lines": [
    {"text": "line text", "bbox": [0, 0, 100, 20], "confidence": 0.95}
  ]
}

Important:
- If the image contains no text, return {"lines": []}
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// promptFor fills the language hint into the transcription prompt
func promptFor(language string) string {
	if language == "" {
		language = "korean"
	}
	return fmt.Sprintf(transcriptionPrompt, language)
}

type transcription struct {
	Lines []struct {
		Text       string    `json:"text"`
		BBox       []float64 `json:"bbox"`
		Confidence *float64  `json:"confidence"`
	} `json:"lines"`
}

// parseTranscription parses the JSON lines returned by a vision model
func parseTranscription(text string, engine string) ([]Line, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	var data transcription
	if err := json.Unmarshal([]byte(text[startIdx:endIdx+1]), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	lines := make([]Line, 0, len(data.Lines))
	for _, l := range data.Lines {
		lineText := strings.TrimSpace(l.Text)
		if lineText == "" {
			continue
		}
		line := Line{
			Text:       lineText,
			Confidence: 0.5,
			Engine:     engine,
		}
		if l.Confidence != nil {
			line.Confidence = clampConfidence(*l.Confidence)
		}
		if len(l.BBox) == 4 && l.BBox[2] >= l.BBox[0] && l.BBox[3] >= l.BBox[1] {
			line.BBox = RectBBox(l.BBox[0], l.BBox[1], l.BBox[2], l.BBox[3])
		}
		lines = append(lines, line)
	}

	return lines, nil
}
