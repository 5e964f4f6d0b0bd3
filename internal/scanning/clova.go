package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clova implements the Engine interface using the NAVER CLOVA OCR general API
type Clova struct {
	endpoint string
	secret   string
	version  string
	client   *http.Client
}

// NewClova creates a new Clova engine for an API Gateway invoke URL
func NewClova(endpoint, secret string) (*Clova, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("clova endpoint is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("clova secret is required")
	}

	return &Clova{
		endpoint: endpoint,
		secret:   secret,
		version:  "V2",
		client:   &http.Client{},
	}, nil
}

type clovaMessage struct {
	Version   string       `json:"version"`
	RequestID string       `json:"requestId"`
	Timestamp int64        `json:"timestamp"`
	Lang      string       `json:"lang,omitempty"`
	Images    []clovaImage `json:"images"`
}

type clovaImage struct {
	Format string `json:"format"`
	Name   string `json:"name"`
}

type clovaResponse struct {
	Images []struct {
		InferResult string       `json:"inferResult"`
		Message     string       `json:"message"`
		Fields      []clovaField `json:"fields"`
	} `json:"images"`
}

type clovaField struct {
	InferText       string  `json:"inferText"`
	InferConfidence float64 `json:"inferConfidence"`
	LineBreak       bool    `json:"lineBreak"`
	BoundingPoly    struct {
		Vertices []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"vertices"`
	} `json:"boundingPoly"`
}

// Name returns the engine id
func (c *Clova) Name() string {
	return "clova"
}

// Recognize sends a PNG image to Clova and returns its lines
func (c *Clova) Recognize(ctx context.Context, image []byte, language string) ([]Line, error) {
	body, contentType, err := c.buildRequestBody(image, language)
	if err != nil {
		return nil, newEngineError(c.Name(), KindTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, newEngineError(c.Name(), KindTransport, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-OCR-SECRET", c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyRequestError(c.Name(), fmt.Errorf("calling clova API: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyRequestError(c.Name(), fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(c.Name(), resp.StatusCode, string(respBody))
	}

	var ocrResp clovaResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return nil, newEngineError(c.Name(), KindTransport, fmt.Errorf("unmarshaling response: %w", err))
	}

	for _, img := range ocrResp.Images {
		if strings.EqualFold(img.InferResult, "ERROR") {
			return nil, newEngineError(c.Name(), KindMalformedImage, errors.New(img.Message))
		}
	}

	lines := clovaLines(ocrResp, c.Name())
	if len(lines) == 0 {
		return nil, newEngineError(c.Name(), KindNoTextFound, nil)
	}
	return lines, nil
}

// Close is a no-op for the HTTP client
func (c *Clova) Close() error {
	return nil
}

func (c *Clova) buildRequestBody(image []byte, language string) (*bytes.Buffer, string, error) {
	name := "upload-" + uuid.NewString()
	msg := clovaMessage{
		Version:   c.version,
		RequestID: uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Lang:      clovaLanguage(language),
		Images:    []clovaImage{{Format: "png", Name: name}},
	}
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling message: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("message", string(msgJSON)); err != nil {
		return nil, "", fmt.Errorf("writing message field: %w", err)
	}
	part, err := writer.CreateFormFile("file", name+".png")
	if err != nil {
		return nil, "", fmt.Errorf("creating file field: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("writing file field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// clovaLanguage maps a language hint to Clova's lang code
func clovaLanguage(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "korean", "ko", "kor":
		return "ko"
	case "japanese", "ja", "jpn":
		return "ja"
	}
	return ""
}

// clovaLines merges Clova word fields into lines at lineBreak markers.
// Responses without any lineBreak keep one line per field.
func clovaLines(resp clovaResponse, engine string) []Line {
	var lines []Line
	for _, img := range resp.Images {
		grouped := false
		for _, f := range img.Fields {
			if f.LineBreak {
				grouped = true
				break
			}
		}

		var pending []clovaField
		flush := func() {
			if line, ok := mergeClovaFields(pending, engine); ok {
				lines = append(lines, line)
			}
			pending = pending[:0]
		}
		for _, f := range img.Fields {
			pending = append(pending, f)
			if !grouped || f.LineBreak {
				flush()
			}
		}
		flush()
	}
	return lines
}

func mergeClovaFields(fields []clovaField, engine string) (Line, bool) {
	var words []string
	var confSum float64
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	hasBox := false
	for _, f := range fields {
		text := strings.TrimSpace(f.InferText)
		if text == "" {
			continue
		}
		words = append(words, text)
		confSum += f.InferConfidence
		for _, v := range f.BoundingPoly.Vertices {
			hasBox = true
			minX, minY = math.Min(minX, v.X), math.Min(minY, v.Y)
			maxX, maxY = math.Max(maxX, v.X), math.Max(maxY, v.Y)
		}
	}
	if len(words) == 0 {
		return Line{}, false
	}

	line := Line{
		Text:       strings.Join(words, " "),
		Confidence: clampConfidence(confSum / float64(len(words))),
		Engine:     engine,
	}
	if hasBox {
		line.BBox = RectBBox(minX, minY, maxX, maxY)
	}
	return line, true
}
