package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Etienne8977/Barrel-Volume-Analyst/internal/table"
)

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Scanner instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// ExtractTable digitizes a scanned gauge table into a dataset batch.
func (g *Gemini) ExtractTable(imageData []byte, contentType string) (*table.Dataset, error) {
	return g.scan(imageData, contentType, extractTablePrompt)
}

// VerifyTable re-reads the image against a previously extracted batch
// and returns the corrected batch.
func (g *Gemini) VerifyTable(imageData []byte, contentType string, extracted *table.Dataset) (*table.Dataset, error) {
	batchJSON, err := encodeBatchJSON(extracted)
	if err != nil {
		return nil, fmt.Errorf("encoding extracted batch: %w", err)
	}
	return g.scan(imageData, contentType, verifyTablePrompt(batchJSON))
}

func (g *Gemini) scan(imageData []byte, contentType, prompt string) (*table.Dataset, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Prepare image data (convert to PNG if needed)
	finalImageData, _, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects just the format suffix (e.g., "png"), not
	// the full MIME type; after prepareImageData everything is PNG.
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(prompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	ds, err := parseTableJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing table data: %w", err)
	}

	return ds, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
