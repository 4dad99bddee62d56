// Package openai classifies complaints and compares work photos with the
// OpenAI chat completion API.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/priority"
)

const maxPhotoBytes = 8 << 20

// EvidenceReader opens stored photos so they can be inlined into a request.
type EvidenceReader interface {
	Retrieve(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Client implements complaint classification and photo verification.
type Client struct {
	api         *openai.Client
	model       string
	visionModel string
	departments domain.DepartmentTable
	evidence    EvidenceReader
}

// NewClient builds a client from classifier settings.
func NewClient(cfg config.ClassifierConfig, departments domain.DepartmentTable, evidence EvidenceReader) (*Client, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("openai classifier requires an API key")
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = openai.GPT4oMini
	}
	vision := cfg.OpenAIVisionModel
	if vision == "" {
		vision = openai.GPT4o
	}
	return &Client{
		api:         openai.NewClient(cfg.OpenAIAPIKey),
		model:       model,
		visionModel: vision,
		departments: departments,
		evidence:    evidence,
	}, nil
}

// Classify asks the model for a JSON routing verdict. An unknown department
// in the reply is treated as a failed attempt.
func (c *Client) Classify(ctx context.Context, text, photoURI string) (domain.Classification, error) {
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	if photoURI != "" {
		dataURL, err := c.inline(ctx, photoURI)
		if err != nil {
			return domain.Classification{}, err
		}
		user = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: text},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailLow}},
			},
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.classifyPrompt()},
			user,
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.1,
		MaxTokens:      300,
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify complaint: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Classification{}, fmt.Errorf("classify complaint: empty response")
	}

	var out domain.Classification
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return domain.Classification{}, fmt.Errorf("decode classification: %w", err)
	}
	if _, ok := c.departments.Lookup(out.DepartmentID); !ok {
		return domain.Classification{}, fmt.Errorf("classifier returned unknown department %q", out.DepartmentID)
	}
	if !priority.KnownSubcategory(out.Subcategory) {
		out.Subcategory = ""
	}
	out.Confidence = clamp01(out.Confidence)
	return out, nil
}

// VerifyWorkPhotos compares the before and after photos for the issue.
func (c *Client) VerifyWorkPhotos(ctx context.Context, beforeURI, afterURI, issueType string) (domain.PhotoVerification, error) {
	before, err := c.inline(ctx, beforeURI)
	if err != nil {
		return domain.PhotoVerification{}, err
	}
	after, err := c.inline(ctx, afterURI)
	if err != nil {
		return domain.PhotoVerification{}, err
	}

	prompt := fmt.Sprintf("Issue type: %s. The first image was taken before the repair, the second after. "+
		"Reply with JSON {\"work_completed\": bool, \"confidence\": 0..1, \"requires_human_review\": bool, \"explanation\": string}.", issueType)
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You verify municipal repair work from photographs. Be strict: if the images do not show the same place, require human review."},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: before, Detail: openai.ImageURLDetailAuto}},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: after, Detail: openai.ImageURLDetailAuto}},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
		MaxTokens:      300,
	})
	if err != nil {
		return domain.PhotoVerification{}, fmt.Errorf("verify work photos: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.PhotoVerification{}, fmt.Errorf("verify work photos: empty response")
	}

	var out domain.PhotoVerification
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return domain.PhotoVerification{}, fmt.Errorf("decode verification: %w", err)
	}
	out.Confidence = clamp01(out.Confidence)
	return out, nil
}

func (c *Client) classifyPrompt() string {
	var b strings.Builder
	b.WriteString("You route citizen grievances for a municipal corporation. Departments:\n")
	for _, dept := range c.departments.All() {
		fmt.Fprintf(&b, "- %s %s: %s\n", dept.ID, dept.Name, strings.Join(dept.Handles, ", "))
	}
	b.WriteString("Subcategories: ")
	b.WriteString(strings.Join(priority.Subcategories(), ", "))
	b.WriteString("\nLocation types: main_road, hospital_vicinity, school_vicinity, market, residential, internal_street, unknown.\n")
	b.WriteString("Reply with JSON {\"dept_id\", \"confidence\", \"subcategory\", \"location_type\", " +
		"\"needs_clarification\", \"clarification_question\", \"summary\"}. " +
		"Ask one short clarification question when the complaint is ambiguous.")
	return b.String()
}

func (c *Client) inline(ctx context.Context, uri string) (string, error) {
	if c.evidence == nil {
		return "", fmt.Errorf("no evidence reader configured for %s", uri)
	}
	rc, err := c.evidence.Retrieve(ctx, uri)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	body, err := io.ReadAll(io.LimitReader(rc, maxPhotoBytes+1))
	if err != nil {
		return "", fmt.Errorf("read evidence %s: %w", uri, err)
	}
	if len(body) > maxPhotoBytes {
		return "", fmt.Errorf("evidence %s exceeds %d bytes", uri, maxPhotoBytes)
	}
	return "data:" + http.DetectContentType(body) + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
