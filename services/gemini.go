package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"wardrobeapi/models"
)

// LLMModelName is the Gemini model a call is routed to.
type LLMModelName int32

const (
	Flash3Preview LLMModelName = iota
	Flash25Image
	Flash25
	Pro25
)

func (t LLMModelName) String() string {
	switch t {
	case Flash3Preview:
		return "gemini-3-flash-preview"
	case Flash25Image:
		return "gemini-2.5-flash-image"
	case Flash25:
		return "gemini-2.5-flash"
	case Pro25:
		return "gemini-2.5-pro"
	default:
		return "gemini-3-flash-preview"
	}
}

// ParseLLMModelName maps a configured model id back to its enum value.
func ParseLLMModelName(raw string, fallback LLMModelName) LLMModelName {
	for _, m := range []LLMModelName{Flash3Preview, Flash25Image, Flash25, Pro25} {
		if m.String() == raw {
			return m
		}
	}
	return fallback
}

func floatPointer(f float32) *float32 {
	return &f
}

func boolPointer(b bool) *bool {
	return &b
}

// LLMUsage is the token accounting of one call.
type LLMUsage struct {
	InputTokenCount    int32 `json:"input_token_count"`
	ThoughtsTokenCount int32 `json:"thoughts_token_count"`
	OutputTokenCount   int32 `json:"output_token_count"`
	TotalTokenCount    int32 `json:"total_token_count"`
}

var ErrNoImageGenerated = errors.New("no image was generated in the response")

const extractionInstruction = `You are a clothing extraction assistant. Given an image that may contain clothing items (with or without a model wearing them), perform the following tasks:
1. Identify the main clothing item(s) in the image
2. Describe each item with: category (Top/Bottom/Outerwear/Footwear/Accessory), subcategory, color, and style.
3. Ignore any background, human body, furniture, or non-clothing elements.
4. For each item, provide a normalized bounding box [ymin, xmin, ymax, xmax] as values from 0 to 100 representing the percentage of the image height and width.`

const tryOnPrompt = `Generate a realistic full-body photo of this exact person wearing these exact clothing items. The result must show the complete look from head to toe, including legs and feet. Use the original photo's full-body framing as reference, match the same camera distance and angle. Keep the person's face, hair, skin tone, and body shape completely identical. Do not crop. Do not cut off any body parts.`

const stylistPrompt = `You are a professional fashion stylist. Based on the following clothing inventory, create a complete outfit in the "%s" style.

Inventory:
%s

Rules:
1. Select one item from each category if available: Top, Outerwear, Bottom, Footwear.
2. Use the exact Item ID from the inventory list for your selections.
3. If a category has no items in the inventory, suggest a hypothetical piece that would complement the look but set its "id" to null.
4. Return ONLY a JSON response matching the schema.`

var extractionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"items": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"category":    {Type: genai.TypeString},
					"subcategory": {Type: genai.TypeString},
					"color":       {Type: genai.TypeString},
					"style":       {Type: genai.TypeString},
					"boundingBox": {
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"ymin": {Type: genai.TypeNumber},
							"xmin": {Type: genai.TypeNumber},
							"ymax": {Type: genai.TypeNumber},
							"xmax": {Type: genai.TypeNumber},
						},
						Required: []string{"ymin", "xmin", "ymax", "xmax"},
					},
				},
				Required: []string{"category", "subcategory", "color", "style", "boundingBox"},
			},
		},
	},
	Required: []string{"items"},
}

func suggestionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":          {Type: genai.TypeString, Nullable: boolPointer(true)},
			"description": {Type: genai.TypeString},
			"reason":      {Type: genai.TypeString},
		},
		Required: []string{"description", "reason"},
	}
}

var recommendationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"style": {Type: genai.TypeString},
		"outfit": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"top":       suggestionSchema(),
				"outerwear": suggestionSchema(),
				"bottom":    suggestionSchema(),
				"footwear":  suggestionSchema(),
			},
		},
		"overall_vibe": {Type: genai.TypeString},
	},
	Required: []string{"style", "outfit", "overall_vibe"},
}

// GoogleLLMProcessor serves extraction, try-on rendering and outfit
// recommendation from one shared genai client.
type GoogleLLMProcessor struct {
	client         *genai.Client
	log            *logrus.Entry
	ExtractModel   LLMModelName
	RenderModel    LLMModelName
	RecommendModel LLMModelName
}

func NewGoogleLLMProcessor(client *genai.Client, logger *logrus.Logger) *GoogleLLMProcessor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GoogleLLMProcessor{
		client:         client,
		log:            logger.WithField("component", "gemini"),
		ExtractModel:   Flash3Preview,
		RenderModel:    Flash25Image,
		RecommendModel: Flash3Preview,
	}
}

func inlinePart(image models.ImageData, fallbackMIME string) (*genai.Part, error) {
	raw, err := image.Bytes()
	if err != nil {
		return nil, err
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: image.MIMETypeOr(fallbackMIME), Data: raw}}, nil
}

func (p *GoogleLLMProcessor) generate(ctx context.Context, model LLMModelName, parts []*genai.Part, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	log := p.log.WithField("model", model.String())
	result, err := p.client.Models.GenerateContent(ctx, model.String(), []*genai.Content{{Parts: parts}}, config)
	if err != nil {
		log.WithError(err).Error("Error in GenerateContent")
		return nil, err
	}
	usage := UsageOf(result)
	log.WithFields(logrus.Fields{
		"input_tokens":    usage.InputTokenCount,
		"output_tokens":   usage.OutputTokenCount,
		"thoughts_tokens": usage.ThoughtsTokenCount,
		"total_tokens":    usage.TotalTokenCount,
		"candidates":      len(result.Candidates),
	}).Info("Gemini call finished")

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		log.WithField("block_reason", result.PromptFeedback.BlockReason).Warn(result.PromptFeedback.BlockReasonMessage)
		return nil, fmt.Errorf("content violation: %s %s", result.PromptFeedback.BlockReason, result.PromptFeedback.BlockReasonMessage)
	}
	return result, nil
}

func UsageOf(result *genai.GenerateContentResponse) LLMUsage {
	if result == nil || result.UsageMetadata == nil {
		return LLMUsage{}
	}
	return LLMUsage{
		InputTokenCount:    result.UsageMetadata.PromptTokenCount,
		ThoughtsTokenCount: result.UsageMetadata.ThoughtsTokenCount,
		OutputTokenCount:   result.UsageMetadata.CandidatesTokenCount,
		TotalTokenCount:    result.UsageMetadata.TotalTokenCount,
	}
}

func (p *GoogleLLMProcessor) ExtractClothing(ctx context.Context, image models.ImageData) ([]models.ExtractedItem, error) {
	photo, err := inlinePart(image, "image/jpeg")
	if err != nil {
		return nil, err
	}
	result, err := p.generate(ctx, p.ExtractModel, []*genai.Part{
		photo,
		{Text: "Extract all clothing items from this image and return them in the specified JSON format."},
	}, &genai.GenerateContentConfig{
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
		ResponseSchema:   extractionSchema,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: extractionInstruction}},
		},
	})
	if err != nil {
		return nil, err
	}
	text, err := FirstCandidateText(result)
	if err != nil {
		return nil, err
	}
	return ParseExtraction(text)
}

func (p *GoogleLLMProcessor) RenderTryOn(ctx context.Context, portrait models.ImageData, garments []models.ImageData) (models.ImageData, error) {
	parts := []*genai.Part{{Text: tryOnPrompt}}
	person, err := inlinePart(portrait, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("portrait: %w", err)
	}
	parts = append(parts, person)
	for i, garment := range garments {
		part, err := inlinePart(garment, "image/png")
		if err != nil {
			return "", fmt.Errorf("garment %d: %w", i, err)
		}
		parts = append(parts, part)
	}

	result, err := p.generate(ctx, p.RenderModel, parts, &genai.GenerateContentConfig{
		CandidateCount: 1,
		Temperature:    floatPointer(1),
	})
	if err != nil {
		return "", err
	}
	return FirstInlineImage(result)
}

func (p *GoogleLLMProcessor) RecommendOutfit(ctx context.Context, inventory string, style string) (*models.SmartOutfitResponse, error) {
	result, err := p.generate(ctx, p.RecommendModel, []*genai.Part{
		{Text: fmt.Sprintf(stylistPrompt, style, inventory)},
	}, &genai.GenerateContentConfig{
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
		ResponseSchema:   recommendationSchema,
	})
	if err != nil {
		return nil, err
	}
	text, err := FirstCandidateText(result)
	if err != nil {
		return nil, err
	}
	return ParseRecommendation(text)
}

// GetAllInlineImages returns every inline image part across candidates.
func GetAllInlineImages(result *genai.GenerateContentResponse) ([]*genai.Blob, error) {
	if result == nil {
		return nil, fmt.Errorf("empty response")
	}

	var images []*genai.Blob
	for _, cand := range result.Candidates {
		for _, rating := range cand.SafetyRatings {
			if rating.Blocked {
				return nil, fmt.Errorf("content blocked by safety setting: %s", rating.Category)
			}
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "image/") && len(part.InlineData.Data) > 0 {
				images = append(images, part.InlineData)
			}
		}
	}
	return images, nil
}

func FirstInlineImage(result *genai.GenerateContentResponse) (models.ImageData, error) {
	images, err := GetAllInlineImages(result)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", ErrNoImageGenerated
	}
	return models.NewImageData(images[0].MIMEType, images[0].Data), nil
}

// FirstCandidateText returns the text of the response, skipping thought parts.
func FirstCandidateText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	for _, c := range result.Candidates {
		for _, rating := range c.SafetyRatings {
			if rating.Blocked {
				return "", fmt.Errorf("content violation: %s", rating.Category)
			}
		}
	}
	return result.Text(), nil
}

func cleanAIResponseText(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

func ParseExtraction(text string) ([]models.ExtractedItem, error) {
	var payload struct {
		Items []models.ExtractedItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(cleanAIResponseText(text)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}
	return payload.Items, nil
}

func ParseRecommendation(text string) (*models.SmartOutfitResponse, error) {
	var resp models.SmartOutfitResponse
	if err := json.Unmarshal([]byte(cleanAIResponseText(text)), &resp); err != nil {
		return nil, fmt.Errorf("could not parse stylist recommendations: %w", err)
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return &resp, nil
}
