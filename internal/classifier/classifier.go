// Package classifier identifies waste items in photos with a generative
// vision model.
package classifier

import (
	"context"
	"encoding/json"
)

// Result is the structured description the model returns for one image.
// Identified=false means the model could not recognise an item; the other
// fields are then empty.
type Result struct {
	Identified   bool   `json:"identified"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Recycle      string `json:"recycle"`
	IsReusable   bool   `json:"is_reusable"`
	IsRecyclable bool   `json:"is_recyclable"`
	IsHazardous  bool   `json:"is_hazardous"`
	CategoryName string `json:"category_name"`

	// Raw is the JSON document exactly as the model produced it.
	Raw json.RawMessage `json:"-"`
}

type Classifier interface {
	Classify(ctx context.Context, image []byte, mimeType string) (*Result, error)
	ModelName() string
	Prompt() string
}

// DefaultPrompt asks for a single JSON object matching Result.
const DefaultPrompt = `You help people recycle household waste. Identify the main item in the photo.
Answer with a single JSON object and nothing else, using exactly these keys:
{"identified": bool, "name": string, "description": string, "recycle": string,
"is_reusable": bool, "is_recyclable": bool, "is_hazardous": bool, "category_name": string}
"recycle" explains how to dispose of or recycle the item. "category_name" is a short
material category such as Plastic, Paper, Glass, Metal, Organic, Electronic or Textile.
If no item can be recognised, answer {"identified": false} with the other keys empty.`
