package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/medforge/cardgen/internal/domain"
	"github.com/medforge/cardgen/internal/generation"
)

// clozeResponse is the JSON shape the cloze prompt asks the model for.
type clozeResponse struct {
	Cards []struct {
		Text string   `json:"text"`
		Tags []string `json:"tags"`
	} `json:"cards"`
}

// vignetteResponse is the JSON shape the vignette prompt asks the model for.
type vignetteResponse struct {
	Cards []struct {
		Stem     string `json:"stem"`
		Question string `json:"question"`
		Options  []struct {
			Letter string `json:"letter"`
			Text   string `json:"text"`
		} `json:"options"`
		Answer      string `json:"answer"`
		Explanation string `json:"explanation"`
	} `json:"cards"`
}

// checkResponse is the JSON shape the accuracy and grounding prompts ask
// the model for.
type checkResponse struct {
	Passed     bool    `json:"passed"`
	Confidence float64 `json:"confidence"`
}

func parseClozeResponse(raw string) ([]generation.RawCloze, error) {
	var resp clozeResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}

	cards := make([]generation.RawCloze, 0, len(resp.Cards))
	for _, c := range resp.Cards {
		cards = append(cards, generation.RawCloze{Text: c.Text, Tags: c.Tags})
	}
	return cards, nil
}

func parseVignetteResponse(raw string) ([]generation.RawVignette, error) {
	var resp vignetteResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}

	cards := make([]generation.RawVignette, 0, len(resp.Cards))
	for _, c := range resp.Cards {
		options := make([]domain.VignetteOption, 0, len(c.Options))
		for _, o := range c.Options {
			options = append(options, domain.VignetteOption{Letter: o.Letter, Text: o.Text})
		}
		cards = append(cards, generation.RawVignette{
			Stem:        c.Stem,
			Question:    c.Question,
			Options:     options,
			Answer:      c.Answer,
			Explanation: c.Explanation,
		})
	}
	return cards, nil
}

func parseCheckResponse(raw string) (checkResponse, error) {
	var resp checkResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return checkResponse{}, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return checkResponse{}, fmt.Errorf("%w: confidence %f outside [0,1]",
			generation.ErrInvalidResponse, resp.Confidence)
	}
	return resp, nil
}
