package gemini

import (
	"bytes"
	"errors"
	"strings"
	"text/template"
)

// ErrEmptyChunkText is returned when a prompt is requested for empty text.
var ErrEmptyChunkText = errors.New("chunk text cannot be empty")

const clozePromptSource = `You are a medical educator writing Anki cloze deletion cards.

Source text:
{{.ChunkText}}
{{if .TopicPath}}
Topic: {{.Topic}}
{{end}}
Write at most {{.Limit}} cloze cards covering the highest-yield facts in the
source text. Each card uses {{"{{c1::answer}}"}} syntax; answers are 1-4 words.
Every fact must come from the source text.

Respond with JSON only, in this shape:
{"cards": [{"text": "...", "tags": ["..."]}]}`

const vignettePromptSource = `You are a medical educator writing USMLE-style clinical vignettes.

Source text:
{{.ChunkText}}
{{if .TopicPath}}
Topic: {{.Topic}}
{{end}}
Write at most {{.Limit}} vignettes grounded in the source text. Each has a
clinical stem, a question, exactly five answer options lettered A through E,
the correct letter, and a short explanation. The correct option text is 1-4
words.

Respond with JSON only, in this shape:
{"cards": [{"stem": "...", "question": "...", "options": [{"letter": "A", "text": "..."}], "answer": "A", "explanation": "..."}]}`

const accuracyPromptSource = `You are a medical fact checker.

Claim:
{{.Claim}}

Is the claim medically accurate? Respond with JSON only:
{"passed": true|false, "confidence": 0.0-1.0}`

const groundingPromptSource = `You are a medical fact checker.

Source text:
{{.Source}}

Claim:
{{.Claim}}

Is the claim supported by the source text? Respond with JSON only:
{"passed": true|false, "confidence": 0.0-1.0}`

var (
	clozePromptTemplate     = template.Must(template.New("cloze").Parse(clozePromptSource))
	vignettePromptTemplate  = template.Must(template.New("vignette").Parse(vignettePromptSource))
	accuracyPromptTemplate  = template.Must(template.New("accuracy").Parse(accuracyPromptSource))
	groundingPromptTemplate = template.Must(template.New("grounding").Parse(groundingPromptSource))
)

// generatePromptData feeds the cloze and vignette templates.
type generatePromptData struct {
	ChunkText string
	TopicPath []string
	Limit     int
}

// Topic renders the topic path as a breadcrumb.
func (d generatePromptData) Topic() string {
	return strings.Join(d.TopicPath, " > ")
}

// checkPromptData feeds the accuracy and grounding templates.
type checkPromptData struct {
	Claim  string
	Source string
}

func renderPrompt(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func clozePrompt(chunkText string, topicPath []string, limit int) (string, error) {
	if strings.TrimSpace(chunkText) == "" {
		return "", ErrEmptyChunkText
	}
	return renderPrompt(clozePromptTemplate, generatePromptData{chunkText, topicPath, limit})
}

func vignettePrompt(chunkText string, topicPath []string, limit int) (string, error) {
	if strings.TrimSpace(chunkText) == "" {
		return "", ErrEmptyChunkText
	}
	return renderPrompt(vignettePromptTemplate, generatePromptData{chunkText, topicPath, limit})
}
