package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func validOptions(n int) []VignetteOption {
	names := []string{"Lisinopril", "Metoprolol", "Amlodipine", "Furosemide", "Spironolactone"}
	opts := make([]VignetteOption, 0, n)
	for i := 0; i < n; i++ {
		opts = append(opts, VignetteOption{Letter: string(rune('A' + i)), Text: names[i%len(names)]})
	}
	return opts
}

func TestNewVignetteCard(t *testing.T) {
	t.Parallel()
	chunkID := uuid.New()

	card, err := NewVignetteCard(
		"A 62-year-old man presents with exertional chest pain.",
		"Which medication is first line?",
		validOptions(5),
		"A",
		"ACE inhibitors are first line in this setting.",
		chunkID,
		"sys_cardio",
	)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if card.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if card.SourceChunkID != chunkID {
		t.Errorf("Expected source chunk ID %s, got %s", chunkID, card.SourceChunkID)
	}
}

func TestVignetteCardValidate(t *testing.T) {
	t.Parallel()
	chunkID := uuid.New()

	tests := []struct {
		name    string
		mutate  func(v *VignetteCard)
		wantErr error
	}{
		{
			name:    "five options accepted",
			mutate:  func(v *VignetteCard) {},
			wantErr: nil,
		},
		{
			name: "two options accepted",
			mutate: func(v *VignetteCard) {
				v.Options = validOptions(2)
			},
			wantErr: nil,
		},
		{
			name: "six options rejected",
			mutate: func(v *VignetteCard) {
				v.Options = append(validOptions(5), VignetteOption{Letter: "F", Text: "Hydralazine"})
			},
			wantErr: ErrVignetteOptionCount,
		},
		{
			name: "one option rejected",
			mutate: func(v *VignetteCard) {
				v.Options = validOptions(1)
			},
			wantErr: ErrVignetteOptionCount,
		},
		{
			name: "letters must start at A",
			mutate: func(v *VignetteCard) {
				v.Options[0].Letter = "B"
				v.Options[1].Letter = "C"
			},
			wantErr: ErrVignetteOptionLetters,
		},
		{
			name: "letters must be contiguous",
			mutate: func(v *VignetteCard) {
				v.Options[2].Letter = "D"
			},
			wantErr: ErrVignetteOptionLetters,
		},
		{
			name: "answer not among options rejected",
			mutate: func(v *VignetteCard) {
				v.Answer = "F"
			},
			wantErr: ErrVignetteAnswerLetter,
		},
		{
			name: "correct option text too long",
			mutate: func(v *VignetteCard) {
				v.Options[0].Text = strings.Repeat("word ", 5)
			},
			wantErr: ErrVignetteAnswerLength,
		},
		{
			name: "empty stem rejected",
			mutate: func(v *VignetteCard) {
				v.Stem = ""
			},
			wantErr: ErrVignetteStemEmpty,
		},
		{
			name: "empty question rejected",
			mutate: func(v *VignetteCard) {
				v.Question = ""
			},
			wantErr: ErrVignetteQuestionEmpty,
		},
		{
			name: "empty explanation rejected",
			mutate: func(v *VignetteCard) {
				v.Explanation = ""
			},
			wantErr: ErrVignetteExplanationEmpty,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			card := &VignetteCard{
				ID:            uuid.New(),
				Stem:          "A 45-year-old woman presents with fatigue.",
				Question:      "What is the best next step?",
				Options:       validOptions(5),
				Answer:        "A",
				Explanation:   "TSH is the screening test of choice.",
				SourceChunkID: chunkID,
			}
			tt.mutate(card)
			if err := card.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestVignetteCanonicalText(t *testing.T) {
	t.Parallel()
	card, err := NewVignetteCard(
		"A 30-year-old presents with polyuria.",
		"What is the most likely diagnosis?",
		validOptions(3),
		"B",
		"Classic presentation.",
		uuid.New(),
		"",
	)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	canonical := card.CanonicalText()
	if !strings.Contains(canonical, card.Stem) {
		t.Error("Expected canonical text to contain the stem")
	}
	for _, opt := range card.Options {
		if !strings.Contains(canonical, opt.Text) {
			t.Errorf("Expected canonical text to contain option %q", opt.Text)
		}
	}
	if !strings.HasSuffix(canonical, " B") {
		t.Errorf("Expected canonical text to end with the answer letter, got %q", canonical)
	}
	if strings.Contains(canonical, card.Question) {
		t.Error("Question must not contribute to canonical identity")
	}
}
