// Package report converts a VisibilityResult into the selling_points payload
// returned by the CLI, HTTP and MCP surfaces.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/internal/model"
)

// Payload is the serialized result shape.
type Payload struct {
	StoryID       string                    `json:"story_id"`
	SellingPoints []SellingPoint            `json:"selling_points"`
	Scores        model.VisibilityScorecard `json:"scores"`
	Summary       model.VisibilitySummary   `json:"summary"`
	Metadata      Metadata                  `json:"metadata"`
}

// SellingPoint groups a pillar with its answered questions.
type SellingPoint struct {
	Pillar    string     `json:"pillar"`
	Summary   string     `json:"summary"`
	Questions []Question `json:"questions"`
}

// Question is a pillar question with every model's response to it.
type Question struct {
	ID        string     `json:"id"`
	Prompt    string     `json:"prompt"`
	Responses []Response `json:"responses"`
}

// Response is one model's answer.
type Response struct {
	Model              string `json:"model"`
	Answer             string `json:"answer"`
	AIProviderInferred bool   `json:"ai_provider_inferred"`
}

// Metadata describes how the result was produced.
type Metadata struct {
	GeneratedAt  string   `json:"generated_at"`
	ModelsRun    []string `json:"models_run"`
	Mode         string   `json:"mode"`
	SourceURL    *string  `json:"source_url"`
	ClientName   *string  `json:"client_name"`
	ProviderName string   `json:"provider_name"`
}

// Serialize builds the payload. Pillar i is matched to the questions
// sp<i>_q1_masked_client and sp<i>_q2_industry_general; a question with no
// answers is omitted. Responses follow the order of result.Answers.
func Serialize(result model.VisibilityResult) Payload {
	questionsByID := make(map[string]model.ClarifyingQuestion, len(result.Questions))
	for _, q := range result.Questions {
		if q.Identifier != "" {
			questionsByID[q.Identifier] = q
		}
	}
	responsesByID := make(map[string][]Response)
	for _, a := range result.Answers {
		responsesByID[a.QuestionID] = append(responsesByID[a.QuestionID], Response{
			Model:              a.Model,
			Answer:             a.Answer,
			AIProviderInferred: a.AIProviderInferred,
		})
	}

	points := make([]SellingPoint, 0, len(result.Pillars))
	for i, p := range result.Pillars {
		sp := SellingPoint{Pillar: p.Title, Summary: p.Summary, Questions: []Question{}}
		for _, kind := range model.PillarKinds {
			id := model.QuestionID(i+1, kind)
			q, ok := questionsByID[id]
			responses := responsesByID[id]
			if !ok || len(responses) == 0 {
				continue
			}
			sp.Questions = append(sp.Questions, Question{ID: id, Prompt: q.Prompt, Responses: responses})
		}
		points = append(points, sp)
	}

	models := result.ModelsRun
	if models == nil {
		models = []string{}
	}

	return Payload{
		StoryID:       result.StoryID,
		SellingPoints: points,
		Scores:        result.Scores,
		Summary:       result.Summary,
		Metadata: Metadata{
			GeneratedAt:  result.GeneratedAt.UTC().Format(time.RFC3339),
			ModelsRun:    models,
			Mode:         string(result.Mode),
			SourceURL:    optional(result.Metadata.SourceURL),
			ClientName:   optional(result.Metadata.ClientName),
			ProviderName: result.Metadata.ProviderName,
		},
	}
}

// WriteFile writes payload as indented JSON, creating parent directories.
func WriteFile(path string, payload Payload) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create directory for %s", path)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: marshal payload")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
