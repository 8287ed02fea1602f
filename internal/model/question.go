package model

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

// QuestionKind identifies which variant of a pillar question was generated.
type QuestionKind string

const (
	KindMaskedClient      QuestionKind = "masked_client"
	KindIndustryGeneral   QuestionKind = "industry_general"
	KindDiscoveryBaseline QuestionKind = "discovery_baseline"
)

// Valid reports whether k is one of the known kinds.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindMaskedClient, KindIndustryGeneral, KindDiscoveryBaseline:
		return true
	}
	return false
}

// Slot returns the per-pillar question slot (1 or 2) for pillar kinds, 0 otherwise.
func (k QuestionKind) Slot() int {
	switch k {
	case KindMaskedClient:
		return 1
	case KindIndustryGeneral:
		return 2
	default:
		return 0
	}
}

// UnmarshalJSON rejects unknown kinds.
func (k *QuestionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind := QuestionKind(s)
	if !kind.Valid() {
		return eris.Errorf("model: unknown question kind %q", s)
	}
	*k = kind
	return nil
}

// QuestionCategory classifies a question as discovery or validation.
type QuestionCategory string

const (
	CategoryDiscovery  QuestionCategory = "discovery"
	CategoryValidation QuestionCategory = "validation"
)

// FallbackQuestionID is the identifier of the question emitted when no pillars exist.
const FallbackQuestionID = "fallback_q1"

// PillarKinds lists the question kinds generated for every pillar, in order.
var PillarKinds = []QuestionKind{KindMaskedClient, KindIndustryGeneral}

// QuestionID builds the identifier for a pillar question, e.g. sp1_q1_masked_client.
func QuestionID(pillarIndex int, kind QuestionKind) string {
	return fmt.Sprintf("sp%d_q%d_%s", pillarIndex, kind.Slot(), kind)
}

// ClarifyingQuestion is a question asked of each model about the masked transcript.
type ClarifyingQuestion struct {
	Prompt      string           `json:"prompt"`
	Category    QuestionCategory `json:"category"`
	Kind        QuestionKind     `json:"kind"`
	Identifier  string           `json:"identifier,omitempty"`
	Assumptions []string         `json:"assumptions"`
}

// QuestionAnswer is one model's answer to one question.
type QuestionAnswer struct {
	QuestionID         string       `json:"question_id"`
	Model              string       `json:"model"`
	Prompt             string       `json:"prompt"`
	Answer             string       `json:"answer"`
	Kind               QuestionKind `json:"kind"`
	AIProviderInferred bool         `json:"ai_provider_inferred"`
}
