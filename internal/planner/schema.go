package planner

import "github.com/invopop/jsonschema"

type pillarsResponse struct {
	Pillars []pillarItem `json:"pillars" jsonschema_description:"Distinct narrative pillars, most important first"`
}

type pillarItem struct {
	Title    string   `json:"title" jsonschema_description:"Short title of two to four words"`
	Summary  string   `json:"summary" jsonschema_description:"One sentence describing the outcome"`
	Evidence []string `json:"evidence" jsonschema_description:"Verbatim supporting sentences from the transcript"`
	Priority int      `json:"priority" jsonschema_description:"1 is most important"`
}

type questionsResponse struct {
	Questions []questionItem `json:"questions" jsonschema_description:"Two questions per pillar"`
}

type questionItem struct {
	PillarIndex int      `json:"pillar_index" jsonschema_description:"1-based index of the pillar"`
	Kind        string   `json:"kind" jsonschema:"enum=masked_client,enum=industry_general"`
	Category    string   `json:"category" jsonschema:"enum=discovery,enum=validation"`
	Prompt      string   `json:"prompt" jsonschema_description:"The question text"`
	Identifier  string   `json:"identifier" jsonschema_description:"sp<index>_q1_masked_client or sp<index>_q2_industry_general"`
	Assumptions []string `json:"assumptions"`
}

var (
	pillarsSchema   = generateSchema[pillarsResponse]()
	questionsSchema = generateSchema[questionsResponse]()
)

// generateSchema reflects T into the strict JSON schema shape accepted by
// structured output.
func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var zero T
	schema := reflector.Reflect(zero)

	result := map[string]any{
		"type":       "object",
		"properties": schema.Properties,
		"required":   schema.Required,
	}
	if schema.AdditionalProperties != nil {
		result["additionalProperties"] = false
	}
	return result
}
