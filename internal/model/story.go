package model

// StoryMetadata identifies the transcript's subject and the provider under test.
type StoryMetadata struct {
	StoryID      string `json:"story_id"`
	SourceURL    string `json:"source_url,omitempty"`
	ClientName   string `json:"client_name,omitempty"`
	ProviderName string `json:"provider_name"`
}

// StoryDocument holds the three text variants of an ingested transcript.
// MaskedText never contains a configured provider alias once the document
// has been built by the ingest package with integrity checks enabled.
type StoryDocument struct {
	Metadata       StoryMetadata `json:"metadata"`
	RawText        string        `json:"raw_text"`
	NormalizedText string        `json:"normalized_text"`
	MaskedText     string        `json:"masked_text"`
}

// NarrativePillar is a ranked narrative theme extracted from a transcript.
type NarrativePillar struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Evidence []string `json:"evidence"`
	Priority *int     `json:"priority,omitempty"`
}

// PriorityOr returns the pillar priority, or def when it is unset.
func (p NarrativePillar) PriorityOr(def int) int {
	if p.Priority == nil {
		return def
	}
	return *p.Priority
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
