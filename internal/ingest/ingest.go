// Package ingest turns raw transcript text into a validated StoryDocument.
package ingest

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/textutil"
)

// MaskToken replaces every provider alias in masked text.
const MaskToken = "[MASK]"

// MaskingSummary is the outcome of masking a text.
type MaskingSummary struct {
	MaskedText string   `json:"masked_text"`
	Issues     []string `json:"issues"`
}

// Option configures LoadStoryDocumentFromText.
type Option func(*options)

type options struct {
	enforceMaskIntegrity bool
}

// WithoutMaskCheck disables the post-mask integrity audit.
func WithoutMaskCheck() Option {
	return func(o *options) {
		o.enforceMaskIntegrity = false
	}
}

// WithMaskCheck sets whether residual aliases fail ingestion.
func WithMaskCheck(enforce bool) Option {
	return func(o *options) {
		o.enforceMaskIntegrity = enforce
	}
}

// MaskProviderTerms masks aliases in text and audits the result.
func MaskProviderTerms(text string, aliases []string) MaskingSummary {
	masked := textutil.MaskTerms(text, aliases, MaskToken)
	return MaskingSummary{
		MaskedText: masked,
		Issues:     textutil.AuditMaskIntegrity(masked, aliases),
	}
}

// CoalesceAliases returns the explicit aliases followed by the provider name
// when it is set. Duplicates are kept.
func CoalesceAliases(aliases []string, providerName string) []string {
	out := make([]string, 0, len(aliases)+1)
	for _, a := range aliases {
		if strings.TrimSpace(a) != "" {
			out = append(out, a)
		}
	}
	if strings.TrimSpace(providerName) != "" {
		out = append(out, providerName)
	}
	return out
}

// LoadStoryDocumentFromText normalizes and masks text. It fails with a
// ConfigurationError when no alias is available and, unless disabled, with a
// MaskIntegrityError when an alias survives masking.
func LoadStoryDocumentFromText(text string, meta model.StoryMetadata, aliases []string, opts ...Option) (*model.StoryDocument, error) {
	o := options{enforceMaskIntegrity: true}
	for _, fn := range opts {
		fn(&o)
	}

	terms := CoalesceAliases(aliases, meta.ProviderName)
	if len(terms) == 0 {
		return nil, &ConfigurationError{Message: "At least one provider alias is required for masking."}
	}

	normalized := textutil.NormalizeWhitespace(textutil.StripMarkup(text))
	summary := MaskProviderTerms(normalized, terms)

	if len(summary.Issues) > 0 {
		if o.enforceMaskIntegrity {
			return nil, &MaskIntegrityError{Issues: summary.Issues}
		}
		zap.L().Warn("ingest: mask integrity check skipped",
			zap.String("story_id", meta.StoryID),
			zap.Strings("issues", summary.Issues),
		)
	}

	return &model.StoryDocument{
		Metadata:       meta,
		RawText:        text,
		NormalizedText: normalized,
		MaskedText:     summary.MaskedText,
	}, nil
}

// ReadTranscript returns the file contents unmodified. Normalization happens
// when the story document is built.
func ReadTranscript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "ingest: read transcript %s", path)
	}
	return string(data), nil
}
