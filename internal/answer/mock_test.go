package answer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/visibility-cli/internal/model"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Completion), args.Error(1)
}

type recordingObserver struct {
	calls []string
	usage model.TokenUsage
}

func (o *recordingObserver) ObserveCall(provider, status string, usage model.TokenUsage) {
	o.calls = append(o.calls, provider+":"+status)
	o.usage.Add(usage)
}

func sampleQuestions() []model.ClarifyingQuestion {
	return []model.ClarifyingQuestion{
		{
			Prompt:     "Content Engagement reports that [MASK] doubled retention. Which AI provider would most likely enable this outcome?",
			Category:   model.CategoryDiscovery,
			Kind:       model.KindMaskedClient,
			Identifier: "sp1_q1_masked_client",
		},
		{
			Prompt:     "Across the market, which AI providers are recognized for supporting doubled retention?",
			Category:   model.CategoryValidation,
			Kind:       model.KindIndustryGeneral,
			Identifier: "sp1_q2_industry_general",
		},
	}
}
