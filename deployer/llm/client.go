package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/valyala/fasttemplate"

	"github.com/spance/droidship/constants"
	"github.com/spance/droidship/deployer/definitions"
)

// Analyzer asks an OpenAI-compatible endpoint to triage a captured crash
// buffer.
type Analyzer struct {
	config *definitions.ModelConfig
	client *openai.Client
}

func NewAnalyzer(cfg *definitions.ModelConfig) *Analyzer {
	if cfg == nil {
		cfg = &definitions.ModelConfig{}
	}
	openaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiCfg.BaseURL = cfg.BaseURL
	}

	return &Analyzer{
		config: cfg,
		client: openai.NewClientWithConfig(openaiCfg),
	}
}

// Analyze sends the crash buffer to the model and parses the triage reply.
func (a *Analyzer) Analyze(ctx context.Context, component, crashLog string) (*Analysis, error) {
	prompt := fasttemplate.New(constants.CrashAnalysisPrompt, "{{ ", " }}").
		ExecuteString(map[string]any{
			"datetime":  time.Now().Format("2006-01-02, Monday"),
			"component": component,
			"log":       strings.TrimSpace(crashLog),
		})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.config.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxCompletionTokens: a.config.MaxTokens,
		Temperature:         a.config.Temperature,
		Stream:              false,
	})
	if err != nil {
		return nil, fmt.Errorf("crash analysis request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("crash analysis returned no choices")
	}

	return ParseAnalysis(resp.Choices[0].Message.Content), nil
}
