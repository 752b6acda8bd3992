// Package summaryprovider defines the narrow contract sdlctl's core uses to
// reach the actual large-language-model summariser, which spec.md scopes as
// an external collaborator: "the actual large-language-model summariser
// (consumed through a narrow provider contract that returns a summary
// string and a divergence score)". The core never imports a concrete model
// client directly — internal/indexer depends only on the Provider
// interface, so a missing API key or an offline test run can swap in
// NoopProvider without touching extraction code.
//
// No example repo in the retrieval pack calls github.com/anthropics/
// anthropic-sdk-go in situ (josephgoksu-TaskWing declares it in go.mod but
// its internal/llm package talks to Claude through cloudwego/eino-ext's
// model/claude wrapper instead); AnthropicProvider below is built directly
// from the SDK's documented client/messages API rather than adapted from a
// pack call site, following the same Config/Provider split
// josephgoksu-TaskWing/internal/llm.Config uses to keep provider selection
// and request shape separate.
package summaryprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sdlctl/sdlctl/internal/logging"
)

// Request carries the symbol context the summariser needs: enough to
// describe the symbol without shipping the whole file (spec's Non-goals
// exclude storing full source bodies; the snippet here is a transient
// request payload, never persisted).
type Request struct {
	RepoID    string
	SymbolID  string
	Name      string
	Kind      string
	Signature string
	DocComment string
	Snippet   string
}

// Result is the narrow contract's return value: a natural-language summary
// plus a self-reported divergence score in [0,1] estimating how much the
// summary's claims might diverge from the snippet it was built from (0 =
// confident, 1 = the model flagged its own summary as unreliable).
type Result struct {
	Summary         string
	DivergenceScore float64
}

// Provider is the contract internal/indexer calls through. Implementations
// may suspend (spec §4, "summary-provider calls" are a named suspension
// point alongside file reads and DB statements).
type Provider interface {
	Summarize(ctx context.Context, req Request) (Result, error)
}

// NoopProvider always returns an empty summary. It is the default when no
// provider is configured (spec: the summariser is an external collaborator,
// not a hard dependency of the core), and what cmd/sdlctl wires up when no
// API key is present in config.
type NoopProvider struct{}

// Summarize implements Provider by doing nothing.
func (NoopProvider) Summarize(context.Context, Request) (Result, error) {
	return Result{}, nil
}

// AnthropicConfig configures AnthropicProvider.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// AnthropicProvider implements Provider over the Anthropic Messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *logging.Logger
}

// NewAnthropicProvider builds a Provider backed by the Anthropic API. model
// defaults to Claude 3.5 Sonnet and maxTokens to 512 when unset, matching a
// short structured-summary response rather than a long-form chat reply.
func NewAnthropicProvider(cfg AnthropicConfig, logger *logging.Logger) *AnthropicProvider {
	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = anthropic.ModelClaude3_5SonnetLatest
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &AnthropicProvider{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Summarize asks the model for a one- or two-sentence summary of req and a
// self-reported divergence score, parsed out of a small structured
// response rather than free text so the core never has to guess at intent.
func (p *AnthropicProvider) Summarize(ctx context.Context, req Request) (Result, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt(req))),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("sdlctl: summary provider request for %s: %w", req.SymbolID, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		text.WriteString(block.Text)
	}

	summary, divergence := parseResponse(text.String())
	p.logger.Debug("summary provider response", map[string]interface{}{
		"symbolId":   req.SymbolID,
		"divergence": divergence,
	})
	return Result{Summary: summary, DivergenceScore: divergence}, nil
}

func prompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following %s named %q in one or two sentences.\n", req.Kind, req.Name)
	if req.Signature != "" {
		fmt.Fprintf(&b, "Signature: %s\n", req.Signature)
	}
	if req.DocComment != "" {
		fmt.Fprintf(&b, "Existing documentation: %s\n", req.DocComment)
	}
	if req.Snippet != "" {
		fmt.Fprintf(&b, "Source:\n%s\n", req.Snippet)
	}
	b.WriteString("Reply with exactly two lines: the summary, then \"divergence: <0-1 float>\" " +
		"estimating how much your summary might diverge from the actual behavior.")
	return b.String()
}

// parseResponse splits the model's two-line reply into a summary and its
// divergence score, defaulting divergence to 1 (maximally uncertain) when
// the expected "divergence: " line is missing rather than silently
// reporting false confidence.
func parseResponse(text string) (summary string, divergence float64) {
	divergence = 1
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 {
		return "", divergence
	}

	summary = strings.TrimSpace(lines[0])
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		const prefix = "divergence:"
		if !strings.HasPrefix(strings.ToLower(line), prefix) {
			continue
		}
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(line[len(prefix):]), "%f", &v); err == nil {
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			divergence = v
		}
	}
	return summary, divergence
}
