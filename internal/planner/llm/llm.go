// Package llm plans by sending the rendered prompt to an OpenAI-compatible
// responses endpoint and parsing the model's reply as a wire plan.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/protocol"
	"matchsim.ai/internal/sim/intent"
)

type Config struct {
	ResponsesURL string        `env:"MATCHSIM_LLM_URL"`
	APIKey       string        `env:"MATCHSIM_LLM_API_KEY"`
	Model        string        `env:"MATCHSIM_LLM_MODEL" envDefault:"gpt-4o-mini"`
	MaxFailures  int           `env:"MATCHSIM_LLM_MAX_FAILURES" envDefault:"3"`
	Cooldown     time.Duration `env:"MATCHSIM_LLM_COOLDOWN" envDefault:"30s"`

	HTTPClient *http.Client `env:"-"`
}

// ConfigFromEnv loads Config from MATCHSIM_LLM_* variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Planner reports not ready while misconfigured, and for Cooldown after
// MaxFailures consecutive unavailable errors.
type Planner struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	failures  int
	coolUntil time.Time
}

func New(cfg Config) *Planner {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	return &Planner{cfg: cfg, now: time.Now}
}

func (p *Planner) Ready() bool {
	if strings.TrimSpace(p.cfg.ResponsesURL) == "" || strings.TrimSpace(p.cfg.APIKey) == "" || strings.TrimSpace(p.cfg.Model) == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.now().Before(p.coolUntil)
}

func (p *Planner) Generate(ctx context.Context, c decision.Context) (intent.ActionPlan, error) {
	start := time.Now()
	text, err := p.invoke(ctx, protocol.RenderPrompt(c))
	p.track(err)
	if err != nil {
		return intent.ActionPlan{}, err
	}
	plan, err := protocol.ParsePlan([]byte(protocol.ExtractJSON(text)), c.TimeMS, uint64(time.Since(start).Milliseconds()))
	if err != nil {
		return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrMalformed, err)
	}
	return plan, nil
}

func (p *Planner) track(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !errors.Is(err, decision.ErrUnavailable) {
		p.failures = 0
		return
	}
	p.failures++
	if p.failures >= p.cfg.MaxFailures {
		p.coolUntil = p.now().Add(p.cfg.Cooldown)
		p.failures = 0
	}
}

func (p *Planner) invoke(ctx context.Context, prompt string) (string, error) {
	requestBody, err := json.Marshal(map[string]any{
		"model": strings.TrimSpace(p.cfg.Model),
		"input": prompt,
	})
	if err != nil {
		return "", decision.NewPlannerError(decision.ErrInference, fmt.Errorf("marshal invoke request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSpace(p.cfg.ResponsesURL), bytes.NewReader(requestBody))
	if err != nil {
		return "", decision.NewPlannerError(decision.ErrUnavailable, fmt.Errorf("build invoke request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(p.cfg.APIKey))

	res, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", decision.NewPlannerError(decision.ErrTimeout, err)
		}
		return "", decision.NewPlannerError(decision.ErrUnavailable, fmt.Errorf("invoke request failed: %w", err))
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		kind := decision.ErrInference
		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			kind = decision.ErrUnavailable
		}
		return "", decision.NewPlannerError(kind, fmt.Errorf("invoke request status %d: %s", res.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", decision.NewPlannerError(decision.ErrInference, fmt.Errorf("decode invoke response: %w", err))
	}
	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return "", decision.NewPlannerError(decision.ErrInference, fmt.Errorf("invoke response missing output text"))
	}
	return outputText, nil
}
