package main

import (
	"fmt"
	"strings"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/planner/heuristic"
	"matchsim.ai/internal/planner/llm"
	"matchsim.ai/internal/planner/scripted"
	"matchsim.ai/internal/sim/tuning"
	"matchsim.ai/internal/transport/ws"
)

type plannerOptions struct {
	Kind       string
	ScriptPath string
	ScriptLoop bool
	Field      tuning.Field
	Remote     *ws.Server
}

func selectPlanner(opts plannerOptions) (decision.Planner, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", "heuristic":
		return heuristic.New(heuristic.Config{Field: opts.Field}), nil
	case "scripted":
		if strings.TrimSpace(opts.ScriptPath) == "" {
			return nil, fmt.Errorf("scripted planner requires -script")
		}
		p, err := scripted.Load(opts.ScriptPath, opts.ScriptLoop)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "llm":
		cfg, err := llm.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		if cfg.ResponsesURL == "" || cfg.APIKey == "" {
			return nil, fmt.Errorf("llm planner requires MATCHSIM_LLM_URL and MATCHSIM_LLM_API_KEY")
		}
		return llm.New(cfg), nil
	case "ws", "remote":
		if opts.Remote == nil {
			return nil, fmt.Errorf("remote planner server not configured")
		}
		return opts.Remote, nil
	default:
		return nil, fmt.Errorf("unknown planner %q", opts.Kind)
	}
}
