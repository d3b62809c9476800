package llm

import (
	"errors"
	"testing"
)

func clearProviderEnv(t *testing.T) {
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_BASE", "OPENROUTER_API_BASE",
		"LLM_PROVIDER", "OPENROUTER_SITE_URL", "OPENROUTER_TITLE",
	} {
		t.Setenv(k, "")
	}
}

func TestResolveProviderOpenAIDefaults(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	p, err := ResolveProvider("gpt-4o-mini")
	if err != nil {
		t.Fatalf("ResolveProvider: %v", err)
	}
	if p.OpenRouter || p.BaseURL != openAIBase || p.APIKey != "test-key" {
		t.Fatalf("unexpected provider: %+v", p)
	}
	if p.SiteURL != "" || p.Title != "" {
		t.Fatalf("OpenAI should not carry attribution: %+v", p)
	}
}

func TestResolveProviderOpenRouterDetection(t *testing.T) {
	cases := []struct {
		name  string
		model string
		env   map[string]string
	}{
		{"model prefix", "openrouter/auto", map[string]string{"OPENAI_API_KEY": "k"}},
		{"base url", "meta-llama/llama-3.1-70b-instruct", map[string]string{"OPENAI_API_KEY": "k", "OPENAI_API_BASE": "https://openrouter.ai/api/v1/"}},
		{"only router key", "gpt-4o-mini", map[string]string{"OPENROUTER_API_KEY": "k"}},
		{"explicit", "gpt-4o-mini", map[string]string{"OPENAI_API_KEY": "k", "LLM_PROVIDER": "OpenRouter"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearProviderEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			p, err := ResolveProvider(tc.model)
			if err != nil {
				t.Fatalf("ResolveProvider: %v", err)
			}
			if !p.OpenRouter || p.BaseURL != openRouterBase {
				t.Fatalf("expected OpenRouter, got %+v", p)
			}
			if p.SiteURL != defaultSiteURL || p.Title != defaultTitle {
				t.Fatalf("unexpected attribution: %+v", p)
			}
		})
	}
}

func TestResolveProviderOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("OPENROUTER_API_KEY", "router-key")
	t.Setenv("OPENROUTER_SITE_URL", "https://example.com/app")
	t.Setenv("OPENROUTER_TITLE", "Custom Title")

	p, err := ResolveProvider("openrouter/auto")
	if err != nil {
		t.Fatalf("ResolveProvider: %v", err)
	}
	if p.APIKey != "router-key" || p.SiteURL != "https://example.com/app" || p.Title != "Custom Title" {
		t.Fatalf("unexpected provider: %+v", p)
	}

	t.Setenv("LLM_PROVIDER", "openai")
	if p, _ = ResolveProvider("openrouter/auto"); p.OpenRouter || p.APIKey != "openai-key" {
		t.Fatalf("LLM_PROVIDER=openai should win: %+v", p)
	}
}

func TestResolveProviderErrors(t *testing.T) {
	clearProviderEnv(t)
	if _, err := ResolveProvider("gpt-4o-mini"); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "k")
	if _, err := ResolveProvider("  "); !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel, got %v", err)
	}
}
