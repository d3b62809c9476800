package llm

import (
	"errors"
	"os"
	"strings"
)

const (
	openAIBase     = "https://api.openai.com/v1"
	openRouterBase = "https://openrouter.ai/api/v1"

	// OpenRouter attributes traffic to these unless overridden.
	defaultSiteURL = "https://github.com/Ongao1/Poker-assistant"
	defaultTitle   = "Poker Assistant"
)

var (
	ErrNoModel  = errors.New("model missing: set LLM_MODEL or OPENAI_MODEL")
	ErrNoAPIKey = errors.New("API key missing: set OPENAI_API_KEY or OPENROUTER_API_KEY")
)

// Provider is where advice requests go and how they authenticate.
type Provider struct {
	OpenRouter bool
	BaseURL    string
	APIKey     string
	Model      string

	// Attribution headers, sent to OpenRouter only.
	SiteURL string
	Title   string
}

// ResolveProvider picks OpenAI or OpenRouter for model from the environment.
// OpenRouter wins when LLM_PROVIDER says so, when the model is an
// "openrouter/..." id, when the base URL points there, or when only an
// OpenRouter key is present.
func ResolveProvider(model string) (Provider, error) {
	p := Provider{Model: strings.TrimSpace(model)}
	if p.Model == "" {
		return Provider{}, ErrNoModel
	}
	openAIKey := env("OPENAI_API_KEY")
	routerKey := env("OPENROUTER_API_KEY")
	base := firstNonEmpty(env("OPENAI_API_BASE"), env("OPENROUTER_API_BASE"))

	switch strings.ToLower(env("LLM_PROVIDER")) {
	case "openrouter":
		p.OpenRouter = true
	case "openai":
	default:
		p.OpenRouter = strings.HasPrefix(strings.ToLower(p.Model), "openrouter/") ||
			strings.Contains(strings.ToLower(base), "openrouter") ||
			(routerKey != "" && openAIKey == "")
	}

	if p.OpenRouter {
		p.APIKey = firstNonEmpty(routerKey, openAIKey)
		p.BaseURL = firstNonEmpty(base, openRouterBase)
		p.SiteURL = firstNonEmpty(env("OPENROUTER_SITE_URL"), defaultSiteURL)
		p.Title = firstNonEmpty(env("OPENROUTER_TITLE"), defaultTitle)
	} else {
		p.APIKey = firstNonEmpty(openAIKey, routerKey)
		p.BaseURL = firstNonEmpty(base, openAIBase)
	}
	if p.APIKey == "" {
		return Provider{}, ErrNoAPIKey
	}
	p.BaseURL = strings.TrimRight(p.BaseURL, "/")
	return p, nil
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
