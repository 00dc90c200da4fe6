package service

import (
	"meridian-llm/meridian/pkg/config"
	"meridian-llm/meridian/pkg/providers"
)

// providerConfigs maps the configuration file's provider entries onto
// adapter configs. API keys have already been resolved from the
// environment by the config loader.
func providerConfigs(cfg *config.Config) []providers.Config {
	out := make([]providers.Config, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		out = append(out, providers.Config{
			Name:         pc.Name,
			Type:         pc.Type,
			BaseURL:      pc.BaseURL,
			APIKey:       pc.APIKey,
			Models:       pc.Models,
			DefaultModel: pc.DefaultModel,
			Capabilities: providers.Capabilities{
				Temperature: pc.Capabilities.Temperature,
				TopP:        pc.Capabilities.TopP,
				TopK:        pc.Capabilities.TopK,
			},
			RateLimits: pc.RateLimits,
			Headers:    pc.Headers,
			Timeout:    pc.Timeout,
		})
	}
	return out
}
