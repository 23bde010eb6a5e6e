package config

import "strings"

// SiteConfig holds per-site settings, keyed by start URL in the config file.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are glob patterns matched against URL paths.
	// Matching references are neither registered nor fetched.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// Concurrency overrides the global concurrency limit for this site.
	Concurrency int `yaml:"concurrency,omitempty"`

	// ServeRoot overrides the directory served for a loopback start URL.
	ServeRoot string `yaml:"serveRoot,omitempty"`
}

// File represents the structure of the .linkcheck configuration file.
type File struct {
	// Sites maps start URLs to their settings. A key may omit the scheme.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every start URL unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for startURL: the defaults merged with
// the matching site entry. Keys are matched exactly first, then without
// the http:// or https:// prefix.
func (cf *File) GetSiteConfig(startURL string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}
	if site, ok := cf.Sites[startURL]; ok {
		return cf.Defaults.Merge(site)
	}
	bare := strings.TrimPrefix(strings.TrimPrefix(startURL, "http://"), "https://")
	if site, ok := cf.Sites[bare]; ok {
		return cf.Defaults.Merge(site)
	}
	return cf.Defaults
}

// Merge returns s overridden by the non-zero fields of override.
// Headers are merged key by key; everything else is replaced.
func (s SiteConfig) Merge(override SiteConfig) SiteConfig {
	result := s
	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if len(override.Headers) > 0 {
		headers := make(map[string]string, len(s.Headers)+len(override.Headers))
		for k, v := range s.Headers {
			headers[k] = v
		}
		for k, v := range override.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = override.IgnorePatterns
	}
	if override.Concurrency > 0 {
		result.Concurrency = override.Concurrency
	}
	if override.ServeRoot != "" {
		result.ServeRoot = override.ServeRoot
	}
	return result
}
