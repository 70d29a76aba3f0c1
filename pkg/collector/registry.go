package collector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Influencer is one tracked account in the post feed.
type Influencer struct {
	Handle    string `yaml:"handle" json:"handle"`
	Name      string `yaml:"name" json:"name"`
	Category  string `yaml:"category" json:"category"`
	Followers int64  `yaml:"followers" json:"followers"`
}

// NewsSource is one upstream news feed. An empty URL means the source has no
// live upstream and always falls back to mock items.
type NewsSource struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url,omitempty"`
}

// Registry is the static table of tracked influencers and news sources.
type Registry struct {
	Influencers []Influencer `yaml:"influencers"`
	NewsSources []NewsSource `yaml:"news_sources"`
}

// defaultRegistryYAML ships a usable registry so the service runs without an
// external file.
const defaultRegistryYAML = `
influencers:
  - handle: elonmusk
    name: Elon Musk
    category: entrepreneur
    followers: 221000000
  - handle: VitalikButerin
    name: Vitalik Buterin
    category: founder
    followers: 5700000
  - handle: cz_binance
    name: CZ
    category: exchange
    followers: 10200000
  - handle: saylor
    name: Michael Saylor
    category: investor
    followers: 4400000
news_sources:
  - name: coindesk
  - name: cointelegraph
  - name: theblock
`

// LoadRegistry reads the registry from path, or the embedded default when
// path is empty.
func LoadRegistry(path string) (*Registry, error) {
	raw := []byte(defaultRegistryYAML)
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read registry file: %w", err)
		}
	}

	var registry Registry
	if err := yaml.Unmarshal(raw, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if len(registry.Influencers) == 0 {
		return nil, fmt.Errorf("registry has no influencers")
	}
	return &registry, nil
}
