package providers

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
)

var ErrEmptyRegistry = errors.New("provider registry requires at least one provider id")

// displayNames maps the known provider ids to their human readable labels.
// Ids outside this map still get a registry entry with a title-cased label.
var displayNames = map[string]string{
	"openai":    "OpenAI",
	"anthropic": "Anthropic",
	"gemini":    "Google Gemini",
	"mistral":   "Mistral AI",
	"cohere":    "Cohere",
}

// Registry is the fixed, closed set of provider ids tracked by the service.
// It is built once at startup and never mutated afterwards.
type Registry struct {
	ids   []string
	names map[string]string
}

func NewRegistry(ids []string) (*Registry, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyRegistry
	}

	r := &Registry{
		ids:   make([]string, 0, len(ids)),
		names: make(map[string]string, len(ids)),
	}

	for _, raw := range ids {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		if _, exists := r.names[id]; exists {
			log.Warn().Str("provider", id).Msg("Duplicate provider id in registry config, skipping")
			continue
		}

		name, known := displayNames[id]
		if !known {
			name = strings.ToUpper(id[:1]) + id[1:]
			log.Warn().Str("provider", id).Msg("Unknown provider id, using fallback display name")
		}

		r.ids = append(r.ids, id)
		r.names[id] = name
	}

	if len(r.ids) == 0 {
		return nil, ErrEmptyRegistry
	}

	log.Info().Strs("providers", r.ids).Msg("Provider registry initialized")
	return r, nil
}

// IDs returns the registered provider ids in configuration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r *Registry) Contains(id string) bool {
	_, ok := r.names[id]
	return ok
}

func (r *Registry) DisplayName(id string) string {
	return r.names[id]
}

func (r *Registry) Len() int {
	return len(r.ids)
}
