package provider

import (
	"fmt"

	"github.com/chatcmd/chatcmd/internal/registry"
)

// Factory constructs and caches adapters. The cache is keyed by model name
// plus a credential fingerprint so a rotated key gets a fresh client; it is
// process-local and the CLI is single-threaded, so there is no locking.
type Factory struct {
	cache map[string]Adapter
}

func NewFactory() *Factory {
	return &Factory{cache: make(map[string]Adapter)}
}

// Create resolves the model's provider family to a concrete adapter. An
// unknown family is a configuration error for the caller to surface, not a
// crash. The switch is the single dispatch point for the closed Kind set.
func (f *Factory) Create(model registry.Descriptor, cred Credential) (Adapter, error) {
	key := model.Name + "_" + cred.Fingerprint()
	if adapter, ok := f.cache[key]; ok {
		return adapter, nil
	}

	var adapter Adapter
	switch Kind(model.Provider) {
	case KindOpenAI:
		adapter = NewOpenAI(model, cred)
	case KindAnthropic:
		adapter = NewAnthropic(model, cred)
	case KindGoogle:
		adapter = NewGoogle(model, cred)
	case KindCohere:
		adapter = NewCohere(model, cred)
	case KindOllama:
		adapter = NewOllama(model, cred)
	default:
		return nil, fmt.Errorf("unsupported provider %q for model %q", model.Provider, model.Name)
	}

	f.cache[key] = adapter
	return adapter, nil
}

// ClearCache drops all cached adapters.
func (f *Factory) ClearCache() {
	f.cache = make(map[string]Adapter)
}
