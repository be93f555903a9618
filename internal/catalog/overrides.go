package catalog

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/profile-cli/internal/model"
)

// Override adjusts a registered source's catalog metadata without
// touching its implementation. Loaded from an optional YAML file keyed
// by source ID.
type Override struct {
	TimeoutSecs   int      `yaml:"timeout_secs"`
	Jurisdictions []string `yaml:"jurisdictions"`
	Disabled      bool     `yaml:"disabled"`
}

// LoadOverrides reads per-source overrides from a YAML file.
func LoadOverrides(path string) (map[string]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read overrides %s", path)
	}
	var overrides map[string]Override
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, eris.Wrap(err, "catalog: parse overrides")
	}
	return overrides, nil
}

// Apply returns a new registry with overrides applied. Disabled sources
// are dropped; unknown IDs are logged and ignored.
func (r *Registry) Apply(overrides map[string]Override) *Registry {
	out := NewRegistry()
	for _, src := range r.All() {
		ov, ok := overrides[src.ID()]
		if !ok {
			out.Register(src)
			continue
		}
		if ov.Disabled {
			zap.L().Info("catalog: source disabled by override", zap.String("source_id", src.ID()))
			continue
		}
		out.Register(&overridden{Source: src, ov: ov})
	}
	for id := range overrides {
		if _, err := r.Get(id); err != nil {
			zap.L().Warn("catalog: override for unknown source", zap.String("source_id", id))
		}
	}
	return out
}

type overridden struct {
	Source
	ov Override
}

func (o *overridden) Timeout() time.Duration {
	if o.ov.TimeoutSecs > 0 {
		return time.Duration(o.ov.TimeoutSecs) * time.Second
	}
	return o.Source.Timeout()
}

func (o *overridden) Jurisdictions() []string {
	if len(o.ov.Jurisdictions) > 0 {
		return o.ov.Jurisdictions
	}
	return o.Source.Jurisdictions()
}

func (o *overridden) Fetch(ctx context.Context, entityKey string) (*model.Payload, error) {
	return o.Source.Fetch(ctx, entityKey)
}
