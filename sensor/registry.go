package sensor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/intact/logging"
)

// Config describes which sensor to open and how to record from it.
type Config struct {
	Type       string `json:"type"`
	Path       string `json:"path,omitempty"`
	Seed       int64  `json:"seed,omitempty"`
	RecordMode string `json:"record_mode,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Type == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "type")
	}
	reg, ok := lookup(cfg.Type)
	if !ok {
		return goutils.NewConfigValidationError(path, errors.Errorf("unknown sensor type %q, have %v", cfg.Type, RegisteredTypes()))
	}
	if reg.NeedsPath && cfg.Path == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "path")
	}
	if _, err := ParseRecordMode(cfg.RecordMode); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	return nil
}

// A Constructor opens a sensor from its config.
type Constructor func(ctx context.Context, cfg Config, logger logging.Logger) (Capturer, error)

// Registration describes how to open one type of sensor.
type Registration struct {
	Constructor Constructor
	// NeedsPath is set when the sensor reads from Config.Path.
	NeedsPath bool
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Registration{}
)

// Register makes a sensor type available to New. It panics if the type is
// registered twice or the constructor is nil.
func Register(typ string, reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, old := registry[typ]; old {
		panic(fmt.Sprintf("trying to register two sensors with same type: %s", typ))
	}
	if reg.Constructor == nil {
		panic(fmt.Sprintf("cannot register a nil constructor for sensor: %s", typ))
	}
	registry[typ] = reg
}

func lookup(typ string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[typ]
	return reg, ok
}

// RegisteredTypes returns the registered sensor types in sorted order.
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for typ := range registry {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// New opens the sensor described by cfg.
func New(ctx context.Context, cfg Config, logger logging.Logger) (Capturer, error) {
	reg, ok := lookup(cfg.Type)
	if !ok {
		return nil, errors.Errorf("unknown sensor type %q", cfg.Type)
	}
	return reg.Constructor(ctx, cfg, logger.Sublogger(cfg.Type))
}
