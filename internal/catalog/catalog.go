// Package catalog enumerates every persisted type in one start-up step.
package catalog

import (
	"fmt"
	"sync"

	"github.com/danmuck/rawlog/internal/geometry"
	"github.com/danmuck/rawlog/internal/numeric"
	"github.com/danmuck/rawlog/internal/obs"
	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Module is a group of types registered together.
type Module struct {
	Name     string
	Register func(*protocol.Registry) error
}

var modules = []Module{
	{Name: "geometry", Register: geometry.Register},
	{Name: "numeric", Register: numeric.Register},
	{Name: "obs", Register: obs.Register},
}

var (
	defaultOnce sync.Once
	defaultErr  error
)

func Modules() []Module {
	return append([]Module(nil), modules...)
}

// RegisterAll registers every module on r. It is safe to call repeatedly.
func RegisterAll(r *protocol.Registry) error {
	for _, m := range modules {
		if err := m.Register(r); err != nil {
			return fmt.Errorf("catalog: module %s: %w", m.Name, err)
		}
	}
	log.Debug().Int("types", r.Len()).Msg("catalog registered")
	return nil
}

// New returns a registry holding every catalog type.
func New() (*protocol.Registry, error) {
	r := protocol.NewRegistry()
	if err := RegisterAll(r); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterDefault populates protocol.Default once per process.
func RegisterDefault() error {
	defaultOnce.Do(func() {
		defaultErr = RegisterAll(protocol.Default)
	})
	return defaultErr
}

// ModuleOf names the module that registers typeName, or "" when none does.
func ModuleOf(typeName string) string {
	for _, m := range modules {
		r := protocol.NewRegistry()
		if err := m.Register(r); err != nil {
			continue
		}
		if _, ok := r.Lookup(typeName); ok {
			return m.Name
		}
	}
	return ""
}
