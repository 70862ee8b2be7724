package protocol

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/danmuck/rawlog/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// Factory constructs a blank, not-yet-decoded instance of a registered type.
type Factory func() Serializable

// TypeDescriptor is one registry entry.
type TypeDescriptor struct {
	Name           string
	Factory        Factory
	CurrentVersion uint8
	GoType         reflect.Type
}

// Registry maps stable type names to factories and current versions.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]TypeDescriptor
	byType map[reflect.Type]string
}

// Default is the process-wide registry used when no registry is supplied.
var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]TypeDescriptor),
		byType: make(map[reflect.Type]string),
	}
}

// RegisterType registers a type on Default.
func RegisterType(name string, factory Factory, currentVersion uint8) error {
	return Default.Register(name, factory, currentVersion)
}

// MustRegisterType registers a type on Default and panics on failure.
func MustRegisterType(name string, factory Factory, currentVersion uint8) {
	Default.MustRegister(name, factory, currentVersion)
}

// Register binds name to factory. Registering the same name again with a
// factory that builds the same Go type at the same version is a no-op; any
// other rebinding fails with ErrDuplicateRegistration.
func (r *Registry) Register(name string, factory Factory, currentVersion uint8) error {
	if err := frame.ValidateTypeName(name, frame.DefaultMaxTypeNameLen); err != nil {
		return fmt.Errorf("protocol: register: %w", err)
	}
	if factory == nil {
		return fmt.Errorf("%w: nil factory for %q", ErrInvalidFactory, name)
	}
	sample := factory()
	if isNil(sample) {
		return fmt.Errorf("%w: factory for %q returned nil", ErrInvalidFactory, name)
	}
	if v := sample.CurrentVersion(); v != currentVersion {
		return fmt.Errorf("%w: %q declared v%d, instances report v%d", ErrVersionMismatch, name, currentVersion, v)
	}
	goType := reflect.TypeOf(sample)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[name]; ok {
		if existing.GoType == goType && existing.CurrentVersion == currentVersion {
			return nil
		}
		return fmt.Errorf("%w: %q is bound to %s v%d, refusing %s v%d",
			ErrDuplicateRegistration, name, existing.GoType, existing.CurrentVersion, goType, currentVersion)
	}
	if other, ok := r.byType[goType]; ok {
		return fmt.Errorf("%w: %s is already registered as %q", ErrDuplicateRegistration, goType, other)
	}
	r.byName[name] = TypeDescriptor{
		Name:           name,
		Factory:        factory,
		CurrentVersion: currentVersion,
		GoType:         goType,
	}
	r.byType[goType] = name
	log.Debug().Str("type", name).Uint8("version", currentVersion).Str("go_type", goType.String()).Msg("protocol type registered")
	return nil
}

func (r *Registry) MustRegister(name string, factory Factory, currentVersion uint8) {
	if err := r.Register(name, factory, currentVersion); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.byName[name]
	return desc, ok
}

// Create returns a blank instance of the type registered under name.
func (r *Registry) Create(name string) (Serializable, error) {
	desc, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownTypeError{Name: name}
	}
	return desc.Factory(), nil
}

func (r *Registry) CurrentVersionOf(name string) (uint8, error) {
	desc, ok := r.Lookup(name)
	if !ok {
		return 0, &UnknownTypeError{Name: name}
	}
	return desc.CurrentVersion, nil
}

// NameOf returns the registered name of obj's concrete type.
func (r *Registry) NameOf(obj Serializable) (string, error) {
	goType := reflect.TypeOf(obj)
	r.mu.RLock()
	name, ok := r.byType[goType]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: go type %v is not registered", ErrUnknownType, goType)
	}
	return name, nil
}

// List returns every descriptor ordered by name.
func (r *Registry) List() []TypeDescriptor {
	r.mu.RLock()
	list := make([]TypeDescriptor, 0, len(r.byName))
	for _, desc := range r.byName {
		list = append(list, desc)
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

func isNil(obj Serializable) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return v.IsNil()
	}
	return false
}
