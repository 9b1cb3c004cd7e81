package serialization

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var (
	// ErrTypeNotRegistered is returned for names or values the registry does not know
	ErrTypeNotRegistered = errors.New("serialization: type not registered")
	// ErrTypeConflict is returned when a name is already bound to another type
	ErrTypeConflict = errors.New("serialization: type name already registered")
)

// TypeRegistry maps object payload type names to Go struct types. The name
// is what an object body records next to its serialized bytes.
type TypeRegistry interface {
	// Register binds typeName to the struct type of sample
	Register(typeName string, sample interface{}) error

	// RegisterType binds sample's struct type under its package-qualified name
	RegisterType(sample interface{}) error

	// Alias makes alias resolve to an already registered name. Payloads
	// recorded under a former name keep materializing.
	Alias(alias, typeName string) error

	// Get resolves a name or alias to its struct type
	Get(typeName string) (reflect.Type, error)

	// CreateInstance returns a pointer to a new zero value of the resolved type
	CreateInstance(typeName string) (interface{}, error)

	// GetTypeName returns the canonical name registered for value's type
	GetTypeName(value interface{}) (string, error)

	// IsRegistered reports whether typeName resolves
	IsRegistered(typeName string) bool

	// ListTypes returns the canonical names in sorted order
	ListTypes() []string
}

// DefaultTypeRegistry is the default implementation of TypeRegistry
type DefaultTypeRegistry struct {
	mu      sync.RWMutex
	byName  map[string]reflect.Type
	byType  map[reflect.Type]string
	aliases map[string]string
}

// NewTypeRegistry creates a new type registry
func NewTypeRegistry() *DefaultTypeRegistry {
	return &DefaultTypeRegistry{
		byName:  make(map[string]reflect.Type),
		byType:  make(map[reflect.Type]string),
		aliases: make(map[string]string),
	}
}

// Register binds T under typeName
func Register[T any](r TypeRegistry, typeName string) error {
	var zero T
	return r.Register(typeName, zero)
}

// structType returns the struct type behind v, looking through one pointer
func structType(v interface{}) (reflect.Type, error) {
	if v == nil {
		return nil, errors.New("payload type cannot be nil")
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("payload type must be a struct, got %v", t.Kind())
	}
	return t, nil
}

// Register implements TypeRegistry. Registering the same binding twice is
// a no-op.
func (r *DefaultTypeRegistry) Register(typeName string, sample interface{}) error {
	if typeName == "" {
		return errors.New("type name cannot be empty")
	}
	t, err := structType(sample)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[typeName]; ok {
		if existing == t {
			return nil
		}
		return fmt.Errorf("%w: %s is bound to %v", ErrTypeConflict, typeName, existing)
	}
	if target, ok := r.aliases[typeName]; ok {
		return fmt.Errorf("%w: %s is an alias of %s", ErrTypeConflict, typeName, target)
	}

	r.byName[typeName] = t
	if _, named := r.byType[t]; !named {
		r.byType[t] = typeName
	}
	return nil
}

// RegisterType implements TypeRegistry
func (r *DefaultTypeRegistry) RegisterType(sample interface{}) error {
	t, err := structType(sample)
	if err != nil {
		return err
	}
	if t.Name() == "" {
		return fmt.Errorf("cannot determine type name for %v", t)
	}

	name := t.Name()
	if t.PkgPath() != "" {
		name = t.PkgPath() + "." + name
	}
	return r.Register(name, sample)
}

// Alias implements TypeRegistry
func (r *DefaultTypeRegistry) Alias(alias, typeName string) error {
	if alias == "" {
		return errors.New("alias cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[typeName]; !ok {
		return fmt.Errorf("%w: %s", ErrTypeNotRegistered, typeName)
	}
	if _, ok := r.byName[alias]; ok {
		return fmt.Errorf("%w: %s", ErrTypeConflict, alias)
	}
	if target, ok := r.aliases[alias]; ok && target != typeName {
		return fmt.Errorf("%w: %s is an alias of %s", ErrTypeConflict, alias, target)
	}

	r.aliases[alias] = typeName
	return nil
}

func (r *DefaultTypeRegistry) resolve(typeName string) (reflect.Type, bool) {
	if t, ok := r.byName[typeName]; ok {
		return t, true
	}
	if target, ok := r.aliases[typeName]; ok {
		return r.byName[target], true
	}
	return nil, false
}

// Get implements TypeRegistry
func (r *DefaultTypeRegistry) Get(typeName string) (reflect.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.resolve(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, typeName)
	}
	return t, nil
}

// CreateInstance implements TypeRegistry
func (r *DefaultTypeRegistry) CreateInstance(typeName string) (interface{}, error) {
	t, err := r.Get(typeName)
	if err != nil {
		return nil, err
	}
	return reflect.New(t).Interface(), nil
}

// GetTypeName implements TypeRegistry. When one type is bound to several
// names the first registered name wins.
func (r *DefaultTypeRegistry) GetTypeName(value interface{}) (string, error) {
	if value == nil {
		return "", errors.New("value cannot be nil")
	}
	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.byType[t]
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrTypeNotRegistered, t)
	}
	return name, nil
}

// IsRegistered implements TypeRegistry
func (r *DefaultTypeRegistry) IsRegistered(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.resolve(typeName)
	return ok
}

// ListTypes implements TypeRegistry
func (r *DefaultTypeRegistry) ListTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
