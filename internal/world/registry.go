package world

import (
	"fmt"
	"sort"
	"sync"
)

// Registry разрешает ключ инстанса в сам инстанс. Сессии хранят только
// ключ и обращаются к инстансу через реестр при каждом доступе.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*Instance)}
}

// Register добавляет инстанс под его именем
func (r *Registry) Register(inst *Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[inst.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateInstance, inst.Name())
	}
	r.instances[inst.Name()] = inst
	return nil
}

// Unregister удаляет инстанс из реестра
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[name]; !exists {
		return false
	}
	delete(r.instances, name)
	return true
}

// Resolve возвращает инстанс по ключу
func (r *Registry) Resolve(name string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[name]
	return inst, ok
}

// Names возвращает ключи всех инстансов по алфавиту
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
