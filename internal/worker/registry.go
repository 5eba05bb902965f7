package worker

import (
	"sort"
	"sync"
)

// Registry 管理 worker 的注册和查找。
// Registration happens once at orchestrator construction; lookups are
// concurrent afterwards.
type Registry struct {
	workers map[string]Worker
	mu      sync.RWMutex
}

// NewRegistry 创建一个新的 worker 注册表。
func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[string]Worker),
	}
}

// Register 注册一个 worker。
// 名称重复或 spec 非法时返回错误。
func (r *Registry) Register(w Worker) error {
	if w == nil {
		return NewConfigError("cannot register nil worker", nil)
	}

	spec := w.Spec()
	if spec.Name == "" {
		return NewConfigError("worker name cannot be empty", nil)
	}
	if spec.Phase < 1 {
		return NewConfigError("worker phase must be >= 1: "+spec.Name, nil)
	}
	if spec.Timeout < 0 {
		return NewConfigError("worker timeout cannot be negative: "+spec.Name, nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workers[spec.Name]; exists {
		return NewConfigError("worker already registered: "+spec.Name, nil)
	}

	r.workers[spec.Name] = w
	return nil
}

// MustRegister 注册 worker，如果出错则 panic。
// 注册错误属于启动期编程错误。
func (r *Registry) MustRegister(w Worker) {
	if err := r.Register(w); err != nil {
		panic(err)
	}
}

// Get 按名称获取 worker，不存在时返回 nil。
func (r *Registry) Get(name string) Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workers[name]
}

// Has 检查名称是否已注册。
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.workers[name]
	return exists
}

// Count 返回已注册 worker 数量。
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}

// ByPhase returns the workers of one phase, sorted by name for a stable
// invocation order.
func (r *Registry) ByPhase(phase int) []Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Worker
	for _, w := range r.workers {
		if w.Spec().Phase == phase {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Spec().Name < out[j].Spec().Name
	})
	return out
}

// Phases returns the distinct phase numbers in ascending order.
func (r *Registry) Phases() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[int]bool)
	var phases []int
	for _, w := range r.workers {
		p := w.Spec().Phase
		if !seen[p] {
			seen[p] = true
			phases = append(phases, p)
		}
	}
	sort.Ints(phases)
	return phases
}
