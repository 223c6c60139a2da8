package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"datacleaner/internal/dataprocessing"
	"datacleaner/pkg/contracts/domain"
)

// Factory builds a step from its spec. id is assigned by the registry.
type Factory func(id string, spec StepSpec) (Step, error)

// Registry maps step types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewDefaultRegistry registers the drop_columns, missing, dedupe and
// convert steps.
func NewDefaultRegistry(coercer *dataprocessing.Coercer) *Registry {
	r := NewRegistry()
	_ = r.Register(StepDropColumns, func(id string, spec StepSpec) (Step, error) {
		if len(spec.Columns) == 0 {
			return nil, fmt.Errorf("%s needs at least one column", StepDropColumns)
		}
		return &dropColumnsStep{baseStep: baseStep{id, StepDropColumns}, columns: spec.Columns}, nil
	})
	_ = r.Register(StepMissing, func(id string, spec StepSpec) (Step, error) {
		strategy := domain.MissingStrategy(spec.Strategy)
		switch strategy {
		case domain.MissingNone, domain.MissingDrop, domain.MissingMean, domain.MissingMode, domain.MissingMedian:
		default:
			return nil, fmt.Errorf("%w: %q", dataprocessing.ErrUnknownStrategy, spec.Strategy)
		}
		return &missingStep{baseStep: baseStep{id, StepMissing}, strategy: strategy}, nil
	})
	_ = r.Register(StepDedupe, func(id string, _ StepSpec) (Step, error) {
		return &dedupeStep{baseStep: baseStep{id, StepDedupe}}, nil
	})
	_ = r.Register(StepConvert, func(id string, spec StepSpec) (Step, error) {
		if spec.Column == "" {
			return nil, fmt.Errorf("%s needs a column", StepConvert)
		}
		target, err := domain.ParseKind(spec.To)
		if err != nil {
			return nil, err
		}
		if !target.IsTarget() {
			return nil, fmt.Errorf("%w: %s", dataprocessing.ErrUnsupportedTarget, target)
		}
		return &convertStep{
			baseStep: baseStep{id, StepConvert},
			coercer:  coercer,
			column:   spec.Column,
			target:   target,
		}, nil
	})
	return r
}

// Register adds a factory. Registering a type twice is an error.
func (r *Registry) Register(stepType string, factory Factory) error {
	if stepType == "" || factory == nil {
		return fmt.Errorf("step type and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[stepType]; exists {
		return fmt.Errorf("step type %s already registered", stepType)
	}
	r.factories[stepType] = factory
	return nil
}

// Types returns the registered step types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build turns specs into steps, failing on the first invalid spec.
func (r *Registry) Build(specs []StepSpec) ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := make([]Step, 0, len(specs))
	for i, spec := range specs {
		factory, ok := r.factories[spec.Type]
		if !ok {
			return nil, fmt.Errorf("%w: step %d: unknown type %q", ErrInvalidDefinition, i+1, spec.Type)
		}
		step, err := factory(fmt.Sprintf("%d-%s", i+1, spec.Type), spec)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidDefinition, i+1, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}
