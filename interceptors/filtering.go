package interceptors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
)

// ErrFiltered is returned by a SkipWithError filter
var ErrFiltered = errors.New("interceptors: message filtered")

// MessageFilter defines the interface for message filtering
type MessageFilter interface {
	// ShouldProcess returns true if the message should be processed
	ShouldProcess(ctx context.Context, env *envelope.Envelope) (bool, error)
}

// MessageFilterFunc is a function adapter for MessageFilter
type MessageFilterFunc func(ctx context.Context, env *envelope.Envelope) (bool, error)

// ShouldProcess implements MessageFilter
func (f MessageFilterFunc) ShouldProcess(ctx context.Context, env *envelope.Envelope) (bool, error) {
	return f(ctx, env)
}

// SkipBehavior defines what happens when a message is filtered out
type SkipBehavior int

const (
	// SkipSilently skips the message without error
	SkipSilently SkipBehavior = iota
	// SkipWithError returns ErrFiltered
	SkipWithError
	// SkipWithLog logs that the message was skipped
	SkipWithLog
)

// FilteringInterceptor filters messages based on conditions
type FilteringInterceptor struct {
	filter       MessageFilter
	skipBehavior SkipBehavior
	logger       *slog.Logger
}

// NewFilteringInterceptor creates a new filtering interceptor. logger is
// only used by SkipWithLog and may be nil.
func NewFilteringInterceptor(filter MessageFilter, skipBehavior SkipBehavior, logger *slog.Logger) *FilteringInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilteringInterceptor{
		filter:       filter,
		skipBehavior: skipBehavior,
		logger:       logger,
	}
}

// Intercept implements Interceptor
func (i *FilteringInterceptor) Intercept(ctx context.Context, env *envelope.Envelope, next MessageHandler) error {
	shouldProcess, err := i.filter.ShouldProcess(ctx, env)
	if err != nil {
		return fmt.Errorf("filter error: %w", err)
	}

	if !shouldProcess {
		switch i.skipBehavior {
		case SkipWithError:
			return fmt.Errorf("%w: specialization=%s, id=%s", ErrFiltered, env.Specialization(), env.GetMessageID())
		case SkipWithLog:
			i.logger.Info("message skipped by filter",
				"messageId", env.GetMessageID(),
				"specialization", env.Specialization().String(),
			)
			return nil
		default: // SkipSilently
			return nil
		}
	}

	return next.Handle(ctx, env)
}

// Name implements Interceptor
func (i *FilteringInterceptor) Name() string {
	return "FilteringInterceptor"
}

// CompositeFilter passes a message only when every filter passes it. An
// empty CompositeFilter passes everything.
type CompositeFilter struct {
	filters []MessageFilter
}

// NewCompositeFilter creates an AND filter
func NewCompositeFilter(filters ...MessageFilter) *CompositeFilter {
	return &CompositeFilter{filters: filters}
}

// ShouldProcess implements MessageFilter
func (f *CompositeFilter) ShouldProcess(ctx context.Context, env *envelope.Envelope) (bool, error) {
	return firstMatch(ctx, env, f.filters, false)
}

// OrFilter passes a message when any filter passes it. An empty OrFilter
// passes nothing.
type OrFilter struct {
	filters []MessageFilter
}

// NewOrFilter creates an OR filter
func NewOrFilter(filters ...MessageFilter) *OrFilter {
	return &OrFilter{filters: filters}
}

// ShouldProcess implements MessageFilter
func (f *OrFilter) ShouldProcess(ctx context.Context, env *envelope.Envelope) (bool, error) {
	return firstMatch(ctx, env, f.filters, true)
}

// firstMatch stops at the first filter whose verdict equals stop and
// returns it; otherwise it returns !stop
func firstMatch(ctx context.Context, env *envelope.Envelope, filters []MessageFilter, stop bool) (bool, error) {
	for _, filter := range filters {
		pass, err := filter.ShouldProcess(ctx, env)
		if err != nil {
			return false, err
		}
		if pass == stop {
			return stop, nil
		}
	}
	return !stop, nil
}

// SpecializationFilter allows only the given specializations
type SpecializationFilter struct {
	allowed map[contracts.Specialization]bool
}

// NewSpecializationFilter creates a filter that only allows specific
// specializations
func NewSpecializationFilter(allowed ...contracts.Specialization) *SpecializationFilter {
	m := make(map[contracts.Specialization]bool, len(allowed))
	for _, s := range allowed {
		m[s] = true
	}
	return &SpecializationFilter{allowed: m}
}

// ShouldProcess implements MessageFilter
func (f *SpecializationFilter) ShouldProcess(_ context.Context, env *envelope.Envelope) (bool, error) {
	return f.allowed[env.Specialization()], nil
}

// PropertyFilter allows messages whose string property equals a value
type PropertyFilter struct {
	name  string
	value string
}

// NewPropertyFilter creates a property filter. Messages without the
// property are filtered out; a property that cannot be read as a string
// is an error.
func NewPropertyFilter(name, value string) *PropertyFilter {
	return &PropertyFilter{name: name, value: value}
}

// ShouldProcess implements MessageFilter
func (f *PropertyFilter) ShouldProcess(_ context.Context, env *envelope.Envelope) (bool, error) {
	if _, ok := env.GetProperty(f.name); !ok {
		return false, nil
	}
	v, err := env.GetStringProperty(f.name)
	if err != nil {
		return false, err
	}
	return v == f.value, nil
}

// ConditionalInterceptor executes an interceptor only if a condition is met
type ConditionalInterceptor struct {
	condition   MessageFilter
	interceptor Interceptor
}

// NewConditionalInterceptor creates a new conditional interceptor
func NewConditionalInterceptor(condition MessageFilter, interceptor Interceptor) *ConditionalInterceptor {
	return &ConditionalInterceptor{
		condition:   condition,
		interceptor: interceptor,
	}
}

// Intercept implements Interceptor
func (i *ConditionalInterceptor) Intercept(ctx context.Context, env *envelope.Envelope, next MessageHandler) error {
	shouldExecute, err := i.condition.ShouldProcess(ctx, env)
	if err != nil {
		return err
	}

	if shouldExecute {
		return i.interceptor.Intercept(ctx, env, next)
	}

	return next.Handle(ctx, env)
}

// Name implements Interceptor
func (i *ConditionalInterceptor) Name() string {
	return fmt.Sprintf("ConditionalInterceptor[%s]", i.interceptor.Name())
}
