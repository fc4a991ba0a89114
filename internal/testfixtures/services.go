package testfixtures

import (
	"fmt"
	"time"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, tokens, and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// NowFunc returns the clock's time source for dependency injection.
func (f *ServiceFactory) NowFunc() func() time.Time {
	if f == nil {
		return time.Now
	}
	return f.Clock.NowFunc()
}

// NextIDFunc returns the identifier source for dependency injection.
func (f *ServiceFactory) NextIDFunc() func() string {
	if f == nil {
		return func() string { return "" }
	}
	return f.IDGenerator.NextFunc()
}

// TokenGenerator returns a deterministic access token source. Tokens share
// the identifier sequence so interleaved calls remain reproducible.
func (f *ServiceFactory) TokenGenerator() func() string {
	next := f.NextIDFunc()
	return func() string {
		return fmt.Sprintf("token-%s", next())
	}
}
