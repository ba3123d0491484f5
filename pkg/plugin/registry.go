package plugin

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/trpt/internal/core"
)

// registry maps plugin names to factories of one stage type.
type registry[T Plugin] struct {
	kind      string
	mu        sync.RWMutex
	factories map[string]func() T
}

func newRegistry[T Plugin](kind string) *registry[T] {
	return &registry[T]{kind: kind, factories: make(map[string]func() T)}
}

func (r *registry[T]) register(name string, factory func() T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		panic(fmt.Sprintf("plugin: %s %q registered twice", r.kind, name))
	}
	r.factories[name] = factory
}

func (r *registry[T]) get(name string) (func() T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", r.kind, name, core.ErrPluginNotFound)
	}
	return f, nil
}

func (r *registry[T]) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reset removes every registration. Tests only.
func (r *registry[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]func() T)
}

var (
	capturerReg  = newRegistry[Capturer]("capturer")
	parserReg    = newRegistry[Parser]("parser")
	processorReg = newRegistry[Processor]("processor")
	reporterReg  = newRegistry[Reporter]("reporter")
)

// RegisterCapturer registers a capturer factory. It panics on duplicates.
func RegisterCapturer(name string, factory func() Capturer) { capturerReg.register(name, factory) }

// RegisterParser registers a parser factory. It panics on duplicates.
func RegisterParser(name string, factory func() Parser) { parserReg.register(name, factory) }

// RegisterProcessor registers a processor factory. It panics on duplicates.
func RegisterProcessor(name string, factory func() Processor) { processorReg.register(name, factory) }

// RegisterReporter registers a reporter factory. It panics on duplicates.
func RegisterReporter(name string, factory func() Reporter) { reporterReg.register(name, factory) }

// GetCapturerFactory returns the capturer factory registered under name.
func GetCapturerFactory(name string) (func() Capturer, error) { return capturerReg.get(name) }

// GetParserFactory returns the parser factory registered under name.
func GetParserFactory(name string) (func() Parser, error) { return parserReg.get(name) }

// GetProcessorFactory returns the processor factory registered under name.
func GetProcessorFactory(name string) (func() Processor, error) { return processorReg.get(name) }

// GetReporterFactory returns the reporter factory registered under name.
func GetReporterFactory(name string) (func() Reporter, error) { return reporterReg.get(name) }

// Names lists the registered plugin names per stage, sorted.
func Names() map[string][]string {
	return map[string][]string{
		capturerReg.kind:  capturerReg.names(),
		parserReg.kind:    parserReg.names(),
		processorReg.kind: processorReg.names(),
		reporterReg.kind:  reporterReg.names(),
	}
}
