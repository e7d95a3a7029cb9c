// Package backend defines the capability surface shared by every execution
// target: device selection, buffer allocation, binary loading, argument
// binding, enqueue and teardown.
//
// Two families implement it. Offload devices (WebGPU) own a real command
// queue and an opaque compiled binary; the native host device executes
// registered Go kernels directly and is always "compiled". The orchestrator
// in internal/kernel drives both through this package and never learns
// which one it is talking to.
//
// All hardware-touching calls are blocking from the caller's perspective.
// Every handle obtained must be released exactly once; the orchestrator
// owns that discipline.
package backend

import (
	"sort"
	"sync"
)

// Kind selects the class of device to open.
type Kind int

const (
	// KindCPU selects native host execution.
	KindCPU Kind = iota
	// KindGPU selects an offload command-queue device.
	KindGPU
)

func (k Kind) String() string {
	if k == KindGPU {
		return "gpu"
	}
	return "cpu"
}

// ParseKind converts a configuration tag into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "cpu", "CPU":
		return KindCPU, nil
	case "gpu", "GPU":
		return KindGPU, nil
	}
	return KindCPU, Errorf(NoDevicesOfKind, "ParseKind", "unknown device kind %q (want \"cpu\" or \"gpu\")", s)
}

// Config is the explicit, immutable device-selection configuration.
// Nothing here is a compiled-in global; the caller decides.
type Config struct {
	// Backend names the registered implementation ("host", "webgpu").
	Backend string
	// PlatformHint is matched case-insensitively as a substring of the
	// device descriptor. Empty matches any device.
	PlatformHint string
	// Kind is the class of device requested.
	Kind Kind
	// WorkSize limits CPU-kind devices to this many compute units.
	// Zero means all available units.
	WorkSize int
}

// Device is one opened execution target.
type Device interface {
	// Name returns the device descriptor (used for hint matching and logs).
	Name() string
	// Kind reports the device class.
	Kind() Kind
	// Units reports the parallel compute units available, or 0 if the
	// target does not expose a count.
	Units() int
	// Allocate creates a device buffer of the given byte size.
	Allocate(size int64) (Buffer, error)
	// LoadBinary loads a compiled kernel binary from path.
	LoadBinary(path string) (Program, error)
	// Synchronize blocks until all previously enqueued work completes.
	Synchronize() error
	// Release frees the device and everything still attached to it.
	Release()
}

// Program is a loaded kernel binary.
type Program interface {
	// Kernel resolves a kernel entry point within the program.
	Kernel(entry string) (Kernel, error)
	Release()
}

// Kernel is one bindable, enqueueable entry point.
type Kernel interface {
	// SetArg binds the positional argument at index.
	SetArg(index int, v Value) error
	// Enqueue launches the kernel over global work items with the given
	// local granularity and blocks until the launch is queued.
	Enqueue(global, local int) error
	Release()
}

// Buffer is one device allocation.
type Buffer interface {
	Size() int64
	// Write copies p into the buffer starting at offset.
	Write(offset int64, p []byte) error
	// Read copies from the buffer starting at offset into p.
	Read(offset int64, p []byte) error
	Release()
}

// Value is a positional kernel argument: a buffer handle or a scalar.
type Value struct {
	kind valueKind
	buf  Buffer
	num  int64
	real float64
}

type valueKind uint8

const (
	valueNone valueKind = iota
	valueBuffer
	valueInt
	valueFloat
)

// Buf wraps a buffer handle as an argument value.
func Buf(b Buffer) Value { return Value{kind: valueBuffer, buf: b} }

// Int wraps a scalar integer argument (the chunk size travels this way).
func Int(v int) Value { return Value{kind: valueInt, num: int64(v)} }

// Float wraps a scalar floating-point argument.
func Float(v float64) Value { return Value{kind: valueFloat, real: v} }

// IsBuffer reports whether the value carries a buffer handle.
func (v Value) IsBuffer() bool { return v.kind == valueBuffer }

// IsScalar reports whether the value carries a scalar.
func (v Value) IsScalar() bool { return v.kind == valueInt || v.kind == valueFloat }

// IsFloat reports whether the value carries a floating-point scalar.
func (v Value) IsFloat() bool { return v.kind == valueFloat }

// Buffer returns the buffer handle, or nil for scalar values.
func (v Value) Buffer() Buffer { return v.buf }

// Int returns the scalar as an int (floats truncate).
func (v Value) Int() int {
	if v.kind == valueFloat {
		return int(v.real)
	}
	return int(v.num)
}

// Float returns the scalar as a float64.
func (v Value) Float() float64 {
	if v.kind == valueInt {
		return float64(v.num)
	}
	return v.real
}

// Factory opens a device for a configuration.
type Factory func(Config) (Device, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend implementation available under name.
// Implementations register themselves from init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Backends lists the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open selects and opens a device per cfg. Selection failures surface the
// taxonomy errors: DeviceNotFound when no device descriptor matches the
// platform hint, NoDevicesOfKind when the backend has no device of the
// requested kind, TooManyUnitsRequested when a CPU-kind work size exceeds
// the hardware.
func Open(cfg Config) (Device, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Backend]
	registryMu.RUnlock()
	if !ok {
		return nil, Errorf(DeviceNotFound, "Open", "no backend registered under %q (have %v)", cfg.Backend, Backends())
	}
	return factory(cfg)
}
