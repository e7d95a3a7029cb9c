package host

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/kinetix-hpc/kinetix/internal/backend"
	"github.com/kinetix-hpc/kinetix/internal/parallel"
)

// Func is a generated kernel routine. It evaluates conditions [lo, hi)
// against the positional arguments it was generated for: args[0] is the
// chunk size, followed by one buffer per named array.
//
// Routines must be pure per condition: workers run disjoint ranges of the
// same argument set concurrently.
type Func func(lo, hi int, args Args)

var (
	kernelsMu sync.RWMutex
	kernels   = make(map[string]Func)
)

// Register makes a generated kernel routine resolvable under name.
// Generated packages call this from init.
func Register(name string, fn Func) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	kernels[name] = fn
}

// Registered lists the resolvable kernel names, sorted.
func Registered() []string {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (Func, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	fn, ok := kernels[name]
	return fn, ok
}

// Args is the positional argument set handed to a kernel routine.
type Args []backend.Value

// Int returns the scalar argument at index i.
func (a Args) Int(i int) int { return a[i].Int() }

// Float returns the scalar argument at index i.
func (a Args) Float(i int) float64 { return a[i].Float() }

// Bytes returns the raw bytes of the buffer argument at index i.
func (a Args) Bytes(i int) []byte {
	b, ok := a[i].Buffer().(*hostBuffer)
	if !ok {
		panic(fmt.Sprintf("host: argument %d is not a host buffer", i))
	}
	return b.data
}

// Float64 views the buffer argument at index i as a float64 slice.
func (a Args) Float64(i int) []float64 {
	data := a.Bytes(i)
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), len(data)/8)
}

// Float32 views the buffer argument at index i as a float32 slice.
func (a Args) Float32(i int) []float32 {
	data := a.Bytes(i)
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), len(data)/4)
}

type program struct {
	dev  *Device
	path string
}

// Kernel resolves entry in the registry. A name nothing registered is a
// link failure; the diagnostic lists what the process does carry.
func (p *program) Kernel(entry string) (backend.Kernel, error) {
	fn, ok := lookup(entry)
	if !ok {
		return nil, backend.BuildError("host.Kernel",
			fmt.Sprintf("no kernel %q linked into this binary; registered: %v", entry, Registered()), nil)
	}
	return &kernel{dev: p.dev, entry: entry, fn: fn, args: map[int]backend.Value{}}, nil
}

func (p *program) Release() {}

type kernel struct {
	dev   *Device
	entry string
	fn    Func
	args  map[int]backend.Value
}

func (k *kernel) SetArg(index int, v backend.Value) error {
	if index < 0 {
		return backend.Errorf(backend.TransferFailure, "host.SetArg", "negative argument index %d", index)
	}
	k.args[index] = v
	return nil
}

// Enqueue runs the routine over [0, global) split across at most local
// workers (capped by the device partition). It blocks until every range
// completes; Synchronize afterwards is a no-op.
func (k *kernel) Enqueue(global, local int) error {
	if global <= 0 {
		return nil
	}

	maxIdx := -1
	for i := range k.args {
		if i > maxIdx {
			maxIdx = i
		}
	}
	args := make(Args, maxIdx+1)
	for i := 0; i <= maxIdx; i++ {
		v, ok := k.args[i]
		if !ok {
			panic(fmt.Sprintf("host: kernel %q argument %d unbound", k.entry, i))
		}
		args[i] = v
	}

	workers := k.dev.workers
	if local > 0 && local < workers {
		workers = local
	}

	parallel.ForRanges(global, parallel.Config{Workers: workers, MinChunkSize: 1},
		func(lo, hi int) { k.fn(lo, hi, args) })
	return nil
}

func (k *kernel) Release() { k.args = nil }
