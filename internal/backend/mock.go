package backend

import "fmt"

// Verify the mock implements the full capability surface.
var (
	_ Device  = (*MockDevice)(nil)
	_ Program = (*MockProgram)(nil)
	_ Kernel  = (*MockKernel)(nil)
	_ Buffer  = (*MockBuffer)(nil)
)

// MockDevice is an in-memory device for orchestrator tests. It records
// every operation in order, supports injected failures per operation, and
// can run a caller-supplied function on enqueue to emulate the kernel.
//
// Instances are single-goroutine, matching the runtime's control flow.
type MockDevice struct {
	DeviceName string
	DeviceKind Kind
	UnitCount  int

	// Injected failures. Nil means the operation succeeds.
	FailAllocate   error
	FailLoadBinary error
	FailKernel     error
	FailSync       error

	// AllocLimit, when positive, fails any allocation once that many
	// buffers exist. Exercises partial-allocation rollback.
	AllocLimit int

	// OnEnqueue, when set, emulates kernel execution against the bound
	// arguments. Returning an error fails the enqueue.
	OnEnqueue func(k *MockKernel, global, local int) error

	// Events is the ordered operation log: "alloc 128", "write buf0 96",
	// "enqueue 4 2", "release buffer buf0", ...
	Events []string

	Buffers  []*MockBuffer
	Released bool

	nextBuf int
}

// NewMockDevice returns a CPU-kind mock with the given unit count.
func NewMockDevice(units int) *MockDevice {
	return &MockDevice{DeviceName: "mock", DeviceKind: KindCPU, UnitCount: units}
}

func (d *MockDevice) record(format string, args ...any) {
	d.Events = append(d.Events, fmt.Sprintf(format, args...))
}

func (d *MockDevice) Name() string { return d.DeviceName }
func (d *MockDevice) Kind() Kind   { return d.DeviceKind }
func (d *MockDevice) Units() int   { return d.UnitCount }

func (d *MockDevice) Allocate(size int64) (Buffer, error) {
	if d.FailAllocate != nil {
		return nil, d.FailAllocate
	}
	if d.AllocLimit > 0 && d.nextBuf >= d.AllocLimit {
		return nil, Errorf(AllocationFailure, "MockDevice.Allocate", "limit of %d buffers reached", d.AllocLimit)
	}
	b := &MockBuffer{dev: d, id: d.nextBuf, data: make([]byte, size)}
	d.nextBuf++
	d.Buffers = append(d.Buffers, b)
	d.record("alloc buf%d %d", b.id, size)
	return b, nil
}

func (d *MockDevice) LoadBinary(path string) (Program, error) {
	if d.FailLoadBinary != nil {
		return nil, d.FailLoadBinary
	}
	d.record("load %s", path)
	return &MockProgram{dev: d, Path: path}, nil
}

func (d *MockDevice) Synchronize() error {
	if d.FailSync != nil {
		return d.FailSync
	}
	d.record("sync")
	return nil
}

func (d *MockDevice) Release() {
	d.record("release device")
	d.Released = true
}

// MockProgram is a loaded binary on a MockDevice.
type MockProgram struct {
	dev      *MockDevice
	Path     string
	Released bool
}

func (p *MockProgram) Kernel(entry string) (Kernel, error) {
	if p.dev.FailKernel != nil {
		return nil, p.dev.FailKernel
	}
	p.dev.record("kernel %s", entry)
	return &MockKernel{dev: p.dev, Entry: entry, Args: map[int]Value{}}, nil
}

func (p *MockProgram) Release() {
	p.dev.record("release program")
	p.Released = true
}

// EnqueueRecord is one recorded launch: the work sizes and a snapshot of
// the scalar arguments at launch time (arg 0 is the chunk size).
type EnqueueRecord struct {
	Global, Local int
	Scalars       map[int]int
}

// MockKernel records argument binds and launches.
type MockKernel struct {
	dev      *MockDevice
	Entry    string
	Args     map[int]Value
	Launches []EnqueueRecord
	Released bool
}

func (k *MockKernel) SetArg(index int, v Value) error {
	k.Args[index] = v
	return nil
}

func (k *MockKernel) Enqueue(global, local int) error {
	scalars := map[int]int{}
	for i, v := range k.Args {
		if v.IsScalar() {
			scalars[i] = v.Int()
		}
	}
	k.Launches = append(k.Launches, EnqueueRecord{Global: global, Local: local, Scalars: scalars})
	k.dev.record("enqueue %d %d", global, local)
	if k.dev.OnEnqueue != nil {
		return k.dev.OnEnqueue(k, global, local)
	}
	return nil
}

func (k *MockKernel) Release() {
	k.dev.record("release kernel")
	k.Released = true
}

// MockBuffer is a host-memory buffer with release tracking.
type MockBuffer struct {
	dev      *MockDevice
	id       int
	data     []byte
	Released bool
}

func (b *MockBuffer) Size() int64 { return int64(len(b.data)) }

// Data exposes the backing bytes for test assertions and OnEnqueue hooks.
func (b *MockBuffer) Data() []byte { return b.data }

func (b *MockBuffer) Write(offset int64, p []byte) error {
	if b.Released {
		return Errorf(TransferFailure, "MockBuffer.Write", "use after release of buf%d", b.id)
	}
	if offset < 0 || offset+int64(len(p)) > int64(len(b.data)) {
		return Errorf(TransferFailure, "MockBuffer.Write", "range [%d, %d) outside buf%d of %d bytes", offset, offset+int64(len(p)), b.id, len(b.data))
	}
	copy(b.data[offset:], p)
	b.dev.record("write buf%d %d", b.id, len(p))
	return nil
}

func (b *MockBuffer) Read(offset int64, p []byte) error {
	if b.Released {
		return Errorf(TransferFailure, "MockBuffer.Read", "use after release of buf%d", b.id)
	}
	if offset < 0 || offset+int64(len(p)) > int64(len(b.data)) {
		return Errorf(TransferFailure, "MockBuffer.Read", "range [%d, %d) outside buf%d of %d bytes", offset, offset+int64(len(p)), b.id, len(b.data))
	}
	copy(p, b.data[offset:])
	b.dev.record("read buf%d %d", b.id, len(p))
	return nil
}

func (b *MockBuffer) Release() {
	b.dev.record("release buffer buf%d", b.id)
	b.Released = true
}
