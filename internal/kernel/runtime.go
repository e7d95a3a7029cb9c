package kernel

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kinetix-hpc/kinetix/internal/backend"
	"github.com/kinetix-hpc/kinetix/internal/layout"
	"github.com/kinetix-hpc/kinetix/internal/stride"
)

// Runtime drives one generated kernel on one device.
//
// The lifecycle is Compile (optional, idempotent), Resize, any number of
// Invoke calls, then Finalize. Resize fixes the chunk bound and sizes the
// device buffers; Invoke walks the problem in chunks of at most that
// bound, strictly in order. The runtime owns the device and releases it
// on Finalize.
type Runtime struct {
	dev  backend.Device
	spec Spec
	cfg  Config
	log  *zap.Logger

	compiled    bool
	initialized bool
	finalized   bool

	program backend.Program
	kern    backend.Kernel
	bufs    []backend.Buffer
	staging []byte

	problemSize int
	workSize    int
	maxPerRun   int
}

// NewRuntime validates the spec and wraps the device. On success the
// runtime owns dev and will release it in Finalize; on error the caller
// keeps ownership.
func NewRuntime(dev backend.Device, spec Spec, cfg Config, log *zap.Logger) (*Runtime, error) {
	if dev == nil {
		return nil, fmt.Errorf("kernel: nil device")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runtime{
		dev:      dev,
		spec:     spec,
		cfg:      cfg.normalized(),
		log:      log.With(zap.String("kernel", spec.Name), zap.String("device", dev.Name())),
		compiled: cfg.Compile == nil,
	}, nil
}

// Device returns the owned device. Valid until Finalize.
func (r *Runtime) Device() backend.Device { return r.dev }

// Initialized reports whether a Resize has succeeded.
func (r *Runtime) Initialized() bool { return r.initialized }

// MaxPerRun is the chunk bound fixed by the last Resize.
func (r *Runtime) MaxPerRun() int { return r.maxPerRun }

// Compile runs the injected build step once. Later calls are no-ops, so
// a runtime shared across resizes never rebuilds its binary.
func (r *Runtime) Compile(ctx context.Context) error {
	if r.compiled {
		return nil
	}
	start := time.Now()
	if err := r.cfg.Compile(ctx); err != nil {
		return err
	}
	r.compiled = true
	r.log.Debug("kernel compiled",
		zap.String("binary", r.cfg.BinaryPath),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Resize prepares the runtime for a problem of problemSize conditions.
//
// The first call compiles the binary (skipCompile instead trusts a
// pre-built one), loads it and creates the kernel. Every call fixes
// MaxPerRun = min(configured bound, problemSize) and allocates one device
// buffer per array sized for MaxPerRun padded conditions. Calling again
// with the same problemSize and workSize keeps the existing buffers; a
// different size releases and reallocates them. Partial allocations roll
// back on failure.
func (r *Runtime) Resize(ctx context.Context, problemSize, workSize int, skipCompile bool) error {
	if r.finalized {
		return backend.Errorf(backend.NotInitialized, "kernel.Resize", "runtime finalized")
	}
	if problemSize < 0 {
		return fmt.Errorf("kernel %s: negative problem size %d", r.spec.Name, problemSize)
	}
	if workSize < 0 {
		return fmt.Errorf("kernel %s: negative work size %d", r.spec.Name, workSize)
	}

	if !r.compiled {
		if skipCompile {
			r.compiled = true
		} else if err := r.Compile(ctx); err != nil {
			return err
		}
	}

	if r.kern == nil {
		prog, err := r.dev.LoadBinary(r.cfg.BinaryPath)
		if err != nil {
			return err
		}
		kern, err := prog.Kernel(r.spec.Entry)
		if err != nil {
			prog.Release()
			return err
		}
		r.program, r.kern = prog, kern
	}

	if r.initialized && problemSize == r.problemSize && workSize == r.workSize {
		return nil
	}

	maxPerRun := problemSize
	if r.cfg.MaxPerRun > 0 {
		floored := layout.FloorCount(r.cfg.MaxPerRun, r.cfg.VecWidth)
		if floored <= 0 {
			return fmt.Errorf("kernel %s: max per run %d below vector width %d",
				r.spec.Name, r.cfg.MaxPerRun, r.cfg.VecWidth)
		}
		if floored < maxPerRun {
			maxPerRun = floored
		}
	}

	// Dimensions changed: the old allocation goes before the new one so a
	// grown problem never holds both.
	r.FinalizeMemory()

	bufs := make([]backend.Buffer, len(r.spec.Arrays))
	var total, maxImage int64
	for i, arr := range r.spec.Arrays {
		size := layout.BufferBytes(arr.PerCond, r.spec.ElemBytes, maxPerRun, r.cfg.VecWidth)
		b, err := r.dev.Allocate(size)
		if err != nil {
			for _, allocated := range bufs[:i] {
				allocated.Release()
			}
			return err
		}
		bufs[i] = b
		total += size
		if arr.Kind != KindScratch && size > maxImage {
			maxImage = size
		}
	}
	r.bufs = bufs
	r.staging = make([]byte, maxImage)

	for i := range r.spec.Arrays {
		if err := r.kern.SetArg(i+1, backend.Buf(r.bufs[i])); err != nil {
			r.FinalizeMemory()
			return err
		}
	}

	r.problemSize = problemSize
	r.workSize = workSize
	r.maxPerRun = maxPerRun
	r.initialized = true
	r.log.Debug("runtime resized",
		zap.Int("problem_size", problemSize),
		zap.Int("work_size", workSize),
		zap.Int("max_per_run", maxPerRun),
		zap.Int64("device_bytes", total))
	return nil
}

// Invoke evaluates the whole problem. host carries one byte slice per
// non-scratch array in positional order, each holding problemSize
// conditions at the device element width in the configured data order.
//
// Conditions run in chunks of at most MaxPerRun: inputs for the chunk are
// copied in, the kernel launches over the padded chunk width, the device
// synchronizes, and outputs are copied back, before the next chunk starts.
func (r *Runtime) Invoke(host [][]byte) error {
	if !r.initialized {
		return backend.Errorf(backend.NotInitialized, "kernel.Invoke", "kernel %s not resized", r.spec.Name)
	}
	hostArrays := r.spec.HostArrays()
	if len(host) != len(hostArrays) {
		return fmt.Errorf("kernel %s: %d host arrays, want %d", r.spec.Name, len(host), len(hostArrays))
	}
	hostIdx := make(map[string]int, len(hostArrays))
	for i, arr := range hostArrays {
		want := r.problemSize * arr.PerCond * r.spec.ElemBytes
		if len(host[i]) != want {
			return fmt.Errorf("kernel %s: host array %q holds %d bytes, want %d",
				r.spec.Name, arr.Name, len(host[i]), want)
		}
		hostIdx[arr.Name] = i
	}
	if r.problemSize == 0 {
		return nil
	}

	padded := layout.PadCount(r.maxPerRun, r.cfg.VecWidth)
	local := r.cfg.LocalSize
	if r.dev.Kind() == backend.KindCPU {
		local = r.workSize
	}

	for offset := 0; offset < r.problemSize; offset += r.maxPerRun {
		thisRun := r.problemSize - offset
		if thisRun > r.maxPerRun {
			thisRun = r.maxPerRun
		}
		if thisRun <= 0 {
			panic(fmt.Sprintf("kernel %s: chunk of %d conditions at offset %d", r.spec.Name, thisRun, offset))
		}

		for i, arr := range r.spec.Arrays {
			if arr.Kind != KindIn {
				continue
			}
			tr := layout.ChunkRegion(r.cfg.Order, arr.PerCond, r.spec.ElemBytes,
				r.problemSize, padded, offset, thisRun)
			img := r.staging[:tr.DeviceBytes()]
			if err := stride.CopyIn(img, host[hostIdx[arr.Name]], tr.HostOrigin, tr.Region,
				tr.DevRowPitch, tr.DevSlicePitch, tr.HostRowPitch, tr.HostSlicePitch); err != nil {
				return backend.WrapError(backend.TransferFailure, "kernel.Invoke", err)
			}
			if err := r.bufs[i].Write(0, img); err != nil {
				return err
			}
		}

		if err := r.kern.SetArg(0, backend.Int(thisRun)); err != nil {
			return err
		}
		if err := r.kern.Enqueue(layout.PadCount(thisRun, r.cfg.VecWidth), local); err != nil {
			return err
		}
		if err := r.dev.Synchronize(); err != nil {
			return err
		}

		for i, arr := range r.spec.Arrays {
			if arr.Kind != KindOut {
				continue
			}
			tr := layout.ChunkRegion(r.cfg.Order, arr.PerCond, r.spec.ElemBytes,
				r.problemSize, padded, offset, thisRun)
			img := r.staging[:tr.DeviceBytes()]
			if err := r.bufs[i].Read(0, img); err != nil {
				return err
			}
			if err := stride.CopyOut(host[hostIdx[arr.Name]], img, tr.HostOrigin, tr.Region,
				tr.HostRowPitch, tr.HostSlicePitch, tr.DevRowPitch, tr.DevSlicePitch); err != nil {
				return backend.WrapError(backend.TransferFailure, "kernel.Invoke", err)
			}
		}
	}
	return nil
}

// FinalizeMemory releases the device buffers. The runtime drops back to
// the uninitialized state; a later Resize allocates fresh buffers.
// Idempotent and safe before any Resize.
func (r *Runtime) FinalizeMemory() {
	for i, b := range r.bufs {
		if b != nil {
			r.release(fmt.Sprintf("buffer %s", r.spec.Arrays[i].Name), b.Release)
		}
	}
	r.bufs = nil
	r.staging = nil
	r.initialized = false
}

// Finalize releases everything the runtime holds: buffers, then kernel,
// program and device, in that order. Idempotent; release problems are
// logged, never returned.
func (r *Runtime) Finalize() {
	if r.finalized {
		return
	}
	r.finalized = true
	r.FinalizeMemory()
	if r.kern != nil {
		r.release("kernel", r.kern.Release)
		r.kern = nil
	}
	if r.program != nil {
		r.release("program", r.program.Release)
		r.program = nil
	}
	if r.dev != nil {
		r.release("device", r.dev.Release)
		r.dev = nil
	}
	r.log.Debug("runtime finalized")
}

// release guards one teardown step so a misbehaving driver cannot abort
// the rest of the teardown.
func (r *Runtime) release(what string, f func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Warn("release failed", zap.String("resource", what), zap.Any("cause", p))
		}
	}()
	f()
}
