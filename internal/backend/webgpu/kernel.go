//go:build windows

package webgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/kinetix-hpc/kinetix/internal/backend"
)

type program struct {
	dev      *Device
	path     string
	module   *wgpu.ShaderModule
	released bool
}

var _ backend.Program = (*program)(nil)

// LoadBinary reads a WGSL shader file and compiles it into a module.
func (d *Device) LoadBinary(path string) (prog backend.Program, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return nil, backend.Errorf(backend.BinaryNotFound, "webgpu.LoadBinary", "%s", path)
		}
		return nil, backend.WrapError(backend.BinaryReadError, "webgpu.LoadBinary", statErr)
	}
	src, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, backend.WrapError(backend.BinaryReadError, "webgpu.LoadBinary", readErr)
	}
	if len(src) == 0 {
		return nil, backend.Errorf(backend.BinaryReadError, "webgpu.LoadBinary", "%s is empty", path)
	}

	// Shader compilation errors surface through the uncaptured error
	// callback, which the binding raises as a panic.
	defer func() {
		if r := recover(); r != nil {
			prog = nil
			err = backend.BuildError("webgpu.LoadBinary", fmt.Sprint(r), nil)
		}
	}()

	module := d.device.CreateShaderModuleWGSL(string(src))
	if module == nil {
		return nil, backend.BuildError("webgpu.LoadBinary", "", fmt.Errorf("shader module creation failed for %s", path))
	}
	return &program{dev: d, path: path, module: module}, nil
}

// Kernel creates a compute pipeline for the named entry point.
func (p *program) Kernel(entry string) (k backend.Kernel, err error) {
	if p.released {
		return nil, backend.Errorf(backend.BuildFailure, "webgpu.Kernel", "program released")
	}
	defer func() {
		if r := recover(); r != nil {
			k = nil
			err = backend.BuildError("webgpu.Kernel", fmt.Sprint(r), nil)
		}
	}()

	pipeline := p.dev.device.CreateComputePipelineSimple(nil, p.module, entry)
	if pipeline == nil {
		return nil, backend.BuildError("webgpu.Kernel", "", fmt.Errorf("no entry point %q in %s", entry, p.path))
	}
	return &kernel{dev: p.dev, entry: entry, pipeline: pipeline, args: make(map[int]backend.Value)}, nil
}

// Release frees the shader module. Safe to call more than once.
func (p *program) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}

type kernel struct {
	dev      *Device
	entry    string
	pipeline *wgpu.ComputePipeline
	args     map[int]backend.Value
	released bool
}

var _ backend.Kernel = (*kernel)(nil)

// SetArg binds an argument at the given position. Arguments persist
// across launches until overwritten.
func (k *kernel) SetArg(index int, v backend.Value) error {
	if index < 0 {
		return backend.Errorf(backend.TransferFailure, "webgpu.SetArg", "negative argument index %d", index)
	}
	k.args[index] = v
	return nil
}

// Enqueue dispatches ceil(global/local) workgroups. Buffer arguments
// bind at @group(0) in positional order and scalar arguments are packed
// into one uniform buffer bound after them, so the shader must declare
// its bindings in the same order. local must match the shader's
// @workgroup_size; values at or below zero assume the 256 default.
func (k *kernel) Enqueue(global, local int) (err error) {
	if global <= 0 {
		return nil
	}
	if local <= 0 {
		local = workgroupSize
	}
	defer func() {
		if r := recover(); r != nil {
			err = backend.Errorf(backend.TransferFailure, "webgpu.Enqueue", "%v", r)
		}
	}()

	maxIdx := -1
	for i := range k.args {
		if i > maxIdx {
			maxIdx = i
		}
	}

	var entries []wgpu.BindGroupEntry
	var params []byte
	for i := 0; i <= maxIdx; i++ {
		v, ok := k.args[i]
		if !ok {
			panic(fmt.Sprintf("webgpu: kernel %q argument %d unbound", k.entry, i))
		}
		switch {
		case v.IsBuffer():
			gb, ok := v.Buffer().(*gpuBuffer)
			if !ok {
				return backend.Errorf(backend.TransferFailure, "webgpu.Enqueue",
					"argument %d is not a webgpu buffer", i)
			}
			binding := uint32(len(entries))
			entries = append(entries, wgpu.BufferBindingEntry(binding, gb.buf, 0, alignUp(uint64(gb.size), 4)))
		case v.IsScalar():
			params = appendScalar(params, v)
		default:
			return backend.Errorf(backend.TransferFailure, "webgpu.Enqueue", "argument %d unset", i)
		}
	}

	var paramsBuf *wgpu.Buffer
	if len(params) > 0 {
		paramsBuf = k.uniformBuffer(params)
		defer paramsBuf.Release()
		binding := uint32(len(entries))
		entries = append(entries, wgpu.BufferBindingEntry(binding, paramsBuf, 0, alignUp(uint64(len(params)), 16)))
	}

	layout := k.pipeline.GetBindGroupLayout(0)
	bindGroup := k.dev.device.CreateBindGroupSimple(layout, entries)
	defer bindGroup.Release()

	encoder := k.dev.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	groups := uint32((global + local - 1) / local)
	pass.DispatchWorkgroups(groups, 1, 1)
	pass.End()
	k.dev.queue.Submit(encoder.Finish(nil))
	return nil
}

// Release frees the pipeline. Safe to call more than once.
func (k *kernel) Release() {
	if k.released {
		return
	}
	k.released = true
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}
}

// uniformBuffer creates a 16-byte aligned uniform buffer holding data.
func (k *kernel) uniformBuffer(data []byte) *wgpu.Buffer {
	size := alignUp(uint64(len(data)), 16)
	buf := k.dev.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(buf.GetMappedRange(0, size)), size)
	copy(mapped, data)
	buf.Unmap()
	return buf
}

// appendScalar packs a scalar argument as one 32-bit little-endian word.
// WGSL has no 64-bit numeric types, so floats narrow to f32.
func appendScalar(params []byte, v backend.Value) []byte {
	var word uint32
	if v.IsFloat() {
		word = math.Float32bits(float32(v.Float()))
	} else {
		word = uint32(int32(v.Int()))
	}
	return binary.LittleEndian.AppendUint32(params, word)
}
