// Package kernel runs generated device kernels over batches of
// thermochemical conditions. A Runtime owns one device, sizes its buffers
// for a bounded chunk of the problem, and evaluates the whole problem as a
// strict sequence of chunked transfer-in, launch, transfer-out rounds.
package kernel

import (
	"context"
	"fmt"

	"github.com/kinetix-hpc/kinetix/internal/layout"
)

// ArrayKind classifies how the runtime moves an array each chunk.
type ArrayKind int

const (
	// KindIn arrays are copied host to device before every launch.
	KindIn ArrayKind = iota
	// KindOut arrays are read back after every launch.
	KindOut
	// KindScratch arrays live on the device only and have no host image.
	KindScratch
)

func (k ArrayKind) String() string {
	switch k {
	case KindIn:
		return "in"
	case KindOut:
		return "out"
	case KindScratch:
		return "scratch"
	}
	return fmt.Sprintf("ArrayKind(%d)", int(k))
}

// ParseArrayKind converts a manifest kind string.
func ParseArrayKind(s string) (ArrayKind, error) {
	switch s {
	case "in":
		return KindIn, nil
	case "out":
		return KindOut, nil
	case "scratch":
		return KindScratch, nil
	}
	return 0, fmt.Errorf("kernel: unknown array kind %q", s)
}

// Array describes one kernel argument array. PerCond is the number of
// elements the kernel touches per condition; scratch workspaces arrive
// pre-packed by the generator as a single array.
type Array struct {
	Name    string
	PerCond int
	Kind    ArrayKind
}

// Spec is the generated kernel's shape: entry point, element width, and
// the argument arrays in positional order. The launch contract is the
// chunk size as argument 0 followed by one handle per array.
type Spec struct {
	Name      string
	Entry     string
	ElemBytes int
	Arrays    []Array
}

// Validate reports the first structural problem with the spec.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("kernel: spec has no name")
	}
	if s.Entry == "" {
		return fmt.Errorf("kernel %s: no entry point", s.Name)
	}
	if s.ElemBytes <= 0 {
		return fmt.Errorf("kernel %s: element size %d", s.Name, s.ElemBytes)
	}
	if len(s.Arrays) == 0 {
		return fmt.Errorf("kernel %s: no arrays", s.Name)
	}
	seen := make(map[string]bool, len(s.Arrays))
	for _, a := range s.Arrays {
		if a.Name == "" {
			return fmt.Errorf("kernel %s: unnamed array", s.Name)
		}
		if seen[a.Name] {
			return fmt.Errorf("kernel %s: duplicate array %q", s.Name, a.Name)
		}
		seen[a.Name] = true
		if a.PerCond <= 0 {
			return fmt.Errorf("kernel %s: array %q has %d elements per condition", s.Name, a.Name, a.PerCond)
		}
	}
	return nil
}

// HostArrays returns the arrays that carry a host image, in positional
// order. Invoke takes exactly one host slice per returned array.
func (s Spec) HostArrays() []Array {
	out := make([]Array, 0, len(s.Arrays))
	for _, a := range s.Arrays {
		if a.Kind != KindScratch {
			out = append(out, a)
		}
	}
	return out
}

// Config carries the tunables fixed at generation time plus the injected
// build step for targets whose binaries are produced out of process.
type Config struct {
	// BinaryPath is the kernel binary the device loads. For WebGPU this
	// is a WGSL file; for the host backend the path is recorded only,
	// since host kernels link into the process.
	BinaryPath string
	// Compile produces BinaryPath. Nil means the kernel needs no build
	// step and the runtime starts out compiled.
	Compile func(ctx context.Context) error
	// MaxPerRun caps conditions evaluated per launch. Zero or negative
	// means the whole problem runs as one chunk. Floored to a VecWidth
	// multiple.
	MaxPerRun int
	// VecWidth pads buffer sizing and dispatch width. Zero means 1.
	VecWidth int
	// LocalSize is the workgroup size for GPU launches.
	LocalSize int
	// Order is the host and device data layout.
	Order layout.Order
}

func (c Config) normalized() Config {
	if c.VecWidth <= 0 {
		c.VecWidth = 1
	}
	if c.MaxPerRun < 0 {
		c.MaxPerRun = 0
	}
	return c
}
