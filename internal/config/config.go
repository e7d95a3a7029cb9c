// Package config loads the YAML manifest that ties a generated kernel, a
// device selection and run settings together. Decoding is strict: unknown
// fields are rejected so a typo in a manifest fails loudly instead of
// silently running defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kinetix-hpc/kinetix/internal/backend"
	"github.com/kinetix-hpc/kinetix/internal/kernel"
	"github.com/kinetix-hpc/kinetix/internal/layout"
)

// Manifest is the top-level configuration document.
type Manifest struct {
	Kernel KernelConfig `yaml:"kernel"`
	Device DeviceConfig `yaml:"device"`
	Run    RunConfig    `yaml:"run"`
}

// KernelConfig describes the generated kernel the runtime will drive.
type KernelConfig struct {
	Name      string        `yaml:"name"`
	Entry     string        `yaml:"entry"`
	ElemBytes int           `yaml:"elem_bytes"`
	Order     string        `yaml:"order"`
	VecWidth  int           `yaml:"vec_width"`
	LocalSize int           `yaml:"local_size"`
	Binary    string        `yaml:"binary"`
	Arrays    []ArrayConfig `yaml:"arrays"`
}

// ArrayConfig is one kernel argument array.
type ArrayConfig struct {
	Name    string `yaml:"name"`
	PerCond int    `yaml:"per_cond"`
	Kind    string `yaml:"kind"`
}

// DeviceConfig selects and sizes the execution device.
type DeviceConfig struct {
	Backend  string `yaml:"backend"`
	Platform string `yaml:"platform"`
	Kind     string `yaml:"kind"`
	WorkSize int    `yaml:"work_size"`
}

// RunConfig carries the per-run settings.
type RunConfig struct {
	MaxPerRun  int     `yaml:"max_per_run"`
	Conditions int     `yaml:"conditions"`
	Data       string  `yaml:"data"`
	Validate   bool    `yaml:"validate"`
	OutDir     string  `yaml:"out_dir"`
	RefDir     string  `yaml:"ref_dir"`
	AbsTol     float64 `yaml:"abs_tol"`
	RelTol     float64 `yaml:"rel_tol"`
}

// Default returns a manifest with the settings that hold unless the file
// says otherwise: host CPU device, row-major doubles, outputs beside the
// working directory.
func Default() *Manifest {
	return &Manifest{
		Kernel: KernelConfig{
			Entry:     "main",
			ElemBytes: 8,
			Order:     "C",
			VecWidth:  1,
		},
		Device: DeviceConfig{
			Backend: "host",
			Kind:    "cpu",
		},
		Run: RunConfig{
			OutDir: ".",
			AbsTol: 1e-10,
			RelTol: 1e-6,
		},
	}
}

// Load reads and strictly decodes a manifest, layering the file over the
// defaults and validating the result.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	m := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return m, nil
}

// Save writes the manifest as YAML.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate names the first offending field.
func (m *Manifest) Validate() error {
	if m.Kernel.Name == "" {
		return fmt.Errorf("kernel.name is required")
	}
	if m.Kernel.Entry == "" {
		return fmt.Errorf("kernel.entry is required")
	}
	if m.Kernel.ElemBytes != 4 && m.Kernel.ElemBytes != 8 {
		return fmt.Errorf("kernel.elem_bytes must be 4 or 8, got %d", m.Kernel.ElemBytes)
	}
	if _, err := layout.ParseOrder(m.Kernel.Order); err != nil {
		return fmt.Errorf("kernel.order: %w", err)
	}
	if m.Kernel.VecWidth < 0 {
		return fmt.Errorf("kernel.vec_width must not be negative, got %d", m.Kernel.VecWidth)
	}
	if m.Kernel.LocalSize < 0 {
		return fmt.Errorf("kernel.local_size must not be negative, got %d", m.Kernel.LocalSize)
	}
	if len(m.Kernel.Arrays) == 0 {
		return fmt.Errorf("kernel.arrays is required")
	}
	for i, a := range m.Kernel.Arrays {
		if a.Name == "" {
			return fmt.Errorf("kernel.arrays[%d].name is required", i)
		}
		if a.PerCond <= 0 {
			return fmt.Errorf("kernel.arrays[%d].per_cond must be positive, got %d", i, a.PerCond)
		}
		if _, err := kernel.ParseArrayKind(a.Kind); err != nil {
			return fmt.Errorf("kernel.arrays[%d].kind: %w", i, err)
		}
	}
	if m.Device.Backend == "" {
		return fmt.Errorf("device.backend is required")
	}
	if _, err := backend.ParseKind(m.Device.Kind); err != nil {
		return fmt.Errorf("device.kind: %w", err)
	}
	if m.Device.WorkSize < 0 {
		return fmt.Errorf("device.work_size must not be negative, got %d", m.Device.WorkSize)
	}
	if m.Run.MaxPerRun < 0 {
		return fmt.Errorf("run.max_per_run must not be negative, got %d", m.Run.MaxPerRun)
	}
	if m.Run.Conditions < 0 {
		return fmt.Errorf("run.conditions must not be negative, got %d", m.Run.Conditions)
	}
	return nil
}

// Spec builds the kernel spec the manifest describes. Validate first.
func (m *Manifest) Spec() kernel.Spec {
	arrays := make([]kernel.Array, len(m.Kernel.Arrays))
	for i, a := range m.Kernel.Arrays {
		kind, _ := kernel.ParseArrayKind(a.Kind)
		arrays[i] = kernel.Array{Name: a.Name, PerCond: a.PerCond, Kind: kind}
	}
	return kernel.Spec{
		Name:      m.Kernel.Name,
		Entry:     m.Kernel.Entry,
		ElemBytes: m.Kernel.ElemBytes,
		Arrays:    arrays,
	}
}

// KernelRuntimeConfig builds the runtime config. Validate first.
func (m *Manifest) KernelRuntimeConfig() kernel.Config {
	order, _ := layout.ParseOrder(m.Kernel.Order)
	return kernel.Config{
		BinaryPath: m.Kernel.Binary,
		MaxPerRun:  m.Run.MaxPerRun,
		VecWidth:   m.Kernel.VecWidth,
		LocalSize:  m.Kernel.LocalSize,
		Order:      order,
	}
}

// DeviceSelection builds the backend open request. Validate first.
func (m *Manifest) DeviceSelection() backend.Config {
	kind, _ := backend.ParseKind(m.Device.Kind)
	return backend.Config{
		Backend:      m.Device.Backend,
		PlatformHint: m.Device.Platform,
		Kind:         kind,
		WorkSize:     m.Device.WorkSize,
	}
}

// Fields lists the input arrays in manifest order for the conditions file.
func (m *Manifest) Fields() []ArrayConfig {
	var in []ArrayConfig
	for _, a := range m.Kernel.Arrays {
		if a.Kind == "in" {
			in = append(in, a)
		}
	}
	return in
}
