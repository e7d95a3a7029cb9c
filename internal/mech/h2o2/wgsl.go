package h2o2

import (
	"context"
	"fmt"
	"os"

	"github.com/kinetix-hpc/kinetix/internal/layout"
)

// DefaultLocalSize is the workgroup size baked into shaders when the
// caller does not pick one. It matches the dispatch default of the
// webgpu backend, so a manifest that leaves local_size unset stays
// consistent with the compiled entry point.
const DefaultLocalSize = 256

const wgslShell = `// %s species rates, generated for %s-order data.
// Single irreversible step 2 H2 + O2 -> 2 H2O with an Arrhenius rate.

@group(0) @binding(0) var<storage, read> phi: array<f32>;
@group(0) @binding(1) var<storage, read> pressure: array<f32>;
@group(0) @binding(2) var<storage, read_write> dphi: array<f32>;
@group(0) @binding(3) var<storage, read_write> rwk: array<f32>;

struct Params {
    this_run: u32,
}
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(%d)
fn %s(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= params.this_run) {
        return;
    }
%s
    let w_bar = 1.0 / (y_h2 / 2.016 + y_o2 / 31.998 + y_h2o / 18.015);
    let rho = p * w_bar / (8314.4621 * t);

    let c_h2 = rho * y_h2 / 2.016;
    let c_o2 = rho * y_o2 / 31.998;
    let k = 1.8e10 * exp(-17614.0 / t);
    let rop = k * c_h2 * c_h2 * c_o2;

%s}
`

const wgslRowBody = `    let base = i * 4u;
    let t = phi[base];
    let y_h2 = phi[base + 1u];
    let y_o2 = phi[base + 2u];
    let y_h2o = phi[base + 3u];
    let p = pressure[i];
`

const wgslRowStores = `    rwk[i * 2u] = rho;
    rwk[i * 2u + 1u] = rop;

    dphi[base] = 4.82e8 * rop / (rho * 1200.0);
    dphi[base + 1u] = -2.0 * rop * 2.016 / rho;
    dphi[base + 2u] = -rop * 31.998 / rho;
    dphi[base + 3u] = 2.0 * rop * 18.015 / rho;
`

const wgslColBody = `    let pitch = arrayLength(&phi) / 4u;
    let t = phi[i];
    let y_h2 = phi[pitch + i];
    let y_o2 = phi[2u * pitch + i];
    let y_h2o = phi[3u * pitch + i];
    let p = pressure[i];
`

const wgslColStores = `    let rwk_pitch = arrayLength(&rwk) / 2u;
    rwk[i] = rho;
    rwk[rwk_pitch + i] = rop;

    let out_pitch = arrayLength(&dphi) / 4u;
    dphi[i] = 4.82e8 * rop / (rho * 1200.0);
    dphi[out_pitch + i] = -2.0 * rop * 2.016 / rho;
    dphi[2u * out_pitch + i] = -rop * 31.998 / rho;
    dphi[3u * out_pitch + i] = 2.0 * rop * 18.015 / rho;
`

// WGSL returns the shader source for the given data order with the
// workgroup size baked into the entry point. localSize must match the
// local size the run is configured with; values <= 0 select
// DefaultLocalSize. Column-major shaders recover their lane pitch from
// the bound array lengths, so one binary serves any padded batch size.
func WGSL(order layout.Order, localSize int) string {
	if localSize <= 0 {
		localSize = DefaultLocalSize
	}
	body, stores := wgslRowBody, wgslRowStores
	if order == layout.ColMajor {
		body, stores = wgslColBody, wgslColStores
	}
	return fmt.Sprintf(wgslShell, Name, order, localSize, Entry(order), body, stores)
}

// WriteWGSL materializes the shader at path.
func WriteWGSL(path string, order layout.Order, localSize int) error {
	if err := os.WriteFile(path, []byte(WGSL(order, localSize)), 0o644); err != nil {
		return fmt.Errorf("h2o2: write shader: %w", err)
	}
	return nil
}

// Compiler returns a compile step that writes the shader to path,
// shaped for the compile hook of a runtime configuration.
func Compiler(path string, order layout.Order, localSize int) func(context.Context) error {
	return func(context.Context) error {
		return WriteWGSL(path, order, localSize)
	}
}
