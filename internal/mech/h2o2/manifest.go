package h2o2

import (
	"github.com/kinetix-hpc/kinetix/internal/config"
	"github.com/kinetix-hpc/kinetix/internal/layout"
)

// Manifest assembles a run manifest for this mechanism. The host backend
// runs the registered float64 routines; any other backend is treated as
// an offload target running the f32 shader found at binary. order must
// match the order the shader was generated for.
func Manifest(backendName, binary string, order layout.Order) *config.Manifest {
	m := config.Default()
	m.Kernel.Name = Name
	m.Kernel.Entry = Entry(order)
	m.Kernel.Order = order.String()
	m.Kernel.Binary = binary
	m.Kernel.Arrays = []config.ArrayConfig{
		{Name: "phi", PerCond: PhiLen, Kind: "in"},
		{Name: "param", PerCond: ParamLen, Kind: "in"},
		{Name: "dphi", PerCond: PhiLen, Kind: "out"},
		{Name: "rwk", PerCond: RwkLen, Kind: "scratch"},
	}
	m.Device.Backend = backendName
	if backendName != "host" {
		m.Kernel.ElemBytes = 4
		m.Device.Kind = "gpu"
	}
	return m
}
