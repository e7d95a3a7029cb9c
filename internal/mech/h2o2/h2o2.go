// Package h2o2 is a hydrogen-oxidation sample in the exact shape kernel
// generation emits: a state vector phi = [T, Y_H2, Y_O2, Y_H2O], a
// pressure parameter, species rates dphi, and a packed scratch workspace.
// The mechanism is a single irreversible step 2 H2 + O2 -> 2 H2O with an
// Arrhenius rate, enough to light up every part of the execution path
// while staying checkable by hand.
//
// Generated kernels bake their data order, so the package registers one
// host variant per order and the WGSL writer emits the matching entry
// point. Column-major variants recover their lane pitch from the array
// length instead of an extra argument.
package h2o2

import (
	"math"
	"math/rand"

	"github.com/kinetix-hpc/kinetix/internal/backend/host"
	"github.com/kinetix-hpc/kinetix/internal/kernel"
	"github.com/kinetix-hpc/kinetix/internal/layout"
)

// Name identifies the mechanism in manifests and output files.
const Name = "h2o2"

// State vector layout.
const (
	NumSpecies = 3
	PhiLen     = 1 + NumSpecies // T, Y_H2, Y_O2, Y_H2O
	ParamLen   = 1              // pressure
	RwkLen     = 2              // density, rate of progress
)

// Thermochemistry constants. Molar masses in kg/kmol, the gas constant
// in J/(kmol K), the Arrhenius pair as pre-exponential and activation
// temperature, heat release per kmol O2 and a frozen mixture heat
// capacity.
const (
	gasConstant = 8314.4621

	wH2  = 2.016
	wO2  = 31.998
	wH2O = 18.015

	preExp         = 1.8e10
	activationTemp = 17614.0

	heatRelease = 4.82e8
	cpMix       = 1200.0
)

// Workspace slots within rwk. Generated mechanisms emit these as
// literal offsets.
const (
	slotRho = 0
	slotRop = 1
)

const (
	entryRow = "species_rates"
	entryCol = "species_rates_f"
)

func init() {
	host.Register(entryRow, rowRates)
	host.Register(entryCol, colRates)
}

// Entry returns the generated entry point for a data order.
func Entry(order layout.Order) string {
	if order == layout.ColMajor {
		return entryCol
	}
	return entryRow
}

// Spec describes the kernel arrays for the given device element width.
func Spec(elemBytes int, order layout.Order) kernel.Spec {
	return kernel.Spec{
		Name:      Name,
		Entry:     Entry(order),
		ElemBytes: elemBytes,
		Arrays: []kernel.Array{
			{Name: "phi", PerCond: PhiLen, Kind: kernel.KindIn},
			{Name: "param", PerCond: ParamLen, Kind: kernel.KindIn},
			{Name: "dphi", PerCond: PhiLen, Kind: kernel.KindOut},
			{Name: "rwk", PerCond: RwkLen, Kind: kernel.KindScratch},
		},
	}
}

// rates evaluates the mechanism for one condition: ideal-gas density,
// law-of-mass-action rate of progress, then temperature and mass
// fraction time derivatives.
func rates(temp, press, yH2, yO2, yH2O float64) (rho, rop, dT, dH2, dO2, dH2O float64) {
	wBar := 1 / (yH2/wH2 + yO2/wO2 + yH2O/wH2O)
	rho = press * wBar / (gasConstant * temp)

	cH2 := rho * yH2 / wH2
	cO2 := rho * yO2 / wO2
	k := preExp * math.Exp(-activationTemp/temp)
	rop = k * cH2 * cH2 * cO2

	dT = heatRelease * rop / (rho * cpMix)
	dH2 = -2 * rop * wH2 / rho
	dO2 = -rop * wO2 / rho
	dH2O = 2 * rop * wH2O / rho
	return rho, rop, dT, dH2, dO2, dH2O
}

// rowRates is the row-major host kernel: condition i's state sits at
// phi[i*4 .. i*4+3].
func rowRates(lo, hi int, args host.Args) {
	thisRun := args.Int(0)
	phi := args.Float64(1)
	param := args.Float64(2)
	dphi := args.Float64(3)
	rwk := args.Float64(4)

	for i := lo; i < hi; i++ {
		if i >= thisRun {
			continue
		}
		rho, rop, dT, dH2, dO2, dH2O := rates(phi[i*PhiLen], param[i], phi[i*PhiLen+1], phi[i*PhiLen+2], phi[i*PhiLen+3])
		rwk[i*RwkLen+slotRho] = rho
		rwk[i*RwkLen+slotRop] = rop
		dphi[i*PhiLen] = dT
		dphi[i*PhiLen+1] = dH2
		dphi[i*PhiLen+2] = dO2
		dphi[i*PhiLen+3] = dH2O
	}
}

// colRates is the column-major host kernel: field f of condition i sits
// at phi[f*pitch+i], where the pitch is the padded lane count the buffer
// was sized for.
func colRates(lo, hi int, args host.Args) {
	thisRun := args.Int(0)
	phi := args.Float64(1)
	param := args.Float64(2)
	dphi := args.Float64(3)
	rwk := args.Float64(4)

	phiPitch := len(phi) / PhiLen
	dphiPitch := len(dphi) / PhiLen
	rwkPitch := len(rwk) / RwkLen

	for i := lo; i < hi; i++ {
		if i >= thisRun {
			continue
		}
		rho, rop, dT, dH2, dO2, dH2O := rates(phi[i], param[i], phi[phiPitch+i], phi[2*phiPitch+i], phi[3*phiPitch+i])
		rwk[slotRho*rwkPitch+i] = rho
		rwk[slotRop*rwkPitch+i] = rop
		dphi[i] = dT
		dphi[dphiPitch+i] = dH2
		dphi[2*dphiPitch+i] = dO2
		dphi[3*dphiPitch+i] = dH2O
	}
}

// SampleConditions draws n deterministic ignition-like states: 800-2400 K,
// 1-50 atm, random composition normalized to unit mass. Returns the phi
// and param host arrays in the requested order.
func SampleConditions(n int, order layout.Order, seed int64) (phi, param []float64) {
	rng := rand.New(rand.NewSource(seed))
	phi = make([]float64, n*PhiLen)
	param = make([]float64, n*ParamLen)

	at := func(i, f int) int {
		if order == layout.ColMajor {
			return f*n + i
		}
		return i*PhiLen + f
	}
	const atm = 101325.0
	for i := 0; i < n; i++ {
		temp := 800 + 1600*rng.Float64()
		yH2 := rng.Float64()
		yO2 := rng.Float64()
		yH2O := rng.Float64()
		sum := yH2 + yO2 + yH2O

		phi[at(i, 0)] = temp
		phi[at(i, 1)] = yH2 / sum
		phi[at(i, 2)] = yO2 / sum
		phi[at(i, 3)] = yH2O / sum
		param[i] = atm * (1 + 49*rng.Float64())
	}
	return phi, param
}
