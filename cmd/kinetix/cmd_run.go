package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kinetix-hpc/kinetix/internal/backend"
	"github.com/kinetix-hpc/kinetix/internal/conditions"
	"github.com/kinetix-hpc/kinetix/internal/config"
	"github.com/kinetix-hpc/kinetix/internal/kernel"
	"github.com/kinetix-hpc/kinetix/internal/layout"
	"github.com/kinetix-hpc/kinetix/internal/mech/h2o2"
	"github.com/kinetix-hpc/kinetix/internal/validate"
)

const demoConditions = 4096

var (
	runDemo      bool
	runBackend   string
	runOrderFlag string
	runSeed      int64
	runConds     int
	runMaxPerRun int
	runValidate  bool
	runOutDir    string
	runRefDir    string
	runAbsTol    float64
	runRelTol    float64
)

var runCmd = &cobra.Command{
	Use:   "run [manifest]",
	Short: "Execute a generated kernel over a batch of conditions",
	Long: `Executes the kernel a manifest describes over its batch of conditions
and prints one CSV line "compile,setup,run" of wall-times in seconds.

With --validate every output array is written to <out-dir>/<name>.bin;
with --ref-dir each written array is also compared elementwise against
the same file in the reference directory.

--demo runs the bundled h2o2 sample mechanism on synthetic conditions
without a manifest. A typical cross-check of a GPU against the host:

  kinetix run --demo --validate --out-dir ref
  kinetix run --demo --backend webgpu --out-dir gpu --validate \
      --ref-dir ref --rel-tol 1e-3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExec,
}

func init() {
	runCmd.Flags().BoolVar(&runDemo, "demo", false, "Run the bundled h2o2 sample mechanism on synthetic conditions")
	runCmd.Flags().StringVarP(&runBackend, "backend", "b", "", "Device backend override (demo default: host)")
	runCmd.Flags().StringVar(&runOrderFlag, "order", "", "Demo data order, C or F")
	runCmd.Flags().Int64Var(&runSeed, "seed", 1, "Seed for synthetic demo conditions")
	runCmd.Flags().IntVarP(&runConds, "conditions", "n", 0, "Condition count override (default: manifest, else whole data file)")
	runCmd.Flags().IntVar(&runMaxPerRun, "max-per-run", 0, "Chunk size cap override")
	runCmd.Flags().BoolVar(&runValidate, "validate", false, "Write each output array to <out-dir>/<name>.bin")
	runCmd.Flags().StringVar(&runOutDir, "out-dir", "", "Directory for outputs and demo artifacts")
	runCmd.Flags().StringVar(&runRefDir, "ref-dir", "", "Reference directory to compare outputs against")
	runCmd.Flags().Float64Var(&runAbsTol, "abs-tol", 0, "Absolute tolerance override for --ref-dir")
	runCmd.Flags().Float64Var(&runRelTol, "rel-tol", 0, "Relative tolerance override for --ref-dir")
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var (
		m       *config.Manifest
		compile func(context.Context) error
		err     error
	)
	switch {
	case runDemo:
		m, compile, err = demoManifest()
	case len(args) == 1:
		m, err = config.Load(args[0])
	default:
		return fmt.Errorf("run: need a manifest path or --demo")
	}
	if err != nil {
		return err
	}
	applyOverrides(m)
	if err := m.Validate(); err != nil {
		return err
	}
	order, _ := layout.ParseOrder(m.Kernel.Order)

	log := logger.With(zap.String("kernel", m.Kernel.Name), zap.String("backend", m.Device.Backend))

	dev, err := backend.Open(m.DeviceSelection())
	if err != nil {
		return err
	}
	log.Info("device opened", zap.String("device", dev.Name()), zap.Stringer("kind", dev.Kind()))

	kcfg := m.KernelRuntimeConfig()
	kcfg.Compile = compile

	rt, err := kernel.NewRuntime(dev, m.Spec(), kcfg, log)
	if err != nil {
		dev.Release()
		return err
	}
	defer rt.Finalize()

	start := time.Now()
	if err := rt.Compile(ctx); err != nil {
		return err
	}
	compileTime := time.Since(start)

	start = time.Now()
	inputs, n, err := loadConditions(m, order)
	if err != nil {
		return err
	}
	if err := rt.Resize(ctx, n, m.Device.WorkSize, false); err != nil {
		return err
	}
	run := newRunArrays(m.Spec(), inputs, n)
	setupTime := time.Since(start)

	start = time.Now()
	if err := rt.Invoke(run.host); err != nil {
		return err
	}
	runTime := time.Since(start)

	log.Info("run complete",
		zap.Int("conditions", n),
		zap.Int("max_per_run", rt.MaxPerRun()),
		zap.Duration("compile", compileTime),
		zap.Duration("setup", setupTime),
		zap.Duration("run", runTime))

	// The one stdout artifact; everything else goes to stderr.
	fmt.Printf("%.6f,%.6f,%.6f\n", compileTime.Seconds(), setupTime.Seconds(), runTime.Seconds())

	if m.Run.Validate || m.Run.RefDir != "" {
		return checkOutputs(log, m, run)
	}
	return nil
}

// demoManifest assembles the bundled h2o2 run: host doubles by default,
// any other backend gets the f32 shader written into out-dir first.
func demoManifest() (*config.Manifest, func(context.Context) error, error) {
	backendName := runBackend
	if backendName == "" {
		backendName = "host"
	}
	order := layout.RowMajor
	if runOrderFlag != "" {
		var err error
		if order, err = layout.ParseOrder(runOrderFlag); err != nil {
			return nil, nil, err
		}
	}
	if backendName == "host" {
		return h2o2.Manifest(backendName, "", order), nil, nil
	}

	dir := runOutDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	m := h2o2.Manifest(backendName, filepath.Join(dir, "h2o2.wgsl"), order)
	return m, h2o2.Compiler(m.Kernel.Binary, order, m.Kernel.LocalSize), nil
}

func applyOverrides(m *config.Manifest) {
	if runBackend != "" {
		m.Device.Backend = runBackend
	}
	if runConds > 0 {
		m.Run.Conditions = runConds
	}
	if runMaxPerRun > 0 {
		m.Run.MaxPerRun = runMaxPerRun
	}
	if runValidate {
		m.Run.Validate = true
	}
	if runOutDir != "" {
		m.Run.OutDir = runOutDir
	}
	if runRefDir != "" {
		m.Run.RefDir = runRefDir
	}
	if runAbsTol > 0 {
		m.Run.AbsTol = runAbsTol
	}
	if runRelTol > 0 {
		m.Run.RelTol = runRelTol
	}
}

// loadConditions produces the input arrays and the resolved condition
// count: sampled for the demo, read from the manifest's data file
// otherwise.
func loadConditions(m *config.Manifest, order layout.Order) ([][]float64, int, error) {
	n := m.Run.Conditions
	if runDemo {
		if n == 0 {
			n = demoConditions
		}
		phi, param := h2o2.SampleConditions(n, order, runSeed)
		return [][]float64{phi, param}, n, nil
	}

	if m.Run.Data == "" {
		return nil, 0, fmt.Errorf("run: manifest names no data file and no condition count")
	}
	fields := make([]conditions.Field, 0, len(m.Fields()))
	for _, a := range m.Fields() {
		fields = append(fields, conditions.Field{Name: a.Name, PerCond: a.PerCond})
	}
	var err error
	if n == 0 {
		if n, err = conditions.Count(m.Run.Data, fields); err != nil {
			return nil, 0, err
		}
	}
	inputs, err := conditions.Read(m.Run.Data, n, order, fields)
	if err != nil {
		return nil, 0, err
	}
	return inputs, n, nil
}

// runArrays owns the host-side images handed to Invoke, one per
// non-scratch array, at the element width the kernel was generated for.
type runArrays struct {
	arrays []kernel.Array
	host   [][]byte
	elem   int
}

func newRunArrays(spec kernel.Spec, inputs [][]float64, n int) *runArrays {
	arrays := spec.HostArrays()
	ra := &runArrays{arrays: arrays, host: make([][]byte, len(arrays)), elem: spec.ElemBytes}
	next := 0
	for i, a := range arrays {
		if a.Kind == kernel.KindIn {
			if ra.elem == 4 {
				ra.host[i] = conditions.Float32Bytes(inputs[next])
			} else {
				ra.host[i] = conditions.Bytes(inputs[next])
			}
			next++
			continue
		}
		ra.host[i] = make([]byte, n*a.PerCond*ra.elem)
	}
	return ra
}

// float64s returns array i widened back to doubles.
func (ra *runArrays) float64s(i int) []float64 {
	if ra.elem == 4 {
		return conditions.Float32Values(ra.host[i])
	}
	return conditions.Floats(ra.host[i])
}

// checkOutputs writes and/or compares every output array, one goroutine
// per array.
func checkOutputs(log *zap.Logger, m *config.Manifest, run *runArrays) error {
	if m.Run.Validate {
		if err := os.MkdirAll(m.Run.OutDir, 0o755); err != nil {
			return err
		}
	}

	var g errgroup.Group
	for i, a := range run.arrays {
		if a.Kind != kernel.KindOut {
			continue
		}
		name := a.Name
		i := i
		g.Go(func() error {
			data := run.float64s(i)
			if m.Run.Validate {
				path := filepath.Join(m.Run.OutDir, name+".bin")
				if err := conditions.WriteArray(path, data); err != nil {
					return err
				}
				log.Info("output written", zap.String("array", name), zap.String("path", path))
			}
			if m.Run.RefDir == "" {
				return nil
			}
			ref, err := conditions.ReadArray(filepath.Join(m.Run.RefDir, name+".bin"))
			if err != nil {
				return fmt.Errorf("reference for %s: %w", name, err)
			}
			res, err := validate.Compare(data, ref, m.Run.AbsTol, m.Run.RelTol)
			if err != nil {
				return fmt.Errorf("compare %s: %w", name, err)
			}
			log.Info("validation", zap.String("array", name), zap.String("result", res.String()))
			if !res.OK() {
				return fmt.Errorf("array %s: %s", name, res)
			}
			return nil
		})
	}
	return g.Wait()
}
