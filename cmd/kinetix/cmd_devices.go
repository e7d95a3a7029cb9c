package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kinetix-hpc/kinetix/internal/backend"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List registered backends and the devices they can open",
	Long: `Probes every registered backend and prints the device it would
serve: the host descriptor with its worker count, and the WebGPU adapter
when a native implementation is present.`,
	RunE: devicesExec,
}

func devicesExec(cmd *cobra.Command, args []string) error {
	for _, name := range backend.Backends() {
		dev, err := probeBackend(name)
		if err != nil {
			fmt.Printf("%-8s unavailable: %v\n", name, err)
			continue
		}
		line := fmt.Sprintf("%-8s %s (%s", name, dev.Name(), dev.Kind())
		if u := dev.Units(); u > 0 {
			line += fmt.Sprintf(", %d units", u)
		}
		fmt.Println(line + ")")
		dev.Release()
	}
	return nil
}

// probeBackend opens whichever device class the backend serves.
func probeBackend(name string) (backend.Device, error) {
	dev, err := backend.Open(backend.Config{Backend: name, Kind: backend.KindCPU})
	if err == nil || !backend.IsCode(err, backend.NoDevicesOfKind) {
		return dev, err
	}
	return backend.Open(backend.Config{Backend: name, Kind: backend.KindGPU})
}
