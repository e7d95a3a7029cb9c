// Package conditions reads and writes the flat binary format that carries
// thermochemical state between tools: float64 little-endian values, one
// record per condition holding the fields of every input array in manifest
// order. Files are always record-major; the data order requested by the
// caller shapes the returned host arrays only.
package conditions

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/kinetix-hpc/kinetix/internal/layout"
)

// Field names one input array and its element count per condition.
type Field struct {
	Name    string
	PerCond int
}

func recordSize(fields []Field) int {
	total := 0
	for _, f := range fields {
		total += f.PerCond
	}
	return total
}

// Count reports how many whole conditions the file holds.
func Count(path string, fields []Field) (int, error) {
	total := recordSize(fields)
	if total <= 0 {
		return 0, fmt.Errorf("conditions: empty field list")
	}
	st, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("conditions: %w", err)
	}
	return int(st.Size() / int64(total*8)), nil
}

// Read loads the first n conditions and splits them into one host slice
// per field, each laid out in the requested order (row-major keeps a
// condition's values adjacent, column-major keeps a field's values
// adjacent). Fails if the file holds fewer than n conditions.
func Read(path string, n int, order layout.Order, fields []Field) ([][]float64, error) {
	if n < 0 {
		return nil, fmt.Errorf("conditions: negative count %d", n)
	}
	total := recordSize(fields)
	if total <= 0 {
		return nil, fmt.Errorf("conditions: empty field list")
	}

	m, err := openMapped(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	data := m.Bytes()
	if need := int64(n) * int64(total) * 8; int64(len(data)) < need {
		return nil, fmt.Errorf("conditions: %s holds %d conditions, need %d",
			path, int64(len(data))/int64(total*8), n)
	}

	out := make([][]float64, len(fields))
	for i, f := range fields {
		out[i] = make([]float64, n*f.PerCond)
	}
	for cond := 0; cond < n; cond++ {
		rec := data[cond*total*8:]
		base := 0
		for i, f := range fields {
			for k := 0; k < f.PerCond; k++ {
				v := math.Float64frombits(binary.LittleEndian.Uint64(rec[(base+k)*8:]))
				if order == layout.RowMajor {
					out[i][cond*f.PerCond+k] = v
				} else {
					out[i][k*n+cond] = v
				}
			}
			base += f.PerCond
		}
	}
	return out, nil
}

// Write stores conditions given one host slice per field, the inverse of
// Read for the same order.
func Write(path string, n int, order layout.Order, fields []Field, arrays [][]float64) error {
	total := recordSize(fields)
	if len(arrays) != len(fields) {
		return fmt.Errorf("conditions: %d arrays for %d fields", len(arrays), len(fields))
	}
	for i, f := range fields {
		if len(arrays[i]) != n*f.PerCond {
			return fmt.Errorf("conditions: field %s holds %d values, want %d", f.Name, len(arrays[i]), n*f.PerCond)
		}
	}

	buf := make([]byte, n*total*8)
	for cond := 0; cond < n; cond++ {
		rec := buf[cond*total*8:]
		base := 0
		for i, f := range fields {
			for k := 0; k < f.PerCond; k++ {
				var v float64
				if order == layout.RowMajor {
					v = arrays[i][cond*f.PerCond+k]
				} else {
					v = arrays[i][k*n+cond]
				}
				binary.LittleEndian.PutUint64(rec[(base+k)*8:], math.Float64bits(v))
			}
			base += f.PerCond
		}
	}
	return writeFileErr(path, buf)
}

// WriteArray dumps one host array as raw float64 little-endian values,
// the shape validation tooling expects for a "<name>.bin" file.
func WriteArray(path string, data []float64) error {
	buf := make([]byte, len(data)*8)
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return writeFileErr(path, buf)
}

// ReadArray loads a file written by WriteArray.
func ReadArray(path string) ([]float64, error) {
	m, err := openMapped(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	data := m.Bytes()
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("conditions: %s is %d bytes, not a float64 array", path, len(data))
	}
	out := make([]float64, len(data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out, nil
}

// Generate produces deterministic synthetic conditions, uniform in [0, 1),
// one host slice per field in the requested order. The same seed always
// yields the same values in the same positions regardless of order.
func Generate(n int, order layout.Order, fields []Field, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float64, len(fields))
	for i, f := range fields {
		out[i] = make([]float64, n*f.PerCond)
	}
	for cond := 0; cond < n; cond++ {
		for i, f := range fields {
			for k := 0; k < f.PerCond; k++ {
				v := rng.Float64()
				if order == layout.RowMajor {
					out[i][cond*f.PerCond+k] = v
				} else {
					out[i][k*n+cond] = v
				}
			}
		}
	}
	return out
}

func writeFileErr(path string, buf []byte) error {
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("conditions: %w", err)
	}
	return nil
}
