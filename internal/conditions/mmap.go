package conditions

import (
	"fmt"
	"io"
	"os"
)

// mappedFile is a read-only view of a conditions file, memory-mapped when
// the platform allows so multi-gigabyte inputs stay on the page cache,
// with a plain read fallback otherwise.
type mappedFile struct {
	file   *os.File
	data   []byte
	mapped bool
}

func openMapped(path string) (*mappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("conditions: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("conditions: %w", err)
	}
	if st.Size() == 0 {
		f.Close()
		return &mappedFile{}, nil
	}

	if data, mErr := mmapFile(f, st.Size()); mErr == nil {
		return &mappedFile{file: f, data: data, mapped: true}, nil
	}

	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("conditions: %w", err)
	}
	return &mappedFile{data: data}, nil
}

func (m *mappedFile) Bytes() []byte { return m.data }

func (m *mappedFile) Close() error {
	var err error
	if m.mapped && m.data != nil {
		err = munmapFile(m.data)
	}
	m.data = nil
	if m.file != nil {
		if cerr := m.file.Close(); err == nil {
			err = cerr
		}
		m.file = nil
	}
	return err
}
