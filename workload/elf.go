package workload

import (
	"debug/elf"
	"fmt"
)

// Binary summarizes the ELF header of a benchmark executable.
type Binary struct {
	Path    string
	Class   elf.Class
	Machine elf.Machine
	Entry   uint64

	// Static is true when the binary has no program interpreter.
	Static bool
}

// Inspect reads the ELF header of the file at path.
func Inspect(path string) (*Binary, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	bin := &Binary{
		Path:    path,
		Class:   f.Class,
		Machine: f.Machine,
		Entry:   f.Entry,
		Static:  true,
	}

	for _, phdr := range f.Progs {
		if phdr.Type == elf.PT_INTERP {
			bin.Static = false
			break
		}
	}

	return bin, nil
}

// CheckX86 returns an error unless path is a 64-bit x86 ELF executable, the
// only kind the x86 CPU models can run.
func CheckX86(path string) error {
	bin, err := Inspect(path)
	if err != nil {
		return err
	}

	if bin.Class != elf.ELFCLASS64 {
		return fmt.Errorf("%s: not a 64-bit ELF file", path)
	}

	if bin.Machine != elf.EM_X86_64 {
		return fmt.Errorf("%s: not an x86-64 ELF file (machine type: %v)", path, bin.Machine)
	}

	return nil
}
