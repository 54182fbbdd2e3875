package testcase

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/corey/weft/internal/ports"
)

// FileState is the lifecycle of a file-backed testcase. The variants are
// Stored, Loaded and Dirty; transitions are pure functions that take the old
// variant and return the next one.
//
//	Stored --Load--> Loaded --Modify--> Dirty --Save--> Loaded
//	Loaded --Unload--> Stored           Dirty --Unload--> (Save) --> Stored
//
// On error every transition returns the state it was given, unchanged.
type FileState interface {
	// Path is the backing file, known in every state.
	Path() string
	fileState()
}

// Stored: path known, nothing in memory.
type Stored struct {
	Filename string
}

// Loaded: input in memory, byte-identical to the file's last-written content.
type Loaded struct {
	Filename string
	Input    ports.Input
}

// Dirty: input in memory, diverged from disk.
type Dirty struct {
	Filename string
	Input    ports.Input
}

func (s Stored) Path() string { return s.Filename }
func (s Loaded) Path() string { return s.Filename }
func (s Dirty) Path() string  { return s.Filename }

func (Stored) fileState() {}
func (Loaded) fileState() {}
func (Dirty) fileState()  {}

// Load reads the backing file. Loading a Dirty testcase is illegal: it would
// silently discard unsaved mutations.
func Load(s FileState, loader ports.InputLoader) (FileState, error) {
	switch st := s.(type) {
	case Stored:
		in, err := loader.FromFile(st.Filename)
		if err != nil {
			return s, fmt.Errorf("load %s: %w", st.Filename, err)
		}
		return Loaded{Filename: st.Filename, Input: in}, nil
	case Loaded:
		return s, nil
	case Dirty:
		return s, fmt.Errorf("%w: load on dirty testcase %s", ports.ErrIllegalState, st.Filename)
	default:
		return s, fmt.Errorf("%w: unknown file state %T", ports.ErrIllegalState, s)
	}
}

// Save writes a Dirty input to disk. Saving a Stored testcase is illegal:
// there is nothing in memory to write.
func Save(s FileState) (FileState, error) {
	switch st := s.(type) {
	case Loaded:
		return s, nil
	case Dirty:
		if err := writeInput(st.Filename, st.Input); err != nil {
			return s, err
		}
		return Loaded{Filename: st.Filename, Input: st.Input}, nil
	case Stored:
		return s, fmt.Errorf("%w: save of %s without input in memory", ports.ErrIllegalState, st.Filename)
	default:
		return s, fmt.Errorf("%w: unknown file state %T", ports.ErrIllegalState, s)
	}
}

// Refresh makes memory and disk agree: Dirty saves, anything else loads.
func Refresh(s FileState, loader ports.InputLoader) (FileState, error) {
	if _, ok := s.(Dirty); ok {
		return Save(s)
	}
	return Load(s, loader)
}

// Unload drops the in-memory input. A Dirty input is saved first; if that
// save fails the testcase stays Dirty.
func Unload(s FileState) (FileState, error) {
	switch st := s.(type) {
	case Stored:
		return s, nil
	case Loaded:
		return Stored{Filename: st.Filename}, nil
	case Dirty:
		saved, err := Save(s)
		if err != nil {
			return s, err
		}
		return Stored{Filename: saved.Path()}, nil
	default:
		return s, fmt.Errorf("%w: unknown file state %T", ports.ErrIllegalState, s)
	}
}

// Modify replaces the in-memory input, marking it Dirty. A Stored testcase
// must be loaded first.
func Modify(s FileState, in ports.Input) (FileState, error) {
	if in == nil {
		return s, fmt.Errorf("%w: nil input", ports.ErrEmptyReference)
	}
	switch st := s.(type) {
	case Loaded:
		return Dirty{Filename: st.Filename, Input: in}, nil
	case Dirty:
		return Dirty{Filename: st.Filename, Input: in}, nil
	case Stored:
		return s, fmt.Errorf("%w: modify of unloaded testcase %s", ports.ErrIllegalState, st.Filename)
	default:
		return s, fmt.Errorf("%w: unknown file state %T", ports.ErrIllegalState, s)
	}
}

// writeInput serializes in and replaces filename atomically: the data goes to
// a temp file in the same directory which is then renamed over the target.
// One file open; readers never observe a partial write.
func writeInput(filename string, in ports.Input) error {
	data, err := in.Serialize()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", filename, err)
	}

	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filename, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filename, err)
	}
	return nil
}

// FileBacked holds a FileState and applies transitions in place.
type FileBacked struct {
	state  FileState
	loader ports.InputLoader
}

// NewFileBacked wraps an initial state. loader is used by Load and Refresh.
func NewFileBacked(initial FileState, loader ports.InputLoader) *FileBacked {
	return &FileBacked{state: initial, loader: loader}
}

// State returns the current variant.
func (f *FileBacked) State() FileState {
	return f.state
}

// Input returns the in-memory input in Loaded or Dirty states.
func (f *FileBacked) Input() (ports.Input, bool) {
	switch st := f.state.(type) {
	case Loaded:
		return st.Input, true
	case Dirty:
		return st.Input, true
	}
	return nil, false
}

func (f *FileBacked) Load() error    { return f.apply(Load(f.state, f.loader)) }
func (f *FileBacked) Save() error    { return f.apply(Save(f.state)) }
func (f *FileBacked) Refresh() error { return f.apply(Refresh(f.state, f.loader)) }
func (f *FileBacked) Unload() error  { return f.apply(Unload(f.state)) }

// Modify marks the testcase Dirty with a new input.
func (f *FileBacked) Modify(in ports.Input) error {
	return f.apply(Modify(f.state, in))
}

func (f *FileBacked) apply(next FileState, err error) error {
	if err != nil {
		return err
	}
	f.state = next
	return nil
}
