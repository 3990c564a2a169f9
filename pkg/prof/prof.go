package prof

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/ardnew/usbctrl/pkg"
)

// Profiling errors.
var (
	// ErrCPUProfileActive indicates CPU profiling is already active.
	ErrCPUProfileActive = errors.New("cpu profile already active")

	// ErrInvalidProfile indicates an invalid or unsupported profile type.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Profile is a pprof profile name.
type Profile string

// Profile names.
const (
	ProfileCPU       Profile = "cpu"
	ProfileHeap      Profile = "heap"
	ProfileAllocs    Profile = "allocs"
	ProfileGoroutine Profile = "goroutine"
	ProfileBlock     Profile = "block"
	ProfileMutex     Profile = "mutex"
)

// Session is an active profiling run started by Start.
type Session struct {
	cpuFile  *os.File
	heapPath string
	stopped  bool
	mu       sync.Mutex
}

// active guards the process-wide CPU profiler.
var (
	activeMu sync.Mutex
	active   *Session
)

// Start begins CPU profiling into cpuPath and arranges for a heap profile to
// be written to heapPath by Stop. Either path may be empty.
func Start(cpuPath, heapPath string) (*Session, error) {
	s := &Session{heapPath: heapPath}
	if cpuPath == "" {
		return s, nil
	}

	activeMu.Lock()
	defer activeMu.Unlock()
	if active != nil {
		return nil, ErrCPUProfileActive
	}

	f, err := os.Create(cpuPath)
	if err != nil {
		return nil, fmt.Errorf("cpu profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("cpu profile: %w", err)
	}
	s.cpuFile = f
	active = s

	pkg.LogDebug(pkg.ComponentProfile, "cpu profiling started",
		"path", cpuPath)

	return s, nil
}

// Stop ends CPU profiling and writes the heap profile. It is safe to call
// Stop more than once.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	var errs []error
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		errs = append(errs, s.cpuFile.Close())

		activeMu.Lock()
		active = nil
		activeMu.Unlock()
	}

	if s.heapPath != "" {
		runtime.GC()
		errs = append(errs, writeFile(ProfileHeap, s.heapPath))
	}

	return errors.Join(errs...)
}

func writeFile(profile Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s profile: %w", profile, err)
	}
	defer f.Close()
	return WriteTo(profile, f)
}

// WriteTo writes the named profile to w in the binary format read by
// go tool pprof. CPU profiles are only available through Start.
func WriteTo(profile Profile, w io.Writer) error {
	if profile == ProfileCPU {
		return fmt.Errorf("%s: %w", profile, ErrInvalidProfile)
	}
	p := pprof.Lookup(string(profile))
	if p == nil {
		return fmt.Errorf("%s: %w", profile, ErrInvalidProfile)
	}
	return p.WriteTo(w, 0)
}
