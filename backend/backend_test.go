package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/csg/backend/software"
	"github.com/gogpu/csg/gpucore"
)

func TestSoftwareBackendName(t *testing.T) {
	b := NewSoftwareBackend()
	if b.Name() != "software" {
		t.Errorf("Name() = %q, want %q", b.Name(), "software")
	}
}

func TestSoftwareBackendInit(t *testing.T) {
	b := NewSoftwareBackend()
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	b.Close()
}

func TestSoftwareBackendNewDevice(t *testing.T) {
	b := NewSoftwareBackend(software.WithCapabilities(gpucore.Capabilities{StencilBits: 8}))
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer b.Close()

	dev, err := b.NewDevice(100, 50)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	if got := dev.Viewport(); got.Width != 100 || got.Height != 50 {
		t.Errorf("Viewport() = %+v, want 100x50", got)
	}
	if dev.Capabilities().Occlusion != gpucore.OcclusionNone {
		t.Error("device options should be applied")
	}
}

func TestSoftwareBackendNotInitialized(t *testing.T) {
	b := NewSoftwareBackend()
	if _, err := b.NewDevice(10, 10); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("NewDevice() before Init error = %v, want ErrNotInitialized", err)
	}
}

func TestWGPUBackendNotInitialized(t *testing.T) {
	b := NewWGPUBackend()
	if b.Name() != "wgpu" {
		t.Errorf("Name() = %q, want %q", b.Name(), "wgpu")
	}
	if _, err := b.NewDevice(10, 10); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("NewDevice() before Init error = %v, want ErrNotInitialized", err)
	}
	b.Close()
}

func TestRegistryRegisterAndGet(t *testing.T) {
	// Both backends are auto-registered via init()
	for _, name := range []string{BackendSoftware, BackendWGPU} {
		if !IsRegistered(name) {
			t.Errorf("%s backend should be auto-registered", name)
		}
		b := Get(name)
		if b == nil {
			t.Fatalf("Get(%s) returned nil", name)
		}
		if b.Name() != name {
			t.Errorf("Get(%s).Name() = %q", name, b.Name())
		}
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	b := Get("nonexistent")
	if b != nil {
		t.Error("Get(nonexistent) should return nil")
	}
}

func TestRegistryAvailable(t *testing.T) {
	available := Available()
	if !slices.Contains(available, "software") || !slices.Contains(available, "wgpu") {
		t.Errorf("Available() = %v, want software and wgpu", available)
	}
	if !slices.IsSorted(available) {
		t.Errorf("Available() = %v is not sorted", available)
	}
}

func TestRegistryDefault(t *testing.T) {
	b := Default()
	if b == nil {
		t.Fatal("Default() returned nil")
	}
	if b.Name() != BackendWGPU {
		t.Errorf("Default() = %q, want the wgpu backend first", b.Name())
	}
}

func TestRegistryMustDefault(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustDefault() panicked: %v", r)
		}
	}()
	b := MustDefault()
	if b == nil {
		t.Error("MustDefault() returned nil")
	}
}

func TestRegistryInitDefault(t *testing.T) {
	b, err := InitDefault()
	if err != nil {
		t.Fatalf("InitDefault() error = %v", err)
	}
	if b == nil {
		t.Fatal("InitDefault() returned nil backend")
	}
	defer b.Close()
	t.Logf("InitDefault() selected %q", b.Name())

	dev, err := b.NewDevice(16, 16)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	if err := dev.Flush(); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
}

type failingBackend struct{ SoftwareBackend }

func (failingBackend) Name() string { return "failing" }
func (failingBackend) Init() error  { return errors.New("no device") }

func TestRegistryInitDefaultAllFail(t *testing.T) {
	saved := backendPriority
	backendPriority = []string{"failing"}
	Register("failing", func() Backend { return &failingBackend{} })
	defer func() {
		Unregister("failing")
		backendPriority = saved
	}()

	if _, err := InitDefault(); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("InitDefault() error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistryUnregister(t *testing.T) {
	testFactory := func() Backend {
		return &SoftwareBackend{}
	}
	Register("test-backend", testFactory)

	if !IsRegistered("test-backend") {
		t.Error("test-backend should be registered")
	}

	Unregister("test-backend")

	if IsRegistered("test-backend") {
		t.Error("test-backend should be unregistered")
	}
}

func TestRegistryIsRegistered(t *testing.T) {
	if !IsRegistered("software") {
		t.Error("software should be registered")
	}
	if IsRegistered("nonexistent") {
		t.Error("nonexistent should not be registered")
	}
}

func BenchmarkSoftwareBackendNewDevice(b *testing.B) {
	backend := NewSoftwareBackend()
	_ = backend.Init()
	defer backend.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = backend.NewDevice(800, 600)
	}
}
