package instance

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/frame/driver"
	"github.com/gogpu/frame/driver/drivertest"
	"github.com/gogpu/frame/internal/logging"
)

func fullLoader() *drivertest.Loader {
	return drivertest.New().
		WithLayers(LayerKhronosValidation, LayerRenderDocCapture).
		WithExtensions(ExtensionDebugUtils, "VK_KHR_surface").
		WithDevices("gpu0", "gpu1", "gpu2")
}

func captureLog(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	orig := logging.Logger()
	t.Cleanup(func() { logging.Set(orig) })
	var buf bytes.Buffer
	logging.Set(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	return &buf
}

func TestCreateSuccess(t *testing.T) {
	loader := fullLoader()
	inst := New(loader, WithValidationPolicy(LogPolicy))

	param := &CreateParam{Extensions: []string{"VK_KHR_surface"}}
	info := AppInfo{AppName: "demo", AppVersion: AppVersion{1, 2, 3}, ReqAPIVersion: APIVersion11}
	require.NoError(t, inst.Create(context.Background(), param, DebugConfig{Validation: true, Utils: true}, info))

	assert.Equal(t, StateReady, inst.State())
	assert.True(t, inst.Ready())
	assert.True(t, inst.HasDiagnosticBridge())
	assert.Equal(t, 3, inst.PhysicalDevices().Len())
	assert.NotNil(t, inst.Connection())
	assert.Equal(t, info, inst.Info())

	conn := loader.LastConnection()
	require.NotNil(t, conn)
	assert.Equal(t, []string{LayerKhronosValidation}, conn.Desc.Layers)
	assert.Equal(t, []string{"VK_KHR_surface", ExtensionDebugUtils}, conn.Desc.Extensions)
	assert.Equal(t, "demo", conn.Desc.Application.ApplicationName)
	assert.Equal(t, driver.MakeVersion(1, 2, 3), conn.Desc.Application.ApplicationVersion)
	assert.Equal(t, driver.Version11, conn.Desc.Application.APIVersion)
	assert.Equal(t, EngineName, conn.Desc.Application.EngineName)

	assert.Equal(t, []string{
		"EnumerateLayers", "EnumerateLayers",
		"EnumerateExtensions", "EnumerateExtensions",
		"CreateConnection",
		"LoadEntryPoints",
		"EnumeratePhysicalDevices(count)", "EnumeratePhysicalDevices(fill)",
		"CreateMessenger",
	}, loader.Calls())
}

func TestCreateDefaults(t *testing.T) {
	loader := fullLoader()
	inst := New(loader)
	require.NoError(t, inst.Create(context.Background(), &CreateParam{}, DebugConfig{}, AppInfo{}))

	desc := loader.LastConnection().Desc
	assert.Equal(t, DefaultAppName, desc.Application.ApplicationName)
	assert.Equal(t, driver.Version10, desc.Application.APIVersion)
	assert.False(t, inst.HasDiagnosticBridge())
	assert.Equal(t, 0, loader.LastConnection().Messengers())
}

func TestCreateAPIVersionMapping(t *testing.T) {
	for v, want := range map[APIVersion]driver.Version{
		APIVersion10:   driver.Version10,
		APIVersion11:   driver.Version11,
		APIVersion12:   driver.Version12,
		APIVersion(42): driver.Version10,
	} {
		assert.Equal(t, want, applicationInfo(AppInfo{ReqAPIVersion: v}).APIVersion, "api version %d", v)
	}
}

func TestCreateNegotiationFailure(t *testing.T) {
	buf := captureLog(t, slog.LevelDebug)
	loader := drivertest.New().WithDevices("gpu0")
	inst := New(loader)

	param := &CreateParam{Extensions: []string{"VK_KHR_surface"}}
	err := inst.Create(context.Background(), param, DebugConfig{Validation: true, Utils: true}, AppInfo{})
	require.ErrorIs(t, err, ErrUnsupported)

	assert.Equal(t, StateUninitialized, inst.State())
	assert.NotContains(t, loader.Calls(), "CreateConnection")
	assert.Nil(t, inst.Connection())

	out := buf.String()
	assert.Contains(t, out, "create instance param")
	assert.Contains(t, out, "extension: VK_KHR_surface")
	assert.Contains(t, out, "extension: "+ExtensionDebugUtils)
	assert.Contains(t, out, "layer: "+LayerKhronosValidation)
}

func TestCreateFailuresRollBack(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		fault     func(*drivertest.Faults)
		want      error
		connMade  bool
		debugUtil bool
	}{
		{"connection", func(f *drivertest.Faults) { f.CreateConn = boom }, ErrConnection, false, false},
		{"entry points", func(f *drivertest.Faults) { f.LoadEntryPoints = boom }, ErrConnection, true, false},
		{"device count", func(f *drivertest.Faults) { f.DeviceCount = boom }, ErrEnumeration, true, false},
		{"device fill", func(f *drivertest.Faults) { f.DeviceFill = boom }, ErrEnumeration, true, false},
		{"device drift", func(f *drivertest.Faults) { f.DeviceDrift = 1 }, ErrEnumeration, true, false},
		{"messenger", func(f *drivertest.Faults) { f.Messenger = boom }, ErrDiagnostic, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := fullLoader()
			tt.fault(&loader.Faults)
			inst := New(loader)

			err := inst.Create(context.Background(), &CreateParam{}, DebugConfig{Utils: tt.debugUtil}, AppInfo{})
			require.ErrorIs(t, err, tt.want)

			assert.Equal(t, StateUninitialized, inst.State())
			assert.Nil(t, inst.Connection())
			assert.False(t, inst.HasDiagnosticBridge())
			assert.Equal(t, 0, inst.PhysicalDevices().Len())

			conn := loader.LastConnection()
			if !tt.connMade {
				assert.Nil(t, conn)
				return
			}
			require.NotNil(t, conn)
			assert.True(t, conn.Destroyed(), "partial connection must be released")

			inst.Destroy()
			assert.Equal(t, StateUninitialized, inst.State())
		})
	}
}

func TestCreateTwiceAndAfterDestroy(t *testing.T) {
	inst := New(fullLoader())
	ctx := context.Background()

	require.NoError(t, inst.Create(ctx, &CreateParam{}, DebugConfig{}, AppInfo{}))
	assert.ErrorIs(t, inst.Create(ctx, &CreateParam{}, DebugConfig{}, AppInfo{}), ErrAlreadyCreated)

	inst.Destroy()
	assert.ErrorIs(t, inst.Create(ctx, &CreateParam{}, DebugConfig{}, AppInfo{}), ErrDestroyed)
}

func TestDestroyNeverCreatedIsNoop(t *testing.T) {
	loader := fullLoader()
	inst := New(loader)
	inst.Destroy()
	inst.Destroy()

	assert.Equal(t, StateUninitialized, inst.State())
	assert.Empty(t, loader.Calls())
}

// Destroy only runs cleanup when there is a live connection.
func TestDestroyGuardedEarlyReturn(t *testing.T) {
	loader := fullLoader()
	loader.Faults.CreateConn = errors.New("no driver")
	inst := New(loader)

	require.Error(t, inst.Create(context.Background(), &CreateParam{}, DebugConfig{Utils: true}, AppInfo{}))
	before := len(loader.Calls())
	inst.Destroy()

	assert.Len(t, loader.Calls(), before, "Destroy must not touch the backend without a connection")
	assert.Equal(t, StateUninitialized, inst.State())
}

func TestDestroyOrderAndIdempotence(t *testing.T) {
	loader := fullLoader()
	inst := New(loader)
	require.NoError(t, inst.Create(context.Background(), &CreateParam{}, DebugConfig{Utils: true}, AppInfo{}))
	conn := loader.LastConnection()

	inst.Destroy()
	afterFirst := loader.Calls()
	inst.Destroy()

	assert.Equal(t, afterFirst, loader.Calls(), "second Destroy must have no effect")
	assert.Equal(t, StateDestroyed, inst.State())
	assert.Equal(t, 0, inst.PhysicalDevices().Len())
	assert.True(t, conn.Destroyed())
	assert.Equal(t, 0, conn.Messengers())

	tail := afterFirst[len(afterFirst)-2:]
	assert.Equal(t, []string{"DestroyMessenger", "DestroyConnection"}, tail)
}

func TestCatalogMatchesDeviceCount(t *testing.T) {
	loader := drivertest.New().WithDevices("a", "b")
	inst := New(loader)
	require.NoError(t, inst.Create(context.Background(), &CreateParam{}, DebugConfig{}, AppInfo{}))

	cat := inst.PhysicalDevices()
	require.Equal(t, 2, cat.Len())
	var names []string
	for _, pd := range cat.All() {
		names = append(names, pd.Name())
	}
	assert.Equal(t, []string{"a", "b"}, names)

	inst.Destroy()
	assert.Equal(t, 0, cat.Len())
}

func TestCreateWithNoDevices(t *testing.T) {
	inst := New(drivertest.New())
	require.NoError(t, inst.Create(context.Background(), &CreateParam{}, DebugConfig{}, AppInfo{}))
	assert.Equal(t, 0, inst.PhysicalDevices().Len())
	_, ok := inst.PhysicalDevices().Preferred()
	assert.False(t, ok)
}
