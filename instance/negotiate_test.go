package instance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/frame/driver"
	"github.com/gogpu/frame/driver/drivertest"
)

func TestNegotiateAddsDebugNames(t *testing.T) {
	loader := drivertest.New().
		WithLayers(LayerKhronosValidation, LayerRenderDocCapture).
		WithExtensions(ExtensionDebugUtils, "VK_KHR_surface")

	param := &CreateParam{Extensions: []string{"VK_KHR_surface"}}
	err := Negotiate(loader, param, DebugConfig{Validation: true, RenderDoc: true, Utils: true})
	require.NoError(t, err)

	assert.Equal(t, []string{LayerKhronosValidation, LayerRenderDocCapture}, param.Layers)
	assert.Equal(t, []string{"VK_KHR_surface", ExtensionDebugUtils}, param.Extensions)
}

func TestNegotiateDuplicatesAreIdempotent(t *testing.T) {
	loader := drivertest.New().
		WithLayers(LayerKhronosValidation).
		WithExtensions(ExtensionDebugUtils)
	debug := DebugConfig{Validation: true, Utils: true}

	once := &CreateParam{}
	require.NoError(t, Negotiate(loader, once, debug))

	twice := &CreateParam{
		Layers:     []string{LayerKhronosValidation},
		Extensions: []string{ExtensionDebugUtils},
	}
	require.NoError(t, Negotiate(loader, twice, debug))
	require.NoError(t, Negotiate(loader, twice, debug))

	assert.Equal(t, once, twice)
}

func TestNegotiateQueriesBothSets(t *testing.T) {
	loader := drivertest.New()
	require.NoError(t, Negotiate(loader, &CreateParam{}, DebugConfig{}))

	calls := loader.Calls()
	assert.Contains(t, calls, "EnumerateLayers")
	assert.Contains(t, calls, "EnumerateExtensions")
	assert.NotContains(t, calls, "CreateConnection")
}

func TestCheckSubset(t *testing.T) {
	tests := []struct {
		name      string
		availL    []string
		availE    []string
		reqL      []string
		reqE      []string
		wantL     []string
		wantE     []string
		wantError bool
	}{
		{name: "empty request"},
		{name: "exact", availL: []string{"A"}, availE: []string{"x"}, reqL: []string{"A"}, reqE: []string{"x"}},
		{name: "strict subset", availL: []string{"A", "B"}, availE: []string{"x", "y"}, reqL: []string{"B"}, reqE: []string{"y"}},
		{name: "missing layer", availE: []string{"x"}, reqL: []string{"A"}, reqE: []string{"x"}, wantL: []string{"A"}, wantError: true},
		{name: "missing extension", availL: []string{"A"}, reqL: []string{"A"}, reqE: []string{"x"}, wantE: []string{"x"}, wantError: true},
		{name: "sets are independent", availL: []string{"x"}, availE: []string{"A"}, reqL: []string{"A"}, reqE: []string{"x"}, wantL: []string{"A"}, wantE: []string{"x"}, wantError: true},
		{name: "case sensitive", availL: []string{"vk_layer_khronos_validation"}, reqL: []string{LayerKhronosValidation}, wantL: []string{LayerKhronosValidation}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := drivertest.New().WithLayers(tt.availL...).WithExtensions(tt.availE...)
			err := Check(loader, &CreateParam{Layers: tt.reqL, Extensions: tt.reqE})
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrUnsupported)
			var ue *UnsupportedError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.wantL, ue.Layers)
			assert.Equal(t, tt.wantE, ue.Extensions)
		})
	}
}

func TestCheckEnumerationFailureMeansNothingAvailable(t *testing.T) {
	loader := drivertest.New().WithLayers(LayerKhronosValidation)
	loader.Faults.Layers = errors.New("loader broken")

	err := Check(loader, &CreateParam{Layers: []string{LayerKhronosValidation}})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCreateParamAdd(t *testing.T) {
	var p CreateParam
	assert.True(t, p.AddLayer("A"))
	assert.False(t, p.AddLayer("A"))
	assert.True(t, p.AddExtension("x"))
	assert.False(t, p.AddExtension("x"))
	assert.True(t, p.AddLayer("B"))
	assert.Equal(t, []string{"A", "B"}, p.Layers)

	c := p.Clone()
	c.Layers[0] = "Z"
	assert.Equal(t, "A", p.Layers[0])
}

// mockLoader lets tests script each call of the two-call protocol.
type mockLoader struct{ mock.Mock }

func (m *mockLoader) Name() string     { return "mock" }
func (m *mockLoader) Bootstrap() error { return m.Called().Error(0) }
func (m *mockLoader) InstanceVersion() (driver.Version, bool) {
	args := m.Called()
	return args.Get(0).(driver.Version), args.Bool(1)
}
func (m *mockLoader) HeaderVersion() uint32 { return uint32(m.Called().Int(0)) } //nolint:gosec // test values

func (m *mockLoader) EnumerateLayers(dst []driver.LayerProperties) (int, error) {
	args := m.Called(dst == nil)
	if dst != nil {
		if fill, ok := args.Get(2).([]driver.LayerProperties); ok {
			copy(dst, fill)
		}
	}
	return args.Int(0), args.Error(1)
}

func (m *mockLoader) EnumerateExtensions(layer string, dst []driver.ExtensionProperties) (int, error) {
	args := m.Called(layer, dst == nil)
	if dst != nil {
		if fill, ok := args.Get(2).([]driver.ExtensionProperties); ok {
			copy(dst, fill)
		}
	}
	return args.Int(0), args.Error(1)
}

func (m *mockLoader) CreateConnection(desc *driver.ConnectionDescriptor) (driver.Connection, error) {
	args := m.Called(desc)
	conn, _ := args.Get(0).(driver.Connection)
	return conn, args.Error(1)
}

func TestEnumerateTwoCallProtocol(t *testing.T) {
	m := &mockLoader{}
	m.On("EnumerateLayers", true).Return(2, nil, nil).Once()
	m.On("EnumerateLayers", false).Return(2, nil, []driver.LayerProperties{{Name: "A"}, {Name: "B"}}).Once()
	m.On("EnumerateExtensions", "", true).Return(1, nil, nil).Once()
	m.On("EnumerateExtensions", "", false).Return(0, errors.New("fill failed"), nil).Once()

	layers := EnumerateLayers(m)
	require.Len(t, layers, 2)
	assert.Equal(t, "B", layers[1].Name)

	assert.Empty(t, EnumerateExtensions(m, ""))
	m.AssertExpectations(t)
}

func TestVersion(t *testing.T) {
	m := &mockLoader{}
	m.On("InstanceVersion").Return(driver.Version12, true).Once()
	m.On("HeaderVersion").Return(250)
	assert.Equal(t, "1.2.250", Version(m).String())

	m.On("InstanceVersion").Return(driver.Version(0), false).Once()
	assert.Equal(t, "1.0.250", Version(m).String())
}
