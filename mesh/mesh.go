package mesh

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/frame/driver"
)

// Errors returned by Mesh.
var (
	ErrEmpty      = errors.New("mesh: no vertices")
	ErrNotCreated = errors.New("mesh: not created")
)

// Device is the part of a logical device a mesh uploads through.
type Device interface {
	CreateBuffer(label string, size uint64, usage driver.BufferUsage) (driver.Buffer, error)
	WriteBuffer(buf driver.Buffer, offset uint64, data []byte) error
	DestroyBuffer(buf driver.Buffer)
}

// Mesh is Data uploaded into a vertex buffer and, when it has indices, an
// index buffer.
type Mesh struct {
	mu sync.Mutex

	data   Data
	dev    Device
	vertex driver.Buffer
	index  driver.Buffer
}

// New returns a mesh holding data.
func New(data Data) *Mesh {
	return &Mesh{data: data}
}

// Generated creates a mesh of shape t on dev.
func Generated(dev Device, t Type) (*Mesh, error) {
	m := New(Generate(t))
	if err := m.Create(dev); err != nil {
		return nil, fmt.Errorf("mesh: generate %s: %w", t, err)
	}
	return m, nil
}

// Create uploads the data to dev. A mesh already created is destroyed
// first.
func (m *Mesh) Create(dev Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyLocked()
	return m.createLocked(dev)
}

func (m *Mesh) createLocked(dev Device) error {
	if len(m.data.Vertices) == 0 {
		return ErrEmpty
	}

	vb, err := upload(dev, "mesh vertices", m.data.VertexBytes(), driver.BufferUsageVertex|driver.BufferUsageCopyDst)
	if err != nil {
		return err
	}

	var ib driver.Buffer
	if len(m.data.Indices) > 0 {
		ib, err = upload(dev, "mesh indices", m.data.IndexBytes(), driver.BufferUsageIndex|driver.BufferUsageCopyDst)
		if err != nil {
			dev.DestroyBuffer(vb)
			return err
		}
	}

	m.dev, m.vertex, m.index = dev, vb, ib
	return nil
}

func upload(dev Device, label string, data []byte, usage driver.BufferUsage) (driver.Buffer, error) {
	buf, err := dev.CreateBuffer(label, uint64(len(data)), usage)
	if err != nil {
		return nil, fmt.Errorf("mesh: create %s: %w", label, err)
	}
	if err := dev.WriteBuffer(buf, 0, data); err != nil {
		dev.DestroyBuffer(buf)
		return nil, fmt.Errorf("mesh: write %s: %w", label, err)
	}
	return buf, nil
}

// Destroy releases the buffers. The data is kept.
func (m *Mesh) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyLocked()
}

func (m *Mesh) destroyLocked() {
	if m.dev == nil {
		return
	}
	if m.index != nil {
		m.dev.DestroyBuffer(m.index)
	}
	if m.vertex != nil {
		m.dev.DestroyBuffer(m.vertex)
	}
	m.dev, m.vertex, m.index = nil, nil, nil
}

// Reload re-uploads the current data to the device the mesh was created on.
func (m *Mesh) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dev := m.dev
	if dev == nil {
		return ErrNotCreated
	}
	m.destroyLocked()
	return m.createLocked(dev)
}

// SetData replaces the data. Call Reload to upload it.
func (m *Mesh) SetData(d Data) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = d
}

// AddData appends d with its indices offset past the existing vertices.
// Call Reload to upload it.
func (m *Mesh) AddData(d Data) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Append(d)
}

// Data returns a copy of the data.
func (m *Mesh) Data() Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Clone()
}

// Empty reports whether the mesh has no vertices.
func (m *Mesh) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data.Vertices) == 0
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data.Vertices)
}

// IndexCount returns the number of indices.
func (m *Mesh) IndexCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data.Indices)
}

// Created reports whether the mesh holds device buffers.
func (m *Mesh) Created() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dev != nil
}

// VertexBuffer returns the vertex buffer, nil unless created.
func (m *Mesh) VertexBuffer() driver.Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vertex
}

// IndexBuffer returns the index buffer, nil unless created with indices.
func (m *Mesh) IndexBuffer() driver.Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}
