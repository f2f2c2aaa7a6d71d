package render

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/tilemesh/internal/batch"
	"github.com/Faultbox/tilemesh/pkg/math"
)

// Vertex attribute locations used by uploaded meshes. UV channel c is bound
// at AttribUV0+c.
const (
	AttribPosition = 0
	AttribNormal   = 1
	AttribUV0      = 2
)

// MaxUVChannels is how many uv channels fit in the 16 vertex attributes every
// GL 4.1 implementation provides.
const MaxUVChannels = 16 - AttribUV0

// uvLocations returns the attribute location of each uv channel.
func uvLocations(channels int) ([]uint32, error) {
	if channels > MaxUVChannels {
		return nil, fmt.Errorf("%d uv channels exceed the %d attribute slots", channels, MaxUVChannels)
	}
	locs := make([]uint32, channels)
	for c := range locs {
		locs[c] = uint32(AttribUV0 + c)
	}
	return locs, nil
}

// Mesh is one batch resident on the GPU.
type Mesh struct {
	Name      string
	Tile      string
	Transform math.Mat4
	Vertices  int

	vao     uint32
	buffers []uint32
	submesh []submesh
	size    int64
}

type submesh struct {
	ebo   uint32
	count int32
}

// Registry uploads sealed batches into vertex arrays. Every method must be
// called on the thread that owns the GL context; feed it through a Queue.
type Registry struct {
	log    *zap.Logger
	meshes []*Mesh
	bytes  int64
}

// NewRegistry returns an empty registry.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log}
}

// Materialize uploads s and releases its buffer; the GPU keeps the copy.
func (r *Registry) Materialize(s *batch.Sealed) error {
	m, err := upload(s)
	if err != nil {
		return err
	}
	s.Buffer.Release()
	r.meshes = append(r.meshes, m)
	r.bytes += m.size
	r.log.Debug("uploaded batch",
		zap.String("name", m.Name),
		zap.Int("vertices", m.Vertices),
		zap.Int("submeshes", len(m.submesh)))
	return nil
}

func upload(s *batch.Sealed) (*Mesh, error) {
	b := s.Buffer
	verts := b.Vertices()
	if verts.Len() == 0 {
		return nil, fmt.Errorf("uploading %s: no vertices", s.Name())
	}
	uvLocs, err := uvLocations(b.UVChannelCount())
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", s.Name(), err)
	}
	g := b.BeginRead()
	defer g.Done()

	m := &Mesh{
		Name:      s.Name(),
		Tile:      s.Tile.Key(),
		Transform: s.Transform,
		Vertices:  verts.Len(),
	}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	attrib := func(loc uint32, comps int32, ptr unsafe.Pointer, n, elem int) {
		if n == 0 {
			return
		}
		var vbo uint32
		gl.GenBuffers(1, &vbo)
		gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
		gl.BufferData(gl.ARRAY_BUFFER, n*elem, ptr, gl.STATIC_DRAW)
		gl.VertexAttribPointerWithOffset(loc, comps, gl.FLOAT, false, int32(elem), 0)
		gl.EnableVertexAttribArray(loc)
		m.buffers = append(m.buffers, vbo)
		m.size += int64(n * elem)
	}

	ptr, n := verts.Ptr()
	attrib(AttribPosition, 3, ptr, n, verts.ElemSize())
	normals := b.Normals()
	ptr, n = normals.Ptr()
	attrib(AttribNormal, 3, ptr, n, normals.ElemSize())
	for c, loc := range uvLocs {
		uvs := b.UVs(c)
		ptr, n = uvs.Ptr()
		attrib(loc, 2, ptr, n, uvs.ElemSize())
	}

	for i := 0; i < b.SubmeshCount(); i++ {
		tris := b.Triangles(i)
		ptr, n := tris.Ptr()
		sm := submesh{count: int32(n)}
		if n > 0 {
			gl.GenBuffers(1, &sm.ebo)
			gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, sm.ebo)
			gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, n*tris.ElemSize(), ptr, gl.STATIC_DRAW)
			m.size += int64(n * tris.ElemSize())
		}
		m.submesh = append(m.submesh, sm)
	}

	gl.BindVertexArray(0)
	return m, nil
}

// Draw issues one draw call per submesh of every mesh. The caller binds the
// program and sets the per-mesh transform through setModel.
func (r *Registry) Draw(setModel func(model *math.Mat4)) {
	for _, m := range r.meshes {
		if setModel != nil {
			setModel(&m.Transform)
		}
		gl.BindVertexArray(m.vao)
		for _, sm := range m.submesh {
			if sm.count == 0 {
				continue
			}
			gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, sm.ebo)
			gl.DrawElements(gl.TRIANGLES, sm.count, gl.UNSIGNED_SHORT, nil)
		}
	}
	gl.BindVertexArray(0)
}

// Len returns the number of resident meshes.
func (r *Registry) Len() int { return len(r.meshes) }

// Bytes returns the GPU memory uploaded so far.
func (r *Registry) Bytes() int64 { return r.bytes }

// Remove deletes every mesh of a tile.
func (r *Registry) Remove(tile string) int {
	kept := r.meshes[:0]
	removed := 0
	for _, m := range r.meshes {
		if m.Tile == tile {
			r.bytes -= m.size
			deleteMesh(m)
			removed++
			continue
		}
		kept = append(kept, m)
	}
	r.meshes = kept
	return removed
}

// Destroy deletes every mesh.
func (r *Registry) Destroy() {
	for _, m := range r.meshes {
		deleteMesh(m)
	}
	r.meshes = nil
	r.bytes = 0
}

func deleteMesh(m *Mesh) {
	for _, sm := range m.submesh {
		if sm.ebo != 0 {
			gl.DeleteBuffers(1, &sm.ebo)
		}
	}
	if len(m.buffers) > 0 {
		gl.DeleteBuffers(int32(len(m.buffers)), &m.buffers[0])
	}
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
	}
	m.vao = 0
	m.buffers = nil
	m.submesh = nil
}
