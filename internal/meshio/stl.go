package meshio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/phenrril/protoquote/internal/domain"
)

const (
	stlHeaderSize = 80
	stlRecordSize = 50 // normal + 3 vertices as float32, uint16 attribute
)

// DecodeSTL reads a binary or ASCII STL.
func DecodeSTL(r io.Reader) (domain.Mesh, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return domain.Mesh{}, fmt.Errorf("read stl: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return domain.Mesh{}, ErrMalformed
	}
	return DecodeSTLBytes(data)
}

// DecodeSTLBytes detects the flavour. Many binary exporters also start the
// header with "solid", so a payload whose size matches the binary layout
// exactly is read as binary.
func DecodeSTLBytes(data []byte) (domain.Mesh, error) {
	if isBinarySTL(data) {
		return parseBinarySTL(data)
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCIISTL(bytes.NewReader(data))
	}
	return parseBinarySTL(data)
}

func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	n := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	return uint64(len(data)) == uint64(stlHeaderSize+4)+uint64(n)*stlRecordSize
}

func parseBinarySTL(data []byte) (domain.Mesh, error) {
	if len(data) < stlHeaderSize+4 {
		return domain.Mesh{}, fmt.Errorf("%w: short stl header", ErrMalformed)
	}
	n := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	body := data[stlHeaderSize+4:]
	if uint64(len(body)) < uint64(n)*stlRecordSize {
		return domain.Mesh{}, fmt.Errorf("%w: stl declares %d triangles, has room for %d", ErrMalformed, n, len(body)/stlRecordSize)
	}
	m := domain.Mesh{Triangles: make([]domain.Triangle, 0, n)}
	for i := uint32(0); i < n; i++ {
		rec := body[int(i)*stlRecordSize:]
		var t domain.Triangle
		for v := 0; v < 3; v++ {
			const start = 12 // skip normal
			for c := 0; c < 3; c++ {
				bits := binary.LittleEndian.Uint32(rec[start+12*v+4*c:])
				t[v][c] = float64(math.Float32frombits(bits))
			}
			if !finiteVec(t[v]) {
				return domain.Mesh{}, fmt.Errorf("%w: triangle %d has a non-finite vertex", ErrMalformed, i)
			}
		}
		m.Triangles = append(m.Triangles, t)
	}
	return m, nil
}

func parseASCIISTL(r io.Reader) (domain.Mesh, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	var all, verts []mgl64.Vec3
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "facet":
			verts = verts[:0]
		case "vertex":
			if len(fields) < 4 {
				return domain.Mesh{}, fmt.Errorf("%w: line %d: short vertex", ErrMalformed, line)
			}
			v, err := parseVec3(fields[1:4])
			if err != nil {
				return domain.Mesh{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
			}
			verts = append(verts, v)
		case "endfacet":
			if len(verts) != 3 {
				return domain.Mesh{}, fmt.Errorf("%w: line %d: facet with %d vertices", ErrMalformed, line, len(verts))
			}
			all = append(all, verts...)
		}
	}
	if err := sc.Err(); err != nil {
		return domain.Mesh{}, fmt.Errorf("read ascii stl: %w", err)
	}
	return domain.MeshFromVertices(all), nil
}

func parseVec3(f []string) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	for i := 0; i < 3; i++ {
		x, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return v, err
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return v, fmt.Errorf("non-finite coordinate %q", f[i])
		}
		v[i] = x
	}
	return v, nil
}

func finiteVec(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
