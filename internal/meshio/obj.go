package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/phenrril/protoquote/internal/domain"
)

// DecodeOBJ resolves face-indexed geometry into concrete triangles. Faces
// with more than three corners are fan-triangulated. Texture coordinates,
// normals, groups and materials are ignored.
func DecodeOBJ(r io.Reader) (domain.Mesh, error) {
	sc := bufio.NewScanner(io.LimitReader(r, MaxUploadBytes+1))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var positions []mgl64.Vec3
	var m domain.Mesh
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return domain.Mesh{}, fmt.Errorf("%w: line %d: short vertex", ErrMalformed, line)
			}
			v, err := parseVec3(fields[1:4])
			if err != nil {
				return domain.Mesh{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
			}
			positions = append(positions, v)
		case "f":
			if len(fields) < 4 {
				return domain.Mesh{}, fmt.Errorf("%w: line %d: face needs 3 vertices", ErrMalformed, line)
			}
			corners := make([]mgl64.Vec3, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				idx, err := resolveIndex(ref, len(positions))
				if err != nil {
					return domain.Mesh{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
				}
				corners = append(corners, positions[idx])
			}
			for i := 1; i+1 < len(corners); i++ {
				m.Triangles = append(m.Triangles, domain.Triangle{corners[0], corners[i], corners[i+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return domain.Mesh{}, fmt.Errorf("read obj: %w", err)
	}
	return m, nil
}

// resolveIndex turns "7", "7/2", "7//3" or "-1/.." into a 0-based position
// index. Negative references count back from the last vertex read.
func resolveIndex(ref string, n int) (int, error) {
	head := ref
	if i := strings.IndexByte(ref, '/'); i >= 0 {
		head = ref[:i]
	}
	idx, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("bad vertex reference %q", ref)
	}
	switch {
	case idx > 0 && idx <= n:
		return idx - 1, nil
	case idx < 0 && -idx <= n:
		return n + idx, nil
	}
	return 0, fmt.Errorf("vertex reference %d out of range (have %d)", idx, n)
}
