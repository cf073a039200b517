// Package meshio decodes uploaded STL and OBJ payloads into a flat
// triangle list.
package meshio

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"

	"github.com/phenrril/protoquote/internal/domain"
)

// MaxUploadBytes caps the size of an accepted model file.
const MaxUploadBytes = 50 << 20

var (
	ErrUnsupportedFormat = errors.New("unsupported model format")
	ErrMalformed         = errors.New("malformed model file")
)

type Format string

const (
	FormatSTL Format = "stl"
	FormatOBJ Format = "obj"
)

func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".stl":
		return FormatSTL, nil
	case ".obj":
		return FormatOBJ, nil
	}
	return "", ErrUnsupportedFormat
}

// Decode picks the decoder from the file extension.
func Decode(filename string, data []byte) (domain.Mesh, error) {
	f, err := DetectFormat(filename)
	if err != nil {
		return domain.Mesh{}, err
	}
	if len(data) > MaxUploadBytes {
		return domain.Mesh{}, ErrMalformed
	}
	switch f {
	case FormatOBJ:
		return DecodeOBJ(bytes.NewReader(data))
	default:
		return DecodeSTLBytes(data)
	}
}
