package serialization

import (
	"bytes"
	"encoding/binary"

	"github.com/born-ml/tensoreval/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "TEVL"
	FormatVersion   = 1
	HeaderAlignment = 64 // Cell data starts at a multiple of this offset.
	fixedHeaderSize = 4 + 4 + 4 + 8
)

// Flags for the .tev format.
const (
	FlagChecksum uint32 = 1 << 0 // Header carries a checksum of the cell data.
)

// Header is the JSON header of a .tev file.
type Header struct {
	FormatVersion int        `json:"format_version"`
	Type          string     `json:"type"`                // Value type spec.
	Subspaces     [][]string `json:"subspaces,omitempty"` // Mapped labels per subspace.
	Checksum      string     `json:"checksum,omitempty"`  // Hex SHA-256 of the cell data.
}

func padding(pos int64) int64 {
	return (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
}

// cellSlice returns the typed slice behind c for encoding/binary.
func cellSlice(c tensor.TypedCells) any {
	switch c.Type {
	case tensor.Double:
		return tensor.Typed[float64](c)
	case tensor.Float:
		return tensor.Typed[float32](c)
	case tensor.BFloat16:
		return tensor.Typed[tensor.BF16](c)
	case tensor.Int8:
		return tensor.Typed[int8](c)
	case tensor.Int16:
		return tensor.Typed[int16](c)
	case tensor.Int32:
		return tensor.Typed[int32](c)
	default:
		return tensor.Typed[int64](c)
	}
}

func encodeCells(buf *bytes.Buffer, c tensor.TypedCells) error {
	return binary.Write(buf, binary.LittleEndian, cellSlice(c))
}

func decodeCells(r *bytes.Reader, c tensor.TypedCells) error {
	return binary.Read(r, binary.LittleEndian, cellSlice(c))
}
