package serialization

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/tensoreval/internal/tensor"
)

// WriteValue writes v in .tev format.
func WriteValue(w io.Writer, v tensor.Value) error {
	h := Header{FormatVersion: FormatVersion, Type: v.Type().String()}
	var data bytes.Buffer
	var firstErr error
	tensor.Subspaces(v, func(subspace int, labels []string) {
		h.Subspaces = append(h.Subspaces, append([]string{}, labels...))
		if err := encodeCells(&data, tensor.SubspaceCells(v, subspace)); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	if firstErr != nil {
		return errors.Wrap(firstErr, "encode cells")
	}
	sum := sha256.Sum256(data.Bytes())
	h.Checksum = hex.EncodeToString(sum[:])
	return writeFile(w, &h, FlagChecksum, data.Bytes())
}

func writeFile(w io.Writer, h *Header, flags uint32, data []byte) error {
	headerJSON, err := json.Marshal(h)
	if err != nil {
		return errors.Wrap(err, "marshal header")
	}
	if _, err := io.WriteString(w, MagicBytes); err != nil {
		return errors.Wrap(err, "write magic bytes")
	}
	for _, field := range []any{uint32(FormatVersion), flags, uint64(len(headerJSON))} {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return errors.Wrap(err, "write fixed header")
		}
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "write header")
	}
	if pad := padding(fixedHeaderSize + int64(len(headerJSON))); pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return errors.Wrap(err, "write padding")
		}
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "write cells")
	}
	return nil
}

// SaveValue writes v to a .tev file.
func SaveValue(path string, v tensor.Value) error {
	//nolint:gosec // G304: the path is chosen by the user.
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	if err := WriteValue(f, v); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close file")
}
