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

// ReadHeader reads the fixed header and the JSON header, leaving r at the start of the cell
// data.
func ReadHeader(r io.Reader) (*Header, uint32, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, 0, errors.Wrap(err, "read magic bytes")
	}
	if string(magic[:]) != MagicBytes {
		return nil, 0, ErrInvalidMagic
	}
	var version, flags uint32
	var size uint64
	for _, field := range []any{&version, &flags, &size} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return nil, 0, errors.Wrap(err, "read fixed header")
		}
	}
	if version != FormatVersion {
		return nil, 0, errors.Wrapf(ErrUnsupportedVersion, "version %d", version)
	}
	if size > MaxHeaderSize {
		return nil, 0, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", size)
	}
	headerJSON := make([]byte, size)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, 0, errors.Wrap(err, "read header")
	}
	var h Header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return nil, 0, errors.Wrap(err, "parse header")
	}
	//nolint:gosec // G115: size is bounded by MaxHeaderSize.
	if _, err := io.CopyN(io.Discard, r, padding(fixedHeaderSize+int64(size))); err != nil {
		return nil, 0, errors.Wrap(err, "read padding")
	}
	return &h, flags, nil
}

// ReadValue reads a .tev value and builds it through f.
func ReadValue(r io.Reader, f tensor.ValueBuilderFactory) (tensor.Value, error) {
	h, flags, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	t, err := tensor.ParseValueType(h.Type)
	if err != nil {
		return nil, err
	}
	if err := ValidateHeader(h, t); err != nil {
		return nil, err
	}
	size := dataSize(h, t)
	if size > maxCellDataSize {
		return nil, errors.Wrapf(ErrDataSize, "%d bytes", size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrapf(ErrDataSize, "want %d bytes: %v", size, err)
	}
	if n, _ := r.Read(make([]byte, 1)); n > 0 {
		return nil, errors.Wrap(ErrDataSize, "trailing bytes")
	}
	if flags&FlagChecksum != 0 {
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != h.Checksum {
			return nil, ErrChecksumMismatch
		}
	}

	rd := bytes.NewReader(data)
	if t.IsDouble() {
		var v float64
		if err := binary.Read(rd, binary.LittleEndian, &v); err != nil {
			return nil, errors.Wrap(err, "decode cells")
		}
		return tensor.DoubleValue(v), nil
	}
	b := f.NewValueBuilder(t, len(h.Subspaces))
	for _, labels := range h.Subspaces {
		if err := decodeCells(rd, b.AddSubspace(labels)); err != nil {
			return nil, errors.Wrap(err, "decode cells")
		}
	}
	return b.Build(), nil
}

// LoadValue reads a .tev file.
func LoadValue(path string, f tensor.ValueBuilderFactory) (tensor.Value, error) {
	//nolint:gosec // G304: the path is chosen by the user.
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}
	defer file.Close()
	return ReadValue(file, f)
}
