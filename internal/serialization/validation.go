package serialization

import (
	"fmt"
	"strings"

	"github.com/born-ml/tensoreval/internal/tensor"
)

// Validation limits.
const (
	MaxHeaderSize   = 100 * 1024 * 1024
	MaxSubspaces    = 10_000_000
	MaxLabelLen     = 4096
	maxCellDataSize = 1 << 34
)

// ValidateHeader checks that the subspace list fits type t: dense types and doubles have
// exactly one unlabeled subspace, every label tuple has one label per mapped dimension, and no
// address repeats.
func ValidateHeader(h *Header, t tensor.ValueType) error {
	if t.IsError() {
		return &ValidationError{Type: "type", Details: "error type has no values"}
	}
	mapped := t.CountMappedDimensions()
	if mapped == 0 {
		if len(h.Subspaces) != 1 || len(h.Subspaces[0]) != 0 {
			return &ValidationError{Type: "subspace_count", Details: fmt.Sprintf("%s needs exactly one unlabeled subspace", t)}
		}
		return nil
	}
	if len(h.Subspaces) > MaxSubspaces {
		return &ValidationError{Type: "subspace_count", Details: fmt.Sprintf("got %d, max %d", len(h.Subspaces), MaxSubspaces)}
	}
	seen := make(map[string]bool, len(h.Subspaces))
	for i, labels := range h.Subspaces {
		if len(labels) != mapped {
			return &ValidationError{Type: "label_count", Details: fmt.Sprintf("subspace %d has %d labels, want %d", i, len(labels), mapped)}
		}
		for _, l := range labels {
			if len(l) > MaxLabelLen {
				return &ValidationError{Type: "label_length", Details: fmt.Sprintf("subspace %d: label of %d bytes", i, len(l))}
			}
		}
		key := strings.Join(labels, "\x00")
		if seen[key] {
			return &ValidationError{Type: "duplicate_address", Details: fmt.Sprintf("subspace %d repeats %q", i, labels)}
		}
		seen[key] = true
	}
	return nil
}

// dataSize is the number of cell bytes a valid header describes.
func dataSize(h *Header, t tensor.ValueType) int64 {
	return int64(len(h.Subspaces)) * int64(t.DenseSubspaceSize()) * int64(t.CellType().Size())
}
