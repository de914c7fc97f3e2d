// Package serialization provides the binary .tev format for tensor values.
//
// The .tev format stores one value with its type and mapped labels:
//
//	Format Structure:
//	  [4 bytes: Magic "TEVL"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON metadata]
//	  [Cell data: raw little-endian cells, 64-byte aligned]
//
// Cells are stored subspace by subspace in header order, each subspace row-major over the
// indexed dimensions. A SHA-256 checksum of the cell data is kept in the header.
//
// Example usage:
//
//	if err := serialization.SaveValue("x.tev", v); err != nil {
//	    return err
//	}
//	v, err := serialization.LoadValue("x.tev", tensor.FastValueBuilderFactory{})
package serialization
