// Package entitystore persists and retrieves entities and relationships
// through a storage.Adapter, using the shard path scheme and the vector
// blob wire format (spec §4.3).
package entitystore

import (
	"encoding/binary"
	"math"

	"github.com/brainydb/brainy/errs"
)

// vectorMagic is the 4-byte tag at the front of every vector blob.
var vectorMagic = [4]byte{'B', 'R', 'N', 'Y'}

const (
	dtypeFloat32   byte = 0x01
	vectorHeaderSz      = 16
)

// EncodeVector serializes a float32 vector into the wire format: a 16-byte
// header (magic, little-endian dimension, dtype, 7 reserved bytes) followed
// by dim*4 bytes of little-endian IEEE-754 float32 (spec §4.3).
func EncodeVector(v []float32) []byte {
	buf := make([]byte, vectorHeaderSz+len(v)*4)
	copy(buf[0:4], vectorMagic[:])
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(v)))
	buf[8] = dtypeFloat32
	// buf[9:16] left zero (reserved)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[vectorHeaderSz+i*4:vectorHeaderSz+i*4+4], math.Float32bits(f))
	}
	return buf
}

// DecodeVector parses the wire format back into a float32 slice, validating
// the magic, dtype, and declared-vs-actual length (spec §7 IntegrityError:
// "vector header magic mismatch, dimension mismatch in stored blob").
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob) < vectorHeaderSz {
		return nil, errs.Integrityf(nil, "vector blob too short: %d bytes", len(blob))
	}
	if [4]byte(blob[0:4]) != vectorMagic {
		return nil, errs.Integrityf(nil, "vector blob magic mismatch: got %q", blob[0:4])
	}
	dim := binary.LittleEndian.Uint32(blob[4:8])
	dtype := blob[8]
	if dtype != dtypeFloat32 {
		return nil, errs.Integrityf(nil, "unsupported vector dtype 0x%02x", dtype)
	}
	want := vectorHeaderSz + int(dim)*4
	if len(blob) != want {
		return nil, errs.Integrityf(nil, "vector blob length mismatch: header declares dim=%d (%d bytes), got %d bytes", dim, want, len(blob))
	}
	out := make([]float32, dim)
	for i := range out {
		off := vectorHeaderSz + i*4
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[off : off+4]))
	}
	return out, nil
}
