package vector

import (
	"encoding/binary"
	"math"
)

// EncodeFloat32s appends the little-endian bytes of s to dst.
func EncodeFloat32s(dst []byte, s []float32) []byte {
	for _, v := range s {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// DecodeFloat32s reads len(b)/4 little-endian float32 values.
func DecodeFloat32s(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
