// Package codec implements the 4-byte big-endian integer encoding used
// for every value persisted in event-log storage: the seconds counter,
// the event index pointer, and the event records themselves.
//
// The byte order is load-bearing. Storage written by one build must
// remain decodable by any later build, so the encoding is fixed to
// most-significant byte first at the lowest address.
package codec

import "encoding/binary"

// Width is the number of storage bytes occupied by one encoded value.
const Width = 4

// EncodeLong encodes a signed 32-bit value into its 4-byte storage
// form, most significant byte first.
func EncodeLong(v int32) [Width]byte {
	var b [Width]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b
}

// DecodeLong decodes 4 storage bytes produced by EncodeLong back into
// the original signed value.
func DecodeLong(b [Width]byte) int32 {
	return int32(binary.BigEndian.Uint32(b[:]))
}
