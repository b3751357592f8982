package mcregion

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

const (
	// regionSpan is the chunk span of one region file along each axis.
	regionSpan = 32
	// sectorSize is the allocation unit of a region file. The first two
	// sectors hold the location and timestamp tables.
	sectorSize = 4096

	compressionZlib = 2
)

// regionFile wraps the raw bytes of one r.X.Z.mca file. The caller
// guarantees at least the two header sectors are present.
type regionFile struct {
	data []byte
}

// payload returns the compressed NBT payload of a chunk, addressed by its
// save-space coordinates. A nil payload with a nil error means the chunk
// has never been written.
func (r *regionFile) payload(cx, cz int32) ([]byte, error) {
	loc := 4 * (int(cx&31) + int(cz&31)*regionSpan)
	offset := int(r.data[loc])<<16 | int(r.data[loc+1])<<8 | int(r.data[loc+2])
	sectors := int(r.data[loc+3])
	if offset == 0 || sectors == 0 {
		return nil, nil
	}
	start := offset * sectorSize
	if start+5 > len(r.data) {
		return nil, fmt.Errorf("payload at sector %d points past the file end", offset)
	}
	// The stored length counts the compression byte plus the compressed
	// stream.
	length := int(binary.BigEndian.Uint32(r.data[start:]))
	if length < 1 || length > sectors*sectorSize || start+4+length > len(r.data) {
		return nil, fmt.Errorf("payload length %d does not fit its %d sectors", length, sectors)
	}
	if comp := r.data[start+4]; comp != compressionZlib {
		return nil, fmt.Errorf("unsupported compression id %d", comp)
	}
	return r.data[start+5 : start+4+length], nil
}

// inflate decompresses a zlib chunk payload.
func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
