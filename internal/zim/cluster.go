package zim

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdEncoder is reused across clusters; zstd.Encoder is safe for concurrent
// use via EncodeAll.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("zim: zstd encoder initialization failed: " + err.Error())
	}
}

// clusterBuilder accumulates blobs for one cluster. A builder gets its
// cluster number assigned on the first blob and gives it up on reset, so
// numbers are only spent on clusters that hold data.
type clusterBuilder struct {
	compression byte
	maxSize     int
	number      uint32
	blobs       [][]byte
	size        int
}

func newClusterBuilder(compression byte, maxSize int) *clusterBuilder {
	return &clusterBuilder{
		compression: compression,
		maxSize:     maxSize,
		number:      noCluster,
	}
}

// add appends a blob and returns its index within the cluster.
func (b *clusterBuilder) add(data []byte) uint32 {
	owned := make([]byte, len(data))
	copy(owned, data)
	b.blobs = append(b.blobs, owned)
	b.size += len(data)
	return uint32(len(b.blobs) - 1)
}

func (b *clusterBuilder) full() bool  { return b.size >= b.maxSize }
func (b *clusterBuilder) empty() bool { return len(b.blobs) == 0 }

// seal encodes the cluster: a compression byte followed by the (possibly
// zstd-compressed) offset table and blob data. Offsets are uint32 and
// relative to the start of the offset table, matching the container layout
// readers expect.
func (b *clusterBuilder) seal() ([]byte, error) {
	n := len(b.blobs)
	body := make([]byte, 0, 4*(n+1)+b.size)
	offset := uint32(4 * (n + 1))
	var buf [4]byte
	for _, blob := range b.blobs {
		binary.LittleEndian.PutUint32(buf[:], offset)
		body = append(body, buf[:]...)
		offset += uint32(len(blob))
	}
	binary.LittleEndian.PutUint32(buf[:], offset)
	body = append(body, buf[:]...)
	for _, blob := range b.blobs {
		body = append(body, blob...)
	}

	out := []byte{b.compression}
	switch b.compression {
	case clusterCompressionNone:
		out = append(out, body...)
	case clusterCompressionZstd:
		out = append(out, zstdEncoder.EncodeAll(body, nil)...)
	default:
		return nil, fmt.Errorf("zim: unknown cluster compression %d", b.compression)
	}
	return out, nil
}

// reset prepares the builder for the next cluster.
func (b *clusterBuilder) reset() {
	b.number = noCluster
	b.blobs = nil
	b.size = 0
}
