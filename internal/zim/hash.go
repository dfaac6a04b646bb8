package zim

import "github.com/zeebo/blake3"

// contentHash computes the BLAKE3 digest used as the dedup key for
// share-hinted blobs. Hashes are computed on uncompressed bytes so dedup is
// independent of the cluster compression choice.
func contentHash(data []byte) [32]byte {
	return blake3.Sum256(data)
}
