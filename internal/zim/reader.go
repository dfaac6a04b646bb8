package zim

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Reader reads back a container produced by Writer. It loads the whole file
// into memory; it exists for verification and tests, not for serving.
type Reader struct {
	data       []byte
	mimeTypes  []string
	entries    []readEntry
	byPath     map[string]int
	clusterPtr []uint64
	mainPage   uint32
}

type readEntry struct {
	namespace byte
	path      string
	title     string
	mimeIndex uint16
	redirect  bool
	target    uint32
	cluster   uint32
	blob      uint32
}

// OpenReader opens and fully parses a ZIM file, verifying its checksum.
func OpenReader(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zim: read file: %w", err)
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("zim: file too short")
	}
	if binary.LittleEndian.Uint32(data[0:]) != magicNumber {
		return nil, fmt.Errorf("zim: bad magic number")
	}
	entryCount := binary.LittleEndian.Uint32(data[24:])
	clusterCount := binary.LittleEndian.Uint32(data[28:])
	pathPtrPos := binary.LittleEndian.Uint64(data[32:])
	clusterPtrPos := binary.LittleEndian.Uint64(data[48:])
	mimeListPos := binary.LittleEndian.Uint64(data[56:])
	mainPage := binary.LittleEndian.Uint32(data[64:])
	checksumPos := binary.LittleEndian.Uint64(data[72:])

	if checksumPos+16 != uint64(len(data)) {
		return nil, fmt.Errorf("zim: checksum position does not match file size")
	}
	sum := md5.Sum(data[:checksumPos])
	if !bytes.Equal(sum[:], data[checksumPos:]) {
		return nil, fmt.Errorf("zim: checksum mismatch")
	}

	r := &Reader{
		data:     data,
		byPath:   make(map[string]int),
		mainPage: mainPage,
	}

	// MIME list: zero-terminated strings, double zero ends the list.
	cursor := mimeListPos
	for data[cursor] != 0 {
		end := cursor
		for data[end] != 0 {
			end++
		}
		r.mimeTypes = append(r.mimeTypes, string(data[cursor:end]))
		cursor = end + 1
	}

	for i := uint32(0); i < entryCount; i++ {
		direntPos := binary.LittleEndian.Uint64(data[pathPtrPos+uint64(8*i):])
		entry, err := decodeDirent(data, direntPos)
		if err != nil {
			return nil, err
		}
		r.entries = append(r.entries, entry)
		r.byPath[string(rune(entry.namespace))+entry.path] = int(i)
	}

	for i := uint32(0); i < clusterCount; i++ {
		r.clusterPtr = append(r.clusterPtr, binary.LittleEndian.Uint64(data[clusterPtrPos+uint64(8*i):]))
	}
	return r, nil
}

func decodeDirent(data []byte, pos uint64) (readEntry, error) {
	mime := binary.LittleEndian.Uint16(data[pos:])
	entry := readEntry{
		mimeIndex: mime,
		namespace: data[pos+3],
	}
	cursor := pos + 8
	if mime == mimeRedirect {
		entry.redirect = true
		entry.target = binary.LittleEndian.Uint32(data[cursor:])
		cursor += 4
	} else {
		entry.cluster = binary.LittleEndian.Uint32(data[cursor:])
		entry.blob = binary.LittleEndian.Uint32(data[cursor+4:])
		cursor += 8
	}
	end := cursor
	for data[end] != 0 {
		end++
	}
	entry.path = string(data[cursor:end])
	cursor = end + 1
	end = cursor
	for data[end] != 0 {
		end++
	}
	entry.title = string(data[cursor:end])
	return entry, nil
}

// Paths returns every content-namespace path, including redirects, in sorted
// order.
func (r *Reader) Paths() []string {
	var out []string
	for _, entry := range r.entries {
		if entry.namespace == NamespaceContent {
			out = append(out, entry.path)
		}
	}
	return out
}

// EntryCount returns the number of directory entries.
func (r *Reader) EntryCount() int { return len(r.entries) }

// MainPath returns the configured main page path.
func (r *Reader) MainPath() (string, bool) {
	if r.mainPage == 0xffffffff || int(r.mainPage) >= len(r.entries) {
		return "", false
	}
	return r.entries[r.mainPage].path, true
}

// RedirectTarget resolves a redirect record to its target path.
func (r *Reader) RedirectTarget(path string) (string, bool) {
	idx, ok := r.byPath[string(rune(NamespaceContent))+path]
	if !ok || !r.entries[idx].redirect {
		return "", false
	}
	target := r.entries[idx].target
	if int(target) >= len(r.entries) {
		return "", false
	}
	return r.entries[target].path, true
}

// Content returns the bytes and MIME type of a content record. Redirects are
// not followed.
func (r *Reader) Content(path string) ([]byte, string, error) {
	return r.content(NamespaceContent, path)
}

// Metadata returns the value of an M/ metadata record.
func (r *Reader) Metadata(name string) (string, error) {
	data, _, err := r.content(NamespaceMetadata, name)
	return string(data), err
}

func (r *Reader) content(namespace byte, path string) ([]byte, string, error) {
	idx, ok := r.byPath[string(rune(namespace))+path]
	if !ok {
		return nil, "", fmt.Errorf("zim: path %q not found", path)
	}
	entry := r.entries[idx]
	if entry.redirect {
		return nil, "", fmt.Errorf("zim: path %q is a redirect", path)
	}
	blob, err := r.readBlob(entry.cluster, entry.blob)
	if err != nil {
		return nil, "", err
	}
	mime := ""
	if int(entry.mimeIndex) < len(r.mimeTypes) {
		mime = r.mimeTypes[entry.mimeIndex]
	}
	return blob, mime, nil
}

func (r *Reader) readBlob(cluster, blob uint32) ([]byte, error) {
	if int(cluster) >= len(r.clusterPtr) {
		return nil, fmt.Errorf("zim: cluster %d out of range", cluster)
	}
	start := r.clusterPtr[cluster]
	var end uint64
	if int(cluster)+1 < len(r.clusterPtr) {
		end = r.clusterPtr[cluster+1]
	} else {
		end = binary.LittleEndian.Uint64(r.data[72:]) // checksumPos
	}
	raw := r.data[start:end]
	if len(raw) < 1 {
		return nil, fmt.Errorf("zim: empty cluster %d", cluster)
	}
	var body []byte
	switch raw[0] {
	case clusterCompressionNone:
		body = raw[1:]
	case clusterCompressionZstd:
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zim: zstd decoder: %w", err)
		}
		defer decoder.Close()
		body, err = decoder.DecodeAll(raw[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("zim: decompress cluster %d: %w", cluster, err)
		}
	default:
		return nil, fmt.Errorf("zim: unknown cluster compression %d", raw[0])
	}
	offsetStart := binary.LittleEndian.Uint32(body[4*blob:])
	offsetEnd := binary.LittleEndian.Uint32(body[4*(blob+1):])
	if uint64(offsetEnd) > uint64(len(body)) || offsetStart > offsetEnd {
		return nil, fmt.Errorf("zim: blob %d of cluster %d out of bounds", blob, cluster)
	}
	return body[offsetStart:offsetEnd], nil
}
