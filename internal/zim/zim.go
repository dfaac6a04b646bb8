// Package zim serializes content into a ZIM container: a content-addressable
// compressed archive with path-sorted directory entries, clustered blobs and
// redirect records. The writer streams blobs into clusters that are sealed
// and spilled to a temporary file as they fill, so the full artifact set is
// never held in memory. A companion reader exists mainly for round-trip
// verification.
package zim

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
)

const (
	magicNumber  = 0x044D495A
	majorVersion = 6
	minorVersion = 1

	headerSize = 80

	// mimeRedirect marks a directory entry as a redirect record.
	mimeRedirect = 0xffff

	clusterCompressionNone = 1
	clusterCompressionZstd = 5

	// NamespaceContent holds all site content; NamespaceMetadata holds the
	// M/ metadata records.
	NamespaceContent  = 'C'
	NamespaceMetadata = 'M'

	noCluster = ^uint32(0)
)

// allowedMimes is the fixed MIME registry of the build stage.
var allowedMimes = map[string]bool{
	"text/html":              true,
	"text/css":               true,
	"application/javascript": true,
	"application/json":       true,
	"image/png":              true,
	"image/x-icon":           true,
	"text/plain":             true,
}

// Hints carry per-artifact writer directives.
type Hints struct {
	// FrontArticle marks the entry as a front article for reader UIs.
	FrontArticle bool
	// Compress routes the blob into a compressed cluster.
	Compress bool
	// Share allows the writer to deduplicate the blob by content hash.
	Share bool
}

// Options tune the writer.
type Options struct {
	// ClusterSize is the uncompressed size at which a cluster is sealed.
	ClusterSize int
	// Compression is "zstd" or "none" for the compressed cluster stream.
	Compression string
}

func (o Options) compressionByte() byte {
	if o.Compression == "none" {
		return clusterCompressionNone
	}
	return clusterCompressionZstd
}

type dirent struct {
	namespace byte
	path      string
	title     string

	// content entries
	mimeIndex uint16
	cluster   uint32
	blob      uint32

	// redirect entries
	redirect       bool
	redirectTarget string
	redirectIndex  uint32

	front bool
}

// spillRef locates one sealed cluster inside the spill file.
type spillRef struct {
	offset int64
	size   int64
}

type blobRef struct {
	cluster uint32
	blob    uint32
}

// Writer writes a ZIM file. It is single-consumer: exactly one goroutine (the
// builder's writer loop) may call Add* and Finish.
type Writer struct {
	outPath  string
	tempPath string
	spill    *os.File
	spillEnd int64
	opts     Options

	mimeTypes   []string
	mimeIndexes map[string]uint16

	entries  []dirent
	byPath   map[string]int
	mainPath string

	compressed  *clusterBuilder
	raw         *clusterBuilder
	nextCluster uint32
	sealed      map[uint32]spillRef

	dedup        map[[32]byte]blobRef
	uuid         uuid.UUID
	entriesAdded int
	bytesWritten int64
	finished     bool
}

// NewWriter creates a writer targeting path. All intermediate data lives in
// temporary files next to the target; the target itself only appears on a
// successful Finish.
func NewWriter(path string, opts Options) (*Writer, error) {
	if opts.ClusterSize <= 0 {
		opts.ClusterSize = 2 * 1024 * 1024
	}
	if opts.Compression == "" {
		opts.Compression = "zstd"
	}
	if opts.Compression != "zstd" && opts.Compression != "none" {
		return nil, fmt.Errorf("zim: unsupported compression %q", opts.Compression)
	}
	tempPath := path + ".tmp-" + uuid.NewString()
	spill, err := os.Create(tempPath + ".clusters")
	if err != nil {
		return nil, fmt.Errorf("zim: create spill file: %w", err)
	}
	w := &Writer{
		outPath:     path,
		tempPath:    tempPath,
		spill:       spill,
		opts:        opts,
		mimeIndexes: make(map[string]uint16),
		byPath:      make(map[string]int),
		sealed:      make(map[uint32]spillRef),
		dedup:       make(map[[32]byte]blobRef),
		uuid:        uuid.New(),
	}
	w.compressed = newClusterBuilder(opts.compressionByte(), opts.ClusterSize)
	w.raw = newClusterBuilder(clusterCompressionNone, opts.ClusterSize)
	return w, nil
}

func (w *Writer) mimeIndex(mime string) (uint16, error) {
	if !allowedMimes[mime] {
		return 0, fmt.Errorf("zim: mime type %q is not in the registry", mime)
	}
	if idx, ok := w.mimeIndexes[mime]; ok {
		return idx, nil
	}
	idx := uint16(len(w.mimeTypes))
	w.mimeTypes = append(w.mimeTypes, mime)
	w.mimeIndexes[mime] = idx
	return idx, nil
}

// AddContent stores a content record. Paths must be unique within the file.
func (w *Writer) AddContent(path, title, mime string, data []byte, hints Hints) error {
	return w.addContent(NamespaceContent, path, title, mime, data, hints)
}

// AddMetadata stores an M/ metadata record.
func (w *Writer) AddMetadata(name, value string) error {
	return w.addContent(NamespaceMetadata, name, name, "text/plain", []byte(value), Hints{Compress: true})
}

func (w *Writer) addContent(namespace byte, path, title, mime string, data []byte, hints Hints) error {
	if w.finished {
		return fmt.Errorf("zim: writer already finished")
	}
	key := string(rune(namespace)) + path
	if _, exists := w.byPath[key]; exists {
		return fmt.Errorf("zim: duplicate path %q", path)
	}
	mimeIdx, err := w.mimeIndex(mime)
	if err != nil {
		return err
	}

	var ref blobRef
	var hash [32]byte
	shared := false
	if hints.Share {
		hash = contentHash(data)
		if existing, ok := w.dedup[hash]; ok {
			ref = existing
			shared = true
		}
	}
	if !shared {
		builder := w.raw
		if hints.Compress {
			builder = w.compressed
		}
		if builder.number == noCluster {
			builder.number = w.nextCluster
			w.nextCluster++
		}
		blobIdx := builder.add(data)
		ref = blobRef{cluster: builder.number, blob: blobIdx}
		if builder.full() {
			if err := w.sealCluster(builder); err != nil {
				return err
			}
		}
		if hints.Share {
			w.dedup[hash] = ref
		}
	}

	w.byPath[key] = len(w.entries)
	w.entries = append(w.entries, dirent{
		namespace: namespace,
		path:      path,
		title:     title,
		mimeIndex: mimeIdx,
		cluster:   ref.cluster,
		blob:      ref.blob,
		front:     hints.FrontArticle,
	})
	w.entriesAdded++
	w.bytesWritten += int64(len(data))
	return nil
}

// AddRedirect stores a redirect record pointing at the content entry with the
// target path. The target is resolved during Finish.
func (w *Writer) AddRedirect(path, title, target string) error {
	if w.finished {
		return fmt.Errorf("zim: writer already finished")
	}
	key := string(NamespaceContent) + path
	if _, exists := w.byPath[key]; exists {
		return fmt.Errorf("zim: duplicate path %q", path)
	}
	w.byPath[key] = len(w.entries)
	w.entries = append(w.entries, dirent{
		namespace:      NamespaceContent,
		path:           path,
		title:          title,
		redirect:       true,
		redirectTarget: target,
	})
	w.entriesAdded++
	return nil
}

// SetMainPath marks the entry the reader opens first.
func (w *Writer) SetMainPath(path string) {
	w.mainPath = path
}

// EntryCount returns the number of records added so far.
func (w *Writer) EntryCount() int { return w.entriesAdded }

// BytesWritten returns the uncompressed content bytes accepted so far.
func (w *Writer) BytesWritten() int64 { return w.bytesWritten }

// sealCluster compresses the builder's pending cluster and appends it to the
// spill file, then resets the builder for the next cluster.
func (w *Writer) sealCluster(builder *clusterBuilder) error {
	if builder.empty() {
		return nil
	}
	data, err := builder.seal()
	if err != nil {
		return err
	}
	if _, err := w.spill.WriteAt(data, w.spillEnd); err != nil {
		return fmt.Errorf("zim: spill cluster: %w", err)
	}
	w.sealed[builder.number] = spillRef{offset: w.spillEnd, size: int64(len(data))}
	w.spillEnd += int64(len(data))
	builder.reset()
	return nil
}

// Finish assembles the final file and atomically renames it into place. On
// error the partial output is removed.
func (w *Writer) Finish() error {
	if w.finished {
		return fmt.Errorf("zim: writer already finished")
	}
	w.finished = true
	defer w.cleanupSpill()

	if err := w.sealCluster(w.compressed); err != nil {
		return err
	}
	if err := w.sealCluster(w.raw); err != nil {
		return err
	}
	if err := w.assemble(); err != nil {
		os.Remove(w.tempPath)
		return err
	}
	if err := os.Rename(w.tempPath, w.outPath); err != nil {
		os.Remove(w.tempPath)
		return fmt.Errorf("zim: rename output: %w", err)
	}
	return nil
}

// Abort discards all temporary state without producing an output file.
func (w *Writer) Abort() {
	w.finished = true
	w.cleanupSpill()
	os.Remove(w.tempPath)
}

func (w *Writer) cleanupSpill() {
	if w.spill != nil {
		w.spill.Close()
		os.Remove(w.spill.Name())
		w.spill = nil
	}
}

// assemble writes header, mime list, pointer lists, directory entries,
// clusters and checksum into the temporary output file.
func (w *Writer) assemble() error {
	// Sort entries by (namespace, path); record the permutation so
	// redirect targets and the main page can be resolved to sorted
	// indices.
	order := make([]int, len(w.entries))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ea, eb := w.entries[order[a]], w.entries[order[b]]
		if ea.namespace != eb.namespace {
			return ea.namespace < eb.namespace
		}
		return ea.path < eb.path
	})
	sortedIndex := make([]uint32, len(w.entries))
	for sortedPos, original := range order {
		sortedIndex[original] = uint32(sortedPos)
	}

	// Resolve redirect targets.
	for _, original := range order {
		entry := &w.entries[original]
		if !entry.redirect {
			continue
		}
		targetOriginal, ok := w.byPath[string(rune(NamespaceContent))+entry.redirectTarget]
		if !ok {
			return fmt.Errorf("zim: redirect %q points at missing path %q", entry.path, entry.redirectTarget)
		}
		if w.entries[targetOriginal].redirect {
			return fmt.Errorf("zim: redirect %q points at another redirect %q", entry.path, entry.redirectTarget)
		}
		entry.redirectIndex = sortedIndex[targetOriginal]
	}

	mainPage := uint32(0xffffffff)
	if w.mainPath != "" {
		original, ok := w.byPath[string(rune(NamespaceContent))+w.mainPath]
		if !ok {
			return fmt.Errorf("zim: main path %q not present", w.mainPath)
		}
		mainPage = sortedIndex[original]
	}

	// Serialize the directory entries in sorted order, tracking offsets.
	var direntBlob []byte
	direntOffsets := make([]uint64, len(order))
	for sortedPos, original := range order {
		direntOffsets[sortedPos] = uint64(len(direntBlob))
		direntBlob = append(direntBlob, encodeDirent(&w.entries[original])...)
	}

	mimeBlob := encodeMimeList(w.mimeTypes)

	pathPtrPos := uint64(headerSize + len(mimeBlob))
	titlePtrPos := pathPtrPos + uint64(8*len(order))
	direntPos := titlePtrPos + uint64(4*len(order))
	clusterPtrPos := direntPos + uint64(len(direntBlob))
	clustersPos := clusterPtrPos + uint64(8*len(w.sealed))

	clusterPtrs := make([]uint64, len(w.sealed))
	running := clustersPos
	for number := uint32(0); number < uint32(len(w.sealed)); number++ {
		ref, ok := w.sealed[number]
		if !ok {
			return fmt.Errorf("zim: cluster %d was reserved but never sealed", number)
		}
		clusterPtrs[number] = running
		running += uint64(ref.size)
	}
	checksumPos := running

	// Title pointer list: entry indices ordered by title.
	titleOrder := make([]uint32, len(order))
	for i := range titleOrder {
		titleOrder[i] = uint32(i)
	}
	sort.Slice(titleOrder, func(a, b int) bool {
		return w.entries[order[titleOrder[a]]].title < w.entries[order[titleOrder[b]]].title
	})

	out, err := os.Create(w.tempPath)
	if err != nil {
		return fmt.Errorf("zim: create output: %w", err)
	}
	defer out.Close()

	hasher := md5.New()
	write := func(data []byte) error {
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("zim: write output: %w", err)
		}
		hasher.Write(data)
		return nil
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:], magicNumber)
	binary.LittleEndian.PutUint16(header[4:], majorVersion)
	binary.LittleEndian.PutUint16(header[6:], minorVersion)
	copy(header[8:24], w.uuid[:])
	binary.LittleEndian.PutUint32(header[24:], uint32(len(order)))
	binary.LittleEndian.PutUint32(header[28:], uint32(len(w.sealed)))
	binary.LittleEndian.PutUint64(header[32:], pathPtrPos)
	binary.LittleEndian.PutUint64(header[40:], titlePtrPos)
	binary.LittleEndian.PutUint64(header[48:], clusterPtrPos)
	binary.LittleEndian.PutUint64(header[56:], uint64(headerSize))
	binary.LittleEndian.PutUint32(header[64:], mainPage)
	binary.LittleEndian.PutUint32(header[68:], 0xffffffff)
	binary.LittleEndian.PutUint64(header[72:], checksumPos)
	if err := write(header); err != nil {
		return err
	}
	if err := write(mimeBlob); err != nil {
		return err
	}

	buf8 := make([]byte, 8)
	for _, offset := range direntOffsets {
		binary.LittleEndian.PutUint64(buf8, direntPos+offset)
		if err := write(buf8); err != nil {
			return err
		}
	}
	buf4 := make([]byte, 4)
	for _, idx := range titleOrder {
		binary.LittleEndian.PutUint32(buf4, idx)
		if err := write(buf4); err != nil {
			return err
		}
	}
	if err := write(direntBlob); err != nil {
		return err
	}
	for _, ptr := range clusterPtrs {
		binary.LittleEndian.PutUint64(buf8, ptr)
		if err := write(buf8); err != nil {
			return err
		}
	}

	// Stream the spilled clusters into place in cluster-number order.
	for number := uint32(0); number < uint32(len(w.sealed)); number++ {
		ref := w.sealed[number]
		if err := copySection(write, w.spill, ref); err != nil {
			return err
		}
	}

	sum := hasher.Sum(nil)
	if _, err := out.Write(sum); err != nil {
		return fmt.Errorf("zim: write checksum: %w", err)
	}
	return out.Sync()
}

// copySection streams one spilled cluster through the hashing writer.
func copySection(write func([]byte) error, spill *os.File, ref spillRef) error {
	buf := make([]byte, 1<<20)
	remaining := ref.size
	offset := ref.offset
	for remaining > 0 {
		chunk := int64(len(buf))
		if remaining < chunk {
			chunk = remaining
		}
		n, err := spill.ReadAt(buf[:chunk], offset)
		if n > 0 {
			if werr := write(buf[:n]); werr != nil {
				return werr
			}
			offset += int64(n)
			remaining -= int64(n)
		}
		if err != nil && err != io.EOF {
			return fmt.Errorf("zim: read spill: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("zim: short spill read")
		}
	}
	return nil
}

func encodeMimeList(mimes []string) []byte {
	var out []byte
	for _, mime := range mimes {
		out = append(out, mime...)
		out = append(out, 0)
	}
	out = append(out, 0)
	return out
}

func encodeDirent(entry *dirent) []byte {
	var out []byte
	buf := make([]byte, 4)
	if entry.redirect {
		binary.LittleEndian.PutUint16(buf, mimeRedirect)
		out = append(out, buf[:2]...)
		out = append(out, 0, entry.namespace)
		binary.LittleEndian.PutUint32(buf, 0) // revision
		out = append(out, buf...)
		binary.LittleEndian.PutUint32(buf, entry.redirectIndex)
		out = append(out, buf...)
	} else {
		binary.LittleEndian.PutUint16(buf, entry.mimeIndex)
		out = append(out, buf[:2]...)
		out = append(out, 0, entry.namespace)
		binary.LittleEndian.PutUint32(buf, 0) // revision
		out = append(out, buf...)
		binary.LittleEndian.PutUint32(buf, entry.cluster)
		out = append(out, buf...)
		binary.LittleEndian.PutUint32(buf, entry.blob)
		out = append(out, buf...)
	}
	out = append(out, entry.path...)
	out = append(out, 0)
	out = append(out, entry.title...)
	out = append(out, 0)
	return out
}
