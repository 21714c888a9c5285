// Package pak reads and writes pack files: a flat, zlib compressed
// container mapping asset paths to file contents.
//
// Layout (little-endian):
//
//	header  Magic [8]byte | Version u32 | TableOffset u32 | FileCount u32
//	data    compressed entries back to back
//	table   CompressedSize u32 | UncompressedSize u32 | zlib(entries)
//	entry   name NUL | CompressedSize u32 | UncompressedSize u32 | Flags u8 | Offset u32
package pak

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	pakMagic   = "STAGEPAK"
	pakVersion = 1
	headerSize = 20
	entrySize  = 13
)

// Entry flags.
const (
	FlagFile       = 0x01
	FlagCompressed = 0x02
)

var (
	ErrInvalidMagic = errors.New("pak: invalid magic")
	ErrNotFound     = errors.New("pak: file not found")
	ErrCorrupt      = errors.New("pak: corrupt archive")
)

// Header is the fixed pack header.
type Header struct {
	Magic       [8]byte
	Version     uint32
	TableOffset uint32 // relative to the end of the header
	FileCount   uint32
}

// Entry describes one file in the pack.
type Entry struct {
	Name             string
	CompressedSize   uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32 // relative to the end of the header
}

// Archive is an opened pack. Read is safe for concurrent use.
type Archive struct {
	r        io.ReaderAt
	closer   io.Closer
	header   Header
	fileList map[string]*Entry
}

// Open opens a pack file from disk.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	a, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	a.closer = file
	return a, nil
}

// OpenBytes opens a pack held in memory.
func OpenBytes(data []byte) (*Archive, error) {
	return NewReader(bytes.NewReader(data))
}

// NewReader reads the header and file table from r.
func NewReader(r io.ReaderAt) (*Archive, error) {
	a := &Archive{
		r:        r,
		fileList: make(map[string]*Entry),
	}
	if err := a.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readFileTable(); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return a, nil
}

// Close closes the underlying file, if any.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	sr := io.NewSectionReader(a.r, 0, headerSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if string(a.header.Magic[:]) != pakMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != pakVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	tableOffset := int64(a.header.TableOffset) + headerSize

	var sizes [8]byte
	if _, err := a.r.ReadAt(sizes[:], tableOffset); err != nil {
		return fmt.Errorf("%w: table sizes: %v", ErrCorrupt, err)
	}
	compressedSize := binary.LittleEndian.Uint32(sizes[0:])
	uncompressedSize := binary.LittleEndian.Uint32(sizes[4:])

	tableData, err := inflate(io.NewSectionReader(a.r, tableOffset+8, int64(compressedSize)), uncompressedSize)
	if err != nil {
		return fmt.Errorf("%w: table: %v", ErrCorrupt, err)
	}

	offset := 0
	for i := uint32(0); i < a.header.FileCount; i++ {
		nameEnd := bytes.IndexByte(tableData[offset:], 0)
		if nameEnd < 0 {
			return fmt.Errorf("%w: entry %d name", ErrCorrupt, i)
		}
		name := string(tableData[offset : offset+nameEnd])
		offset += nameEnd + 1

		if offset+entrySize > len(tableData) {
			return fmt.Errorf("%w: entry %d truncated", ErrCorrupt, i)
		}

		entry := &Entry{
			Name:             normalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(tableData[offset:]),
			UncompressedSize: binary.LittleEndian.Uint32(tableData[offset+4:]),
			Flags:            tableData[offset+8],
			Offset:           binary.LittleEndian.Uint32(tableData[offset+9:]),
		}
		offset += entrySize

		if entry.Flags&FlagFile != 0 {
			a.fileList[entry.Name] = entry
		}
	}
	return nil
}

// List returns all file paths in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.fileList))
	for path := range a.fileList {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// Contains checks if a file exists.
func (a *Archive) Contains(path string) bool {
	_, ok := a.fileList[normalizePath(path)]
	return ok
}

// Stat returns the entry for path.
func (a *Archive) Stat(path string) (Entry, bool) {
	e, ok := a.fileList[normalizePath(path)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Read returns the contents of a file.
func (a *Archive) Read(path string) ([]byte, error) {
	entry, ok := a.fileList[normalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	section := io.NewSectionReader(a.r, int64(entry.Offset)+headerSize, int64(entry.CompressedSize))
	if entry.Flags&FlagCompressed == 0 {
		data := make([]byte, entry.UncompressedSize)
		if _, err := io.ReadFull(section, data); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		}
		return data, nil
	}

	data, err := inflate(section, entry.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return data, nil
}

func inflate(r io.Reader, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.TrimPrefix(path, "/")
}
