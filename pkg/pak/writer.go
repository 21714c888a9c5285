package pak

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrClosed is returned when adding to a Writer after Close.
var ErrClosed = errors.New("pak: writer closed")

// Writer builds a pack file. Contents are buffered until Close.
type Writer struct {
	w       io.Writer
	data    bytes.Buffer
	entries []Entry
	names   map[string]int
	closed  bool
}

// NewWriter returns a Writer that emits the pack to w on Close.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, names: make(map[string]int)}
}

// Add stores a file. Adding the same path twice replaces the earlier entry.
func (pw *Writer) Add(path string, content []byte) error {
	if pw.closed {
		return ErrClosed
	}
	path = normalizePath(path)
	if path == "" {
		return fmt.Errorf("pak: empty path")
	}

	compressed, err := deflate(content)
	if err != nil {
		return fmt.Errorf("compressing %s: %w", path, err)
	}

	entry := Entry{
		Name:             path,
		UncompressedSize: uint32(len(content)),
		Flags:            FlagFile,
		Offset:           uint32(pw.data.Len()),
	}
	// Small files often grow under zlib.
	if len(compressed) < len(content) {
		entry.Flags |= FlagCompressed
		entry.CompressedSize = uint32(len(compressed))
		pw.data.Write(compressed)
	} else {
		entry.CompressedSize = uint32(len(content))
		pw.data.Write(content)
	}
	if int64(pw.data.Len()) > math.MaxUint32 {
		return fmt.Errorf("pak: archive exceeds 4GiB")
	}

	if i, ok := pw.names[path]; ok {
		pw.entries[i] = entry
		return nil
	}
	pw.names[path] = len(pw.entries)
	pw.entries = append(pw.entries, entry)
	return nil
}

// Close writes the header, data and file table.
func (pw *Writer) Close() error {
	if pw.closed {
		return ErrClosed
	}
	pw.closed = true

	var table bytes.Buffer
	for _, e := range pw.entries {
		table.WriteString(e.Name)
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, e.CompressedSize)
		binary.Write(&table, binary.LittleEndian, e.UncompressedSize)
		table.WriteByte(e.Flags)
		binary.Write(&table, binary.LittleEndian, e.Offset)
	}
	compressedTable, err := deflate(table.Bytes())
	if err != nil {
		return fmt.Errorf("compressing file table: %w", err)
	}

	header := Header{
		Version:     pakVersion,
		TableOffset: uint32(pw.data.Len()),
		FileCount:   uint32(len(pw.entries)),
	}
	copy(header.Magic[:], pakMagic)

	if err := binary.Write(pw.w, binary.LittleEndian, &header); err != nil {
		return err
	}
	if _, err := pw.w.Write(pw.data.Bytes()); err != nil {
		return err
	}
	if err := binary.Write(pw.w, binary.LittleEndian, [2]uint32{uint32(len(compressedTable)), uint32(table.Len())}); err != nil {
		return err
	}
	_, err = pw.w.Write(compressedTable)
	return err
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
