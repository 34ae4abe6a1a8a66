package datalog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// Open opens an existing datalog file read-only and builds an in-memory
// index of its entries and marks, for the query surface to serve from
// without holding the file open against concurrent writes. There is no
// live writer goroutine behind an opened-for-read Writer; Sender methods
// on it always fail with ErrClosed.
func Open(path string) (*Writer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("datalog: open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("datalog: read magic: %w", err)
	}
	if magic != fileMagic {
		return nil, fmt.Errorf("datalog: %s is not a valid datalog file", path)
	}
	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("datalog: read version: %w", err)
	}
	if version != fileVersion {
		return nil, fmt.Errorf("datalog: unsupported version %d in %s", version, path)
	}

	w := &Writer{
		path:   path,
		byName: make(map[string]*entry),
		closed: make(chan struct{}),
	}
	close(w.closed) // read-only: Sender.submit must fail immediately

	byID := make(map[uint32]*entry)

	for {
		e, id, err := readRecord(br, byID)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if e != nil {
			w.byName[e.Name] = e
			byID[id] = e
		}
	}

	return w, nil
}

func readRecord(r io.Reader, byID map[uint32]*entry) (*entry, uint32, error) {
	var kindB [1]byte
	if _, err := io.ReadFull(r, kindB[:]); err != nil {
		return nil, 0, err
	}
	kind := recordKind(kindB[0])

	var idb [4]byte
	if _, err := io.ReadFull(r, idb[:]); err != nil {
		return nil, 0, err
	}
	id := binary.LittleEndian.Uint32(idb[:])

	var tsb [8]byte
	if _, err := io.ReadFull(r, tsb[:]); err != nil {
		return nil, 0, err
	}
	micros := int64(binary.LittleEndian.Uint64(tsb[:]))

	var lb [4]byte
	if _, err := io.ReadFull(r, lb[:]); err != nil {
		return nil, 0, err
	}
	plen := binary.LittleEndian.Uint32(lb[:])
	payload := make([]byte, plen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, 0, err
	}

	var sumb [4]byte
	if _, err := io.ReadFull(r, sumb[:]); err != nil {
		return nil, 0, err
	}
	wantSum := binary.LittleEndian.Uint32(sumb[:])

	check := append([]byte{byte(kind)}, idb[:]...)
	check = append(check, tsb[:]...)
	check = append(check, lb[:]...)
	check = append(check, payload...)
	if crc32.ChecksumIEEE(check) != wantSum {
		return nil, 0, fmt.Errorf("datalog: checksum mismatch at record for entry %d", id)
	}

	switch kind {
	case recordStart:
		body := newByteReader(payload)
		name, err := readString(body)
		if err != nil {
			return nil, 0, fmt.Errorf("datalog: read start name: %w", err)
		}
		typ, err := readString(body)
		if err != nil {
			return nil, 0, fmt.Errorf("datalog: read start type: %w", err)
		}
		meta, err := readString(body)
		if err != nil {
			return nil, 0, fmt.Errorf("datalog: read start metadata: %w", err)
		}
		e := &entry{ID: id, Name: name, Type: typ, Metadata: meta, Open: true}
		return e, id, nil

	case recordFinish:
		if e, ok := byID[id]; ok {
			e.Open = false
		}
		return nil, id, nil

	case recordData:
		if e, ok := byID[id]; ok {
			e.LastTS = micros
			e.Marks = append(e.Marks, Mark{Micros: micros, Payload: payload})
		}
		return nil, id, nil

	default:
		return nil, 0, fmt.Errorf("datalog: unknown record kind %d", kind)
	}
}

type byteReader struct {
	b   []byte
	pos int
}

func newByteReader(b []byte) *byteReader { return &byteReader{b: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}
