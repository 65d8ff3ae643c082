package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/vector"
)

// Serialized layout, little endian:
//
//	magic "KIDX" | version u16 | collection str | dimension u32 | count u32
//	count × document | crc32(IEEE) of everything before it, u32
//
// A document is id, user, content (str each), created_at unix nanos i64,
// metadata count u32 + key/value str pairs, keyword count u32 + str each,
// has-embedding u8 and dimension × f32. A str is a u32 length and UTF-8 bytes.
const (
	formatVersion uint16 = 1
	maxStringLen         = 64 << 20
)

var formatMagic = []byte("KIDX")

var errShortRead = errors.New("unexpected end of data")

type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) i64(v int64)  { e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v)) }

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.buf) {
		d.err = errShortRead
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) i64() int64 {
	if b := d.take(8); b != nil {
		return int64(binary.LittleEndian.Uint64(b))
	}
	return 0
}

func (d *decoder) str() string {
	n := d.u32()
	if n > maxStringLen {
		d.err = fmt.Errorf("string length %d exceeds limit", n)
		return ""
	}
	return string(d.take(int(n)))
}

// Serialize encodes every document with its keywords and embedding.
func (c *Collection) Serialize() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	dim := c.vectors.Dimensions()
	e := &encoder{buf: make([]byte, 0, 64+len(ids)*(128+dim*4))}
	e.buf = append(e.buf, formatMagic...)
	e.u16(formatVersion)
	e.str(string(c.name))
	e.u32(uint32(dim))
	e.u32(uint32(len(ids)))

	for _, id := range ids {
		doc := c.docs[id]
		e.str(doc.ID)
		e.str(doc.UserID)
		e.str(doc.Content)
		e.i64(doc.CreatedAt.UnixNano())

		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.u32(uint32(len(keys)))
		for _, k := range keys {
			e.str(k)
			e.str(doc.Metadata[k])
		}

		e.u32(uint32(len(doc.Keywords)))
		for _, kw := range doc.Keywords {
			e.str(kw)
		}

		if emb, ok := c.vectors.Get(id); ok {
			e.u8(1)
			e.buf = vector.EncodeFloat32s(e.buf, emb)
		} else {
			e.u8(0)
		}
	}

	e.u32(crc32.ChecksumIEEE(e.buf))
	return e.buf, nil
}

// Restore replaces the collection's contents with data produced by Serialize. On any
// error the collection is left exactly as it was and a *CorruptionError is returned.
func (c *Collection) Restore(data []byte) error {
	docs, vectors, err := c.decode(data)
	if err != nil {
		c.logger.Error("index restore failed", zap.Error(err))
		return err
	}

	kw := keyword.NewInvertedIndex()
	for id, doc := range docs {
		kw.Add(id, doc.Keywords)
	}

	c.mu.Lock()
	c.docs = docs
	c.keywords = kw
	c.vectors = vectors
	c.mu.Unlock()

	c.logger.Info("index restored", zap.Int("documents", len(docs)), zap.Int("embedded", vectors.Size()))
	return nil
}

func (c *Collection) corrupt(reason string, err error) error {
	return &CorruptionError{Collection: string(c.name), Reason: reason, Err: err}
}

func (c *Collection) decode(data []byte) (map[string]*models.Document, *vector.MemoryStore, error) {
	if len(data) < len(formatMagic)+2+4 {
		return nil, nil, c.corrupt("data too short", nil)
	}
	body, trailer := data[:len(data)-4], data[len(data)-4:]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(trailer) {
		return nil, nil, c.corrupt("checksum mismatch", nil)
	}
	if !bytes.Equal(body[:len(formatMagic)], formatMagic) {
		return nil, nil, c.corrupt("bad magic", nil)
	}

	d := &decoder{buf: body, off: len(formatMagic)}
	if v := d.u16(); v != formatVersion {
		return nil, nil, c.corrupt(fmt.Sprintf("unsupported version %d", v), nil)
	}
	if name := d.str(); d.err == nil && name != string(c.name) {
		return nil, nil, c.corrupt(fmt.Sprintf("data belongs to collection %q", name), nil)
	}
	dim := int(d.u32())
	if want := c.currentDimensions(); d.err == nil && dim != 0 && want != 0 && dim != want {
		return nil, nil, c.corrupt(fmt.Sprintf("dimension %d does not match %d", dim, want), nil)
	}
	count := d.u32()
	if d.err != nil {
		return nil, nil, c.corrupt("truncated header", d.err)
	}

	docs := make(map[string]*models.Document)
	vectors := vector.NewMemoryStore(dim)
	for i := uint32(0); i < count; i++ {
		doc := &models.Document{Collection: c.name}
		doc.ID = d.str()
		doc.UserID = d.str()
		doc.Content = d.str()
		doc.CreatedAt = time.Unix(0, d.i64()).UTC()

		if n := d.u32(); n > 0 && d.err == nil {
			doc.Metadata = make(map[string]string, min(n, 64))
			for j := uint32(0); j < n && d.err == nil; j++ {
				k := d.str()
				doc.Metadata[k] = d.str()
			}
		}
		if n := d.u32(); n > 0 && d.err == nil {
			doc.Keywords = make([]string, 0, min(n, 256))
			for j := uint32(0); j < n && d.err == nil; j++ {
				doc.Keywords = append(doc.Keywords, d.str())
			}
		}

		if d.u8() == 1 {
			raw := d.take(dim * 4)
			if d.err == nil {
				if err := vectors.Add(doc.ID, vector.DecodeFloat32s(raw)); err != nil {
					return nil, nil, c.corrupt(fmt.Sprintf("document %d embedding", i), err)
				}
			}
		}
		if d.err != nil {
			return nil, nil, c.corrupt(fmt.Sprintf("document %d", i), d.err)
		}
		if doc.ID == "" {
			return nil, nil, c.corrupt(fmt.Sprintf("document %d has no id", i), nil)
		}
		docs[doc.ID] = doc
	}
	if d.off != len(body) {
		return nil, nil, c.corrupt("trailing bytes after documents", nil)
	}
	return docs, vectors, nil
}

func (c *Collection) currentDimensions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vectors.Dimensions()
}
