// Package catalog implements the system catalog: two bootstrap relations,
// relcat and attrcat, that describe every other relation in the database
// (including themselves). Both are ordinary heap files, scanned through
// the same internal/heap package every other relation uses — the catalog
// eats its own dog food rather than reaching for a bespoke format.
package catalog

import (
	"bytes"
	"encoding/binary"

	"relstore/internal/buffer"
	"relstore/internal/common"
	"relstore/internal/heap"
	"relstore/internal/pagestore"
	"relstore/internal/status"
)

const (
	relNameSize  = 64
	attrNameSize = 64

	relcatName  = "relcat"
	attrcatName = "attrcat"
)

// relcat record layout: name (64 bytes, NUL-padded) + attrCnt (int32).
const relRecLen = relNameSize + 4

// attrcat record layout: relName (64) + attrName (64) + offset (int32) +
// length (int32) + type (int32).
const attrRecLen = relNameSize + attrNameSize + 4 + 4 + 4

// RelDesc describes one relation: its name and declared attribute count.
type RelDesc struct {
	RelName string
	AttrCnt int
}

// AttrDesc describes one attribute of one relation: its position, byte
// offset and length within a record, and storage type.
type AttrDesc struct {
	RelName    string
	AttrName   string
	AttrOffset int
	AttrLen    int
	AttrType   common.Type
}

// AttrSpec is the input shape for CreateRelation: one attribute's name,
// length, and type, in declaration order.
type AttrSpec struct {
	Name string
	Len  int
	Type common.Type
}

// Catalog bundles the two bootstrap relations and the store/buffer
// manager every relation (including the catalog's own) is opened
// through.
type Catalog struct {
	bm    *buffer.Manager
	store *pagestore.Store
}

// Open wraps an existing buffer manager and file store as a catalog
// accessor. It does not itself create relcat/attrcat — call Bootstrap
// once per fresh data directory first.
func Open(bm *buffer.Manager, store *pagestore.Store) *Catalog {
	return &Catalog{bm: bm, store: store}
}

// Bootstrap creates relcat and attrcat as empty heap files and registers
// their own descriptors in relcat/attrcat, if they don't already exist.
// It is safe to call on an already-bootstrapped data directory.
func Bootstrap(bm *buffer.Manager, store *pagestore.Store) (*Catalog, error) {
	c := &Catalog{bm: bm, store: store}

	if store.Exists(relcatName) {
		return c, nil
	}

	if err := heap.Create(bm, store, relcatName); err != nil {
		return nil, err
	}
	if err := heap.Create(bm, store, attrcatName); err != nil {
		return nil, err
	}

	if err := c.insertRelDesc(RelDesc{RelName: relcatName, AttrCnt: 2}); err != nil {
		return nil, err
	}
	if err := c.insertAttrDesc(AttrDesc{RelName: relcatName, AttrName: "relname", AttrOffset: 0, AttrLen: relNameSize, AttrType: common.STRING}); err != nil {
		return nil, err
	}
	if err := c.insertAttrDesc(AttrDesc{RelName: relcatName, AttrName: "attrcnt", AttrOffset: relNameSize, AttrLen: 4, AttrType: common.INTEGER}); err != nil {
		return nil, err
	}

	if err := c.insertRelDesc(RelDesc{RelName: attrcatName, AttrCnt: 5}); err != nil {
		return nil, err
	}
	attrFields := []AttrSpec{
		{"relname", relNameSize, common.STRING},
		{"attrname", attrNameSize, common.STRING},
		{"attroffset", 4, common.INTEGER},
		{"attrlen", 4, common.INTEGER},
		{"attrtype", 4, common.INTEGER},
	}
	off := 0
	for _, f := range attrFields {
		if err := c.insertAttrDesc(AttrDesc{RelName: attrcatName, AttrName: f.Name, AttrOffset: off, AttrLen: f.Len, AttrType: f.Type}); err != nil {
			return nil, err
		}
		off += f.Len
	}

	return c, nil
}

func (c *Catalog) insertRelDesc(d RelDesc) error {
	ins, err := heap.OpenInsert(c.bm, c.store, relcatName)
	if err != nil {
		return err
	}
	defer ins.Close()

	buf := make([]byte, relRecLen)
	copy(buf[0:relNameSize], padName(d.RelName, relNameSize))
	binary.LittleEndian.PutUint32(buf[relNameSize:], uint32(int32(d.AttrCnt)))
	_, err = ins.InsertRecord(buf)
	return err
}

func (c *Catalog) insertAttrDesc(d AttrDesc) error {
	ins, err := heap.OpenInsert(c.bm, c.store, attrcatName)
	if err != nil {
		return err
	}
	defer ins.Close()

	buf := make([]byte, attrRecLen)
	o := 0
	copy(buf[o:o+relNameSize], padName(d.RelName, relNameSize))
	o += relNameSize
	copy(buf[o:o+attrNameSize], padName(d.AttrName, attrNameSize))
	o += attrNameSize
	binary.LittleEndian.PutUint32(buf[o:], uint32(int32(d.AttrOffset)))
	o += 4
	binary.LittleEndian.PutUint32(buf[o:], uint32(int32(d.AttrLen)))
	o += 4
	binary.LittleEndian.PutUint32(buf[o:], uint32(int32(d.AttrType)))

	_, err = ins.InsertRecord(buf)
	return err
}

// GetInfo resolves name to its relation descriptor, scanning relcat
// linearly. It fails with status.ErrNotFound if no such relation is
// registered.
func (c *Catalog) GetInfo(name string) (RelDesc, error) {
	sc, err := heap.OpenScan(c.bm, c.store, relcatName)
	if err != nil {
		return RelDesc{}, err
	}
	defer sc.Close()

	if err := sc.StartScan(0, 0, common.STRING, nil, common.EQ); err != nil {
		return RelDesc{}, err
	}
	for {
		_, err := sc.ScanNext()
		if err == status.ErrFileEof {
			return RelDesc{}, status.ErrNotFound
		}
		if err != nil {
			return RelDesc{}, err
		}
		rec, err := sc.GetRecord()
		if err != nil {
			return RelDesc{}, err
		}
		if relName(rec) != name {
			continue
		}
		attrCnt := int32(binary.LittleEndian.Uint32(rec[relNameSize:]))
		return RelDesc{RelName: name, AttrCnt: int(attrCnt)}, nil
	}
}

// GetAttrInfo resolves one (relation, attribute) pair. It fails with
// status.ErrNotFound if no such attribute is registered on rel.
func (c *Catalog) GetAttrInfo(rel, attr string) (AttrDesc, error) {
	attrs, err := c.GetRelInfo(rel)
	if err != nil {
		return AttrDesc{}, err
	}
	for _, a := range attrs {
		if a.AttrName == attr {
			return a, nil
		}
	}
	return AttrDesc{}, status.ErrNotFound
}

// GetRelInfo returns every attribute of rel, in declared (attrOffset
// ascending) order.
func (c *Catalog) GetRelInfo(rel string) ([]AttrDesc, error) {
	sc, err := heap.OpenScan(c.bm, c.store, attrcatName)
	if err != nil {
		return nil, err
	}
	defer sc.Close()

	if err := sc.StartScan(0, 0, common.STRING, nil, common.EQ); err != nil {
		return nil, err
	}

	var out []AttrDesc
	for {
		_, err := sc.ScanNext()
		if err == status.ErrFileEof {
			break
		}
		if err != nil {
			return nil, err
		}
		rec, err := sc.GetRecord()
		if err != nil {
			return nil, err
		}
		if relName(rec) != rel {
			continue
		}
		o := relNameSize
		name := nulTrim(rec[o : o+attrNameSize])
		o += attrNameSize
		offset := int32(binary.LittleEndian.Uint32(rec[o:]))
		o += 4
		length := int32(binary.LittleEndian.Uint32(rec[o:]))
		o += 4
		typ := int32(binary.LittleEndian.Uint32(rec[o:]))
		out = append(out, AttrDesc{
			RelName:    rel,
			AttrName:   name,
			AttrOffset: int(offset),
			AttrLen:    int(length),
			AttrType:   common.Type(typ),
		})
	}
	if len(out) == 0 {
		return nil, status.ErrNotFound
	}

	sortByOffset(out)
	return out, nil
}

// CreateRelation registers a new relation's schema in relcat/attrcat, in
// the given declaration order, and creates its backing heap file.
func (c *Catalog) CreateRelation(relName string, attrs []AttrSpec) error {
	if err := heap.Create(c.bm, c.store, relName); err != nil {
		return err
	}
	if err := c.insertRelDesc(RelDesc{RelName: relName, AttrCnt: len(attrs)}); err != nil {
		return err
	}
	off := 0
	for _, a := range attrs {
		if err := c.insertAttrDesc(AttrDesc{RelName: relName, AttrName: a.Name, AttrOffset: off, AttrLen: a.Len, AttrType: a.Type}); err != nil {
			return err
		}
		off += a.Len
	}
	return nil
}

func relName(rec []byte) string {
	return nulTrim(rec[0:relNameSize])
}

func nulTrim(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return string(b)
	}
	return string(b[:i])
}

func padName(s string, n int) []byte {
	buf := make([]byte, n)
	copy(buf, s)
	return buf
}

func sortByOffset(attrs []AttrDesc) {
	for i := 1; i < len(attrs); i++ {
		for j := i; j > 0 && attrs[j-1].AttrOffset > attrs[j].AttrOffset; j-- {
			attrs[j-1], attrs[j] = attrs[j], attrs[j-1]
		}
	}
}
