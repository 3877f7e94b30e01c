// Package query implements the three single-relation operators driven
// through the catalog: select-with-projection, insert, and delete. None
// of the three support joins or multi-relation predicates — each reads
// or writes exactly one source relation.
package query

import (
	"encoding/binary"
	"math"
	"strconv"

	"relstore/internal/buffer"
	"relstore/internal/catalog"
	"relstore/internal/common"
	"relstore/internal/heap"
	"relstore/internal/pagestore"
	"relstore/internal/status"
)

// Engine bundles the catalog and storage handles every operator needs.
type Engine struct {
	bm    *buffer.Manager
	store *pagestore.Store
	cat   *catalog.Catalog
}

// NewEngine wraps a buffer manager, file store, and catalog for query
// execution.
func NewEngine(bm *buffer.Manager, store *pagestore.Store, cat *catalog.Catalog) *Engine {
	return &Engine{bm: bm, store: store, cat: cat}
}

// ProjAttr names one attribute to project into a select's result
// relation, in declaration order.
type ProjAttr struct {
	RelName  string
	AttrName string
}

// Select scans proj[0].RelName filtered by an optional single attribute
// predicate, and inserts one output record per match into result. Output
// records concatenate the projected fields in the order proj lists them,
// not the order they appear in the source schema.
func (e *Engine) Select(result string, proj []ProjAttr, sourceAttr string, op common.Operator, probe string) error {
	if len(proj) == 0 {
		return status.ErrBadScanParam
	}
	sourceRel := proj[0].RelName

	var (
		filterDesc  catalog.AttrDesc
		filterValue []byte
		hasFilter   bool
	)
	if sourceAttr != "" {
		ad, err := e.cat.GetAttrInfo(sourceRel, sourceAttr)
		if err != nil {
			return err
		}
		val, err := encodeProbe(ad.AttrType, ad.AttrLen, probe)
		if err != nil {
			return err
		}
		filterDesc, filterValue, hasFilter = ad, val, true
	}

	projDescs := make([]catalog.AttrDesc, len(proj))
	recLen := 0
	for i, p := range proj {
		ad, err := e.cat.GetAttrInfo(p.RelName, p.AttrName)
		if err != nil {
			return err
		}
		projDescs[i] = ad
		recLen += ad.AttrLen
	}

	ins, err := heap.OpenInsert(e.bm, e.store, result)
	if err != nil {
		return err
	}
	defer ins.Close()

	sc, err := heap.OpenScan(e.bm, e.store, sourceRel)
	if err != nil {
		return err
	}
	defer sc.Close()

	if hasFilter {
		if err := sc.StartScan(filterDesc.AttrOffset, filterDesc.AttrLen, filterDesc.AttrType, filterValue, op); err != nil {
			return err
		}
	} else {
		if err := sc.StartScan(0, 0, common.STRING, nil, common.EQ); err != nil {
			return err
		}
	}

	for {
		_, err := sc.ScanNext()
		if err == status.ErrFileEof {
			return nil
		}
		if err != nil {
			return err
		}
		rec, err := sc.GetRecord()
		if err != nil {
			return err
		}

		out := make([]byte, recLen)
		off := 0
		for _, ad := range projDescs {
			copy(out[off:off+ad.AttrLen], rec[ad.AttrOffset:ad.AttrOffset+ad.AttrLen])
			off += ad.AttrLen
		}
		if _, err := ins.InsertRecord(out); err != nil {
			return err
		}
	}
}

// AttrValue is one supplied (name, text value) pair for Insert.
type AttrValue struct {
	Name  string
	Value string
}

// Insert builds a record from attrs per relation's declared schema and
// appends it to relation. Every schema attribute must have a matching
// entry in attrs by name; a missing one fails with
// status.ErrAttrTypeMismatch rather than silently zero-filling.
func (e *Engine) Insert(relation string, attrs []AttrValue) error {
	schema, err := e.cat.GetRelInfo(relation)
	if err != nil {
		return err
	}
	if len(attrs) != len(schema) {
		return status.ErrAttrTypeMismatch
	}

	byName := make(map[string]string, len(attrs))
	for _, a := range attrs {
		byName[a.Name] = a.Value
	}

	recLen := 0
	for _, ad := range schema {
		recLen += ad.AttrLen
	}
	buf := make([]byte, recLen)

	for _, ad := range schema {
		val, ok := byName[ad.AttrName]
		if !ok {
			return status.ErrAttrTypeMismatch
		}
		encoded, err := encodeProbe(ad.AttrType, ad.AttrLen, val)
		if err != nil {
			return err
		}
		copy(buf[ad.AttrOffset:ad.AttrOffset+ad.AttrLen], encoded)
	}

	ins, err := heap.OpenInsert(e.bm, e.store, relation)
	if err != nil {
		return err
	}
	defer ins.Close()

	_, err = ins.InsertRecord(buf)
	return err
}

// Delete removes every matching record from relation. An empty attr
// deletes every record in the relation (the scan's filter is disabled
// entirely, bypassing the usual length >= 1 validation).
func (e *Engine) Delete(relation, attr string, op common.Operator, typ common.Type, probe string) error {
	sc, err := heap.OpenScan(e.bm, e.store, relation)
	if err != nil {
		return err
	}
	defer sc.Close()

	if attr == "" {
		if err := sc.StartScan(0, 0, common.STRING, nil, common.EQ); err != nil {
			return err
		}
	} else {
		ad, err := e.cat.GetAttrInfo(relation, attr)
		if err != nil {
			return err
		}
		val, err := encodeProbe(ad.AttrType, ad.AttrLen, probe)
		if err != nil {
			return err
		}
		if err := sc.StartScan(ad.AttrOffset, ad.AttrLen, ad.AttrType, val, op); err != nil {
			return err
		}
	}

	for {
		_, err := sc.ScanNext()
		if err == status.ErrFileEof {
			return nil
		}
		if err != nil {
			return err
		}
		if err := sc.DeleteRecord(); err != nil {
			return err
		}
	}
}

// encodeProbe converts a text probe value into the length-byte wire form
// its attribute type uses on a record: STRING is copied and NUL-padded to
// length, INTEGER/FLOAT are parsed and stored little-endian.
func encodeProbe(typ common.Type, length int, text string) ([]byte, error) {
	switch typ {
	case common.STRING:
		out := make([]byte, length)
		copy(out, text)
		return out, nil
	case common.INTEGER:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, status.ErrAttrTypeMismatch
		}
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(int32(n)))
		return out, nil
	case common.FLOAT:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, status.ErrAttrTypeMismatch
		}
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, math.Float32bits(float32(f)))
		return out, nil
	default:
		return nil, status.ErrAttrTypeMismatch
	}
}
