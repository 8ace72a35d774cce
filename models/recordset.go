package models

import (
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// RecordSet is an immutable handle over a loaded snapshot of the source
// table. The fingerprint changes whenever any record changes.
type RecordSet struct {
	records     []Record
	fingerprint uint64
}

// NewRecordSet copies records into a new set.
func NewRecordSet(records []Record) *RecordSet {
	owned := slices.Clone(records)
	return &RecordSet{
		records:     owned,
		fingerprint: fingerprint(owned),
	}
}

// Len returns the number of records.
func (s *RecordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// At returns the i-th record in source order.
func (s *RecordSet) At(i int) Record {
	return s.records[i]
}

// Records returns a copy of all records in source order.
func (s *RecordSet) Records() []Record {
	if s == nil {
		return nil
	}
	return slices.Clone(s.records)
}

// Fingerprint returns the xxhash64 of the normalized records.
func (s *RecordSet) Fingerprint() uint64 {
	if s == nil {
		return 0
	}
	return s.fingerprint
}

// Version renders the fingerprint as a fixed-width hex string.
func (s *RecordSet) Version() string {
	v := strconv.FormatUint(s.Fingerprint(), 16)
	for len(v) < 16 {
		v = "0" + v
	}
	return v
}

func fingerprint(records []Record) uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 256)
	for _, r := range records {
		buf = buf[:0]
		buf = append(buf, r.DateKey()...)
		buf = append(buf, 0x1f)
		buf = strconv.AppendInt(buf, int64(r.RankPosition), 10)
		buf = append(buf, 0x1f)
		buf = append(buf, r.Title...)
		buf = append(buf, 0x1f)
		buf = append(buf, r.Author...)
		buf = append(buf, 0x1f)
		buf = append(buf, r.Price.String()...)
		buf = append(buf, 0x1f)
		buf = append(buf, r.AuthorNationality...)
		buf = append(buf, 0x1f)
		buf = append(buf, r.AuthorGender...)
		buf = append(buf, 0x1f)
		buf = append(buf, r.Genre...)
		buf = append(buf, 0x1f)
		buf = strconv.AppendInt(buf, int64(r.PageCount), 10)
		buf = append(buf, 0x1f)
		buf = strconv.AppendInt(buf, int64(r.PublicationYear), 10)
		buf = append(buf, 0x1e)
		_, _ = d.Write(buf)
	}
	return d.Sum64()
}
