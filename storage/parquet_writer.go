package storage

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"book-trends/models"
)

// ParquetWriter writes records as a single Parquet file.
type ParquetWriter struct {
	w           io.Writer
	compression compress.Compression
	mem         memory.Allocator
}

// NewParquetWriter writes to w with the named codec: snappy, gzip, zstd or
// uncompressed. Unknown names fall back to snappy.
func NewParquetWriter(w io.Writer, codec string) *ParquetWriter {
	var compression compress.Compression
	switch codec {
	case "gzip":
		compression = compress.Codecs.Gzip
	case "zstd":
		compression = compress.Codecs.Zstd
	case "uncompressed":
		compression = compress.Codecs.Uncompressed
	default:
		compression = compress.Codecs.Snappy
	}
	return &ParquetWriter{w: w, compression: compression, mem: memory.NewGoAllocator()}
}

var parquetSchema = arrow.NewSchema([]arrow.Field{
	{Name: models.ColDate, Type: arrow.FixedWidthTypes.Date32},
	{Name: models.ColPosition, Type: arrow.PrimitiveTypes.Int64},
	{Name: models.ColTitle, Type: arrow.BinaryTypes.String},
	{Name: models.ColAuthor, Type: arrow.BinaryTypes.String},
	{Name: models.ColPrice, Type: arrow.PrimitiveTypes.Float64},
	{Name: models.ColNationality, Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: models.ColGender, Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: models.ColGenre, Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: models.ColPages, Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: models.ColYear, Type: arrow.PrimitiveTypes.Int64, Nullable: true},
}, nil)

// Write encodes records and writes the complete file, footer included.
func (p *ParquetWriter) Write(records []models.Record) error {
	table := p.toTable(records)
	defer table.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(p.compression))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(p.mem))

	writer, err := pqarrow.NewFileWriter(table.Schema(), p.w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("parquet: create file writer: %w", err)
	}

	chunk := int64(len(records))
	if chunk < 1 {
		chunk = 1
	}
	if err := writer.WriteTable(table, chunk); err != nil {
		_ = writer.Close()
		return fmt.Errorf("parquet: write table: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("parquet: close: %w", err)
	}
	return nil
}

// Close is a no-op; the caller owns the underlying writer.
func (p *ParquetWriter) Close() error {
	return nil
}

func (p *ParquetWriter) toTable(records []models.Record) arrow.Table {
	n := len(records)
	dates := array.NewDate32Builder(p.mem)
	positions := array.NewInt64Builder(p.mem)
	titles := array.NewStringBuilder(p.mem)
	authors := array.NewStringBuilder(p.mem)
	prices := array.NewFloat64Builder(p.mem)
	nationalities := array.NewStringBuilder(p.mem)
	genders := array.NewStringBuilder(p.mem)
	genres := array.NewStringBuilder(p.mem)
	pages := array.NewInt64Builder(p.mem)
	years := array.NewInt64Builder(p.mem)

	builders := []array.Builder{dates, positions, titles, authors, prices, nationalities, genders, genres, pages, years}
	defer func() {
		for _, b := range builders {
			b.Release()
		}
	}()

	appendOptString := func(b *array.StringBuilder, v string) {
		if v == "" {
			b.AppendNull()
			return
		}
		b.Append(v)
	}
	appendOptInt := func(b *array.Int64Builder, v int) {
		if v == 0 {
			b.AppendNull()
			return
		}
		b.Append(int64(v))
	}

	for _, r := range records {
		dates.Append(arrow.Date32FromTime(r.CollectionDate))
		positions.Append(int64(r.RankPosition))
		titles.Append(r.Title)
		authors.Append(r.Author)
		prices.Append(r.Price.InexactFloat64())
		appendOptString(nationalities, r.AuthorNationality)
		appendOptString(genders, r.AuthorGender)
		appendOptString(genres, r.Genre)
		appendOptInt(pages, r.PageCount)
		appendOptInt(years, r.PublicationYear)
	}

	columns := make([]arrow.Column, 0, len(builders))
	for i, b := range builders {
		arr := b.NewArray()
		field := parquetSchema.Field(i)
		chunked := arrow.NewChunked(field.Type, []arrow.Array{arr})
		arr.Release()
		column := arrow.NewColumn(field, chunked)
		chunked.Release()
		columns = append(columns, *column)
	}

	table := array.NewTable(parquetSchema, columns, int64(n))
	for i := range columns {
		columns[i].Release()
	}
	return table
}
