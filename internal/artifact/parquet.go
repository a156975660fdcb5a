// Package artifact persists the long-form span table and the speech
// metadata table as Parquet files, the two columnar artifacts the query
// layer consumes.
package artifact

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/senadolab/figuras/internal/corpus"
	"github.com/senadolab/figuras/internal/spans"
)

// SpanRow is one row of the spans-long artifact. Span fields are
// optional: free-text and decode-failure rows carry no label, which is
// how downstream consumers tell annotation rows from the rest.
type SpanRow struct {
	CustomID   string   `parquet:"name=custom_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	SpeechID   *int64   `parquet:"name=codigo_pronunciamento, type=INT64"`
	Label      *string  `parquet:"name=label, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartChar  *int32   `parquet:"name=start_char, type=INT32"`
	EndChar    *int32   `parquet:"name=end_char, type=INT32"`
	Text       *string  `parquet:"name=text, type=BYTE_ARRAY, convertedtype=UTF8"`
	Rationale  *string  `parquet:"name=rationale, type=BYTE_ARRAY, convertedtype=UTF8"`
	Cues       []string `parquet:"name=cues, type=LIST, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
	Confidence *float64 `parquet:"name=confidence, type=DOUBLE"`
	FreeText   *string  `parquet:"name=free_text, type=BYTE_ARRAY, convertedtype=UTF8"`
	ParseError *string  `parquet:"name=parse_error, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// MetaRow is one row of the speech-metadata artifact.
type MetaRow struct {
	SpeechID    int64  `parquet:"name=codigo_pronunciamento, type=INT64"`
	SpeakerName string `parquet:"name=nome_parlamentar, type=BYTE_ARRAY, convertedtype=UTF8"`
	Party       string `parquet:"name=sigla_partido, type=BYTE_ARRAY, convertedtype=UTF8"`
	Date        string `parquet:"name=data_pronunciamento, type=BYTE_ARRAY, convertedtype=UTF8"`
	WordCount   int32  `parquet:"name=tamanho_discurso_palavras, type=INT32"`
	Text        string `parquet:"name=texto_integral, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// FromParsedRow flattens one parser row into its artifact shape.
func FromParsedRow(row spans.Row) SpanRow {
	out := SpanRow{CustomID: row.CustomID}
	if row.SpeechIDOK {
		id := row.SpeechID
		out.SpeechID = &id
	}
	if row.Span != nil {
		sp := row.Span
		start := int32(sp.StartChar)
		end := int32(sp.EndChar)
		conf := sp.Confidence
		out.Label = &sp.Label
		out.StartChar = &start
		out.EndChar = &end
		out.Text = &sp.Text
		out.Rationale = sp.Rationale
		out.Cues = sp.Cues
		out.Confidence = &conf
	}
	if row.FreeText != "" {
		text := row.FreeText
		out.FreeText = &text
	}
	if row.ParseError != "" {
		msg := row.ParseError
		out.ParseError = &msg
	}
	return out
}

// FromSampledSpeech builds a metadata row, deriving the word count used
// later for density normalization.
func FromSampledSpeech(speech corpus.SampledSpeech) MetaRow {
	return MetaRow{
		SpeechID:    speech.SpeechID,
		SpeakerName: speech.SpeakerName,
		Party:       speech.Party,
		Date:        speech.Date,
		WordCount:   int32(corpus.WordCount(speech.Text)),
		Text:        speech.Text,
	}
}

// WriteSpans writes the spans-long artifact, replacing any existing file.
func WriteSpans(path string, rows []SpanRow) error {
	return writeParquet(path, new(SpanRow), func(pw *writer.ParquetWriter) error {
		for i, row := range rows {
			if err := pw.Write(row); err != nil {
				return fmt.Errorf("write span row %d: %w", i, err)
			}
		}
		return nil
	})
}

// ReadSpans loads the spans-long artifact.
func ReadSpans(path string) ([]SpanRow, error) {
	var rows []SpanRow
	if err := readParquet(path, new(SpanRow), func(pr *reader.ParquetReader) error {
		rows = make([]SpanRow, pr.GetNumRows())
		return pr.Read(&rows)
	}); err != nil {
		return nil, err
	}
	return rows, nil
}

// WriteMeta writes the speech-metadata artifact, replacing any existing
// file.
func WriteMeta(path string, rows []MetaRow) error {
	return writeParquet(path, new(MetaRow), func(pw *writer.ParquetWriter) error {
		for i, row := range rows {
			if err := pw.Write(row); err != nil {
				return fmt.Errorf("write meta row %d: %w", i, err)
			}
		}
		return nil
	})
}

// ReadMeta loads the speech-metadata artifact.
func ReadMeta(path string) ([]MetaRow, error) {
	var rows []MetaRow
	if err := readParquet(path, new(MetaRow), func(pr *reader.ParquetReader) error {
		rows = make([]MetaRow, pr.GetNumRows())
		return pr.Read(&rows)
	}); err != nil {
		return nil, err
	}
	return rows, nil
}

func writeParquet(path string, schema any, fill func(*writer.ParquetWriter) error) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet file %q: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, schema, 2)
	if err != nil {
		return fmt.Errorf("open parquet writer %q: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	if err := fill(pw); err != nil {
		return err
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file %q: %w", path, err)
	}
	return nil
}

func readParquet(path string, schema any, load func(*reader.ParquetReader) error) error {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return fmt.Errorf("open parquet file %q: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, schema, 2)
	if err != nil {
		return fmt.Errorf("open parquet reader %q: %w", path, err)
	}
	defer pr.ReadStop()

	return load(pr)
}
