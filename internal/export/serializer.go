package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Format identifies a supported interchange format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

// ErrUnsupportedFormat is returned for format tokens outside json/csv/xml.
type ErrUnsupportedFormat struct {
	Format string
}

func (e ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("format %q is not supported, use json, csv or xml", e.Format)
}

// ParseFormat validates a format token.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV, FormatXML:
		return Format(s), nil
	default:
		return "", ErrUnsupportedFormat{Format: s}
	}
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	return string(f)
}

// MIMEType returns the attachment MIME type for the format.
func (f Format) MIMEType() string {
	return "application/" + string(f)
}

// identifierDelimiter joins IdentifierList members in CSV cells. A literal
// delimiter inside a member is escaped as `\;` and a backslash as `\\`, so
// the join stays reversible.
const identifierDelimiter = ";"

// Render serializes a batch into the requested format. An empty batch
// produces a syntactically valid, empty document, never an error.
func Render(batch Batch, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return renderJSON(batch)
	case FormatCSV:
		return renderCSV(batch)
	case FormatXML:
		return renderXML(batch)
	default:
		return nil, ErrUnsupportedFormat{Format: string(format)}
	}
}

// renderJSON emits a pretty-printed array of objects preserving key order.
func renderJSON(batch Batch) ([]byte, error) {
	if len(batch) == 0 {
		return []byte("[]"), nil
	}
	return json.MarshalIndent(batch, "", "  ")
}

// renderCSV emits a header row built from the first record's key order, with
// keys seen only in later records appended in first-seen order. Records
// missing a key get an empty cell; columns never shift.
func renderCSV(batch Batch) ([]byte, error) {
	if len(batch) == 0 {
		return []byte{}, nil
	}

	var header []string
	seen := make(map[string]bool)
	for _, record := range batch {
		for _, key := range record.Keys() {
			if !seen[key] {
				seen[key] = true
				header = append(header, key)
			}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(header))
	for _, record := range batch {
		for i, key := range header {
			value, ok := record.Get(key)
			if !ok {
				row[i] = ""
				continue
			}
			row[i] = csvCell(value)
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// csvCell renders one FlatRecord value as CSV cell content.
func csvCell(value any) string {
	if list, ok := value.([]string); ok {
		escaped := make([]string, len(list))
		for i, member := range list {
			member = strings.ReplaceAll(member, `\`, `\\`)
			member = strings.ReplaceAll(member, identifierDelimiter, `\`+identifierDelimiter)
			escaped[i] = member
		}
		return strings.Join(escaped, identifierDelimiter)
	}
	return scalarText(value)
}

// scalarText renders a scalar value as text. Nulls become empty strings.
func scalarText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// renderXML emits one root element with one child per record and one
// grandchild per field. IdentifierList values become repeated child elements.
func renderXML(batch Batch) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "records"}}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	for _, record := range batch {
		recordEl := xml.StartElement{Name: xml.Name{Local: "record"}}
		if err := enc.EncodeToken(recordEl); err != nil {
			return nil, err
		}

		for _, key := range record.Keys() {
			value, _ := record.Get(key)
			if list, ok := value.([]string); ok {
				for _, member := range list {
					if err := encodeXMLField(enc, key, member); err != nil {
						return nil, err
					}
				}
				continue
			}
			if err := encodeXMLField(enc, key, scalarText(value)); err != nil {
				return nil, err
			}
		}

		if err := enc.EncodeToken(recordEl.End()); err != nil {
			return nil, err
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeXMLField(enc *xml.Encoder, name, text string) error {
	el := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(el); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	return enc.EncodeToken(el.End())
}
