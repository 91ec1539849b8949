package viewer

import (
	"bytes"
	"math"

	"github.com/activecm/netgauge/table"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FormatToJSON formats every row of t as a JSON object holding the key and every column
// in column order. Missing values are null.
func FormatToJSON(t *table.Table) (string, error) {
	columns := t.Columns()
	data := make([][]float64, len(columns))
	for i, c := range columns {
		values, err := t.Column(c)
		if err != nil {
			return "", err
		}
		data[i] = values
	}

	var b bytes.Buffer
	stream := json.BorrowStream(&b)
	defer json.ReturnStream(stream)

	stream.WriteArrayStart()
	for r, key := range t.Keys() {
		if r > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectStart()
		stream.WriteObjectField(t.KeyName())
		stream.WriteString(key)
		for i, c := range columns {
			stream.WriteMore()
			stream.WriteObjectField(c)
			v := data[i][r]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				stream.WriteNil()
				continue
			}
			stream.WriteFloat64(v)
		}
		stream.WriteObjectEnd()
	}
	stream.WriteArrayEnd()

	if stream.Error != nil {
		return "", stream.Error
	}
	if err := stream.Flush(); err != nil {
		return "", err
	}
	return b.String(), nil
}
