package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/ka2n/jobharvest/api/record"
)

// CSV writes RFC 4180 rows with a header, atomically
type CSV struct{}

var _ Writer = CSV{}

func (CSV) Write(ctx context.Context, records []record.Normalized, dest string) (int64, error) {
	return writeAtomic(ctx, dest, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(Columns); err != nil {
			return err
		}
		for _, r := range records {
			if err := cw.Write(Row(r)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// JSON writes an indented array of records, atomically
type JSON struct{}

var _ Writer = JSON{}

func (JSON) Write(ctx context.Context, records []record.Normalized, dest string) (int64, error) {
	if records == nil {
		records = []record.Normalized{}
	}
	return writeAtomic(ctx, dest, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(records)
	})
}
