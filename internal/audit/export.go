package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"
)

// ExportCSV renders the entries matching the filter as CSV, most useful for
// pulling a slice of the trail out of the admin screen. Pagination on the
// filter is ignored; the full match set is exported.
func ExportCSV(ctx context.Context, repo Repository, filter Filter) ([]byte, error) {
	filter.Page = 0
	filter.PageSize = 0

	entries, _, err := repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}

	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)

	header := []string{"id", "user", "ip", "category", "sub_category", "action", "result", "date"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, e := range entries {
		actor := ""
		if e.Actor != nil {
			actor = *e.Actor
		}
		ip := ""
		if e.IP != nil {
			ip = IntToIP(*e.IP)
		}
		row := []string{
			fmt.Sprintf("%d", e.ID),
			actor,
			ip,
			e.Category,
			e.SubCategory,
			e.Action,
			e.Result.String(),
			e.Date.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
