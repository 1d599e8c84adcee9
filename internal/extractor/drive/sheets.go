package drive

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"askdoc/internal/logger"
)

// sheetText reads every sheet of a spreadsheet. Each sheet becomes a
// "Sheet: <title>" line followed by its rows with tab-separated cells.
func (e *Extractor) sheetText(ctx context.Context, opts []option.ClientOption, spreadsheetID string) (string, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create sheets service: %w", err)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}
	ss, err := svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		e.observe(err)
		return "", wrapError(spreadsheetID, err)
	}

	var b strings.Builder
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		title := sh.Properties.Title
		if err := e.limiter.Wait(ctx); err != nil {
			return "", err
		}
		vr, err := svc.Spreadsheets.Values.Get(spreadsheetID, sheetRange(title)).
			MajorDimension("ROWS").
			Context(ctx).
			Do()
		if err != nil {
			e.observe(err)
			logger.Warn("Skipping sheet %q of %s: %v", title, spreadsheetID, err)
			continue
		}
		b.WriteString("Sheet: " + title + "\n")
		for i, row := range vr.Values {
			if i > 0 {
				b.WriteString("\n")
			}
			cells := make([]string, len(row))
			for j, c := range row {
				cells[j] = fmt.Sprint(c)
			}
			b.WriteString(strings.Join(cells, "\t"))
		}
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// sheetRange quotes a sheet title for use as an A1 range.
func sheetRange(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
