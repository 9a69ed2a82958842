package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/robby/reviewr/internal/domain"
	"github.com/robby/reviewr/internal/platform"
	"github.com/xuri/excelize/v2"
)

// Export is everything an XLSX report is built from.
type Export struct {
	Subject   string
	Days      int
	Generated time.Time
	Platforms []platform.Handle // sheet order
	Results   map[string]domain.DetailedActivities
}

type ExcelExporter struct {
	Path string
}

func NewExcelExporter(path string) *ExcelExporter {
	return &ExcelExporter{Path: path}
}

// Export writes a Dashboard sheet followed by one sheet per platform with data.
func (e *ExcelExporter) Export(in Export) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("failed to create styles: %w", err)
	}

	withData := make([]platform.Handle, 0, len(in.Platforms))
	for _, h := range in.Platforms {
		if in.Results[h.ID].TotalItems() > 0 {
			withData = append(withData, h)
		}
	}

	if err := createDashboardSheet(f, styles, in, withData); err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}
	used := map[string]bool{"dashboard": true}
	for _, h := range withData {
		name := uniqueSheetName(sanitizeSheetName(h.Name), used)
		if err := createPlatformSheet(f, styles, name, in.Results[h.ID]); err != nil {
			return fmt.Errorf("failed to create sheet for %s: %w", h.ID, err)
		}
	}

	_ = f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("Dashboard"); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(e.Path); err != nil {
		return fmt.Errorf("failed to save excel file: %w", err)
	}
	return nil
}

type sheetStyles struct {
	header, total int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "#000000", Style: 1},
		{Type: "right", Color: "#000000", Style: 1},
		{Type: "top", Color: "#000000", Style: 1},
		{Type: "bottom", Color: "#000000", Style: 1},
	}
	header, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return sheetStyles{}, err
	}
	total, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#B4C7E7"}, Pattern: 1},
		Font:   &excelize.Font{Bold: true},
		Border: border,
	})
	if err != nil {
		return sheetStyles{}, err
	}
	return sheetStyles{header: header, total: total}, nil
}

func createDashboardSheet(f *excelize.File, st sheetStyles, in Export, withData []platform.Handle) error {
	const sheet = "Dashboard"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	stats := Compute(in.Results)
	cats := stats.Categories()

	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, v)
	}
	style := func(col, row, style int) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellStyle(sheet, cell, cell, style)
	}

	rows := [][2]any{
		{"Subject:", in.Subject},
		{"Period:", fmt.Sprintf("last %d days", in.Days)},
		{"Generated:", in.Generated.Format("2006-01-02 15:04")},
	}
	for i, r := range rows {
		if err := set(1, i+1, r[0]); err != nil {
			return err
		}
		if err := set(2, i+1, r[1]); err != nil {
			return err
		}
	}

	row := 5
	headers := []string{"Platform"}
	for _, c := range cats {
		headers = append(headers, c.DisplayName())
	}
	headers = append(headers, "Total")
	for i, h := range headers {
		if err := set(i+1, row, h); err != nil {
			return err
		}
		if err := style(i+1, row, st.header); err != nil {
			return err
		}
	}

	for _, h := range withData {
		row++
		d := in.Results[h.ID]
		if err := set(1, row, h.Name); err != nil {
			return err
		}
		for i, c := range cats {
			if err := set(i+2, row, len(d.Items(c))); err != nil {
				return err
			}
		}
		if err := set(len(cats)+2, row, d.TotalItems()); err != nil {
			return err
		}
	}

	row++
	if err := set(1, row, "Total"); err != nil {
		return err
	}
	for i, c := range cats {
		if err := set(i+2, row, stats.ByCategory[c]); err != nil {
			return err
		}
	}
	if err := set(len(cats)+2, row, stats.Total); err != nil {
		return err
	}
	for col := 1; col <= len(cats)+2; col++ {
		if err := style(col, row, st.total); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "A", 24)
}

var platformHeaders = []string{"#", "Category", "ID", "Title", "Status", "Project", "Created", "Updated", "URL"}

func createPlatformSheet(f *excelize.File, st sheetStyles, sheet string, d domain.DetailedActivities) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &platformHeaders); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(platformHeaders), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, st.header); err != nil {
		return err
	}

	row, n := 2, 1
	for _, c := range d.Categories() {
		for _, item := range d.Items(c) {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []any{
				n,
				c.DisplayName(),
				item.ID,
				item.Title,
				item.Status,
				item.Project,
				formatDate(item.Created),
				formatDate(item.Updated),
				item.URL,
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return err
			}
			row++
			n++
		}
	}
	return f.SetColWidth(sheet, "D", "D", 60)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func sanitizeSheetName(name string) string {
	name = strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"?", "",
		"*", "",
		"[", "(",
		"]", ")",
	).Replace(name)
	if name == "" {
		name = "Platform"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for i := 2; used[strings.ToLower(candidate)] || used[candidate]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		r := []rune(name)
		if len(r)+len(suffix) > 31 {
			r = r[:31-len(suffix)]
		}
		candidate = string(r) + suffix
	}
	used[strings.ToLower(candidate)] = true
	used[candidate] = true
	return candidate
}
