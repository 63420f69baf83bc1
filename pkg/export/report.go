package export

import (
	"fmt"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/meshutil"
	"github.com/chazu/chopit/pkg/scene"
	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

// ReportSheet is the name of the fragment report worksheet.
const ReportSheet = "Fragments"

// Row is one line of the fragment report.
type Row struct {
	Name   string
	Color  string
	Size   [3]float64 // bounding box extent
	Volume float64
	Fits   bool // fits the printer build volume as oriented
}

// Rows measures objs against a cubic build volume of side printer.
func Rows(k kernel.Kernel, objs []*scene.Object, printer float64) []Row {
	return lo.Map(objs, func(o *scene.Object, _ int) Row {
		d := meshutil.Dimensions(o.Solid)
		return Row{
			Name:   o.Name,
			Color:  o.Color,
			Size:   d,
			Volume: k.Volume(o.Solid),
			Fits:   d[0] <= printer && d[1] <= printer && d[2] <= printer,
		}
	})
}

var reportHeader = []any{"Name", "Color", "X (mm)", "Y (mm)", "Z (mm)", "Volume (mm³)", "Fits"}

// WriteReport writes rows as an XLSX workbook, one fragment per row under
// a header, followed by a total volume row.
func WriteReport(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ReportSheet); err != nil {
		return fmt.Errorf("export: report: %w", err)
	}

	if err := setRow(f, 1, reportHeader); err != nil {
		return err
	}
	for i, r := range rows {
		fits := "yes"
		if !r.Fits {
			fits = "no"
		}
		err := setRow(f, i+2, []any{r.Name, r.Color, r.Size[0], r.Size[1], r.Size[2], r.Volume, fits})
		if err != nil {
			return err
		}
	}
	total := lo.SumBy(rows, func(r Row) float64 { return r.Volume })
	if err := setRow(f, len(rows)+2, []any{"Total", "", "", "", "", total}); err != nil {
		return err
	}
	if err := f.SetColWidth(ReportSheet, "A", "A", 24); err != nil {
		return fmt.Errorf("export: report: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: report: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("export: report: %w", err)
		}
		if err := f.SetCellValue(ReportSheet, cell, v); err != nil {
			return fmt.Errorf("export: report: %w", err)
		}
	}
	return nil
}
