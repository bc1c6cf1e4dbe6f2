package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/task"
)

const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// TemplateFile is a downloadable sample batch file.
type TemplateFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Template builds a sample file with the headers of t and one example row.
func Template(t task.Type, mode Mode, format string) (TemplateFile, error) {
	mode, err := normalizeMode(mode)
	if err != nil {
		return TemplateFile{}, err
	}
	if t != task.TypeTranscription && mode == ModePipeline {
		return TemplateFile{}, apperr.Schema("pipeline mode applies to transcription batches only")
	}
	l, err := layoutFor(t, mode)
	if err != nil {
		return TemplateFile{}, err
	}

	columns := l.columns()
	example := make([]string, len(columns))
	for i, col := range columns {
		example[i] = l.example[col]
	}

	base := fmt.Sprintf("%s_%s_template", t, mode)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		data, err := csvTemplate(columns, example)
		if err != nil {
			return TemplateFile{}, err
		}
		return TemplateFile{Filename: base + ".csv", ContentType: ContentTypeCSV, Data: data}, nil
	case "xlsx":
		data, err := xlsxTemplate(columns, example)
		if err != nil {
			return TemplateFile{}, err
		}
		return TemplateFile{Filename: base + ".xlsx", ContentType: ContentTypeXLSX, Data: data}, nil
	default:
		return TemplateFile{}, apperr.Schema("invalid format: %q", format)
	}
}

func csvTemplate(columns, example []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll([][]string{columns, example}); err != nil {
		return nil, fmt.Errorf("write csv template: %w", err)
	}
	return buf.Bytes(), nil
}

func xlsxTemplate(columns, example []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Tasks"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := f.SetSheetRow(sheetName, "A1", &columns); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A2", &example); err != nil {
		return nil, fmt.Errorf("write example row: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6FA"},
			Pattern: 1,
		},
	})
	if err == nil {
		_ = f.SetRowStyle(sheetName, 1, 1, headerStyle)
	}
	for i := range columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetColWidth(sheetName, col, col, 28)
	}

	if f.GetSheetName(0) != sheetName {
		_ = f.DeleteSheet("Sheet1")
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx template: %w", err)
	}
	return buf.Bytes(), nil
}
