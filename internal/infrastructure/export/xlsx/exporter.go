package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

const sheetName = "Tarefas"

var header = []any{
	"Processo", "Pasta", "Evento", "Providência", "Status", "Prioridade", "Data limite", "Responsável", "Revisor",
}

// Exporter renders the task queue as an XLSX workbook.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) WriteTasks(w io.Writer, tasks []domain.Task) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRow(f, 1, header); err != nil {
		return err
	}
	for i, task := range tasks {
		if err := writeRow(f, i+2, taskRow(task)); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetName, "A", "A", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "I", 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func taskRow(task domain.Task) []any {
	due := ""
	if task.DueDate != nil {
		due = task.DueDate.Format("02/01/2006")
	}
	return []any{
		task.Lawsuit.Number,
		task.Lawsuit.Folder,
		task.Event.Name,
		task.Action.Name,
		string(task.Status.Name),
		string(task.Priority),
		due,
		refName(task.Assignee),
		refName(task.Reviewer),
	}
}

func refName(ref *domain.NamedRef) string {
	if ref == nil {
		return ""
	}
	return ref.Name
}
