package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"theone-todo/internal/models"
)

// ValidFormats は ls の出力形式です。
var ValidFormats = []string{"text", "json", "yaml"}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// itemView は出力用の ToDo です。日時はストアごとに異なるので含めません。
type itemView struct {
	ID          string          `json:"id" yaml:"id"`
	OwnerName   string          `json:"owner_name" yaml:"owner_name"`
	DisplayText string          `json:"display_text" yaml:"display_text"`
	Completed   bool            `json:"completed" yaml:"completed"`
	Deadline    models.Deadline `json:"deadline" yaml:"deadline"`
}

// RenderItems は items を format で w に書き出します。
func RenderItems(w io.Writer, format string, items []models.TodoItem) error {
	views := make([]itemView, 0, len(items))
	for _, it := range items {
		views = append(views, itemView{
			ID:          it.ID,
			OwnerName:   it.OwnerName,
			DisplayText: it.DisplayText,
			Completed:   it.Completed,
			Deadline:    it.Deadline,
		})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		return renderText(w, views)
	default:
		return fmt.Errorf("invalid format %q: must be one of %v", format, ValidFormats)
	}
}

func renderText(w io.Writer, views []itemView) error {
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "nothing to do")
		return err
	}
	for _, v := range views {
		box := "[ ]"
		if v.Completed {
			box = "[x]"
		}
		if _, err := fmt.Fprintf(w, "%s %s  %s\n", box, v.ID, v.DisplayText); err != nil {
			return err
		}
	}
	return nil
}
