package uploads

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogicalType(t *testing.T) {
	tests := []struct {
		filename, format, resourceType string
		want                           string
	}{
		{"scan.PDF", "", "image", TypeDocument},
		{"scan", "pdf", "image", TypeDocument},
		{"photo.png", "png", "image", TypeImage},
		{"clip.mp4", "mp4", "video", TypeVideo},
		{"letter.docx", "docx", "raw", TypeDocument},
		{"notes.txt", "TXT", "raw", TypeDocument},
		{"budget.xlsx", "xlsx", "raw", TypeSpreadsheet},
		{"data.csv", "csv", "raw", TypeSpreadsheet},
		{"deck.pptx", "pptx", "raw", TypePresentation},
		{"model.stl", "stl", "raw", "stl"},
		{"blob", "", "raw", TypeFile},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, LogicalType(tt.filename, tt.format, tt.resourceType))
		})
	}
}
