package uploads

import (
	"strings"

	"printdock.app/api/internal/storage"
)

const (
	TypeImage        = "image"
	TypeVideo        = "video"
	TypeDocument     = "document"
	TypeSpreadsheet  = "spreadsheet"
	TypePresentation = "presentation"
	TypeFile         = "file"
)

var rawFormatTypes = map[string]string{
	"pdf":  TypeDocument,
	"doc":  TypeDocument,
	"docx": TypeDocument,
	"txt":  TypeDocument,
	"xls":  TypeSpreadsheet,
	"xlsx": TypeSpreadsheet,
	"csv":  TypeSpreadsheet,
	"ppt":  TypePresentation,
	"pptx": TypePresentation,
}

// LogicalType classifies a stored object for display. A PDF is a document whatever the
// store reports; otherwise the resource type decides, and raw objects fall back to
// their format.
func LogicalType(filename, format, resourceType string) string {
	format = strings.ToLower(format)
	if storage.Extension(filename) == "pdf" || format == "pdf" {
		return TypeDocument
	}
	switch resourceType {
	case storage.ResourceImage:
		return TypeImage
	case storage.ResourceVideo:
		return TypeVideo
	case storage.ResourceRaw:
		if t, ok := rawFormatTypes[format]; ok {
			return t
		}
	}
	if format != "" {
		return format
	}
	return TypeFile
}
