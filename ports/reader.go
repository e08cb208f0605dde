package ports

import (
	"sheetsense/domain/table"
)

// SheetReader is the inbound file collaborator: it opens an uploaded file and
// delivers one resolved 2-D cell grid per sheet, with formulas already
// evaluated to their last computed value.
type SheetReader interface {
	// ReadSheets returns every sheet's raw grid plus file metadata.
	ReadSheets(path string) ([]table.RawSheet, table.FileMeta, error)
}
