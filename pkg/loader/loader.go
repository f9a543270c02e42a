package loader

import (
	"context"
	"errors"
)

// ErrNotFound is returned by loaders when the requested file does not exist.
var ErrNotFound = errors.New("file not found")

type GraphFileType string

const (
	GraphFileTypeText  GraphFileType = "text"
	GraphFileTypePDF   GraphFileType = "pdf"
	GraphFileTypeSheet GraphFileType = "sheet"
)

// GraphFile is a document that feeds the graph. ID is the document id
// entities refer to (the text file name); FilePath is where the loader finds it.
//
// The actual file content is retrieved via the associated GraphFileLoader.
type GraphFile struct {
	ID       string
	FilePath string
	FileType GraphFileType
	Loader   GraphFileLoader
}

// NewGraphFileParams defines the input parameters for creating a new GraphFile.
type NewGraphFileParams struct {
	ID       string
	FilePath string
	Loader   GraphFileLoader
}

// NewGraphTextFile creates a GraphFile for an extracted plain text document.
func NewGraphTextFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		FileType: GraphFileTypeText,
		Loader:   params.Loader,
	}
}

// NewGraphPDFFile creates a GraphFile for a PDF report.
func NewGraphPDFFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		FileType: GraphFileTypePDF,
		Loader:   params.Loader,
	}
}

// NewGraphSheetFile creates a GraphFile for a spreadsheet workbook.
func NewGraphSheetFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		FileType: GraphFileTypeSheet,
		Loader:   params.Loader,
	}
}

// GetText retrieves the raw text content of the file using its Loader.
//
// Example:
//
//	text, err := file.GetText(ctx)
//	if errors.Is(err, loader.ErrNotFound) {
//		// skip the document
//	}
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	return f.Loader.GetFileText(ctx, *f)
}

// GraphFileLoader defines the interface for loading the contents of a GraphFile.
// Implementations may load files from disk, cloud storage, or decode another
// loader's bytes.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}

// CacheKey generates a unique cache key for a GraphFile based on its ID and path.
func CacheKey(file GraphFile) string {
	return file.ID + ":" + file.FilePath
}
