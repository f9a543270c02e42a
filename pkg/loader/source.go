package loader

import (
	"context"
	"path/filepath"
	"strings"
)

// DefaultNewsPrefix marks document ids that were split out of the news workbook.
const DefaultNewsPrefix = "news_row"

// DocumentSource resolves a document id to a loadable file.
type DocumentSource interface {
	Resolve(ctx context.Context, documentID string) (GraphFile, error)
}

// DirectorySource routes document ids to one of two directories: ids with
// the news prefix live in NewsDir, every other id in CableDir.
type DirectorySource struct {
	NewsDir    string
	CableDir   string
	NewsPrefix string
	Loader     GraphFileLoader
}

// NewDirectorySourceParams configures a DirectorySource. NewsPrefix
// defaults to DefaultNewsPrefix.
type NewDirectorySourceParams struct {
	NewsDir    string
	CableDir   string
	NewsPrefix string
	Loader     GraphFileLoader
}

func NewDirectorySource(params NewDirectorySourceParams) *DirectorySource {
	prefix := params.NewsPrefix
	if prefix == "" {
		prefix = DefaultNewsPrefix
	}
	return &DirectorySource{
		NewsDir:    params.NewsDir,
		CableDir:   params.CableDir,
		NewsPrefix: prefix,
		Loader:     params.Loader,
	}
}

// Dir returns the directory a document id resolves to.
func (s *DirectorySource) Dir(documentID string) string {
	if strings.HasPrefix(documentID, s.NewsPrefix) {
		return s.NewsDir
	}
	return s.CableDir
}

// Resolve builds the text file for documentID. Whether it exists is only
// known once it is loaded.
func (s *DirectorySource) Resolve(ctx context.Context, documentID string) (GraphFile, error) {
	return NewGraphTextFile(NewGraphFileParams{
		ID:       documentID,
		FilePath: filepath.ToSlash(filepath.Join(s.Dir(documentID), filepath.Base(documentID))),
		Loader:   s.Loader,
	}), nil
}
