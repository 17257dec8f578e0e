package view

import (
	"path/filepath"
	"strings"
)

// DocumentType is the coarse category of a knowledge-base file.
type DocumentType string

const (
	DocPDF   DocumentType = "pdf"
	DocCSV   DocumentType = "csv"
	DocText  DocumentType = "txt"
	DocMD    DocumentType = "md"
	DocOther DocumentType = "other"
)

// AcceptedExtensions lists what the upload flow offers.
var AcceptedExtensions = []string{".pdf", ".csv", ".txt", ".md"}

// ClassifyDocument maps a filename's extension to a DocumentType,
// ignoring case. No extension or an unknown one is DocOther.
func ClassifyDocument(filename string) DocumentType {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "pdf":
		return DocPDF
	case "csv":
		return DocCSV
	case "txt":
		return DocText
	case "md":
		return DocMD
	default:
		return DocOther
	}
}

// DocumentBadge is the label shown next to a document.
func DocumentBadge(t DocumentType) string {
	switch t {
	case DocPDF:
		return "PDF"
	case DocCSV:
		return "CSV"
	case DocText:
		return "Text"
	case DocMD:
		return "Markdown"
	default:
		return "Document"
	}
}

// Accepted reports whether filename has one of AcceptedExtensions.
func Accepted(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range AcceptedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}
