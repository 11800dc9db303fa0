package handler

import (
	"errors"
	"io"
	"mime/multipart"

	"pharmgpt/internal/pkg/pdfextract"
)

var errUnsupportedFileType = errors.New("unsupported file type (allowed: .pdf, .txt, .md)")

// extractUpload returns the plain text of an uploaded file and its
// normalized file type.
func extractUpload(file *multipart.FileHeader, ext string) (string, string, error) {
	f, err := file.Open()
	if err != nil {
		return "", "", errors.New("failed to read file")
	}
	defer f.Close()

	switch ext {
	case ".pdf":
		text, err := pdfextract.ExtractText(f)
		if err != nil {
			return "", "", errors.New("failed to extract text from PDF: " + err.Error())
		}
		return text, "pdf", nil
	case ".txt", ".md":
		raw, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
		if err != nil {
			return "", "", errors.New("failed to read file")
		}
		fileType := "txt"
		if ext == ".md" {
			fileType = "md"
		}
		return string(raw), fileType, nil
	default:
		return "", "", errUnsupportedFileType
	}
}
