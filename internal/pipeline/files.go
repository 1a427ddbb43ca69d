package pipeline

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveName is the file name offered for a batch download.
const ArchiveName = "generated_articles.zip"

// ErrNoDocuments is returned when a batch produced nothing to archive.
var ErrNoDocuments = errors.New("no article was generated")

var unsafeChars = strings.NewReplacer(
	`\`, "", "/", "", "*", "", "?", "", ":", "",
	`"`, "", "<", "", ">", "", "|", "",
)

// SafeFilename strips characters that are invalid in file names on common
// filesystems and replaces spaces with underscores.
func SafeFilename(title string) string {
	s := strings.TrimSpace(unsafeChars.Replace(title))
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "untitled"
	}
	return s
}

// FileName returns the document name for the row at 0-based index.
func FileName(title string, index int) string {
	return fmt.Sprintf("article_%s_%d.docx", SafeFilename(title), index+1)
}

// WriteArchive zips files into w under their base names.
func WriteArchive(w io.Writer, files []string) error {
	if len(files) == 0 {
		return ErrNoDocuments
	}

	zw := zip.NewWriter(w)
	for _, path := range files {
		if err := addFile(zw, path); err != nil {
			_ = zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// WriteArchiveFile writes the archive to path.
func WriteArchiveFile(path string, files []string) error {
	if len(files) == 0 {
		return ErrNoDocuments
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	if err := WriteArchive(f, files); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("archive header %s: %w", path, err)
	}
	hdr.Name = filepath.Base(path)
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("archive entry %s: %w", path, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("archive copy %s: %w", path, err)
	}
	return nil
}
