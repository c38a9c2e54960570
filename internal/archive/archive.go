package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pinpt/go-common/v10/fileutil"
)

// ZipDir bundles all files under dir matching pattern into a zip archive at
// filename, preserving paths relative to dir. Returns the number of bundled
// files.
func ZipDir(filename string, dir string, pattern *regexp.Regexp) (int, error) {
	filenames, err := fileutil.FindFiles(dir, pattern)
	if err != nil {
		return 0, err
	}
	newZipFile, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer newZipFile.Close()

	zipWriter := zip.NewWriter(newZipFile)
	defer zipWriter.Close()

	var count int
	for _, file := range filenames {
		stat, err := os.Stat(file)
		if err != nil {
			return 0, err
		}
		if stat.IsDir() {
			continue
		}
		if err := addFileToZip(zipWriter, dir, file); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

func addFileToZip(zipWriter *zip.Writer, dir string, filename string) error {
	fileToZip, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer fileToZip.Close()

	info, err := fileToZip.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	// FileInfoHeader only uses the basename; keep the folder structure
	// relative to dir
	header.Name, _ = filepath.Rel(dir, filename)
	header.Method = zip.Deflate

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(writer, fileToZip)
	return err
}
