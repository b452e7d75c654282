// Package dicomfile decides whether a file is DICOM and reads the instance
// identifiers embedded in it.
package dicomfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"kheops-album-tools/entities"
	"kheops-album-tools/utils"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	preambleLength = 128
	magicWord      = "DICM"
)

var Extensions = []string{".dcm", ".dicom"}

var ErrNoStudyInstanceUID = errors.New("dicomfile: no StudyInstanceUID element")

// Reader is what the subset extractor needs from a DICOM parser.
type Reader interface {
	Sniff(path string) (bool, error)
	ReadStudyInstanceUID(path string) (string, error)
}

// FileReader reads DICOM files from the local filesystem.
type FileReader struct{}

func NewFileReader() *FileReader {
	return &FileReader{}
}

func (r *FileReader) Sniff(path string) (bool, error) {
	return Sniff(path)
}

func (r *FileReader) ReadStudyInstanceUID(path string) (string, error) {
	return ReadStudyInstanceUID(path)
}

// Sniff reports whether path looks like a DICOM file, either by extension or
// by the magic word following the 128 byte preamble.
func Sniff(path string) (bool, error) {
	if utils.HasAnySuffix(path, Extensions...) {
		return true, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, preambleLength+len(magicWord))
	_, err = io.ReadFull(f, header)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(header[preambleLength:]) == magicWord, nil
}

// ReadMeta parses the file and returns its instance identifiers.
func ReadMeta(path string) (*entities.MetaData, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("dicomfile: parsing %s: %w", path, err)
	}

	return &entities.MetaData{
		StudyInstanceUID:  firstString(ds, tag.StudyInstanceUID),
		SeriesInstanceUID: firstString(ds, tag.SeriesInstanceUID),
		SOPInstanceUID:    firstString(ds, tag.SOPInstanceUID),
		PatientID:         firstString(ds, tag.PatientID),
		Modality:          firstString(ds, tag.Modality),
	}, nil
}

func ReadStudyInstanceUID(path string) (string, error) {
	meta, err := ReadMeta(path)
	if err != nil {
		return "", err
	}
	if meta.StudyInstanceUID == "" {
		return "", fmt.Errorf("%w in %s", ErrNoStudyInstanceUID, path)
	}
	return meta.StudyInstanceUID, nil
}

func firstString(ds dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem.Value == nil {
		return ""
	}
	strs, ok := elem.Value.GetValue().([]string)
	if !ok || len(strs) == 0 {
		return ""
	}
	return utils.TrimDICOMString(strs[0])
}
