// Package dicomtest writes minimal DICOM Part 10 files for tests.
package dicomtest

import (
	"bytes"
	"encoding/binary"
	"os"

	"kheops-album-tools/entities"
)

const (
	preambleLength         = 128
	magicWord              = "DICM"
	explicitVRLittleEndian = "1.2.840.10008.1.2.1"
)

type element struct {
	group, elem uint16
	vr          string
	value       string
}

func (e element) encode(buf *bytes.Buffer) {
	value := e.value
	if len(value)%2 == 1 {
		if e.vr == "UI" {
			value += "\x00"
		} else {
			value += " "
		}
	}
	binary.Write(buf, binary.LittleEndian, e.group)
	binary.Write(buf, binary.LittleEndian, e.elem)
	buf.WriteString(e.vr)
	binary.Write(buf, binary.LittleEndian, uint16(len(value)))
	buf.WriteString(value)
}

// EncodeFile returns a minimal Part 10 file in explicit VR little endian
// carrying the identifiers of meta. Empty fields are omitted.
func EncodeFile(meta entities.MetaData) []byte {
	var metaGroup bytes.Buffer
	element{0x0002, 0x0010, "UI", explicitVRLittleEndian}.encode(&metaGroup)

	var buf bytes.Buffer
	buf.Write(make([]byte, preambleLength))
	buf.WriteString(magicWord)
	binary.Write(&buf, binary.LittleEndian, uint16(0x0002))
	binary.Write(&buf, binary.LittleEndian, uint16(0x0000))
	buf.WriteString("UL")
	binary.Write(&buf, binary.LittleEndian, uint16(4))
	binary.Write(&buf, binary.LittleEndian, uint32(metaGroup.Len()))
	buf.Write(metaGroup.Bytes())

	elements := []element{
		{0x0008, 0x0018, "UI", meta.SOPInstanceUID},
		{0x0008, 0x0060, "CS", meta.Modality},
		{0x0010, 0x0020, "LO", meta.PatientID},
		{0x0020, 0x000D, "UI", meta.StudyInstanceUID},
		{0x0020, 0x000E, "UI", meta.SeriesInstanceUID},
	}
	for _, e := range elements {
		if e.value != "" {
			e.encode(&buf)
		}
	}
	return buf.Bytes()
}

func WriteFile(path string, meta entities.MetaData) error {
	return os.WriteFile(path, EncodeFile(meta), 0o644)
}
