package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

func ConvertMapToString(m map[string]interface{}) string {
	jsonString, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("%v", m)
	}
	return string(jsonString)
}

// JoinURL joins a base address and path segments with single slashes.
func JoinURL(base string, segments ...string) string {
	parts := []string{strings.TrimRight(base, "/")}
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// TrimDICOMString strips the space and NUL padding DICOM puts on odd-length values.
func TrimDICOMString(s string) string {
	return strings.TrimRight(s, " \x00")
}
