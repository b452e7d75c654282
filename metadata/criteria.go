package metadata

import (
	"fmt"
	"strings"

	"kheops-album-tools/utils"
)

// ReadCriteriaCSV reads a CSV file with a header row and returns one Criteria
// per data row, in file order. Blank cells are left out of the row's criteria.
func ReadCriteriaCSV(path string) ([]Criteria, error) {
	var header []string
	rows := make([]Criteria, 0)

	err := utils.ReadCSVByLines(path, func(items []string) {
		if header == nil {
			header = make([]string, len(items))
			for i := range items {
				header[i] = strings.TrimSpace(strings.TrimPrefix(items[i], "\ufeff"))
			}
			return
		}

		criteria := make(Criteria)
		for i, cell := range items {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if value := strings.TrimSpace(cell); value != "" {
				criteria[header[i]] = value
			}
		}
		rows = append(rows, criteria)
	})
	if err != nil {
		return nil, fmt.Errorf("metadata: reading criteria %s: %w", path, err)
	}
	if header == nil {
		return nil, fmt.Errorf("metadata: criteria file %s has no header row", path)
	}

	return rows, nil
}
