package utils

import (
	"sort"
)

type kvStr2Inf = map[string]interface{}

// ConvertCriteriaToESQueryBody builds a bool query with one term filter per
// field. Fields are matched on their keyword sub-field.
func ConvertCriteriaToESQueryBody(criteria map[string]string, from, size int) *kvStr2Inf {
	body := kvStr2Inf{}

	if size != -1 {
		body["size"] = size
	}
	if from != -1 {
		body["from"] = from
	}

	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filter := make([]kvStr2Inf, 0)
	for _, k := range keys {
		filter = append(filter, kvStr2Inf{
			"term": kvStr2Inf{
				k + ".keyword": criteria[k],
			},
		})
	}

	body["query"] = kvStr2Inf{
		"bool": kvStr2Inf{
			"filter": filter,
		},
	}
	body["sort"] = []kvStr2Inf{
		{"_doc": kvStr2Inf{"order": "asc"}},
	}

	return &body
}
