// Package metadata queries the DICOM metadata store that drives subset
// extraction.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"

	"kheops-album-tools/config"
	"kheops-album-tools/constants"
	"kheops-album-tools/utils"

	"go.uber.org/zap"
)

// Record is one metadata document as returned by the store.
type Record map[string]interface{}

// Criteria maps field names to the value they must equal.
type Criteria map[string]string

type Store interface {
	Find(ctx context.Context, criteria Criteria) ([]Record, error)
	Close(ctx context.Context) error
}

func (r Record) String() string {
	return utils.ConvertMapToString(r)
}

// StudyInstanceUID returns the record's study identifier, or "" when the
// field is absent or not a string.
func (r Record) StudyInstanceUID() string {
	if v, ok := r[constants.FieldStudyInstanceUID].(string); ok {
		return v
	}
	return ""
}

func (c Criteria) String() string {
	b, _ := json.Marshal(c)
	return string(b)
}

// StudyInstanceUIDs collects the distinct study identifiers of records.
func StudyInstanceUIDs(records []Record) map[string]bool {
	uids := make(map[string]bool)
	for _, record := range records {
		if uid := record.StudyInstanceUID(); uid != "" {
			uids[uid] = true
		}
	}
	return uids
}

// Open connects to the backend selected by mc.
func Open(ctx context.Context, mc *config.MetadataConfig, logger *zap.Logger) (Store, error) {
	switch mc.Backend {
	case constants.BackendMongo:
		return ConnectMongo(ctx, mc.MongoURI, mc.Database, mc.Collection, logger)
	case constants.BackendElasticsearch:
		return NewESStoreFromAddresses(mc.ESAddresses, mc.IndexPrefix, logger)
	}
	return nil, fmt.Errorf("metadata: unknown backend %q", mc.Backend)
}
