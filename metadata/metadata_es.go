package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kheops-album-tools/entities"
	"kheops-album-tools/utils"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"go.uber.org/zap"
)

const (
	esPageSize        = 1000
	esScrollKeepAlive = time.Minute
)

// ESStore serves metadata records indexed in Elasticsearch under
// "<prefix>_*" indices.
type ESStore struct {
	esClient    *elasticsearch.Client
	indexPrefix string
	logger      *zap.Logger
}

func NewESStore(es *elasticsearch.Client, indexPrefix string, logger *zap.Logger) *ESStore {
	return &ESStore{
		es, indexPrefix, logger,
	}
}

func NewESStoreFromAddresses(addresses []string, indexPrefix string, logger *zap.Logger) (*ESStore, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("metadata: creating elasticsearch client: %w", err)
	}
	return NewESStore(es, indexPrefix, logger), nil
}

func getIndexWildcard(indexPrefix string) string {
	return fmt.Sprintf("%s_*", indexPrefix)
}

// decodePage reads one search or scroll response.
func (store *ESStore) decodePage(res *esapi.Response) ([]Record, *entities.ESReturn, error) {
	var (
		esReturn entities.ESReturn
		esError  entities.ESError
	)

	if res.IsError() {
		if err := json.NewDecoder(res.Body).Decode(&esError); err != nil {
			return nil, nil, fmt.Errorf("Error parsing the response body: %s", err)
		}
		return nil, nil, fmt.Errorf("[%s] %s: %s", res.Status(), esError.Error.Type, esError.Error.Reason)
	}

	if err := json.NewDecoder(res.Body).Decode(&esReturn); err != nil {
		return nil, nil, fmt.Errorf("Error parsing the response body: %s", err)
	}

	store.logger.Debug("metadata search",
		zap.String("status", res.Status()),
		zap.Int("hits", esReturn.Hits.Total.Value),
		zap.Int("page", len(esReturn.Hits.Hits)),
		zap.Int("took_ms", esReturn.Took))

	records := make([]Record, 0, len(esReturn.Hits.Hits))
	for _, hit := range esReturn.Hits.Hits {
		records = append(records, Record(hit.Source))
	}
	return records, &esReturn, nil
}

// openScroll runs the query and returns its first page along with a scroll
// cursor for the following ones.
func (store *ESStore) openScroll(ctx context.Context, criteria Criteria) ([]Record, *entities.ESReturn, error) {
	es := store.esClient

	var buf bytes.Buffer
	body := utils.ConvertCriteriaToESQueryBody(criteria, -1, esPageSize)
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, fmt.Errorf("Error encoding query: %s", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(getIndexWildcard(store.indexPrefix)),
		es.Search.WithBody(&buf),
		es.Search.WithScroll(esScrollKeepAlive),
		es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("metadata: search: %w", err)
	}
	defer res.Body.Close()
	return store.decodePage(res)
}

func (store *ESStore) nextScroll(ctx context.Context, scrollID string) ([]Record, *entities.ESReturn, error) {
	es := store.esClient
	res, err := es.Scroll(
		es.Scroll.WithContext(ctx),
		es.Scroll.WithScrollID(scrollID),
		es.Scroll.WithScroll(esScrollKeepAlive),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("metadata: scroll: %w", err)
	}
	defer res.Body.Close()
	return store.decodePage(res)
}

func (store *ESStore) clearScroll(scrollID string) {
	es := store.esClient
	res, err := es.ClearScroll(es.ClearScroll.WithScrollID(scrollID))
	if err != nil {
		store.logger.Warn("cannot clear scroll", zap.Error(err))
		return
	}
	res.Body.Close()
}

// Find scrolls through every record matching criteria.
func (store *ESStore) Find(ctx context.Context, criteria Criteria) ([]Record, error) {
	page, esReturn, err := store.openScroll(ctx, criteria)
	if err != nil {
		return nil, err
	}
	scrollID := esReturn.ScrollID
	defer func() {
		if scrollID != "" {
			store.clearScroll(scrollID)
		}
	}()

	records := make([]Record, 0, len(page))
	for {
		records = append(records, page...)
		if len(page) < esPageSize || scrollID == "" {
			break
		}
		page, esReturn, err = store.nextScroll(ctx, scrollID)
		if err != nil {
			return nil, err
		}
		if esReturn.ScrollID != "" {
			scrollID = esReturn.ScrollID
		}
	}
	return records, nil
}

func (store *ESStore) Close(ctx context.Context) error {
	return nil
}
