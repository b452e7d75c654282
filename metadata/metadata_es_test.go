package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type kvStr2Inf = map[string]interface{}

func newFakeES(t *testing.T, status int, payload interface{}, seen *kvStr2Inf, index *string) *httptest.Server {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Any("/:index/_search", func(c *gin.Context) {
		*index = c.Param("index")
		body, _ := ioutil.ReadAll(c.Request.Body)
		json.Unmarshal(body, seen)
		c.JSON(status, payload)
	})
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func TestESStoreFind(t *testing.T) {
	seen := kvStr2Inf{}
	index := ""
	srv := newFakeES(t, http.StatusOK, kvStr2Inf{
		"took": 3,
		"hits": kvStr2Inf{
			"total": kvStr2Inf{"value": 2, "relation": "eq"},
			"hits": []kvStr2Inf{
				{"_id": "a", "_source": kvStr2Inf{"StudyInstanceUID": "study1", "PatientName": "John Doe"}},
				{"_id": "b", "_source": kvStr2Inf{"StudyInstanceUID": "study2", "PatientName": "John Doe"}},
			},
		},
	}, &seen, &index)

	store, err := NewESStoreFromAddresses([]string{srv.URL}, "dicom", zap.NewNop())
	require.NoError(t, err)

	records, err := store.Find(context.Background(), Criteria{"PatientName": "John Doe"})
	require.NoError(t, err)
	assert.Equal(t, "dicom_*", index)
	assert.Equal(t, map[string]bool{"study1": true, "study2": true}, StudyInstanceUIDs(records))

	filter := seen["query"].(kvStr2Inf)["bool"].(kvStr2Inf)["filter"].([]interface{})
	require.Len(t, filter, 1)
	term := filter[0].(kvStr2Inf)["term"].(kvStr2Inf)
	assert.Equal(t, "John Doe", term["PatientName.keyword"])
	assert.NoError(t, store.Close(context.Background()))
}

func TestESStoreError(t *testing.T) {
	seen := kvStr2Inf{}
	index := ""
	srv := newFakeES(t, http.StatusBadRequest, kvStr2Inf{
		"status": 400,
		"error":  kvStr2Inf{"type": "parsing_exception", "reason": "unknown query"},
	}, &seen, &index)

	store, err := NewESStoreFromAddresses([]string{srv.URL}, "dicom", zap.NewNop())
	require.NoError(t, err)

	_, err = store.Find(context.Background(), Criteria{"PatientName": "John Doe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing_exception")
}

// scrollingES serves total documents and rejects from+size beyond the
// default result window, like a real cluster.
type scrollingES struct {
	total    int
	window   int
	cursor   int
	scrolls  int
	cleared  bool
	pageSize int
}

func (f *scrollingES) page(c *gin.Context, size int) {
	hits := make([]kvStr2Inf, 0, size)
	for i := f.cursor; i < f.total && len(hits) < size; i++ {
		hits = append(hits, kvStr2Inf{
			"_id":     fmt.Sprintf("doc%d", i),
			"_source": kvStr2Inf{"StudyInstanceUID": fmt.Sprintf("study%d", i/100), "Modality": "CT"},
		})
	}
	f.cursor += len(hits)
	c.JSON(http.StatusOK, kvStr2Inf{
		"_scroll_id": fmt.Sprintf("scroll-%d", f.cursor),
		"took":       1,
		"hits": kvStr2Inf{
			"total": kvStr2Inf{"value": f.total, "relation": "eq"},
			"hits":  hits,
		},
	})
}

func (f *scrollingES) handle(c *gin.Context) {
	path := c.Param("path")
	body, _ := ioutil.ReadAll(c.Request.Body)
	request := kvStr2Inf{}
	json.Unmarshal(body, &request)

	switch {
	case strings.HasPrefix(path, "/_search/scroll") && c.Request.Method == http.MethodDelete:
		f.cleared = true
		c.JSON(http.StatusOK, kvStr2Inf{"succeeded": true})

	case strings.HasPrefix(path, "/_search/scroll"):
		f.scrolls++
		f.page(c, f.pageSize)

	case strings.HasSuffix(path, "/_search"):
		from, size := 0, 10
		if v, ok := request["from"].(float64); ok {
			from = int(v)
		}
		if v, ok := request["size"].(float64); ok {
			size = int(v)
		}
		if from+size > f.window {
			c.JSON(http.StatusBadRequest, kvStr2Inf{
				"status": 400,
				"error": kvStr2Inf{
					"type":   "illegal_argument_exception",
					"reason": "Result window is too large",
				},
			})
			return
		}
		f.cursor = from
		f.pageSize = size
		f.page(c, size)

	default:
		c.Status(http.StatusNotFound)
	}
}

func TestESStoreFindBeyondResultWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &scrollingES{total: 12000, window: 10000}
	engine := gin.New()
	engine.Any("/*path", fake.handle)
	srv := httptest.NewServer(engine)
	defer srv.Close()

	store, err := NewESStoreFromAddresses([]string{srv.URL}, "dicom", zap.NewNop())
	require.NoError(t, err)

	records, err := store.Find(context.Background(), Criteria{"Modality": "CT"})
	require.NoError(t, err)
	assert.Len(t, records, 12000)
	assert.Len(t, StudyInstanceUIDs(records), 120)
	assert.Equal(t, 12000/esPageSize, fake.scrolls)
	assert.True(t, fake.cleared)
}
