// Package album talks to the KHEOPS album service. Every call sends exactly
// one request and maps the status code to a typed result.
package album

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kheops-album-tools/auth"
	"kheops-album-tools/constants"
	"kheops-album-tools/utils"

	"github.com/gojektech/heimdall/v6/httpclient"
	"go.uber.org/zap"
)

const (
	opCreateAlbum      = "create album"
	opListAlbums       = "list albums"
	opGetAlbum         = "get album"
	opEditAlbum        = "edit album"
	opDeleteAlbum      = "delete album"
	opAddStudy         = "add study"
	opAddSeries        = "add series"
	opRemoveStudy      = "remove study"
	opUploadInstance   = "upload instance"
	opCreateCapability = "create capability"
)

var (
	// Only 404 has its own message when creating an album.
	createAlbumReasons = reasons{
		OutcomeInvalidParams: "album creation failed",
		OutcomeUnauthorized:  "album creation failed",
		OutcomeForbidden:     "album creation failed",
		OutcomeNotFound:      "user not found",
		OutcomeOther:         "album creation failed",
	}
	albumReasons = reasons{
		OutcomeForbidden: "not allowed on this album",
		OutcomeNotFound:  "album not found",
	}
	editAlbumReasons = reasons{
		OutcomeInvalidParams: "invalid album name or description",
		OutcomeForbidden:     "only album admins can edit the album",
		OutcomeNotFound:      "album not found",
	}
	deleteAlbumReasons = reasons{
		OutcomeForbidden: "only album admins can delete the album",
		OutcomeNotFound:  "album not found",
	}
	studyReasons = reasons{
		OutcomeInvalidParams: "invalid study instance UID",
		OutcomeForbidden:     "no permission to add or remove studies in this album",
		OutcomeNotFound:      "album or study not found",
	}
	seriesReasons = reasons{
		OutcomeInvalidParams: "invalid study or series instance UID",
		OutcomeForbidden:     "no permission to add series to this album",
		OutcomeNotFound:      "album, study or series not found",
	}
	uploadReasons = reasons{
		OutcomeInvalidParams: "the file was rejected as DICOM",
		OutcomeForbidden:     "no permission to upload into this album",
		OutcomeNotFound:      "album not found",
		OutcomeOther:         "upload failed",
	}
	capabilityReasons = reasons{
		OutcomeInvalidParams: "invalid capability parameters",
		OutcomeForbidden:     "only album admins can create links",
		OutcomeNotFound:      "album not found",
		OutcomeOther:         "link creation failed",
	}
)

type Client struct {
	uri        string
	cred       *auth.Credential
	httpClient *httpclient.Client
	logger     *zap.Logger
}

// NewClient returns a client for the service at uri ("https://host/api").
// Calls are never retried.
func NewClient(uri string, cred *auth.Credential, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		uri:        strings.TrimRight(uri, "/"),
		cred:       cred,
		httpClient: httpclient.NewClient(httpclient.WithHTTPTimeout(timeout)),
		logger:     logger,
	}
}

func (c *Client) URI() string {
	return c.uri
}

type request struct {
	op          string
	method      string
	path        []string
	query       url.Values
	body        io.Reader
	contentType string
	expected    []int
	reasons     reasons
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	target := utils.JoinURL(c.uri, r.path...)
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(constants.ParamAuth, c.cred.Header())
	req.Header.Set(constants.ParamAccept, constants.MimeJSON)
	if r.contentType != "" {
		req.Header.Set(constants.ParamContentType, r.contentType)
	}

	res, err := c.httpClient.Do(req)
	if res == nil {
		return nil, fmt.Errorf("%s: %w", r.op, err)
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", r.op, err)
	}

	c.logger.Debug("kheops call",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("url", target),
		zap.Int("status", res.StatusCode))

	for _, code := range r.expected {
		if res.StatusCode == code {
			return body, nil
		}
	}
	return nil, newAPIError(r.op, res.StatusCode, strings.TrimSpace(string(body)), r.reasons)
}

func formBody(values url.Values) io.Reader {
	return strings.NewReader(values.Encode())
}

// CreateAlbum creates an album owned by the token's user.
func (c *Client) CreateAlbum(ctx context.Context, name, description string) (*Album, error) {
	if !IsValidName(name) {
		return nil, &APIError{Op: opCreateAlbum, Outcome: OutcomeInvalidParams, Reason: "album name is empty or too long"}
	}
	form := url.Values{}
	form.Set(constants.ParamName, strings.TrimSpace(name))
	if description != "" {
		form.Set(constants.ParamDescription, description)
	}

	body, err := c.do(ctx, request{
		op:          opCreateAlbum,
		method:      http.MethodPost,
		path:        []string{"albums"},
		body:        formBody(form),
		contentType: constants.MimeForm,
		expected:    []int{http.StatusCreated},
		reasons:     createAlbumReasons,
	})
	if err != nil {
		return nil, err
	}

	var album Album
	if err := json.Unmarshal(body, &album); err != nil {
		return nil, fmt.Errorf("Error parsing the response body: %s", err)
	}
	c.logger.Info("album created", zap.String("album_id", album.ID), zap.String("name", album.Name))
	return &album, nil
}

// ListAlbums lists the albums visible to the user, filtered by name when
// name is not empty.
func (c *Client) ListAlbums(ctx context.Context, name string) ([]Album, error) {
	query := url.Values{}
	if name != "" {
		query.Set(constants.ParamName, name)
	}

	body, err := c.do(ctx, request{
		op:       opListAlbums,
		method:   http.MethodGet,
		path:     []string{"albums"},
		query:    query,
		expected: []int{http.StatusOK},
		reasons:  albumReasons,
	})
	if err != nil {
		return nil, err
	}

	albums := make([]Album, 0)
	if len(bytes.TrimSpace(body)) == 0 {
		return albums, nil
	}
	if err := json.Unmarshal(body, &albums); err != nil {
		return nil, fmt.Errorf("Error parsing the response body: %s", err)
	}
	return albums, nil
}

func (c *Client) GetAlbum(ctx context.Context, albumID string) (*Album, error) {
	body, err := c.do(ctx, request{
		op:       opGetAlbum,
		method:   http.MethodGet,
		path:     []string{"albums", albumID},
		expected: []int{http.StatusOK},
		reasons:  albumReasons,
	})
	if err != nil {
		return nil, err
	}

	var album Album
	if err := json.Unmarshal(body, &album); err != nil {
		return nil, fmt.Errorf("Error parsing the response body: %s", err)
	}
	return &album, nil
}

// EditAlbum changes the name and/or description; empty values are left as is.
func (c *Client) EditAlbum(ctx context.Context, albumID, name, description string) error {
	form := url.Values{}
	if name != "" {
		form.Set(constants.ParamName, name)
	}
	if description != "" {
		form.Set(constants.ParamDescription, description)
	}
	if len(form) == 0 {
		return &APIError{Op: opEditAlbum, Outcome: OutcomeInvalidParams, Reason: "nothing to update"}
	}

	_, err := c.do(ctx, request{
		op:          opEditAlbum,
		method:      http.MethodPatch,
		path:        []string{"albums", albumID},
		body:        formBody(form),
		contentType: constants.MimeForm,
		expected:    []int{http.StatusOK, http.StatusNoContent},
		reasons:     editAlbumReasons,
	})
	return err
}

func (c *Client) DeleteAlbum(ctx context.Context, albumID string) error {
	_, err := c.do(ctx, request{
		op:       opDeleteAlbum,
		method:   http.MethodDelete,
		path:     []string{"albums", albumID},
		expected: []int{http.StatusNoContent},
		reasons:  deleteAlbumReasons,
	})
	return err
}

// AddStudy puts a study the user can already access into an album.
func (c *Client) AddStudy(ctx context.Context, albumID, studyUID string) error {
	_, err := c.do(ctx, request{
		op:       opAddStudy,
		method:   http.MethodPut,
		path:     []string{"studies", studyUID, "albums", albumID},
		expected: []int{http.StatusCreated, http.StatusNoContent},
		reasons:  studyReasons,
	})
	return err
}

func (c *Client) AddSeries(ctx context.Context, albumID, studyUID, seriesUID string) error {
	_, err := c.do(ctx, request{
		op:       opAddSeries,
		method:   http.MethodPut,
		path:     []string{"studies", studyUID, "series", seriesUID, "albums", albumID},
		expected: []int{http.StatusCreated, http.StatusNoContent},
		reasons:  seriesReasons,
	})
	return err
}

func (c *Client) RemoveStudy(ctx context.Context, albumID, studyUID string) error {
	_, err := c.do(ctx, request{
		op:       opRemoveStudy,
		method:   http.MethodDelete,
		path:     []string{"studies", studyUID, "albums", albumID},
		expected: []int{http.StatusNoContent},
		reasons:  studyReasons,
	})
	return err
}

// UploadInstance stores one DICOM file into an album with a STOW-RS request.
func (c *Client) UploadInstance(ctx context.Context, albumID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		constants.ParamContentType: {constants.MimeDICOM},
	})
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	query := url.Values{}
	if albumID != "" {
		query.Set(constants.ParamAlbum, albumID)
	}

	_, err = c.do(ctx, request{
		op:          opUploadInstance,
		method:      http.MethodPost,
		path:        []string{"studies"},
		query:       query,
		body:        &buf,
		contentType: fmt.Sprintf("%s; type=%q; boundary=%s", constants.MimeMultipartRe, constants.MimeDICOM, mw.Boundary()),
		expected:    []int{http.StatusOK},
		reasons:     uploadReasons,
	})
	if err == nil {
		c.logger.Debug("instance uploaded", zap.String("album_id", albumID), zap.String("file", filepath.Base(path)))
	}
	return err
}

// CreateCapability creates an album-scoped capability token. A zero
// expiration lets the service apply its default lifetime.
func (c *Client) CreateCapability(ctx context.Context, albumID, title string, perms Permissions, expiration time.Time) (*Capability, error) {
	form := url.Values{}
	form.Set(constants.ParamTitle, title)
	form.Set(constants.ParamScopeType, constants.ScopeTypeAlbum)
	form.Set(constants.ParamAlbum, albumID)
	form.Set(constants.ParamReadPermission, strconv.FormatBool(perms.Read))
	form.Set(constants.ParamAppropriatePerm, strconv.FormatBool(perms.Appropriate))
	form.Set(constants.ParamDownloadPermission, strconv.FormatBool(perms.Download))
	form.Set(constants.ParamWritePermission, strconv.FormatBool(perms.Write))
	if exp := formatExpiration(expiration); exp != "" {
		form.Set(constants.ParamExpirationTime, exp)
	}

	body, err := c.do(ctx, request{
		op:          opCreateCapability,
		method:      http.MethodPost,
		path:        []string{"capabilities"},
		body:        formBody(form),
		contentType: constants.MimeForm,
		expected:    []int{http.StatusCreated},
		reasons:     capabilityReasons,
	})
	if err != nil {
		return nil, err
	}

	var capability Capability
	if err := json.Unmarshal(body, &capability); err != nil {
		return nil, fmt.Errorf("Error parsing the response body: %s", err)
	}
	return &capability, nil
}

// ShareURL is the viewer link for capability.
func (c *Client) ShareURL(capability *Capability) string {
	return ShareURL(c.uri, capability.Secret)
}
