package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/najibrashidabdi/newkaabe/internal/logging"
)

const DefaultBaseURL = "http://127.0.0.1:8000"

// TokenSource yields the access token to attach to a request. An empty token
// means the request goes out without an Authorization header.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, mostly for tests and one-off calls.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, error) {
	return string(t), nil
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        logging.Logger
}

// Request describes one call. Body is JSON encoded; Form, when set, is sent
// as multipart and Body is ignored.
type Request struct {
	Method string
	Path   string
	Body   any
	Form   *MultipartForm
}

func New(baseURL string, httpClient *http.Client, tokens TokenSource, logger logging.Logger) *Client {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	if logger == nil {
		logger = logging.Nop
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
		log:        logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and decodes a JSON success body into out. Non-2xx responses
// come back as *APIError, transport failures as *UnreachableError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	fullURL := c.baseURL + req.Path

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Form != nil:
		body = bytes.NewReader(req.Form.Bytes())
		contentType = req.Form.ContentType()
	case req.Body != nil && method != http.MethodGet:
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return errors.Wrapf(err, "encode %s %s", method, req.Path)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	requestID := uuid.New().String()
	request.Header.Set("X-Request-ID", requestID)

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return errors.Wrap(err, "read access token")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.log.Debug("request failed", method, fullURL, requestID, err)
		return &UnreachableError{BaseURL: c.baseURL, Err: err}
	}
	defer response.Body.Close()

	c.log.Debug("request", method, fullURL, response.StatusCode, requestID)

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s %s response", method, req.Path)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(response.StatusCode, response.Header.Get("Content-Type"), raw)
	}

	if out == nil || !isJSON(response.Header.Get("Content-Type")) || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", method, req.Path)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
