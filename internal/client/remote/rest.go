package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// TokenSource yields the bearer token of the signed-in user. An empty
// token falls back to the anon API key.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

const (
	preferUpsert    = "resolution=merge-duplicates,return=representation"
	preferReturnRep = "return=representation"
	tablePath       = "/moments"
)

// RESTTable implements Table against a PostgREST endpoint.
type RESTTable struct {
	client *resty.Client
	apiKey string
	tokens TokenSource
}

// NewRESTTable builds a client for baseURL (for example
// https://project.example.co/rest/v1). tokens may be nil.
func NewRESTTable(baseURL, apiKey string, tokens TokenSource) *RESTTable {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)
	if apiKey != "" {
		c.SetHeader("apikey", apiKey)
	}
	return &RESTTable{client: c, apiKey: apiKey, tokens: tokens}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (t *RESTTable) request(ctx context.Context) (*resty.Request, error) {
	req := t.client.R().SetContext(ctx)

	token := t.apiKey
	if t.tokens != nil {
		tok, err := t.tokens.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		if tok != "" {
			token = tok
		}
	}
	if token != "" {
		req.SetAuthToken(token)
	}
	return req, nil
}

func (t *RESTTable) SelectUpdatedSince(ctx context.Context, userID string, since time.Time) ([]Row, error) {
	return t.selectRows(ctx, map[string]string{
		"select":     "*",
		"user_id":    "eq." + userID,
		"updated_at": "gt." + since.UTC().Format(time.RFC3339Nano),
		"order":      "updated_at.asc",
	})
}

func (t *RESTTable) SelectByUser(ctx context.Context, userID string) ([]Row, error) {
	return t.selectRows(ctx, map[string]string{
		"select":     "*",
		"user_id":    "eq." + userID,
		"deleted_at": "is.null",
		"order":      "created_at.desc",
	})
}

func (t *RESTTable) selectRows(ctx context.Context, params map[string]string) ([]Row, error) {
	req, err := t.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.SetQueryParams(params).Get(tablePath)
	if err := mapResponse(resp, err); err != nil {
		return nil, fmt.Errorf("failed to select moments: %w", err)
	}
	var rows []Row
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("decode moments: %w", err)
	}
	return rows, nil
}

func (t *RESTTable) Insert(ctx context.Context, row Row) (Row, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	out, err := t.write(ctx, row, preferReturnRep, nil)
	if err != nil {
		return Row{}, fmt.Errorf("failed to insert moment: %w", err)
	}
	return out, nil
}

func (t *RESTTable) Upsert(ctx context.Context, row Row) (Row, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	out, err := t.write(ctx, row, preferUpsert, map[string]string{"on_conflict": "id"})
	if err != nil {
		return Row{}, fmt.Errorf("failed to upsert moment: %w", err)
	}
	return out, nil
}

func (t *RESTTable) write(ctx context.Context, row Row, prefer string, params map[string]string) (Row, error) {
	req, err := t.request(ctx)
	if err != nil {
		return Row{}, err
	}
	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", prefer).
		SetQueryParams(params).
		SetBody([]Row{row}).
		Post(tablePath)
	if err := mapResponse(resp, err); err != nil {
		return Row{}, err
	}
	var rows []Row
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return Row{}, fmt.Errorf("decode moment: %w", err)
	}
	if len(rows) == 0 {
		// Row-level security filtered the row out: it belongs to someone else.
		return Row{}, ErrConflict
	}
	return rows[0], nil
}

func (t *RESTTable) Update(ctx context.Context, id, userID string, patch Patch) error {
	req, err := t.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", preferReturnRep).
		SetQueryParams(map[string]string{"id": "eq." + id, "user_id": "eq." + userID}).
		SetBody(patch).
		Patch(tablePath)
	if err := mapResponse(resp, err); err != nil {
		return fmt.Errorf("failed to update moment: %w", err)
	}
	var rows []Row
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return fmt.Errorf("decode moment: %w", err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks that the endpoint answers at all; auth failures still count as reachable.
func (t *RESTTable) Ping(ctx context.Context) error {
	resp, err := t.client.R().SetContext(ctx).Head("/")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.Status())
	}
	return nil
}

func mapResponse(resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !resp.IsError() {
		return nil
	}

	msg := resp.Status()
	var apiErr apiError
	if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case code == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	default:
		return fmt.Errorf("remote error %d: %s", code, msg)
	}
}
