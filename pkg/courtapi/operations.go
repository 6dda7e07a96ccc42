package courtapi

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// ListJudges fetches one page of judges. Pages are 1-based.
func (c *Client) ListJudges(ctx context.Context, params ListParams, page int) ([]Judge, bool, error) {
	return listPage[Judge](ctx, c, "/people/", params, page)
}

// GetJudge fetches a single judge by upstream ID.
func (c *Client) GetJudge(ctx context.Context, id int64) (*Judge, error) {
	return getByID[Judge](ctx, c, "/people/"+itoa(id)+"/")
}

// ListCourts fetches one page of courts.
func (c *Client) ListCourts(ctx context.Context, params ListParams, page int) ([]Court, bool, error) {
	return listPage[Court](ctx, c, "/courts/", params, page)
}

// GetCourt fetches a single court by upstream ID.
func (c *Client) GetCourt(ctx context.Context, id string) (*Court, error) {
	return getByID[Court](ctx, c, "/courts/"+url.PathEscape(id)+"/")
}

// ListOpinionClusters fetches one page of opinion clusters.
func (c *Client) ListOpinionClusters(ctx context.Context, params ListParams, page int) ([]OpinionCluster, bool, error) {
	return listPage[OpinionCluster](ctx, c, "/clusters/", params, page)
}

// GetOpinionCluster fetches a single opinion cluster by upstream ID.
func (c *Client) GetOpinionCluster(ctx context.Context, id int64) (*OpinionCluster, error) {
	return getByID[OpinionCluster](ctx, c, "/clusters/"+itoa(id)+"/")
}

func listPage[T any](ctx context.Context, c *Client, path string, params ListParams, page int) ([]T, bool, error) {
	if page < 1 {
		page = 1
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	if params.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(params.PageSize))
	}
	if params.Jurisdiction != "" {
		query.Set("jurisdiction", params.Jurisdiction)
	}
	if params.ModifiedAfter != "" {
		query.Set("date_modified__gte", params.ModifiedAfter)
	}

	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, false, err
	}

	var envelope listEnvelope[T]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false, apiErrors.NewWithCause(ErrAPIResponse, err).WithDetail("path", path)
	}

	return envelope.Results, envelope.Next != "", nil
}

func getByID[T any](ctx context.Context, c *Client, path string) (*T, error) {
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apiErrors.NewWithCause(ErrAPIResponse, err).WithDetail("path", path)
	}
	return &out, nil
}
