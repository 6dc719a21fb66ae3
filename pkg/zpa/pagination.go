package zpa

import (
	"context"
	"encoding/json"
	"net/url"
)

// DefaultPageSize is the page size used when the resource kind does not
// override it.
const DefaultPageSize = 500

// listEnvelope is the wire shape of every paginated list response.
type listEnvelope struct {
	TotalPages json.Number       `json:"totalPages"`
	List       []json.RawMessage `json:"list"`
}

// CollectAll walks a paginated list endpoint until exhaustion and returns the
// items in server order. Pagination is 1-based via page/pagesize. On the
// first failure the items collected so far are returned together with the
// error; the caller decides whether partial results are usable.
func (c *Client) CollectAll(ctx context.Context, path string, query url.Values, pageSize int) ([]json.RawMessage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var items []json.RawMessage
	for page := 1; ; page++ {
		raw, err := c.Get(ctx, path, pageQuery(query, page, pageSize))
		if err != nil {
			// A 404 on a list endpoint means the collection is empty.
			if IsNotFound(err) {
				return items, nil
			}
			return items, err
		}

		var envelope listEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return items, NewTransportError("decoding list page", err)
		}

		items = append(items, envelope.List...)

		// A short or empty page terminates the walk. The totalPages hint is
		// honored when present, but a short page is always terminal.
		if len(envelope.List) < pageSize {
			return items, nil
		}
		if total, err := envelope.TotalPages.Int64(); err == nil && int64(page) >= total {
			return items, nil
		}
	}
}
