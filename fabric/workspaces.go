package fabric

import "context"

// GetWorkspace fetches workspace metadata.
func (c *Client) GetWorkspace(ctx context.Context, workspaceID string) (*Response, error) {
	return c.Get(ctx, workspacePath(workspaceID), nil)
}

// ListWorkspaceItems lists items in a workspace, optionally filtered by
// item type (e.g. "ApacheAirflowJob"). Pass the previous page's
// continuation token to fetch the next page.
func (c *Client) ListWorkspaceItems(ctx context.Context, workspaceID, typeFilter, continuationToken string) (*ItemList, error) {
	var query []QueryParam
	if typeFilter != "" {
		query = append(query, QueryParam{Key: "type", Value: typeFilter})
	}

	if continuationToken != "" {
		query = append(query, QueryParam{Key: "continuationToken", Value: continuationToken})
	}

	resp, err := c.Get(ctx, workspaceItemsPath(workspaceID), query)
	if err != nil {
		return nil, err
	}

	var list ItemList
	if err := resp.Decode(&list); err != nil {
		return nil, err
	}

	return &list, nil
}
