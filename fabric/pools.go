package fabric

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// GetWorkspaceSettings fetches the workspace-level Airflow job settings.
func (c *Client) GetWorkspaceSettings(ctx context.Context, workspaceID string) (*WorkspaceSettings, error) {
	resp, err := c.Get(ctx, jobsPath(workspaceID)+"/settings", nil)
	if err != nil {
		return nil, err
	}

	var settings WorkspaceSettings
	if err := resp.Decode(&settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// PatchWorkspaceSettings updates the workspace-level Airflow job settings.
func (c *Client) PatchWorkspaceSettings(ctx context.Context, workspaceID string, settings WorkspaceSettings) error {
	_, err := c.Patch(ctx, jobsPath(workspaceID)+"/settings", settings, nil)

	return err
}

// CreatePoolTemplate creates a pool template and returns its id, which the
// service reports only via the Location header's last path segment.
func (c *Client) CreatePoolTemplate(ctx context.Context, workspaceID string, template PoolTemplate) (string, error) {
	resp, err := c.Post(ctx, poolsPath(workspaceID), template, nil)
	if err != nil {
		return "", err
	}

	id := poolIDFromLocation(resp.Headers.Get("Location"))
	if id == "" {
		return "", fmt.Errorf("fabric: pool template created but no pool id in Location header (status %d)", resp.Status)
	}

	return id, nil
}

// poolIDFromLocation extracts the trailing path segment of a Location URL.
func poolIDFromLocation(location string) string {
	if location == "" {
		return ""
	}

	parts := strings.Split(strings.TrimRight(location, "/"), "/")

	return parts[len(parts)-1]
}

// ListPoolTemplates lists the workspace's pool templates.
func (c *Client) ListPoolTemplates(ctx context.Context, workspaceID string) (*PoolTemplateList, error) {
	resp, err := c.Get(ctx, poolsPath(workspaceID), nil)
	if err != nil {
		return nil, err
	}

	var list PoolTemplateList
	if err := resp.Decode(&list); err != nil {
		return nil, err
	}

	return &list, nil
}

// GetPoolTemplate fetches a pool template by id.
func (c *Client) GetPoolTemplate(ctx context.Context, workspaceID, poolTemplateID string) (*PoolTemplate, error) {
	resp, err := c.Get(ctx, poolsPath(workspaceID)+"/"+url.PathEscape(poolTemplateID), nil)
	if err != nil {
		return nil, err
	}

	var template PoolTemplate
	if err := resp.Decode(&template); err != nil {
		return nil, err
	}

	return &template, nil
}

// DeletePoolTemplate removes a pool template.
func (c *Client) DeletePoolTemplate(ctx context.Context, workspaceID, poolTemplateID string) error {
	_, err := c.Delete(ctx, poolsPath(workspaceID)+"/"+url.PathEscape(poolTemplateID), nil)

	return err
}
