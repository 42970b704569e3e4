package fabric

import (
	"context"
	"fmt"
)

// itemRequest is the create-item body for a job without a definition.
type itemRequest struct {
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// CreateJob creates an Airflow job item with a blank payload.
func (c *Client) CreateJob(ctx context.Context, workspaceID, displayName, description string) (*Item, error) {
	resp, err := c.Post(ctx, workspaceItemsPath(workspaceID), itemRequest{
		DisplayName: displayName,
		Type:        ItemType,
		Description: description,
	}, nil)
	if err != nil {
		return nil, err
	}

	return decodeItem(resp)
}

// CreateJobWithDefinition creates an Airflow job item carrying a full
// definition (configuration and files). The definition is encoded to its
// wire form immediately before the call.
func (c *Client) CreateJobWithDefinition(ctx context.Context, workspaceID string, def *Definition) (*Item, error) {
	body, err := def.Encode()
	if err != nil {
		return nil, err
	}

	resp, err := c.Post(ctx, workspaceItemsPath(workspaceID), body, nil)
	if err != nil {
		return nil, err
	}

	return decodeItem(resp)
}

func decodeItem(resp *Response) (*Item, error) {
	if len(resp.Bytes) == 0 {
		return nil, fmt.Errorf("fabric: create succeeded but response carried no body")
	}

	var item Item
	if err := resp.Decode(&item); err != nil {
		return nil, err
	}

	return &item, nil
}

// GetJob fetches an Airflow job's metadata.
func (c *Client) GetJob(ctx context.Context, workspaceID, jobID string) (*Item, error) {
	resp, err := c.Get(ctx, jobPath(workspaceID, jobID), nil)
	if err != nil {
		return nil, err
	}

	var item Item
	if err := resp.Decode(&item); err != nil {
		return nil, err
	}

	return &item, nil
}

// GetJobDefinition fetches and decodes an Airflow job's definition. Parts
// arrive pre-encoded and are decoded lazily per their declared payload type.
func (c *Client) GetJobDefinition(ctx context.Context, workspaceID, jobID string) (*Definition, error) {
	resp, err := c.Post(ctx, jobPath(workspaceID, jobID)+"/getDefinition", nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope definitionEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return nil, err
	}

	return DecodeDefinition(envelope.DisplayName, envelope.Description, envelope.Definition.Parts)
}

// UpdateJobDefinition replaces an Airflow job's definition with the given
// one. updateMetadata also applies the definition's display name and
// description to the item.
func (c *Client) UpdateJobDefinition(ctx context.Context, workspaceID, jobID string, def *Definition, updateMetadata bool) error {
	body, err := def.Encode()
	if err != nil {
		return err
	}

	query := Params("updateMetadata", fmt.Sprintf("%t", updateMetadata))

	_, err = c.Post(ctx, jobPath(workspaceID, jobID)+"/updateDefinition", body, query)

	return err
}

// ListJobs lists the Airflow jobs in a workspace. Pass the previous page's
// continuation token to fetch the next page, or "" for the first.
func (c *Client) ListJobs(ctx context.Context, workspaceID, continuationToken string) (*ItemList, error) {
	var query []QueryParam
	if continuationToken != "" {
		query = Params("continuationToken", continuationToken)
	}

	resp, err := c.Get(ctx, jobsPath(workspaceID), query)
	if err != nil {
		return nil, err
	}

	var list ItemList
	if err := resp.Decode(&list); err != nil {
		return nil, err
	}

	return &list, nil
}

// DeleteJob deletes an Airflow job.
func (c *Client) DeleteJob(ctx context.Context, workspaceID, jobID string) error {
	_, err := c.Delete(ctx, jobPath(workspaceID, jobID), nil)

	return err
}
