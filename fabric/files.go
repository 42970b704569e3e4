package fabric

import (
	"context"
	"net/http"
)

// PutFileText creates or updates a text file (DAG, plugin, requirements) in
// the job's file tree.
func (c *Client) PutFileText(ctx context.Context, workspaceID, jobID, filePath, content string) error {
	return c.putFile(ctx, workspaceID, jobID, filePath, []byte(content), "text/plain")
}

// PutFile creates or updates a binary file in the job's file tree.
func (c *Client) PutFile(ctx context.Context, workspaceID, jobID, filePath string, content []byte) error {
	return c.putFile(ctx, workspaceID, jobID, filePath, content, "application/octet-stream")
}

func (c *Client) putFile(ctx context.Context, workspaceID, jobID, filePath string, content []byte, contentType string) error {
	_, err := c.Do(ctx, RequestSpec{
		Method:  http.MethodPut,
		Path:    jobFilePath(workspaceID, jobID, filePath),
		RawBody: content,
		Headers: map[string]string{"Content-Type": contentType},
	})

	return err
}

// GetFile downloads a file's content from the job's file tree.
func (c *Client) GetFile(ctx context.Context, workspaceID, jobID, filePath string) ([]byte, error) {
	resp, err := c.Do(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   jobFilePath(workspaceID, jobID, filePath),
		Stream: true,
	})
	if err != nil {
		return nil, err
	}

	return resp.Bytes, nil
}

// ListFiles lists files under rootPath ("" for the whole tree). Pass the
// previous page's continuation token to fetch the next page.
func (c *Client) ListFiles(ctx context.Context, workspaceID, jobID, rootPath, continuationToken string) (*Response, error) {
	var query []QueryParam
	if rootPath != "" {
		query = append(query, QueryParam{Key: "rootPath", Value: rootPath})
	}

	if continuationToken != "" {
		query = append(query, QueryParam{Key: "continuationToken", Value: continuationToken})
	}

	return c.Get(ctx, jobPath(workspaceID, jobID)+"/files", query)
}

// DeleteFile removes a file from the job's file tree.
func (c *Client) DeleteFile(ctx context.Context, workspaceID, jobID, filePath string) error {
	_, err := c.Delete(ctx, jobFilePath(workspaceID, jobID, filePath), nil)

	return err
}
