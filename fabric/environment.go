package fabric

import (
	"context"
	"net/http"
)

// StartEnvironment starts the job's Airflow environment.
func (c *Client) StartEnvironment(ctx context.Context, workspaceID, jobID string) (*Response, error) {
	return c.Post(ctx, environmentPath(workspaceID, jobID)+"/start", nil, nil)
}

// StopEnvironment stops the job's Airflow environment.
func (c *Client) StopEnvironment(ctx context.Context, workspaceID, jobID string) (*Response, error) {
	return c.Post(ctx, environmentPath(workspaceID, jobID)+"/stop", nil, nil)
}

// EnvironmentStatus reports the environment's current state.
func (c *Client) EnvironmentStatus(ctx context.Context, workspaceID, jobID string) (*Response, error) {
	return c.Get(ctx, environmentPath(workspaceID, jobID), nil)
}

// EnvironmentLogs downloads environment logs, optionally narrowed by an
// OData $filter expression.
func (c *Client) EnvironmentLogs(ctx context.Context, workspaceID, jobID, filter string) ([]byte, error) {
	var query []QueryParam
	if filter != "" {
		query = Params("$filter", filter)
	}

	resp, err := c.Do(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   environmentPath(workspaceID, jobID) + "/logs",
		Query:  query,
		Stream: true,
	})
	if err != nil {
		return nil, err
	}

	return resp.Bytes, nil
}

// EnvironmentLibraries lists the libraries installed in the environment.
func (c *Client) EnvironmentLibraries(ctx context.Context, workspaceID, jobID string) (*Response, error) {
	return c.Get(ctx, environmentPath(workspaceID, jobID)+"/libraries", nil)
}

// DeployRequirements deploys a requirements file given inline as text.
func (c *Client) DeployRequirements(ctx context.Context, workspaceID, jobID, requirements string) (*Response, error) {
	return c.Do(ctx, RequestSpec{
		Method:  http.MethodPost,
		Path:    environmentPath(workspaceID, jobID) + "/deployRequirements",
		RawBody: []byte(requirements),
		Headers: map[string]string{"Content-Type": "text/plain"},
	})
}

// DeployRequirementsFromPath deploys a requirements file already present in
// the job's file tree.
func (c *Client) DeployRequirementsFromPath(ctx context.Context, workspaceID, jobID, filePath string) (*Response, error) {
	return c.Post(ctx, environmentPath(workspaceID, jobID)+"/deployRequirements", nil,
		Params("filePath", filePath))
}

// EnvironmentSettings fetches the environment's runtime settings.
func (c *Client) EnvironmentSettings(ctx context.Context, workspaceID, jobID string) (*Response, error) {
	return c.Get(ctx, environmentPath(workspaceID, jobID)+"/settings", nil)
}

// UpdateEnvironmentSettings applies a settings patch to the environment.
func (c *Client) UpdateEnvironmentSettings(ctx context.Context, workspaceID, jobID string, patch EnvironmentSettingsPatch) (*Response, error) {
	return c.Post(ctx, environmentPath(workspaceID, jobID)+"/updateSettings", patch, nil)
}

// EnvironmentCompute fetches the environment's compute configuration.
func (c *Client) EnvironmentCompute(ctx context.Context, workspaceID, jobID string) (*Response, error) {
	return c.Get(ctx, environmentPath(workspaceID, jobID)+"/compute", nil)
}

// UpdateEnvironmentCompute points the environment at a pool template.
func (c *Client) UpdateEnvironmentCompute(ctx context.Context, workspaceID, jobID, poolTemplateID string) (*Response, error) {
	body := map[string]string{"poolTemplateId": poolTemplateID}

	return c.Post(ctx, environmentPath(workspaceID, jobID)+"/updateCompute", body, nil)
}

// UpdateEnvironmentVersion changes the environment's Airflow job version.
func (c *Client) UpdateEnvironmentVersion(ctx context.Context, workspaceID, jobID, version string) (*Response, error) {
	body := map[string]string{"apacheAirflowJobVersion": version}

	return c.Post(ctx, environmentPath(workspaceID, jobID)+"/updateVersion", body, nil)
}

// EnvironmentStorage fetches the environment's storage configuration.
func (c *Client) EnvironmentStorage(ctx context.Context, workspaceID, jobID string) (*Response, error) {
	return c.Get(ctx, environmentPath(workspaceID, jobID)+"/storage", nil)
}

// UpdateEnvironmentStorage replaces the environment's storage configuration.
// storage follows the service's storage object shape.
func (c *Client) UpdateEnvironmentStorage(ctx context.Context, workspaceID, jobID string, storage map[string]any) (*Response, error) {
	body := map[string]any{"storage": storage}

	return c.Post(ctx, environmentPath(workspaceID, jobID)+"/updateStorage", body, nil)
}
