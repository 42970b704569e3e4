package fabric

// Item is a Fabric workspace item (Apache Airflow job, notebook, ...).
type Item struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`
	WorkspaceID string `json:"workspaceId"`
	Description string `json:"description,omitempty"`
}

// ItemList is a paged collection of workspace items. A non-empty
// ContinuationToken means more pages follow.
type ItemList struct {
	Value             []Item `json:"value"`
	ContinuationToken string `json:"continuationToken,omitempty"`
}

// NameValue is a generic name/value pair used by environment variables,
// configuration overrides, and secrets.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// WorkspaceSettings holds the workspace-level Airflow job settings.
type WorkspaceSettings struct {
	DefaultPoolTemplateID string `json:"defaultPoolTemplateId"`
}

// WorkerScalability bounds a pool template's worker node count.
type WorkerScalability struct {
	MinNodeCount int `json:"minNodeCount"`
	MaxNodeCount int `json:"maxNodeCount"`
}

// VersionDetails reports the runtime versions behind a job version label.
// Read-only, set by the server.
type VersionDetails struct {
	ApacheAirflowVersion string `json:"apacheAirflowVersion"`
	PythonVersion        string `json:"pythonVersion"`
}

// PoolTemplate is a workspace compute pool template. ID, VersionDetails,
// and AvailabilityZones are read-only server fields and are omitted from
// requests when unset.
type PoolTemplate struct {
	Name              string             `json:"poolTemplateName"`
	NodeSize          string             `json:"nodeSize"`
	WorkerScalability *WorkerScalability `json:"workerScalability,omitempty"`
	Version           string             `json:"apacheAirflowJobVersion,omitempty"`
	ShutdownPolicy    string             `json:"shutdownPolicy,omitempty"`

	ID                string          `json:"poolTemplateId,omitempty"`
	VersionDetails    *VersionDetails `json:"apacheAirflowJobVersionDetails,omitempty"`
	AvailabilityZones *bool           `json:"availabilityZones,omitempty"`
}

// PoolTemplateList is the response shape for listing pool templates.
type PoolTemplateList struct {
	PoolTemplates []PoolTemplate `json:"poolTemplates"`
}

// ByID returns the pool template with the given id, or false when absent.
func (l *PoolTemplateList) ByID(id string) (*PoolTemplate, bool) {
	for i := range l.PoolTemplates {
		if l.PoolTemplates[i].ID == id {
			return &l.PoolTemplates[i], true
		}
	}

	return nil, false
}

// EnvironmentSettingsPatch updates runtime settings of a job environment.
// Only non-nil/non-empty fields are sent.
type EnvironmentSettingsPatch struct {
	EnvironmentVariables   []NameValue `json:"environmentVariables,omitempty"`
	ConfigurationOverrides []NameValue `json:"airflowConfigurationOverrides,omitempty"`
	Triggerers             string      `json:"triggerers,omitempty"` // "Enabled" | "Disabled"
}

// definitionEnvelope is the response shape of getDefinition.
type definitionEnvelope struct {
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Definition  PartList `json:"definition"`
}
