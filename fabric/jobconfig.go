package fabric

// AirflowProperties configures the Airflow runtime of a job definition.
type AirflowProperties struct {
	Environment            string            `json:"airflowEnvironment"`
	Version                string            `json:"airflowVersion"`
	PythonVersion          string            `json:"pythonVersion"`
	EnableAADIntegration   bool              `json:"enableAADIntegration"`
	EnableTriggerers       bool              `json:"enableTriggerers"`
	PackageProviderPath    string            `json:"packageProviderPath"`
	ConfigurationOverrides map[string]string `json:"airflowConfigurationOverrides"`
	EnvironmentVariables   map[string]string `json:"environmentVariables"`
	Requirements           []string          `json:"airflowRequirements"`
	Secrets                []NameValue       `json:"secrets"`
}

// ComputeProperties configures the compute pool of a job definition.
type ComputeProperties struct {
	Pool              string `json:"computePool"`
	Size              string `json:"computeSize,omitempty"`
	EnableAutoscale   bool   `json:"enableAutoscale"`
	AutoscaleMinNodes int    `json:"autoScaleMinNodes"`
	AutoscaleMaxNodes int    `json:"autoScaleMaxNodes"`
	ExtraNodes        int    `json:"extraNodes"`
}

// JobConfig is the source configuration for a builder-constructed
// definition. It serializes into the job content part at ContentPath.
type JobConfig struct {
	Airflow AirflowProperties
	Compute ComputeProperties
}

// DefaultJobConfig returns the service defaults for a new Airflow job.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		Airflow: AirflowProperties{
			Environment:            "FabricAirflowJob-1.0.0",
			Version:                "2.10.5",
			PythonVersion:          "3.12",
			EnableAADIntegration:   true,
			EnableTriggerers:       true,
			PackageProviderPath:    "plugins",
			ConfigurationOverrides: map[string]string{},
			EnvironmentVariables:   map[string]string{},
			Requirements:           []string{},
			Secrets:                []NameValue{},
		},
		Compute: ComputeProperties{
			Pool:              "StarterPool",
			EnableAutoscale:   true,
			AutoscaleMinNodes: 5,
			AutoscaleMaxNodes: 6,
		},
	}
}

// jobContent is the wire shape of the job configuration part.
type jobContent struct {
	Properties jobContentProperties `json:"properties"`
}

type jobContentProperties struct {
	Type           string                 `json:"type"`
	TypeProperties jobContentTypeProperty `json:"typeProperties"`
}

type jobContentTypeProperty struct {
	Airflow AirflowProperties `json:"airflowProperties"`
	Compute ComputeProperties `json:"computeProperties"`
}

// document returns the content part payload for this configuration.
func (c JobConfig) document() jobContent {
	return jobContent{
		Properties: jobContentProperties{
			Type: "Airflow",
			TypeProperties: jobContentTypeProperty{
				Airflow: c.Airflow,
				Compute: c.Compute,
			},
		},
	}
}
