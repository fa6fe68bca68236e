package types

// Quantization is the weight encoding handed to the inference engine.
type Quantization string

const (
	// QuantNone is used for full/half precision checkpoints ("16b" catalog types).
	QuantNone Quantization = "None"
	// QuantGPTQ is used for every other catalog type.
	QuantGPTQ Quantization = "gptq"
)

// RevisionNone is the revision reported when the catalog omits hf_branch.
const RevisionNone = "None"

// ModelDescriptor is the resolved catalog entry for a model id.
type ModelDescriptor struct {
	// Catalog name of the model.
	// example: yi-34b-gptq
	ID string `json:"id" example:"yi-34b-gptq"`
	// Model size in GB as published by the catalog.
	// example: 19.5
	SizeGB float64 `json:"size_gb" example:"19.5"`
	// Quantization mode derived from the catalog type.
	// example: gptq
	Quantization Quantization `json:"quantization" example:"gptq"`
	// Source repository id of the weights.
	// example: TheBloke/Yi-34B-GPTQ
	SourceModelID string `json:"source_model_id" example:"TheBloke/Yi-34B-GPTQ"`
	// Source revision (branch) or "None".
	// example: main
	Revision string `json:"revision" example:"main"`
}

// DeviceMemoryState is the outcome of a capacity check on one GPU.
type DeviceMemoryState struct {
	// example: 0
	GPUIndex int `json:"gpu_index" example:"0"`
	// Free memory on the device in MB.
	// example: 45000
	AvailableMB int `json:"available_mb" example:"45000"`
	// Memory the model needs in MB (size_gb * 1024, rounded).
	// example: 19968
	RequiredMB int `json:"required_mb" example:"19968"`
}

// UtilizationPlan is the memory-utilization ratio picked for a model.
type UtilizationPlan struct {
	// example: 0.86
	Ratio float64 `json:"ratio" example:"0.86"`
	// Identifier of the rule that produced the ratio.
	// example: yi-34b-gptq
	Rule string `json:"rule" example:"yi-34b-gptq"`
}

// LaunchArgs holds the trailing invocation flags.
type LaunchArgs struct {
	MinerIndex int
	Port       int
	GPUIDs     string
	// Rest holds the tokens from the first unrecognized one onwards; they are ignored.
	Rest []string
}

// LaunchConfig is the full parameter set passed to the worker process.
type LaunchConfig struct {
	SourceModelID string       `json:"source_model_id"`
	Quantization  Quantization `json:"quantization"`
	ModelID       string       `json:"model_id"`
	Ratio         float64      `json:"ratio"`
	Revision      string       `json:"revision"`
	MinerIndex    int          `json:"miner_index"`
	Port          int          `json:"port"`
	GPUIDs        string       `json:"gpu_ids"`
}
