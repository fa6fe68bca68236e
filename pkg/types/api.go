package types

// CatalogRecord is one entry of the remote model catalog.
type CatalogRecord struct {
	// example: yi-34b-gptq
	Name string `json:"name" example:"yi-34b-gptq"`
	// example: 19.5
	SizeGB *float64 `json:"size_gb,omitempty" example:"19.5"`
	// example: 4bit-gptq
	Type *string `json:"type,omitempty" example:"4bit-gptq"`
	// example: TheBloke/Yi-34B-GPTQ
	HFID *string `json:"hf_id,omitempty" example:"TheBloke/Yi-34B-GPTQ"`
	// example: main
	HFBranch *string `json:"hf_branch,omitempty" example:"main"`
}

// ModelsResponse wraps the catalog listing returned by GET /models.
type ModelsResponse struct {
	Models []CatalogRecord `json:"models"`
}

// GPUStatus describes one device for GET /gpus.
type GPUStatus struct {
	// example: 0
	Index int `json:"index" example:"0"`
	// Product name when the inventory knows it.
	// example: NVIDIA A100-SXM4-80GB
	Name string `json:"name,omitempty" example:"NVIDIA A100-SXM4-80GB"`
	// example: 45000
	FreeMB int `json:"free_mb" example:"45000"`
}

// GPUsResponse is returned by GET /gpus.
type GPUsResponse struct {
	GPUs []GPUStatus `json:"gpus"`
}

// RatioResponse is returned by GET /ratio.
type RatioResponse struct {
	// example: yi-34b-gptq
	Model string `json:"model" example:"yi-34b-gptq"`
	// example: 45000
	AvailableMB int `json:"available_mb" example:"45000"`
	UtilizationPlan
}

// PlanResult is everything the pipeline resolved short of launching the worker.
type PlanResult struct {
	// Identifier of the pipeline run.
	// example: 7f1c2a4e-8d0b-4e55-9a1f-1f0f4f3c2b11
	RunID      string            `json:"run_id" example:"7f1c2a4e-8d0b-4e55-9a1f-1f0f4f3c2b11"`
	Descriptor ModelDescriptor   `json:"descriptor"`
	Memory     DeviceMemoryState `json:"memory"`
	Plan       UtilizationPlan   `json:"plan"`
	Launch     LaunchConfig      `json:"launch"`
	// Positional arguments the worker would receive.
	WorkerArgs []string `json:"worker_args"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: llama-x
	Error string `json:"error" example:"model not found: llama-x"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
