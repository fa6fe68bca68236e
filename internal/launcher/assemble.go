package launcher

import (
	"strconv"

	"modelrun/pkg/types"
)

// ValidateDescriptor checks that d carries every field the worker needs.
func ValidateDescriptor(d types.ModelDescriptor) error {
	var missing []string
	if d.SizeGB <= 0 {
		missing = append(missing, "size_gb")
	}
	if d.Quantization == "" {
		missing = append(missing, "quantization")
	}
	if d.SourceModelID == "" {
		missing = append(missing, "source_model_id")
	}
	if d.Revision == "" {
		missing = append(missing, "revision")
	}
	if len(missing) > 0 {
		return ErrIncompleteModelDetails(d.ID, missing...)
	}
	return nil
}

// Assemble builds the worker launch configuration.
func Assemble(d types.ModelDescriptor, plan types.UtilizationPlan, args types.LaunchArgs) (types.LaunchConfig, error) {
	if err := ValidateDescriptor(d); err != nil {
		return types.LaunchConfig{}, err
	}
	return types.LaunchConfig{
		SourceModelID: d.SourceModelID,
		Quantization:  d.Quantization,
		ModelID:       d.ID,
		Ratio:         plan.Ratio,
		Revision:      d.Revision,
		MinerIndex:    args.MinerIndex,
		Port:          args.Port,
		GPUIDs:        args.GPUIDs,
	}, nil
}

// Args returns the worker's positional arguments in order.
func Args(cfg types.LaunchConfig) []string {
	return []string{
		cfg.SourceModelID,
		string(cfg.Quantization),
		cfg.ModelID,
		strconv.FormatFloat(cfg.Ratio, 'f', 2, 64),
		cfg.Revision,
		strconv.Itoa(cfg.MinerIndex),
		strconv.Itoa(cfg.Port),
		cfg.GPUIDs,
	}
}
