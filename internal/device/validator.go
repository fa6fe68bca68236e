package device

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"modelrun/pkg/types"
)

// Validator checks that a model fits in the free memory of one GPU.
//
// The check is a point-in-time reading: another process may allocate memory
// between Check returning and the worker starting.
type Validator struct {
	q   Querier
	log zerolog.Logger
}

// NewValidator wraps q. A nil logger disables logging.
func NewValidator(q Querier, logger *zerolog.Logger) *Validator {
	v := &Validator{q: q, log: zerolog.Nop()}
	if logger != nil {
		v.log = logger.With().Str("component", "device").Logger()
	}
	return v
}

// RequiredMB converts a catalog size in GB to MB, rounded to the nearest MB.
func RequiredMB(sizeGB float64) int {
	return int(math.Round(sizeGB * 1024))
}

// FreeMB returns the free memory of gpuIndex.
func (v *Validator) FreeMB(ctx context.Context, gpuIndex int) (int, error) {
	if v.q == nil {
		return 0, ErrDeviceQuery(gpuIndex, "no device query configured", nil)
	}
	if gpuIndex < 0 {
		return 0, ErrDeviceQuery(gpuIndex, "negative gpu index", nil)
	}
	free, err := v.q.FreeMemoryMB(ctx)
	if err != nil {
		if IsDeviceQuery(err) {
			return 0, err
		}
		return 0, ErrDeviceQuery(gpuIndex, "query failed", err)
	}
	if gpuIndex >= len(free) {
		return 0, ErrDeviceQuery(gpuIndex, fmt.Sprintf("no value reported (%d gpus visible)", len(free)), nil)
	}
	return free[gpuIndex], nil
}

// Check compares the free memory of gpuIndex with the descriptor's requirement.
// On success AvailableMB is the value reported by the device, unchanged.
func (v *Validator) Check(ctx context.Context, d types.ModelDescriptor, gpuIndex int) (types.DeviceMemoryState, error) {
	st := types.DeviceMemoryState{GPUIndex: gpuIndex, RequiredMB: RequiredMB(d.SizeGB)}
	avail, err := v.FreeMB(ctx, gpuIndex)
	if err != nil {
		return st, err
	}
	st.AvailableMB = avail
	if avail < st.RequiredMB {
		v.log.Warn().Str("model", d.ID).Int("gpu", gpuIndex).Int("available_mb", avail).Int("required_mb", st.RequiredMB).Msg("model does not fit")
		return st, ErrInsufficientMemory(d.ID, gpuIndex, avail, st.RequiredMB)
	}
	v.log.Info().Str("model", d.ID).Int("gpu", gpuIndex).Int("available_mb", avail).Int("required_mb", st.RequiredMB).Msg("capacity ok")
	return st, nil
}
