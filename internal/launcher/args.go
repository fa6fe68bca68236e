package launcher

import (
	"strconv"
	"strings"

	"modelrun/pkg/types"
)

// Invocation defaults.
const (
	DefaultMinerIndex = 0
	DefaultPort       = 8000
	DefaultGPUIDs     = "0"
)

const (
	flagMinerIndex = "--miner-id-index"
	flagPort       = "--port"
	flagGPUIDs     = "--gpu-ids"
)

// ParseArgs reads the trailing launch flags. Each recognized flag consumes
// the following token as its value. Parsing stops at the first token that
// is not a recognized flag; it and everything after it end up in Rest.
func ParseArgs(tokens []string) (types.LaunchArgs, error) {
	out := types.LaunchArgs{MinerIndex: DefaultMinerIndex, Port: DefaultPort, GPUIDs: DefaultGPUIDs}
	i := 0
	for i < len(tokens) {
		flag := tokens[i]
		if flag != flagMinerIndex && flag != flagPort && flag != flagGPUIDs {
			break
		}
		if i+1 >= len(tokens) {
			return out, ErrUsage("%s requires a value", flag)
		}
		val := tokens[i+1]
		switch flag {
		case flagMinerIndex:
			n, err := strconv.Atoi(val)
			if err != nil {
				return out, ErrUsage("%s: %q is not an integer", flag, val)
			}
			if n < 0 {
				return out, ErrUsage("%s must be >= 0, got %d", flag, n)
			}
			out.MinerIndex = n
		case flagPort:
			n, err := strconv.Atoi(val)
			if err != nil {
				return out, ErrUsage("%s: %q is not an integer", flag, val)
			}
			out.Port = n
		case flagGPUIDs:
			out.GPUIDs = val
		}
		i += 2
	}
	if i < len(tokens) {
		out.Rest = append([]string(nil), tokens[i:]...)
	}
	return out, nil
}

// PrimaryGPU returns the device index used for the capacity check: the first
// element of a comma separated gpu id list.
func PrimaryGPU(gpuIDs string) (int, error) {
	first, _, _ := strings.Cut(gpuIDs, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return 0, ErrUsage("empty gpu id list")
	}
	n, err := strconv.Atoi(first)
	if err != nil || n < 0 {
		return 0, ErrUsage("invalid gpu id %q", first)
	}
	return n, nil
}
