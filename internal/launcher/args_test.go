package launcher

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"modelrun/pkg/types"
)

func TestParseArgs(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want types.LaunchArgs
	}{
		{"defaults", nil, types.LaunchArgs{MinerIndex: 0, Port: 8000, GPUIDs: "0"}},
		{"port and gpus", []string{"--port", "9000", "--gpu-ids", "0,1"}, types.LaunchArgs{MinerIndex: 0, Port: 9000, GPUIDs: "0,1"}},
		{"all", []string{"--miner-id-index", "3", "--port", "8100", "--gpu-ids", "2"}, types.LaunchArgs{MinerIndex: 3, Port: 8100, GPUIDs: "2"}},
		{"unknown halts", []string{"--unknown", "foo", "--port", "9000"}, types.LaunchArgs{MinerIndex: 0, Port: 8000, GPUIDs: "0", Rest: []string{"--unknown", "foo", "--port", "9000"}}},
		{"stops midway", []string{"--port", "9001", "extra", "--gpu-ids", "1"}, types.LaunchArgs{MinerIndex: 0, Port: 9001, GPUIDs: "0", Rest: []string{"extra", "--gpu-ids", "1"}}},
		{"last wins", []string{"--port", "1", "--port", "2"}, types.LaunchArgs{Port: 2, GPUIDs: "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseArgs(tc.in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestParseArgsUsageErrors(t *testing.T) {
	bad := [][]string{
		{"--port"},
		{"--port", "abc"},
		{"--miner-id-index", "-1"},
		{"--miner-id-index", "1.5"},
		{"--gpu-ids"},
	}
	for _, in := range bad {
		_, err := ParseArgs(in)
		require.Error(t, err, "%v", in)
		require.True(t, IsUsage(err), "%v: %v", in, err)
	}
}

func TestPrimaryGPU(t *testing.T) {
	n, err := PrimaryGPU("0,1")
	require.NoError(t, err)
	require.Equal(t, 0, n)
	n, err = PrimaryGPU(" 3 , 1")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	for _, s := range []string{"", "a", "-1", ",1"} {
		_, err := PrimaryGPU(s)
		require.True(t, IsUsage(err), "%q", s)
	}
}
