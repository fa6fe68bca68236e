package launcher

import (
	"reflect"
	"testing"

	"modelrun/pkg/types"
)

func yi() types.ModelDescriptor {
	return types.ModelDescriptor{ID: "yi-34b-gptq", SizeGB: 19.5, Quantization: types.QuantGPTQ, SourceModelID: "TheBloke/Yi-34B-GPTQ", Revision: "main"}
}

func TestAssembleAndArgs(t *testing.T) {
	cfg, err := Assemble(yi(), types.UtilizationPlan{Ratio: 0.86, Rule: "yi-34b-gptq"}, types.LaunchArgs{MinerIndex: 2, Port: 9000, GPUIDs: "0,1"})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	want := []string{"TheBloke/Yi-34B-GPTQ", "gptq", "yi-34b-gptq", "0.86", "main", "2", "9000", "0,1"}
	if got := Args(cfg); !reflect.DeepEqual(got, want) {
		t.Fatalf("args %v want %v", got, want)
	}
}

func TestArgsRatioFormatting(t *testing.T) {
	cfg := types.LaunchConfig{Ratio: 1, Quantization: types.QuantNone, Revision: types.RevisionNone}
	a := Args(cfg)
	if a[3] != "1.00" || a[1] != "None" || a[4] != "None" {
		t.Fatalf("unexpected args: %v", a)
	}
	cfg.Ratio = 0.7
	if a := Args(cfg); a[3] != "0.70" {
		t.Fatalf("ratio: %q", a[3])
	}
}

func TestAssembleIncomplete(t *testing.T) {
	d := yi()
	d.SizeGB = 0
	d.Revision = ""
	_, err := Assemble(d, types.UtilizationPlan{Ratio: 0.5}, types.LaunchArgs{})
	if !IsIncompleteModelDetails(err) {
		t.Fatalf("want incomplete details, got %v", err)
	}
	if got := MissingFields(err); !reflect.DeepEqual(got, []string{"size_gb", "revision"}) {
		t.Fatalf("missing fields: %v", got)
	}
	if err := ValidateDescriptor(types.ModelDescriptor{ID: "x"}); len(MissingFields(err)) != 4 {
		t.Fatalf("empty descriptor: %v", err)
	}
}
