package models

import (
	"errors"
	"testing"
)

func TestParseExperimentID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ExperimentID
		wantErr bool
	}{
		{
			name:  "pair experiment",
			input: "arm8/exps2/exp_cache_multiw/abc123",
			want:  ExperimentID{Arch: "arm8", Type: TypePair, Params: "exp_cache_multiw", Hash: "abc123"},
		},
		{
			name:  "single experiment",
			input: "arm8/exps1/exp_cache_multiw/deadbeef",
			want:  ExperimentID{Arch: "arm8", Type: TypeSingle, Params: "exp_cache_multiw", Hash: "deadbeef"},
		},
		{name: "three segments", input: "arm8/exps2/exp_cache_multiw", wantErr: true},
		{name: "five segments", input: "arm8/exps2/a/b/c", wantErr: true},
		{name: "unknown type", input: "arm8/exps3/a/b", wantErr: true},
		{name: "empty segment", input: "arm8/exps2//b", wantErr: true},
		{name: "relative segment", input: "arm8/exps2/../b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExperimentID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Fatalf("ParseExperimentID(%q) error = %v, want ErrInvalidID", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseExperimentID(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseExperimentID(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if got.String() != tt.input {
				t.Errorf("String() = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestExperimentClass(t *testing.T) {
	class, err := ParseExperimentClass("arm8/exps2/exp_cache_multiw/")
	if err != nil {
		t.Fatalf("ParseExperimentClass failed: %v", err)
	}
	id := class.Experiment("h1")
	if id.Class() != class {
		t.Errorf("Class() = %+v, want %+v", id.Class(), class)
	}
	if id.String() != "arm8/exps2/exp_cache_multiw/h1" {
		t.Errorf("unexpected id %q", id.String())
	}

	if _, err := ParseExperimentClass("arm8/exps2"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID for short class, got %v", err)
	}
}

func TestRunKey(t *testing.T) {
	key := NewRunKey("13700076ab79095f", "rpi3")
	if key != "13700076ab79095f.rpi3" {
		t.Errorf("NewRunKey = %q", key)
	}
	if key.Dir() != "run.13700076ab79095f.rpi3" {
		t.Errorf("Dir() = %q", key.Dir())
	}
}

func TestExperimentType_InputCount(t *testing.T) {
	if TypePair.InputCount() != 2 {
		t.Errorf("pair experiments carry two inputs")
	}
	if TypeSingle.InputCount() != 1 {
		t.Errorf("single experiments carry one input")
	}
}
