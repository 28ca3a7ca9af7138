package app

import (
	"context"
	"slices"
	"testing"

	"github.com/example/embexp/internal/ports/primary"
)

func TestStatus_ClassifiesByResult(t *testing.T) {
	repo := newMockExperimentRepository()
	board := newMockBoardDriver()
	repo.programs["arm8"] = []string{"prog1", "prog2"}

	const key = "abc123.rpi3"
	results := map[string][]byte{
		"ex":   []byte("true"),
		"cex":  []byte("false"),
		"inc":  []byte(`"special :::: INCONCLUSIVE: noise"`),
		"exc":  []byte(`"embexp.board.exception :::: data abort"`),
		"oth":  []byte(`"something"`),
		"part": nil,
	}
	for hash, res := range results {
		repo.add(batchClass + "/" + hash).results[key] = res
	}
	repo.add(singleID).results[key] = []byte("[]")
	repo.add(batchClass + "/fresh").results["other.rpi3"] = []byte("true")
	repo.add(batchClass + "/broken").invalid = true
	repo.add("x86/exps2/p/ignored")

	service := NewStatusService(repo, board, discardLogger())
	report, err := service.Status(context.Background(), primary.StatusRequest{})
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}

	if report.Arch != "arm8" || report.RunKey != key {
		t.Errorf("report for %s %s", report.Arch, report.RunKey)
	}
	if report.Experiments != 8 || len(report.Programs) != 2 {
		t.Errorf("counted %d experiments, %d programs", report.Experiments, len(report.Programs))
	}
	checks := []struct {
		name string
		got  []string
		want []string
	}{
		{"not run", report.NotRun, []string{batchClass + "/fresh"}},
		{"incomplete", report.Incomplete, []string{batchClass + "/part"}},
		{"examples", report.Examples, []string{batchClass + "/ex"}},
		{"counterexamples", report.Counterexamples, []string{batchClass + "/cex"}},
		{"inconclusive", report.Inconclusive, []string{batchClass + "/inc"}},
		{"exceptions", report.Exceptions, []string{batchClass + "/exc"}},
		{"snapshots", report.Snapshots, []string{singleID}},
		{"others", report.Others, []string{batchClass + "/oth"}},
	}
	for _, c := range checks {
		if !slices.Equal(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestStatus_RunKey(t *testing.T) {
	repo := newMockExperimentRepository()
	board := newMockBoardDriver()
	board.branchRevs["dev"] = "fff000"
	service := NewStatusService(repo, board, discardLogger())

	tests := []struct {
		name string
		req  primary.StatusRequest
		want string
	}{
		{name: "explicit", req: primary.StatusRequest{RunKey: "r1.rpi3"}, want: "r1.rpi3"},
		{name: "branch head", req: primary.StatusRequest{Branch: "dev"}, want: "fff000.rpi3"},
		{name: "board", req: primary.StatusRequest{BoardType: "rpi4"}, want: "abc123.rpi4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := service.Status(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Status failed: %v", err)
			}
			if report.RunKey != tt.want {
				t.Errorf("RunKey = %s, want %s", report.RunKey, tt.want)
			}
		})
	}

	if _, err := service.Status(context.Background(), primary.StatusRequest{Branch: "gone"}); err == nil {
		t.Error("expected error for unknown branch")
	}
}

func TestStatus_WithoutBoard(t *testing.T) {
	repo := newMockExperimentRepository()
	service := NewStatusService(repo, nil, discardLogger())

	if _, err := service.Status(context.Background(), primary.StatusRequest{RunKey: "r1.rpi3"}); err != nil {
		t.Errorf("explicit run key should not need a board: %v", err)
	}
	if _, err := service.Status(context.Background(), primary.StatusRequest{}); err == nil {
		t.Error("expected error without run key and board")
	}
}
