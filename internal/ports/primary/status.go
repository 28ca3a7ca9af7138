package primary

import "context"

// StatusService defines the primary port for reporting results of a run key.
type StatusService interface {
	// Status classifies every valid experiment of an architecture.
	Status(ctx context.Context, req StatusRequest) (*StatusReport, error)
}

// StatusRequest contains parameters for a status report.
type StatusRequest struct {
	Arch      string
	RunKey    string // defaults to <branch revision>.<board>
	Branch    string
	BoardType string
}

// StatusReport lists the experiments of an architecture by result class.
type StatusReport struct {
	Arch            string   `yaml:"arch"`
	RunKey          string   `yaml:"run_key"`
	Programs        []string `yaml:"programs"`
	Experiments     int      `yaml:"experiments"`
	NotRun          []string `yaml:"not_run"`
	Incomplete      []string `yaml:"incomplete"`
	Examples        []string `yaml:"examples"`
	Counterexamples []string `yaml:"counterexamples"`
	Inconclusive    []string `yaml:"inconclusive"`
	Exceptions      []string `yaml:"exceptions"`
	Snapshots       []string `yaml:"snapshots"`
	Others          []string `yaml:"others"`
}
