package spec

import (
	"fmt"
	"regexp"
	"strings"

	"pbs-orchestrator/core/models"

	"gopkg.in/yaml.v3"
)

// RunSpec represents the YAML run specification
type RunSpec struct {
	Run RunSpecRun `yaml:"run"`
}

// RunSpecRun represents the run section of the spec
type RunSpecRun struct {
	Name      string           `yaml:"name"`
	Payload   string           `yaml:"payload"`
	RunDir    string           `yaml:"run_dir,omitempty"`
	Resources RunSpecResources `yaml:"resources"`
	Modules   []string         `yaml:"modules,omitempty"`
}

// RunSpecResources represents the requested PBS resources
type RunSpecResources struct {
	Walltime string `yaml:"walltime"` // HH:MM:SS
	Memory   string `yaml:"memory"`   // e.g. "64gb"
	NCPUs    int    `yaml:"ncpus"`
	Queue    string `yaml:"queue"`
	JobFS    string `yaml:"jobfs,omitempty"` // e.g. "4gb"
	Workdir  *bool  `yaml:"wd,omitempty"`    // start in submission directory
}

// quantityRe matches PBS size quantities like "64gb", "512mb", "100kb"
var quantityRe = regexp.MustCompile(`^[1-9][0-9]*(kb|mb|gb|tb)$`)

// nameRe restricts run names to what PBS accepts for -N. Anything looser
// would be rendered raw into the script and the script filename.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// moduleRe additionally allows the version separators module names use,
// e.g. "intel-mpi/2021.5"
var moduleRe = regexp.MustCompile(`^[A-Za-z0-9_.+/-]+$`)

// ParseRunSpec parses a YAML run specification into a Job model
func ParseRunSpec(specYAML string) (*models.Job, error) {
	var spec RunSpec
	if err := yaml.Unmarshal([]byte(specYAML), &spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	run := spec.Run
	if strings.TrimSpace(run.Name) == "" {
		return nil, fmt.Errorf("run name is required")
	}
	if !nameRe.MatchString(run.Name) {
		return nil, fmt.Errorf("invalid run name %q: only letters, digits, '_', '.' and '-' are allowed", run.Name)
	}
	if strings.TrimSpace(run.Payload) == "" {
		return nil, fmt.Errorf("run payload is required")
	}
	for _, module := range run.Modules {
		if !moduleRe.MatchString(module) {
			return nil, fmt.Errorf("invalid module name %q", module)
		}
	}

	job := &models.Job{
		Name:     run.Name,
		Payload:  run.Payload,
		RunDir:   run.RunDir,
		Modules:  run.Modules,
		Status:   models.JobStatusPending,
		SpecYAML: specYAML,
	}

	// Parse resources
	walltime, err := models.ParseWalltime(run.Resources.Walltime)
	if err != nil {
		return nil, err
	}

	memory, err := parseQuantity("memory", run.Resources.Memory)
	if err != nil {
		return nil, err
	}

	if run.Resources.NCPUs <= 0 {
		return nil, fmt.Errorf("ncpus must be a positive integer, got %d", run.Resources.NCPUs)
	}
	if strings.TrimSpace(run.Resources.Queue) == "" {
		return nil, fmt.Errorf("queue is required")
	}

	job.Resources = models.JobResources{
		Walltime: walltime,
		Memory:   memory,
		NCPUs:    run.Resources.NCPUs,
		Queue:    run.Resources.Queue,
	}

	// Scratch is optional; when absent the job gets the cluster default
	if run.Resources.JobFS != "" {
		jobfs, err := parseQuantity("jobfs", run.Resources.JobFS)
		if err != nil {
			return nil, err
		}
		job.Resources.JobFS = jobfs
	}

	// Default to starting in the submission directory, as the scripts
	// this replaces always requested
	job.Resources.WorkdirAtSubmit = true
	if run.Resources.Workdir != nil {
		job.Resources.WorkdirAtSubmit = *run.Resources.Workdir
	}

	return job, nil
}

// parseQuantity validates a size quantity and normalizes it to lower case
func parseQuantity(field, value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if !quantityRe.MatchString(v) {
		return "", fmt.Errorf("invalid %s %q: want a positive size with unit, e.g. \"64gb\"", field, value)
	}
	return v, nil
}
