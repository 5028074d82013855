package script

import (
	"bytes"
	"fmt"
	"text/template"

	"pbs-orchestrator/core/models"
)

// The following fields are available in the template:
//
// Name        job name directive
// Walltime    requested walltime in HH:MM:SS
// Memory      requested memory with unit
// NCPUs       requested cpu count
// Queue       target queue
// Workdir     whether to start in the submission directory
// JobFS       per-job scratch allocation with unit
// Modules     environment modules to load before the payload
// Launcher    path to the launcher binary
// LogPath     path the payload's merged output is appended to
// Payload     command executed by the launcher

var pbsTemplate = `#!/bin/bash
#PBS -N {{.Name}}
#PBS -l walltime={{.Walltime}}
#PBS -l mem={{.Memory}}
#PBS -l ncpus={{.NCPUs}}
#PBS -q {{.Queue}}
{{if .Workdir -}}
#PBS -l wd
{{end -}}
{{if ne .JobFS "" -}}
{{printf "#PBS -l jobfs=%s" .JobFS}}
{{end -}}
{{range .Modules -}}
{{printf "module load %s" .}}
{{end}}
{{.Launcher}} -log {{.LogPath}} -- {{.Payload}} >> {{.LogPath}} 2>&1
`

// Renderer renders PBS submission scripts for jobs
type Renderer struct {
	launcherPath string
	tmpl         *template.Template
}

// NewRenderer creates a script renderer invoking the given launcher binary
func NewRenderer(launcherPath string) (*Renderer, error) {
	tmpl, err := template.New("pbs").Parse(pbsTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PBS template: %w", err)
	}
	return &Renderer{launcherPath: launcherPath, tmpl: tmpl}, nil
}

type scriptData struct {
	Name     string
	Walltime string
	Memory   string
	NCPUs    int
	Queue    string
	Workdir  bool
	JobFS    string
	Modules  []string
	Launcher string
	LogPath  string
	Payload  string
}

// Render produces the submission script for a job. The output contains
// exactly one payload invocation line; the shell redirection catches the
// launcher's own diagnostics, the launcher handles the payload's streams.
func (r *Renderer) Render(job *models.Job) (string, error) {
	if job.LogPath == "" {
		return "", fmt.Errorf("job %s has no log path", job.ID)
	}

	data := scriptData{
		Name:     job.Name,
		Walltime: models.FormatWalltime(job.Resources.Walltime),
		Memory:   job.Resources.Memory,
		NCPUs:    job.Resources.NCPUs,
		Queue:    job.Resources.Queue,
		Workdir:  job.Resources.WorkdirAtSubmit,
		JobFS:    job.Resources.JobFS,
		Modules:  job.Modules,
		Launcher: r.launcherPath,
		LogPath:  job.LogPath,
		Payload:  job.Payload,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render script for job %s: %w", job.ID, err)
	}
	return buf.String(), nil
}
