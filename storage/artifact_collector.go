package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"pbs-orchestrator/core/models"

	"github.com/gobwas/glob"
)

// ArtifactStore is where discovered artifacts are registered
type ArtifactStore interface {
	CreateArtifact(jobID string, artifactType models.ArtifactType, path string, sizeBytes int64) error
}

// ArtifactCollector registers files a finished run left in its run directory
type ArtifactCollector struct {
	artifactRepo ArtifactStore
	outputGlobs  []glob.Glob
}

// DefaultOutputPatterns matches the files assimilation payloads typically
// produce next to their log
var DefaultOutputPatterns = []string{"*.nc", "*.ncf", "*.pic.gz", "*.pickle.zip"}

// NewArtifactCollector creates a collector for the given output patterns
func NewArtifactCollector(artifactRepo ArtifactStore, patterns []string) (*ArtifactCollector, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid output pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	return &ArtifactCollector{
		artifactRepo: artifactRepo,
		outputGlobs:  globs,
	}, nil
}

// Collect scans a finished run's directory and registers what it produced.
// The log is always registered; other files only when a pattern matches.
func (ac *ArtifactCollector) Collect(job *models.Job) error {
	if job.RunDir == "" {
		return nil
	}

	entries, err := os.ReadDir(job.RunDir)
	if err != nil {
		return fmt.Errorf("failed to read run dir %s: %w", job.RunDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(job.RunDir, entry.Name())
		artifactType, ok := ac.classify(job, entry.Name(), path)
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if err := ac.artifactRepo.CreateArtifact(job.ID, artifactType, path, info.Size()); err != nil {
			return err
		}
	}

	return nil
}

// classify decides whether a file is worth registering and as what
func (ac *ArtifactCollector) classify(job *models.Job, name, path string) (models.ArtifactType, bool) {
	if path == job.LogPath {
		return models.ArtifactTypeLog, true
	}
	if path == job.ScriptPath {
		return models.ArtifactTypeDiagnostic, true
	}
	for _, g := range ac.outputGlobs {
		if g.Match(name) {
			return models.ArtifactTypeOutput, true
		}
	}
	return "", false
}
