package pbs

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"pbs-orchestrator/core/models"
)

// Queue describes a scheduling class advertised by the cluster
type Queue struct {
	Name        string
	Enabled     bool
	Started     bool
	MaxWalltime time.Duration // zero when the queue reports no limit
	MaxNCPUs    int           // zero when the queue reports no limit
}

// Queues lists the queues known to the scheduler via qstat -Q -f
func (c *Client) Queues(ctx context.Context) (map[string]Queue, error) {
	out, err := exec.CommandContext(ctx, c.qstatPath, "-Q", "-f").Output()
	if err != nil {
		return nil, fmt.Errorf("qstat -Q: %w", err)
	}
	return parseQueues(string(out)), nil
}

// CheckAdmission verifies that the requested resources can be admitted by
// the named queue. An unknown queue is always a rejection.
func CheckAdmission(queues map[string]Queue, res models.JobResources) error {
	q, ok := queues[res.Queue]
	if !ok {
		return fmt.Errorf("queue %q does not exist on this cluster", res.Queue)
	}
	if !q.Enabled {
		return fmt.Errorf("queue %q is not accepting jobs", res.Queue)
	}
	if q.MaxWalltime > 0 && res.Walltime > q.MaxWalltime {
		return fmt.Errorf("walltime %s exceeds queue %q limit %s",
			models.FormatWalltime(res.Walltime), res.Queue, models.FormatWalltime(q.MaxWalltime))
	}
	if q.MaxNCPUs > 0 && res.NCPUs > q.MaxNCPUs {
		return fmt.Errorf("ncpus %d exceeds queue %q limit %d", res.NCPUs, res.Queue, q.MaxNCPUs)
	}
	return nil
}

// parseQueues parses qstat -Q -f output into queue descriptions. Each queue
// block starts with a "Queue: <name>" header.
func parseQueues(out string) map[string]Queue {
	queues := make(map[string]Queue)

	for _, block := range strings.Split(out, "Queue: ") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		name, rest, _ := strings.Cut(block, "\n")
		fields := parseQstatFields(rest)

		q := Queue{
			Name:    strings.TrimSpace(name),
			Enabled: fields["enabled"] == "True",
			Started: fields["started"] == "True",
		}
		if v, ok := fields["resources_max.walltime"]; ok {
			if d, err := models.ParseWalltime(v); err == nil {
				q.MaxWalltime = d
			}
		}
		if v, ok := fields["resources_max.ncpus"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				q.MaxNCPUs = n
			}
		}
		queues[q.Name] = q
	}

	return queues
}
