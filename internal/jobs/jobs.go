// -----------------------------------------------------------------------
// Jobs - bounded units of scheduled work
// Each job owns one data source, routes items through the article pipeline
// or the analyzer, and reports an outcome-counter line when it finishes.
// -----------------------------------------------------------------------

package jobs

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/pipeline"
)

// meta carries the identity every job shares.
type meta struct {
	id      string
	name    string
	trigger interfaces.Trigger
	class   interfaces.JobClass
}

func (m meta) ID() string                  { return m.id }
func (m meta) Name() string                { return m.name }
func (m meta) Trigger() interfaces.Trigger { return m.trigger }
func (m meta) Class() interfaces.JobClass  { return m.class }

// counters aggregates pipeline outcomes across one job invocation.
type counters map[pipeline.Outcome]int

func (c counters) add(o pipeline.Outcome) { c[o]++ }

func (c counters) total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// String renders a stable "saved=3 duplicate=7" summary for the final log line.
func (c counters) String() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, c[pipeline.Outcome(k)]))
	}
	return strings.Join(parts, " ")
}

// logSummary emits the standard end-of-run line.
func logSummary(log arbor.ILogger, jobName string, c counters, started time.Time) {
	log.Info().
		Str("job", jobName).
		Int("processed", c.total()).
		Str("outcomes", c.String()).
		Str("duration", time.Since(started).Round(time.Millisecond).String()).
		Msg("Job completed")
}

// stringParam reads an optional string parameter from a manual trigger.
func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// intParam reads an optional integer parameter from a manual trigger.
// JSON decoding hands numbers over as float64.
func intParam(params map[string]any, key string, fallback int) int {
	if params == nil {
		return fallback
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// boolParam reads an optional bool parameter from a manual trigger.
func boolParam(params map[string]any, key string, fallback bool) bool {
	if params == nil {
		return fallback
	}
	if v, ok := params[key].(bool); ok {
		return v
	}
	return fallback
}
