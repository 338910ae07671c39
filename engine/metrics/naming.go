package metrics

import "strings"

// MetricPrefix namespaces every metric this engine emits.
const MetricPrefix = "flowforge_"

// nameWithSubsystem formats name as flowforge_<subsystem>_<name>, lower-cased
// with spaces collapsed to underscores, matching the naming convention the
// rest of the pack's OpenTelemetry instrumentation follows.
func nameWithSubsystem(subsystem, name string) string {
	subsystem = strings.Trim(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(subsystem), " ", "_")), "_")
	base := strings.Trim(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_")), "_")
	if subsystem == "" {
		return MetricPrefix + base
	}
	return MetricPrefix + subsystem + "_" + base
}
