// Package loader turns one workflow definition file into a *workflow.Workflow
// (spec.md §4.2, component B). Definitions are XML because the system this
// spec distills from (tyfh/Wexflow) describes workflows as XML validated
// against an XSD; no example repo in the retrieved corpus carries an XML
// library, so this is the one component built on encoding/xml rather than a
// third-party dependency (see DESIGN.md).
package loader

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-retry"

	"github.com/flowforge/engine/engine/cronvalidate"
	"github.com/flowforge/engine/engine/workflow"
	"github.com/flowforge/engine/pkg/logger"
)

// taskDef mirrors one <Task> element.
type taskDef struct {
	Name     string     `xml:"name,attr"               validate:"required"`
	Settings []settingDef `xml:"Setting"`
}

type settingDef struct {
	Name  string `xml:"name,attr"  validate:"required"`
	Value string `xml:"value,attr"`
}

// definition mirrors the root <Workflow> element of a definition file.
type definition struct {
	XMLName        xml.Name  `xml:"Workflow"`
	ID             int       `xml:"id,attr"         validate:"required"`
	Name           string    `xml:"Name"            validate:"required"`
	Description    string    `xml:"Description"`
	Enabled        *bool     `xml:"Enabled"`
	LaunchType     string    `xml:"LaunchType"      validate:"required,oneof=startup periodic cron"`
	Period         string    `xml:"Period"`
	CronExpression string    `xml:"CronExpression"`
	OnSuccess      *int      `xml:"OnSuccess"`
	OnError        *int      `xml:"OnError"`
	Tasks          []taskDef `xml:"Tasks>Task"`
}

var validate = validator.New()

// Options carries the loader's collaborators (spec.md §4.2: "the loader is
// passed the temp folder, the schema path, and a persistence handle — it is
// a collaborator, not part of this spec"). TempFolder and SchemaPath are
// accepted for parity with that contract; this implementation validates
// structurally via struct tags rather than against an external XSD, since no
// schema-validation library exists anywhere in the retrieved corpus.
type Options struct {
	TempFolder string
	SchemaPath string
	Executor   workflow.Executor
}

// retryAttempts (total reads) and retryBaseDelay/retryMaxDelay bound the
// transient-read retry: a definition file can be observed mid-save by an
// editor writing in two syscalls.
const (
	retryAttempts = 3
	retryBaseDelay = 20 * time.Millisecond
	retryMaxDelay  = 200 * time.Millisecond
)

// Load reads and parses path into a *workflow.Workflow, retrying transient
// read failures before surfacing a load error. The caller (the reconciler)
// is expected to log path + cause and continue on error rather than abort.
func Load(ctx context.Context, path string, opts Options) (*workflow.Workflow, error) {
	raw, err := readWithRetry(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	var def definition
	if err := xml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("loader: parse %s: %w", path, err)
	}
	if err := validate.Struct(def); err != nil {
		return nil, fmt.Errorf("loader: validate %s: %w", path, err)
	}
	cfg, err := toConfig(def, path)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return workflow.New(cfg, opts.Executor), nil
}

func readWithRetry(ctx context.Context, path string) ([]byte, error) {
	backoff := retry.NewExponential(retryBaseDelay)
	backoff = retry.WithCappedDuration(retryMaxDelay, backoff)
	backoff = retry.WithMaxRetries(retryAttempts-1, backoff)
	var raw []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.FromContext(ctx).Warn("failed to read workflow definition, will retry", "path", path, "error", err)
			return retry.RetryableError(err)
		}
		raw = data
		return nil
	})
	return raw, err
}

func toConfig(def definition, path string) (workflow.Config, error) {
	launchType := workflow.LaunchType(def.LaunchType)
	enabled := true
	if def.Enabled != nil {
		enabled = *def.Enabled
	}
	var period time.Duration
	if launchType == workflow.LaunchPeriodic {
		if def.Period == "" {
			return workflow.Config{}, fmt.Errorf("periodic workflow %d requires Period", def.ID)
		}
		d, err := time.ParseDuration(def.Period)
		if err != nil {
			return workflow.Config{}, fmt.Errorf("workflow %d: invalid Period %q: %w", def.ID, def.Period, err)
		}
		period = d
	}
	if launchType == workflow.LaunchCron {
		if !cronvalidate.IsCronExpressionValid(def.CronExpression) {
			return workflow.Config{}, fmt.Errorf("workflow %d: invalid CronExpression %q", def.ID, def.CronExpression)
		}
	}
	tasks := make([]workflow.TaskRef, 0, len(def.Tasks))
	for _, t := range def.Tasks {
		settings := make(map[string]string, len(t.Settings))
		for _, s := range t.Settings {
			settings[s.Name] = s.Value
		}
		tasks = append(tasks, workflow.TaskRef{Name: t.Name, Settings: settings})
	}
	return workflow.Config{
		ID:             def.ID,
		Name:           def.Name,
		Description:    def.Description,
		FilePath:       path,
		Enabled:        enabled,
		LaunchType:     launchType,
		Period:         period,
		CronExpression: def.CronExpression,
		OnSuccess:      def.OnSuccess,
		OnError:        def.OnError,
		Tasks:          tasks,
	}, nil
}
