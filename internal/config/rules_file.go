package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vigilops/vigil-core/internal/models"
)

// RulesFile is the yaml bootstrap document declaring notification channels,
// escalation rules and the recipient directory. It is re-read on change when
// rules.watch is set.
type RulesFile struct {
	Channels  []ChannelSpec        `yaml:"channels"`
	Rules     []RuleSpec           `yaml:"rules"`
	Directory []DirectoryEntrySpec `yaml:"directory"`
}

// DirectoryEntrySpec maps one abstract recipient (role, group, user...) to
// its concrete addressable targets.
type DirectoryEntrySpec struct {
	Kind       string       `yaml:"kind"`
	Identifier string       `yaml:"identifier"`
	Targets    []TargetSpec `yaml:"targets"`
}

type TargetSpec struct {
	Kind    string `yaml:"kind"`
	ID      string `yaml:"id"`
	Address string `yaml:"address"`
}

type ChannelSpec struct {
	ID     string `yaml:"id"`
	Type   string `yaml:"type"`
	Active *bool  `yaml:"active"`
	RateLimits struct {
		MaxPerMinute int `yaml:"max_per_minute"`
		MaxPerHour   int `yaml:"max_per_hour"`
		MaxPerDay    int `yaml:"max_per_day"`
	} `yaml:"rate_limits"`
}

type RuleSpec struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name"`
	AlertType  string          `yaml:"alert_type"`
	Severity   string          `yaml:"severity"`
	Active     *bool           `yaml:"active"`
	Conditions []ConditionSpec `yaml:"conditions"`
	Steps      []StepSpec      `yaml:"steps"`
}

type ConditionSpec struct {
	FieldPath       string      `yaml:"field_path"`
	Operator        string      `yaml:"operator"`
	Value           interface{} `yaml:"value"`
	LogicalOperator string      `yaml:"logical_operator"`
}

type StepSpec struct {
	Level             int             `yaml:"level"`
	DelayMinutes      int             `yaml:"delay_minutes"`
	StopOnAcknowledge bool            `yaml:"stop_on_acknowledge"`
	Actions           []string        `yaml:"actions"`
	Recipients        []RecipientSpec `yaml:"recipients"`
}

type RecipientSpec struct {
	Kind       string   `yaml:"kind"`
	Identifier string   `yaml:"identifier"`
	Channels   []string `yaml:"channels"`
}

// LoadRulesFile parses the bootstrap document at path.
func LoadRulesFile(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var f RulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return &f, nil
}

// ToModel converts the yaml spec into the engine's rule model. Validation is
// the caller's job; a spec without an explicit active flag defaults to true.
func (s RuleSpec) ToModel() *models.EscalationRule {
	r := &models.EscalationRule{
		ID:        s.ID,
		Name:      s.Name,
		AlertType: s.AlertType,
		Severity:  s.Severity,
		Active:    s.Active == nil || *s.Active,
	}
	for _, c := range s.Conditions {
		r.Conditions = append(r.Conditions, models.Condition{
			FieldPath:       c.FieldPath,
			Operator:        c.Operator,
			Value:           models.FromAny(c.Value),
			LogicalOperator: c.LogicalOperator,
		})
	}
	for _, st := range s.Steps {
		step := models.EscalationStep{
			Level:             st.Level,
			DelayMinutes:      st.DelayMinutes,
			StopOnAcknowledge: st.StopOnAcknowledge,
			Actions:           st.Actions,
		}
		for _, rec := range st.Recipients {
			step.Recipients = append(step.Recipients, models.Recipient{
				Kind:       rec.Kind,
				Identifier: rec.Identifier,
				Channels:   rec.Channels,
			})
		}
		r.Steps = append(r.Steps, step)
	}
	return r
}

// TargetModels converts the yaml entry into the engine's target model.
func (s DirectoryEntrySpec) TargetModels() []models.Target {
	out := make([]models.Target, 0, len(s.Targets))
	for _, t := range s.Targets {
		out = append(out, models.Target{Kind: t.Kind, ID: t.ID, Address: t.Address})
	}
	return out
}

// ToModel converts the yaml channel spec into the engine's model.
func (s ChannelSpec) ToModel() *models.NotificationChannel {
	return &models.NotificationChannel{
		ID:   s.ID,
		Type: s.Type,
		RateLimits: models.RateLimits{
			MaxPerMinute: s.RateLimits.MaxPerMinute,
			MaxPerHour:   s.RateLimits.MaxPerHour,
			MaxPerDay:    s.RateLimits.MaxPerDay,
		},
		Active: s.Active == nil || *s.Active,
	}
}
