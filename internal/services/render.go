package services

import (
	"fmt"
	"strings"

	"github.com/vigilops/vigil-core/internal/models"
)

// RenderTemplate substitutes {{var}} placeholders in a notification
// template. Placeholders with no matching variable are left verbatim so a
// template typo degrades to visible noise instead of a dispatch error.
func RenderTemplate(tpl string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(tpl, "{{") {
		return tpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// notificationVars builds the variable set available to step templates and
// channel adapters for one dispatch.
func notificationVars(event *models.AlertEvent, rule *models.EscalationRule, inst *models.EscalationInstance, step models.EscalationStep) map[string]string {
	vars := map[string]string{
		"alert.id":       event.ID,
		"alert.type":     event.Type,
		"alert.scope":    event.Scope,
		"alert.severity": event.Severity,
		"alert.message":  event.Message,
		"rule.id":        rule.ID,
		"rule.name":      rule.Name,
		"instance.id":    inst.ID,
		"level":          fmt.Sprintf("%d", step.Level),
	}
	for k, v := range event.Metadata {
		if s, ok := v.AsString(); ok {
			vars["metadata."+k] = s
		}
	}
	return vars
}
