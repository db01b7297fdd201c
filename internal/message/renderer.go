// Package message renders severity- and channel-specific notification text
// from a typed alert. Rendering is a total token substitution: it never
// errors and never leaves a {token} unresolved.
package message

import (
	"fmt"
	"strings"

	"github.com/minewatch/go-mine-alerts/internal/models"
)

// Rendered is the final per-channel content. HTML is populated only for
// email. Length limits are the channel provider's concern, not the renderer's.
type Rendered struct {
	Title string
	Body  string
	HTML  string
}

type template struct {
	title string
	body  string
	html  string
}

// Recognized tokens: {zoneName} {riskScore} {timestamp} {recommendedActions} {alertId}.
var templates = map[models.Severity]map[models.Channel]template{
	models.SeverityLow: {
		models.ChannelPush: {
			title: "Advisory: {zoneName}",
			body:  "Risk level in {zoneName} is {riskScore}/10. No action required. ({timestamp})",
		},
		models.ChannelSMS: {
			body: "MINEWATCH advisory: {zoneName} risk {riskScore}/10 at {timestamp}. No action required. Ref {alertId}",
		},
		models.ChannelEmail: {
			title: "Advisory: risk level update for {zoneName}",
			body:  "Risk level in {zoneName} is {riskScore}/10 as of {timestamp}.\n\nNo action is required.\n\nReference: {alertId}",
			html:  "<h3>Advisory</h3><p>Risk level in <b>{zoneName}</b> is <b>{riskScore}/10</b> as of {timestamp}.</p><p>No action is required.</p><p><small>Reference: {alertId}</small></p>",
		},
	},
	models.SeverityMedium: {
		models.ChannelPush: {
			title: "Caution: elevated risk in {zoneName}",
			body:  "Risk score {riskScore}/10 at {timestamp}.\n{recommendedActions}",
		},
		models.ChannelSMS: {
			body: "MINEWATCH caution: {zoneName} risk {riskScore}/10 at {timestamp}.\n{recommendedActions}\nRef {alertId}",
		},
		models.ChannelEmail: {
			title: "Caution: elevated risk in {zoneName}",
			body:  "Risk in {zoneName} has risen to {riskScore}/10 as of {timestamp}.\n\nRecommended actions:\n{recommendedActions}\n\nReference: {alertId}",
			html:  "<h3 style=\"color:#fbc02d\">Caution: elevated risk</h3><p>Risk in <b>{zoneName}</b> has risen to <b>{riskScore}/10</b> as of {timestamp}.</p><p>Recommended actions:</p><p>{recommendedActions}</p><p><small>Reference: {alertId}</small></p>",
		},
	},
	models.SeverityHigh: {
		models.ChannelPush: {
			title: "WARNING: high risk in {zoneName}",
			body:  "Risk score {riskScore}/10 at {timestamp}. Prepare to withdraw.\n{recommendedActions}",
		},
		models.ChannelSMS: {
			body: "MINEWATCH WARNING: {zoneName} risk {riskScore}/10 at {timestamp}. Prepare to withdraw.\n{recommendedActions}\nRef {alertId}",
		},
		models.ChannelEmail: {
			title: "WARNING: high risk in {zoneName}",
			body:  "Risk in {zoneName} has reached {riskScore}/10 as of {timestamp}. Personnel in the zone and adjacent zones should prepare to withdraw.\n\nRecommended actions:\n{recommendedActions}\n\nReference: {alertId}",
			html:  "<h2 style=\"color:#f57c00\">WARNING: high risk</h2><p>Risk in <b>{zoneName}</b> has reached <b>{riskScore}/10</b> as of {timestamp}.</p><p>Personnel in the zone and adjacent zones should prepare to withdraw.</p><p>Recommended actions:</p><p>{recommendedActions}</p><p><small>Reference: {alertId}</small></p>",
		},
	},
	models.SeverityCritical: {
		models.ChannelPush: {
			title: "EVACUATE {zoneName} NOW",
			body:  "CRITICAL risk {riskScore}/10 at {timestamp}. Evacuate immediately.\n{recommendedActions}",
		},
		models.ChannelSMS: {
			body: "MINEWATCH EMERGENCY: EVACUATE {zoneName} NOW. Risk {riskScore}/10 at {timestamp}.\n{recommendedActions}\nRef {alertId}",
		},
		models.ChannelEmail: {
			title: "EMERGENCY: evacuate {zoneName} immediately",
			body:  "CRITICAL risk level {riskScore}/10 in {zoneName} as of {timestamp}. All personnel must evacuate immediately.\n\nRecommended actions:\n{recommendedActions}\n\nReference: {alertId}",
			html:  "<h1 style=\"color:#d32f2f\">EMERGENCY: EVACUATE {zoneName}</h1><p>CRITICAL risk level <b>{riskScore}/10</b> as of {timestamp}.</p><p>All personnel must evacuate immediately.</p><p>Recommended actions:</p><p>{recommendedActions}</p><p><small>Reference: {alertId}</small></p>",
		},
	},
}

// Render produces the message for one severity/channel pair. Unknown
// severities fall back to the medium templates rather than failing.
func Render(severity models.Severity, channel models.Channel, alert *models.Alert) Rendered {
	bySeverity, ok := templates[severity]
	if !ok {
		bySeverity = templates[models.SeverityMedium]
	}
	tmpl := bySeverity[channel]

	r := newReplacer(alert)
	return Rendered{
		Title: r.Replace(tmpl.title),
		Body:  r.Replace(tmpl.body),
		HTML:  r.Replace(tmpl.html),
	}
}

func newReplacer(alert *models.Alert) *strings.Replacer {
	var actions strings.Builder
	for i, a := range alert.RecommendedActions {
		if i > 0 {
			actions.WriteString("\n")
		}
		actions.WriteString("- ")
		actions.WriteString(a)
	}

	return strings.NewReplacer(
		"{zoneName}", alert.ZoneName,
		"{riskScore}", fmt.Sprintf("%.1f", alert.RiskScore),
		"{timestamp}", alert.Timestamp.Format("2006-01-02 15:04 MST"),
		"{recommendedActions}", actions.String(),
		"{alertId}", alert.ID,
	)
}
