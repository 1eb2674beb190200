package sendnotification

import (
	"fmt"
	"regexp"
	"strings"
)

type template struct {
	Subject string
	Body    string
}

var templates = map[string]template{
	TypeEpisodeUnlocked: {
		Subject: "New episode of {{title}} is out",
		Body:    "Episode {{episodeNumber}} of {{title}} is now available. Happy reading!",
	},
	TypeDonationGoalReached: {
		Subject: "{{title}} reached its donation goal",
		Body:    "Thanks to readers like you, {{title}} hit its goal. New episodes are on the way.",
	},
	TypeSubscriptionExpiring: {
		Subject: "Your {{tier}} subscription is expiring",
		Body:    "Your {{tier}} subscription ends on {{expiresAt}}. Renew to keep reading without interruption.",
	},
	TypeCommentReply: {
		Subject: "{{author}} replied to your comment",
		Body:    "{{author}} replied on {{title}}: {{excerpt}}",
	},
}

var (
	placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)
	doubleSpace = regexp.MustCompile(` {2,}`)
)

// renderTemplate substitutes {{key}} from data. Placeholders without a value are dropped.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := data[key]
		if !ok || v == nil {
			return ""
		}
		switch val := v.(type) {
		case string:
			return val
		case float64:
			if val == float64(int64(val)) {
				return fmt.Sprintf("%d", int64(val))
			}
			return fmt.Sprintf("%g", val)
		default:
			return fmt.Sprintf("%v", val)
		}
	})
	return strings.TrimSpace(doubleSpace.ReplaceAllString(out, " "))
}
