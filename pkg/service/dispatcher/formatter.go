package dispatcher

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/slack-go/slack"
)

// Formatter renders an event into the wire payload for one family of
// endpoints. Signable reports whether the rendered payload participates in
// HMAC signing; rich chat-ops payloads are posted to pre-authenticated
// incoming-webhook URLs and are not signed.
type Formatter interface {
	Name() string
	Signable() bool
	Format(ev *webhook.Event) ([]byte, error)
}

// Rule binds a URL predicate to a formatter. The first matching rule wins;
// the generic formatter is the fallback when none match.
type Rule struct {
	Match     func(url string) bool
	Formatter Formatter
}

func defaultRules() []Rule {
	return []Rule{
		{
			Match: func(url string) bool {
				return strings.Contains(url, "hooks.slack.com")
			},
			Formatter: &ChatOpsFormatter{},
		},
	}
}

// GenericFormatter emits the event as-is. Any JSON-speaking endpoint can
// consume it, and it is the payload the signature covers.
type GenericFormatter struct{}

func (x *GenericFormatter) Name() string   { return "generic" }
func (x *GenericFormatter) Signable() bool { return true }

func (x *GenericFormatter) Format(ev *webhook.Event) ([]byte, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal event payload",
			goerr.T(errs.TagInternal))
	}
	return raw, nil
}

// ChatOpsFormatter renders the event as a chat incoming-webhook message with
// a severity-colored attachment.
type ChatOpsFormatter struct{}

func (x *ChatOpsFormatter) Name() string   { return "chatops" }
func (x *ChatOpsFormatter) Signable() bool { return false }

func (x *ChatOpsFormatter) Format(ev *webhook.Event) ([]byte, error) {
	fields := []slack.AttachmentField{
		{
			Title: "Severity",
			Value: ev.Severity.Label(),
			Short: true,
		},
		{
			Title: "Event",
			Value: ev.Type.String(),
			Short: true,
		},
	}
	for k, v := range ev.Metadata {
		fields = append(fields, slack.AttachmentField{
			Title: k,
			Value: stringify(v),
			Short: true,
		})
	}

	msg := slack.WebhookMessage{
		Text: ev.Title,
		Attachments: []slack.Attachment{
			{
				Color:  ev.Severity.Color(),
				Text:   ev.Message,
				Fields: fields,
				Ts:     json.Number(strconv.FormatInt(ev.Timestamp.Unix(), 10)),
			},
		},
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal chat-ops payload",
			goerr.T(errs.TagInternal))
	}
	return raw, nil
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

