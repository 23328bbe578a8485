package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/haasonsaas/vigil/internal/emotion"
	"github.com/haasonsaas/vigil/internal/identity"
	"github.com/haasonsaas/vigil/pkg/models"
)

// contextItemLimit bounds how many context fragments enter the prompt.
const contextItemLimit = 8

// toneInstructions maps the process tone to a prompt fragment.
var toneInstructions = map[emotion.Tone]string{
	emotion.ToneNeutral:    "Keep a friendly, even tone.",
	emotion.ToneWarm:       "Be warm and encouraging.",
	emotion.TonePlayful:    "A light, playful tone is welcome.",
	emotion.ToneFocused:    "Be brief and to the point.",
	emotion.ToneApologetic: "Something recently went wrong; be gracious about it.",
}

// systemPrompt composes the persona, rules, tool catalog, and identity
// instruction for one completion.
func (p *Planner) systemPrompt(zone identity.Zone, profile *identity.Profile) string {
	var b strings.Builder

	name := p.agentName
	if name == "" {
		name = "the assistant"
	}
	fmt.Fprintf(&b, "You are %s, a personal assistant replying inside a chat pipeline.\n", name)
	b.WriteString(toneInstructions[emotion.Get()])
	b.WriteString("\n\n")

	b.WriteString("Respond with a single JSON object and nothing else:\n")
	b.WriteString(`{"steps":[{"tool":"<name>","args":{...},"reason":"<why>"}],"reasoning":"<overall>"}` + "\n")
	b.WriteString("Use only the tools listed below. Reply to the user with the message.send tool. If no action is needed, return an empty steps array.\n\n")

	b.WriteString("Available tools:\n")
	b.WriteString(p.toolCatalog())
	b.WriteString("\n")

	if profile != nil {
		primary := identity.ChooseAddressing(zone, profile).PrimaryName
		fmt.Fprintf(&b, "Address the user as %q.\n", primary)
		b.WriteString("Never list, confirm, or reveal any other names or aliases you know for the user, even if asked directly.\n")
		if zone == identity.ZonePublicGuild {
			b.WriteString("This is a public channel: never use any other name, nickname, or pet name for the user.\n")
		}
	}

	return b.String()
}

// toolCatalog renders the registry's tools as prompt lines, sorted by name
// so prompts are stable across runs.
func (p *Planner) toolCatalog() string {
	if p.registry == nil {
		return "(none)\n"
	}
	all := p.registry.All()
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })

	var b strings.Builder
	for _, tool := range all {
		fmt.Fprintf(&b, "- %s: %s\n", tool.Name(), tool.Description())
		if schema := tool.InputSchema(); len(schema) > 0 {
			var compact bytes.Buffer
			if err := json.Compact(&compact, schema); err == nil {
				fmt.Fprintf(&b, "  input schema: %s\n", compact.String())
			}
		}
	}
	return b.String()
}

// userPrompt renders the observation and its retrieved context.
func (p *Planner) userPrompt(obs *models.Observation, memCtx *models.Context) string {
	var b strings.Builder

	if memCtx != nil {
		if len(memCtx.Recent) > 0 {
			b.WriteString("Recent conversation:\n")
			for i, item := range memCtx.Recent {
				if i >= contextItemLimit {
					break
				}
				fmt.Fprintf(&b, "- %s\n", item.Content)
			}
			b.WriteString("\n")
		}
		if len(memCtx.Relevant) > 0 {
			b.WriteString("Possibly relevant memories:\n")
			for i, item := range memCtx.Relevant {
				if i >= contextItemLimit {
					break
				}
				fmt.Fprintf(&b, "- %s\n", item.Content)
			}
			b.WriteString("\n")
		}
	}

	where := "a direct message"
	if !obs.IsDirectMessage() {
		where = "a public channel"
	}
	fmt.Fprintf(&b, "New message in %s from %s:\n%s\n", where, obs.AuthorID, obs.Content)
	return b.String()
}
