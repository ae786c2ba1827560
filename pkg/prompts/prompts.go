// Package prompts renders the system and user prompts of the assistants.
package prompts

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/pkg/errors"
)

const (
	// NoCity is the reply the city extraction prompt asks for when the
	// question names no city.
	NoCity = "NONE"

	CityFallbackSystem = "Identify a city mentioned in the user query. Only reply with the city name."
	CityFactsSystem    = "Provide exactly 3 interesting facts about the city. Each fact starts with a dash (-)."
)

const factsSystemTemplate = `You are a helpful travel assistant. ` +
	`Provide exactly 3 interesting facts about the location the user mentions, formatted as bullet points (-). ` +
	`Do not include any reasoning steps, only output the final 3 bullets.`

const travelSystemTemplate = `You are a helpful travel assistant. ` +
	`Think step-by-step internally to identify the location and reason about it, ` +
	`but only output the final clean answer to the user. ` +
	`The final user-facing output should include: ` +
	`1. Exactly 3 interesting facts about the location, formatted as bullet points (-). ` +
	`2. The distance from {{ .Origin }} to the location in miles. ` +
	`Do not explain how you calculated the distance. ` +
	`Do not show your internal reasoning. Only show the final answer.`

const agentSystemTemplate = `You are an agent with {{ len .Tools }} tool{{ if ne (len .Tools) 1 }}s{{ end }}:
{{ range .Tools }}
{{ .Name }}({{ range $i, $a := .Args }}{{ if $i }}, {{ end }}{{ $a.Name }}:{{ $a.Type }}{{ end }})
    {{ .Description | trim }}
{{ end }}
When you plan, emit exactly three lines:

Thought: <your thought>
Action: <tool name>
Args: <JSON object with the tool arguments, e.g. {{ example (index .Tools 0) }}>

When you know the answer, reply with a single line:

Final: <answer>

Do NOT output anything else.`

const cityExtractionTemplate = `Return ONLY the city name mentioned here (no country or state). ` +
	`If none, reply exactly '{{ .NoCity }}'.

{{ .Question }}`

const cityFactsUserTemplate = `Tell me 3 interesting facts about {{ .City }}.`

var templates = template.Must(parseAll(map[string]string{
	"facts":           factsSystemTemplate,
	"travel":          travelSystemTemplate,
	"agent":           agentSystemTemplate,
	"city-extraction": cityExtractionTemplate,
	"city-facts":      cityFactsUserTemplate,
}))

func parseAll(sources map[string]string) (*template.Template, error) {
	root := template.New("prompts").Funcs(sprig.TxtFuncMap()).Funcs(template.FuncMap{
		"example": exampleArgs,
	})
	for name, src := range sources {
		if _, err := root.New(name).Parse(src); err != nil {
			return nil, errors.Wrapf(err, "could not parse prompt %s", name)
		}
	}
	return root, nil
}

// Render executes the named prompt template with data.
func Render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "could not render prompt %s", name)
	}
	return strings.TrimSpace(buf.String()), nil
}

func mustRender(name string, data interface{}) string {
	s, err := Render(name, data)
	if err != nil {
		panic(err)
	}
	return s
}

func FactsSystem() string {
	return mustRender("facts", nil)
}

// TravelSystem asks for 3 facts and the distance from origin.
func TravelSystem(origin string) string {
	return mustRender("travel", map[string]interface{}{"Origin": origin})
}

// AgentSystem describes the tools and the Thought/Action/Args protocol to
// planners without native tool calls.
func AgentSystem(specs []tools.ToolSpec) (string, error) {
	if len(specs) == 0 {
		return "", errors.New("agent prompt needs at least one tool")
	}
	return Render("agent", map[string]interface{}{"Tools": specs})
}

func CityExtraction(question string) string {
	return mustRender("city-extraction", map[string]interface{}{"NoCity": NoCity, "Question": question})
}

func CityFactsUser(city string) string {
	return mustRender("city-facts", map[string]interface{}{"City": city})
}

func exampleArgs(spec tools.ToolSpec) string {
	var b strings.Builder
	b.WriteString("{")
	for i, a := range spec.Args {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`"` + a.Name + `":`)
		switch a.Type {
		case tools.ArgString:
			b.WriteString(`"..."`)
		case tools.ArgBoolean:
			b.WriteString("true")
		default:
			b.WriteString("0")
		}
	}
	b.WriteString("}")
	return b.String()
}
