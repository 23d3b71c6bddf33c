// Package prompt renders the prompts sent to the text generator.
package prompt

import (
	"strings"
	"text/template"
)

// NoAnswer is what the answer prompt asks the model to reply when the context
// does not contain the answer
const NoAnswer = "No lo sé"

const cultureText = `Eres un psicólogo experto en psicología laboral. Se necesita que analices las siguientes conversaciones con el objetivo de resumir el tipo de cultura que se observa en la empresa. Enfocate en los aspectos positivos de la cultura de la empresa y obvia los aspectos negativos. Resume el ambiente de la empresa en una oración.

### Conversaciones
{{.Conversations}}
`

const answerText = `Eres un asistente que responde preguntas basándose únicamente en el contexto proporcionado. Tu respuesta debe consistir en una oración, concisa y al punto. Si la información para responder la pregunta no está contenida en el contexto, responde con "{{.NoAnswer}}". No uses conocimiento externo ni hagas suposiciones más allá de lo que está en el contexto.

Contexto:
{{.Context}}

Pregunta:
{{.Query}}

Respuesta:
`

var (
	cultureTmpl = template.Must(template.New("culture").Parse(cultureText))
	answerTmpl  = template.Must(template.New("answer").Parse(answerText))
)

// Culture asks for a one sentence summary of the company culture seen in
// conversations
func Culture(conversations string) (string, error) {
	return render(cultureTmpl, map[string]string{"Conversations": conversations})
}

// Answer asks for a one sentence answer to query using only context
func Answer(context, query string) (string, error) {
	return render(answerTmpl, map[string]string{
		"Context":  context,
		"Query":    query,
		"NoAnswer": NoAnswer,
	})
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
