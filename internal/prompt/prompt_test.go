package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCulture(t *testing.T) {
	out, err := Culture("[1/1/25, 09:00:00] Ana: hola\n[1/1/25, 09:01:00] Luis: buenas")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Eres un psicólogo experto"))
	assert.Contains(t, out, "### Conversaciones\n[1/1/25, 09:00:00] Ana: hola\n[1/1/25, 09:01:00] Luis: buenas\n")
}

func TestCulture_NoEscaping(t *testing.T) {
	out, err := Culture(`<b>"quotes" & tags</b>`)
	require.NoError(t, err)
	assert.Contains(t, out, `<b>"quotes" & tags</b>`)
}

func TestAnswer(t *testing.T) {
	out, err := Answer("Ana: me encanta el café", "¿Qué le gusta a Ana?")
	require.NoError(t, err)

	assert.Contains(t, out, `responde con "No lo sé"`)
	assert.Contains(t, out, "Contexto:\nAna: me encanta el café\n")
	assert.Contains(t, out, "Pregunta:\n¿Qué le gusta a Ana?\n")
	assert.True(t, strings.HasSuffix(out, "Respuesta:\n"))
}
