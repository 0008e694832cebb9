// Package prompt assembles the instructions sent to the text-generation model.
// Everything here is pure: the same inputs always produce the same prompt.
package prompt

import (
	"fmt"
	"strings"
)

// Parameters describe the reconnaissance target as typed by the user.
type Parameters struct {
	Target     string `json:"target" validate:"required,notblank,max=512"`
	InfoType   string `json:"infoType" validate:"max=1024"`
	Filters    string `json:"filters" validate:"max=1024"`
	Exclusions string `json:"exclusions" validate:"max=1024"`
}

// Prompt is the pair of instructions for one generation call.
type Prompt struct {
	System string
	User   string
}

// Build renders the system and user instructions. Unknown platforms fall back to generic
// instructions. User-supplied values are embedded verbatim.
func Build(platform Platform, params Parameters, tmpl *Template) Prompt {
	return Prompt{
		System: buildSystem(platform, tmpl),
		User:   buildUser(params),
	}
}

func buildSystem(platform Platform, tmpl *Template) string {
	var b strings.Builder
	b.WriteString("Eres un experto en OSINT (Open Source Intelligence) y reconocimiento de infraestructuras.\n")
	fmt.Fprintf(&b, "Tu tarea es generar dorks de búsqueda altamente efectivos y precisos para la plataforma: %s.\n\n",
		strings.ToUpper(string(platform)))

	b.WriteString("INSTRUCCIONES ESPECÍFICAS DE LA PLATAFORMA:\n")
	b.WriteString(platform.Instructions())
	b.WriteString("\n\n")

	if tmpl != nil {
		writeTemplate(&b, platform, tmpl)
	}

	b.WriteString(`REQUERIMIENTOS:
1. Genera 3-5 variaciones de dorks optimizados para el objetivo.
2. Explica brevemente la lógica de cada operador usado.
3. Indica el nivel de especificidad (Bajo/Medio/Alto).
4. Incluye advertencias sobre falsos positivos si aplica.
5. NO incluyas introducciones largas, ve directo a los dorks.

FORMATO DE SALIDA (Markdown):
### 1. [Nombre descriptivo dork]
` + "```text" + `
[Sintaxis del dork]
` + "```" + `
*Explicación*: ...
*Efectividad*: ...
*Advertencia*: ... (opcional)

_(Repetir para las variaciones)_
`)
	return b.String()
}

func writeTemplate(b *strings.Builder, platform Platform, tmpl *Template) {
	b.WriteString("PLANTILLA DE VULNERABILIDAD SELECCIONADA:\n")
	fmt.Fprintf(b, "- Nombre: %s\n", tmpl.Name)
	fmt.Fprintf(b, "- Categoría: %s\n", tmpl.Category)
	fmt.Fprintf(b, "- Severidad: %s\n", tmpl.Severity)
	fmt.Fprintf(b, "- Descripción: %s\n", tmpl.Description)
	if tmpl.Credentials != "" {
		fmt.Fprintf(b, "- Credenciales por defecto conocidas: %s\n", tmpl.Credentials)
	}
	if base := tmpl.Platforms[platform]; base != "" {
		fmt.Fprintf(b, "- Consulta base para %s: %s\n", platform, base)
	}
	b.WriteString("Especializa todos los dorks en detectar esta vulnerabilidad concreta.\n\n")
}

func buildUser(params Parameters) string {
	return fmt.Sprintf(`
CONTEXTO DEL OBJETIVO:
- Dominio/IP: %s
- Tipo de información buscada: %s
- Filtros adicionales: %s
- Exclusiones: %s

Genera los dorks ahora.
`, params.Target, params.InfoType, params.Filters, params.Exclusions)
}
