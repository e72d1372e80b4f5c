package generator

import "strings"

const (
	LanguageSpanish = "es"
	LanguageEnglish = "en"
)

var placeholders = map[string]string{
	LanguageSpanish: "Artículo generado",
	LanguageEnglish: "Generated Article",
}

var instructionTemplates = map[string]string{
	LanguageSpanish: `Eres un generador de artículos de blog.

A partir del siguiente prompt de usuario:
"""{{prompt}}"""

Genera un artículo de blog en español con el siguiente formato JSON ESTRICTO.
IMPORTANTE:
- Devuelve ÚNICAMENTE el JSON, sin explicaciones, sin texto antes ni después.
- El JSON debe tener exactamente estas 3 claves: title, body, seo_description.

Ejemplo de formato esperado (NO lo devuelvas tal cual, solo respeta la estructura):

{
  "title": "Título atractivo para el blog",
  "body": "Cuerpo completo del artículo, con varios párrafos.",
  "seo_description": "Descripción corta optimizada para SEO (máx 150 caracteres)."
}`,
	LanguageEnglish: `You write blog articles.

Using the following user prompt:
"""{{prompt}}"""

Write a blog article in English in the following STRICT JSON format.
IMPORTANT:
- Return ONLY the JSON, with no explanation and no text before or after it.
- The JSON must have exactly these 3 keys: title, body, seo_description.

Expected shape (do NOT return it as is, only follow the structure):

{
  "title": "Catchy blog title",
  "body": "Full article body, with several paragraphs.",
  "seo_description": "Short SEO description (max 150 characters)."
}`,
}

// Placeholder is the title used when the model supplies none.
func Placeholder(lang string) string {
	return placeholders[normalizeLanguage(lang)]
}

// BuildInstruction embeds prompt verbatim in the instruction for lang.
func BuildInstruction(prompt, lang string) string {
	return strings.Replace(instructionTemplates[normalizeLanguage(lang)], "{{prompt}}", prompt, 1)
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := placeholders[lang]; ok {
		return lang
	}
	return LanguageSpanish
}
