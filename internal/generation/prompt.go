package generation

import (
	"bytes"
	"encoding/json"
	"strings"

	"legalqa/internal/retrieval"
)

// SystemPrompt fixes the domain and the answer language regardless of the
// language the question was asked in.
const SystemPrompt = "Anda adalah asisten hukum yang menjawab pertanyaan seputar peraturan perundang-undangan di Indonesia. " +
	"Selalu jawab dalam Bahasa Indonesia yang baik dan benar."

const promptTemplate = `Berikut adalah potongan peraturan perundang-undangan yang mungkin relevan:

{fragments}

Pertanyaan: {question}

Gunakan potongan peraturan di atas sebagai konteks hanya jika relevan dengan pertanyaan. ` +
	`Jika tidak relevan, jawab berdasarkan pengetahuan umum Anda dan jangan mengarang kutipan atau nomor pasal.`

// BuildPrompt embeds the retrieved fragments, in rank order and unedited, as
// a JSON array followed by the question.
func BuildPrompt(question string, fragments []retrieval.Fragment) string {
	if fragments == nil {
		fragments = []retrieval.Fragment{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// a []string never fails to encode
	_ = enc.Encode(fragments)

	return strings.NewReplacer(
		"{fragments}", strings.TrimRight(buf.String(), "\n"),
		"{question}", question,
	).Replace(promptTemplate)
}
