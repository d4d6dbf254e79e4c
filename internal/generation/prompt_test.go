package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"legalqa/internal/retrieval"
)

func TestBuildPrompt_EmbedsFragmentsThenQuestion(t *testing.T) {
	prompt := BuildPrompt("Apa isi Pasal 28?", []retrieval.Fragment{"Pasal 28 <hak>", "Pasal 1 \"umum\""})

	assert.Contains(t, prompt, `["Pasal 28 <hak>","Pasal 1 \"umum\""]`)
	assert.Contains(t, prompt, "Pertanyaan: Apa isi Pasal 28?")
	assert.Less(t, strings.Index(prompt, "Pasal 28 <hak>"), strings.Index(prompt, "Pertanyaan:"))
	assert.Contains(t, prompt, "hanya jika relevan")
	assert.Contains(t, prompt, "jangan mengarang kutipan")
}

func TestBuildPrompt_EmptyFragments(t *testing.T) {
	prompt := BuildPrompt("q", nil)
	assert.Contains(t, prompt, "[]")
	assert.Contains(t, prompt, "Pertanyaan: q")
}

func TestBuildPrompt_PlaceholderInQuestionIsLiteral(t *testing.T) {
	prompt := BuildPrompt("{fragments}?", []retrieval.Fragment{"a"})
	assert.Contains(t, prompt, "Pertanyaan: {fragments}?")
	assert.Equal(t, 1, strings.Count(prompt, `["a"]`))
}

func TestSystemPrompt_FixesLanguage(t *testing.T) {
	assert.Contains(t, SystemPrompt, "Bahasa Indonesia")
	assert.Contains(t, SystemPrompt, "hukum")
}
