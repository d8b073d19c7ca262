package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const ocrSystemPrompt = `
You are an OCR and document layout analysis system.
The input is an image of ONE full document page.
Transcribe ALL text on the page and split it into segments.
Return JSON only.`

const ocrUserPrompt = `
Segmentation rules:
- Return segments in natural reading order: top to bottom, left to right.
- Skip page numbers and watermarks.
- Each segment is exactly one of:
  - "header": a title or heading, usually bold or larger type.
  - "text": a normal passage, usually several sentences.

Index rules:
- index is the segment's position within the page.
- Start at 0 and increase by 1 with no gaps.
- index follows reading order.

Hard requirements:
- Do not drop any text.
- Do not rewrite, interpret, or paraphrase the transcription.
- Write "[unreadable]" for any run of text you cannot read.`

const captionSystemPrompt = `
You are a multimodal assistant specialized in precise image understanding for document analysis.
The first image is the figure to describe; the second, when present, is the page it appears on.
Return JSON only.`

// captionUserPrompt renders the caption instruction block. contextText is
// nearby page text when the caller has it; it may be empty.
func captionUserPrompt(contextText string) string {
	ctx := strings.TrimSpace(contextText)
	if ctx == "" {
		ctx = "(none)"
	}
	return fmt.Sprintf(`
CONTEXT:
%s

TASK:
Analyze the first image and produce ONE complete descriptive paragraph.

INSTRUCTIONS:
- Describe the image in full detail using only what is visible.
- Transcribe all readable content in the image: text, formulas, symbols, labels, numbers, chart values, annotations.
- Integrate the description with the context so the relationship is clear.
- Do not speculate or add information that is not present in the image.
- Use clear, neutral language.
- Do not open with "This image shows" or "The image depicts".
- Output a single paragraph, not a list.`, ctx)
}

const structureSystemPrompt = `
You are given the flat list of section headers extracted from a document.
Each header has its original order index, title, and page.
Assign every header a parent so the list becomes a correct hierarchy.
Return JSON only.`

// structureUserPrompt embeds the header skeleton as a JSON array.
func structureUserPrompt(sections []SectionRef) (string, error) {
	raw, err := json.Marshal(sections)
	if err != nil {
		return "", fmt.Errorf("marshal sections: %w", err)
	}
	return fmt.Sprintf(`
Rules:
- Keep the index values from the input. Never reassign or invent them.
- parent_index is the index of the parent header, or null for a top-level header.
- Do not invent or remove sections.
- Do not modify titles.
- Headers with similar titles and nearby pages are likely siblings.
- Return one entry per input section.

Input sections:
%s`, string(raw)), nil
}

const rerankSystemPrompt = `
You are a document reranking system.
Given a question and a numbered list of documents, return the document indices
ordered by decreasing relevance to the question.
Return JSON only.`

// rerankUserPrompt numbers documents 0..n-1, one block per document.
func rerankUserPrompt(question string, docs []string) string {
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "[%d]\n%s\n\n", i, strings.TrimSpace(d))
	}
	return fmt.Sprintf(`
Rules:
- Indices start at 0.
- Never return an index greater than or equal to %d.
- Drop documents that do not help answer the question; keep the ones that do.
- Return the index list only, no explanations.

Question: %s

Documents (count: %d):
%s`, len(docs), strings.TrimSpace(question), len(docs), b.String())
}
