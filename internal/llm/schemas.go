package llm

const (
	schemaNamePageOCR      = "page_ocr"
	schemaNameImageCaption = "image_caption"
	schemaNameStructure    = "section_structure"
	schemaNameRerank       = "rerank"
)

func ocrSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ocr_response": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index": map[string]any{"type": "integer"},
						"label": map[string]any{
							"type": "string",
							"enum": []string{"header", "text"},
						},
						"content": map[string]any{"type": "string"},
					},
					"required":             []string{"index", "label", "content"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"ocr_response"},
		"additionalProperties": false,
	}
}

func captionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{"type": "string"},
		},
		"required":             []string{"description"},
		"additionalProperties": false,
	}
}

func structureSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sections": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index":        map[string]any{"type": "integer"},
						"parent_index": map[string]any{"type": []string{"integer", "null"}},
					},
					"required":             []string{"index", "parent_index"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"sections"},
		"additionalProperties": false,
	}
}

func rerankSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reranked_indices": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "integer"},
			},
		},
		"required":             []string{"reranked_indices"},
		"additionalProperties": false,
	}
}
