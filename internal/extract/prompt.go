package extract

import (
	"fmt"
	"unicode/utf8"

	"github.com/procudo/contract-cli/pkg/anthropic"
)

// toolName is the single tool the model is forced to call so extraction
// output arrives as structured JSON.
const toolName = "extract_contract_data"

// maxDocumentChars caps the document text sent per request.
const maxDocumentChars = 100_000

const systemPrompt = `You are a document analysis assistant specialized in Croatian legal contracts.
You extract structured pricing data from IT service maintenance contracts and their annexes.

These contracts follow a highly standardized structure:
- They are between Procudo d.o.o. (IT service provider) and a client company.
- Pricing is typically in a table called "Prilog 2" or "Prilog 1" with these columns:
  Poz. | Opis usluge | Oznaka | Mjera | Kol. | Jed. Cijena
- Common line items: monthly maintenance (paušal), L1 hourly rate, L2/L3 hourly rate, on-site visit.
- Annexes modify pricing from the parent contract and reference it.

Key instructions:
- Look for [TABLE] markers in the text, they contain structured table data.
- The pricing table usually has headers containing "Poz" and "cijena" (price).
- Keep prices in original Croatian format: dot = thousands separator, comma = decimal (e.g., "1.200,00").
- Detect the currency from the table header: "(EUR)" means EUR, "(kn)" or "(HRK)" means HRK.
- Contracts from before 2023 may use HRK (Croatian Kuna). From 2023 onward, EUR.
- Extract ALL pricing rows, not just the monthly fee.
- Set confidence to "high" if you find a clear pricing table, "medium" if pricing is in prose, "low" if uncertain.
- If this is an annex, set document_type to "annex" and try to identify the parent contract number.
- The document_date should be the signing/effective date found in the document header.`

const userPromptTemplate = `Extract the structured pricing data from the following Croatian contract document.
The document belongs to client folder: %q.

DOCUMENT TEXT:
---
%s
---

Call the extract_contract_data tool with the extracted information.`

// extractionTool defines the tool schema the model fills in.
func extractionTool() anthropic.ToolDefinition {
	return anthropic.ToolDefinition{
		Name:        toolName,
		Description: "Extract structured pricing data from a Croatian IT service contract or annex.",
		InputSchema: anthropic.ToolInputSchema{
			Properties: map[string]any{
				"client_name": map[string]any{
					"type":        "string",
					"description": "Client company name as stated in the contract.",
				},
				"client_oib": map[string]any{
					"type":        "string",
					"description": "Client OIB (11-digit tax ID). Empty string if not found.",
				},
				"client_address": map[string]any{
					"type":        "string",
					"description": "Client registered address. Empty string if not found.",
				},
				"client_director": map[string]any{
					"type":        "string",
					"description": "Name of the client's director or signatory. Empty if not found.",
				},
				"document_type": map[string]any{
					"type":        "string",
					"enum":        []string{"contract", "annex"},
					"description": "Whether this is a main contract or an annex/amendment.",
				},
				"contract_number": map[string]any{
					"type":        "string",
					"description": "Contract/annex reference number (e.g., 'U-25-09'). Empty if not found.",
				},
				"parent_contract_number": map[string]any{
					"type":        "string",
					"description": "For annexes: the parent contract number this annex modifies. Empty if not applicable.",
				},
				"document_date": map[string]any{
					"type":        "string",
					"description": "Signing or effective date as written in the document (e.g., '01.03.2025'). Empty if not found.",
				},
				"pricing_items": map[string]any{
					"type":        "array",
					"description": "All pricing line items found in the document.",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"position": map[string]any{
								"type":        "string",
								"description": "Row number/position (e.g., '1.', '2.').",
							},
							"service_name": map[string]any{
								"type":        "string",
								"description": "Service description in Croatian.",
							},
							"unit": map[string]any{
								"type":        "string",
								"description": "Unit of measurement (e.g., 'sat', 'kom', 'mjesečno').",
							},
							"quantity": map[string]any{
								"type":        "string",
								"description": "Quantity (e.g., '1').",
							},
							"price_raw": map[string]any{
								"type":        "string",
								"description": "Price as written in Croatian format (e.g., '1.200,00'). Keep original formatting.",
							},
							"source_section": map[string]any{
								"type":        "string",
								"description": "Where this item was found (e.g., 'Prilog 2', 'TABLE 0', 'Članak 5').",
							},
						},
						"required": []string{"service_name", "price_raw"},
					},
				},
				"currency": map[string]any{
					"type":        "string",
					"enum":        []string{"EUR", "HRK"},
					"description": "Currency of the prices. EUR for post-2023, HRK for pre-2023.",
				},
				"confidence": map[string]any{
					"type":        "string",
					"enum":        []string{"high", "medium", "low"},
					"description": "Extraction confidence: high=clear table, medium=prose pricing, low=uncertain.",
				},
				"notes": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Any observations, warnings, or ambiguities found during extraction.",
				},
			},
			Required: []string{"client_name", "document_type", "pricing_items", "currency", "confidence"},
		},
	}
}

// buildRequest assembles the per-client message request. The system prompt is
// cacheable so batch submissions hit a warm prompt cache.
func buildRequest(model string, maxTokens int64, folderName, documentText string) anthropic.MessageRequest {
	if len(documentText) > maxDocumentChars {
		cut := maxDocumentChars
		for cut > 0 && !utf8.RuneStart(documentText[cut]) {
			cut--
		}
		documentText = documentText[:cut]
	}
	return anthropic.MessageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(userPromptTemplate, folderName, documentText)},
		},
		Tools:      []anthropic.ToolDefinition{extractionTool()},
		ToolChoice: toolName,
	}
}
