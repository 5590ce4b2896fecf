package scanning

import "fmt"

// extractTablePrompt is the shared prompt used by all LLM providers for
// the first digitization pass over a scanned barrel gauge table.
const extractTablePrompt = `You are analyzing a scanned table of oak barrel volume measurements. The table maps a wet-height reading (the first column, usually in centimeters) to one or more volume readings (usually in liters). Carefully read every printed cell.

Return ONLY a valid JSON array, one object per table row. Each object key is a column name taken from the table header; the FIRST key of every object must be the wet-height column. Each value is an object of this exact shape:

{"value": <number, string, or null>, "confidence": "high" | "medium" | "low"}

Rules:
- Use a number for any cell you can read as a numeric measurement
- Use a string only when a cell is printed but not numeric
- Use null for cells that are blank or unreadable, with your confidence that they are truly blank
- "high" means you are certain of the reading, "medium" means probable, "low" means a guess
- Do not invent rows or columns that are not printed in the table
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// verifyTablePromptFormat wraps the extracted batch for the second,
// self-verification pass. The no-gap rule lives here: it is part of the
// contract with the model, the merge engine does not re-check it.
const verifyTablePromptFormat = `You previously extracted the following JSON from this scanned table of oak barrel volume measurements:

%s

Re-read the image carefully and verify every cell against the print. Correct any value you misread and adjust its confidence accordingly. Keep exactly the same array-of-row-objects shape, the same column names, and the same cell shape {"value": ..., "confidence": ...}.

Rules:
- Within a single row, the volume readings of one numbered series must have no gaps: once a value in that series is null, every later value of the same series in that row must also be null
- Do not add or remove rows
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// verifyTablePrompt renders the verification prompt around an extracted
// batch already encoded as JSON.
func verifyTablePrompt(batchJSON string) string {
	return fmt.Sprintf(verifyTablePromptFormat, batchJSON)
}
