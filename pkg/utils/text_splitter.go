package utils

// SplitText cuts text into chunks of roughly chunkSize runes, each
// overlapping the previous by overlap runes so sentences cut at a
// boundary survive in at least one chunk. Character-based on purpose:
// chunk offsets must stay deterministic for page estimation.
func SplitText(text string, chunkSize int, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	runes := []rune(text)
	totalLen := len(runes)

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}

	var chunks []string
	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}
