package embedding

// Task types passed through to providers that distinguish them.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// EmbeddingProvider turns text into a dense vector. Corpus chunks embed
// with TaskRetrievalDocument, learner queries with TaskRetrievalQuery.
type EmbeddingProvider interface {
	Generate(text string, taskType string) (*EmbeddingResponse, error)
}
