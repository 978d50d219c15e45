package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/repository/specification"
	"ai-tutoring-be/internal/repository/unitofwork"
	"ai-tutoring-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.DocumentRepository())
	assert.NotNil(t, uow.DocumentChunkRepository())
	assert.NotNil(t, uow.DialogueSessionRepository())
	assert.NotNil(t, uow.DialogueTurnRepository())
	assert.NotNil(t, uow.TurnCitationRepository())
	assert.NotNil(t, uow.ActivityLogRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	t.Run("Check Document Repository", func(t *testing.T) {
		count, err := uow.DocumentRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Document count: %d", count)
	})

	t.Run("Check Document Chunk Repository", func(t *testing.T) {
		count, err := uow.DocumentChunkRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("DocumentChunk count: %d", count)
	})
}

// TestTranscriptRoundTrip writes a full dialogue exchange (session, turns,
// citations) transactionally and reads it back, the same path the engine's
// transcript sink takes on every committed exchange.
func TestTranscriptRoundTrip(t *testing.T) {
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)

	ctx := context.Background()
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(ctx)

	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	userId := uuid.New()

	// 1. Seed a document with one chunk to cite
	docId := uuid.New()
	doc := &entity.Document{
		Id:         docId,
		Title:      "Integration Test Document",
		SourceName: "integration.pdf",
		Content:    "Pretotyping validates demand before a product exists.",
		Status:     entity.DocumentStatusEmbedded,
		UserId:     userId,
	}
	require.NoError(t, uow.DocumentRepository().Create(ctx, doc))

	chunkId := uuid.New()
	embedding := make([]float32, 768)
	embedding[0] = 1
	chunk := &entity.DocumentChunk{
		Id:             chunkId,
		Content:        doc.Content,
		EmbeddingValue: embedding,
		DocumentId:     docId,
		ChunkIndex:     0,
		Page:           1,
	}
	require.NoError(t, uow.DocumentChunkRepository().Create(ctx, chunk))

	// 2. Session + one learner/tutor exchange
	sessionId := uuid.New()
	session := &entity.DialogueSession{
		Id:     sessionId,
		UserId: userId,
		Title:  "What is pretotyping?",
	}
	require.NoError(t, uow.DialogueSessionRepository().Create(ctx, session))

	tier := "partial"
	score := 2.8
	tutorTurnId := uuid.New()
	turns := []*entity.DialogueTurn{
		{
			Id:                uuid.New(),
			DialogueSessionId: sessionId,
			Role:              "learner",
			TurnType:          "answer_attempt",
			Text:              "It is about faking the product to measure demand.",
		},
		{
			Id:                tutorTurnId,
			DialogueSessionId: sessionId,
			Role:              "tutor",
			TurnType:          "probe",
			Text:              "Close. What distinguishes it from prototyping?",
			Tier:              &tier,
			WeightedScore:     &score,
			ScaffoldLevel:     1,
		},
	}
	require.NoError(t, uow.DialogueTurnRepository().CreateBulk(ctx, turns))

	citation := &entity.TurnCitation{
		Id:              uuid.New(),
		DialogueTurnId:  tutorTurnId,
		DocumentChunkId: chunkId,
	}
	require.NoError(t, uow.TurnCitationRepository().Create(ctx, citation))

	// 3. Read back within the same transaction
	stored, err := uow.DialogueTurnRepository().FindAll(ctx,
		specification.ByDialogueSessionID{DialogueSessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
	)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	var tutorTurn *entity.DialogueTurn
	for _, turn := range stored {
		if turn.Role == "tutor" {
			tutorTurn = turn
		}
	}
	require.NotNil(t, tutorTurn)
	assert.Equal(t, 1, tutorTurn.ScaffoldLevel)
	require.NotNil(t, tutorTurn.Tier)
	assert.Equal(t, "partial", *tutorTurn.Tier)
	require.NotNil(t, tutorTurn.WeightedScore)
	assert.InDelta(t, 2.8, *tutorTurn.WeightedScore, 0.0001)

	citations, err := uow.TurnCitationRepository().FindAll(ctx,
		specification.ByDialogueTurnIDs{TurnIDs: []uuid.UUID{tutorTurnId}},
	)
	require.NoError(t, err)
	require.Len(t, citations, 1)
	assert.Equal(t, chunkId, citations[0].DocumentChunkId)

	// Rollback via defer: nothing persists past the test.
}
