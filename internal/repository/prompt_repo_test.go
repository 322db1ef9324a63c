package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/promptvault-api/internal/models"
	"github.com/noah-isme/promptvault-api/pkg/ai"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Prompt{}, &models.PromptEvaluation{}, &models.PromptAutoTag{}))
	return db
}

func TestPromptRepositoryListFiltersVisibilityTagsAndSearch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	now := time.Now()
	prompts := []models.Prompt{
		{UserID: 1, Title: "Email Writer", Content: "Write an email", Category: "business", Tags: []string{"Email", "writing"}, CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: 2, Title: "Story Seeds", Description: "fiction starters", Content: "Once upon", Category: "creative", Tags: []string{"fiction"}, CreatedAt: now.Add(-time.Hour)},
		{UserID: 2, Title: "Private Notes", Content: "secret", Visibility: models.PromptVisibilityPrivate, CreatedAt: now},
	}
	for i := range prompts {
		require.NoError(t, repo.Create(ctx, &prompts[i]))
	}

	public, total, err := repo.List(ctx, PromptFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, public, 2)
	require.Equal(t, "Story Seeds", public[0].Title, "newest first")

	withOwn, total, err := repo.List(ctx, PromptFilter{ViewerID: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, withOwn, 3)

	otherOwner := uint(2)
	foreign, total, err := repo.List(ctx, PromptFilter{OwnerID: &otherOwner, ViewerID: 1})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Story Seeds", foreign[0].Title)

	tagged, total, err := repo.List(ctx, PromptFilter{Tags: []string{" EMAIL "}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, []string{"email", "writing"}, tagged[0].Tags)

	searched, _, err := repo.List(ctx, PromptFilter{Search: "FICTION"})
	require.NoError(t, err)
	require.Len(t, searched, 1)
	require.Equal(t, "Story Seeds", searched[0].Title)

	byCategory, _, err := repo.List(ctx, PromptFilter{Category: "Business"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)

	paged, total, err := repo.List(ctx, PromptFilter{AllPrivate: true, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, paged, 1)
	require.Equal(t, "Email Writer", paged[0].Title)
}

func TestPromptRepositoryListMatchesWildcardsLiterally(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	prompts := []models.Prompt{
		{UserID: 1, Title: "Discount 50% off", Content: "c", Tags: []string{"sale_copy"}},
		{UserID: 1, Title: "Plain title", Content: "c", Tags: []string{"salex"}},
	}
	for i := range prompts {
		require.NoError(t, repo.Create(ctx, &prompts[i]))
	}

	for _, tag := range []string{"%", "_", "sale%", "sale_"} {
		matched, total, err := repo.List(ctx, PromptFilter{Tags: []string{tag}})
		require.NoError(t, err)
		require.Zero(t, total, "tag %q", tag)
		require.Empty(t, matched)
	}

	exact, total, err := repo.List(ctx, PromptFilter{Tags: []string{"sale_copy"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Discount 50% off", exact[0].Title)

	literal, _, err := repo.List(ctx, PromptFilter{Search: "50%"})
	require.NoError(t, err)
	require.Len(t, literal, 1)

	percent, _, err := repo.List(ctx, PromptFilter{Search: "%"})
	require.NoError(t, err)
	require.Len(t, percent, 1, "only the title containing a percent sign matches")

	underscore, _, err := repo.List(ctx, PromptFilter{Search: "plain_title"})
	require.NoError(t, err)
	require.Empty(t, underscore)
}

func TestPromptRepositoryIncrementUsage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	prompt := models.Prompt{UserID: 1, Title: "Counter", Content: "x"}
	require.NoError(t, repo.Create(ctx, &prompt))

	count, err := repo.IncrementUsage(ctx, prompt.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	count, err = repo.IncrementUsage(ctx, prompt.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	_, err = repo.IncrementUsage(ctx, 999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPromptRepositoryListByIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromptRepository(db)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &models.Prompt{UserID: 1, Title: title, Content: title}))
	}

	prompts, err := repo.ListByIDs(ctx, []uint{3, 1, 42})
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	require.Equal(t, "a", prompts[0].Title)
	require.Equal(t, "c", prompts[1].Title)

	empty, err := repo.ListByIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestEvaluationRepositoryLatestScores(t *testing.T) {
	db := setupTestDB(t)
	prompts := NewPromptRepository(db)
	evaluations := NewEvaluationRepository(db)
	ctx := context.Background()

	public := models.Prompt{UserID: 1, Title: "public", Content: "p"}
	private := models.Prompt{UserID: 1, Title: "private", Content: "q", Visibility: models.PromptVisibilityPrivate}
	other := models.Prompt{UserID: 2, Title: "other", Content: "r"}
	require.NoError(t, prompts.Create(ctx, &public))
	require.NoError(t, prompts.Create(ctx, &private))
	require.NoError(t, prompts.Create(ctx, &other))

	first := models.NewPromptEvaluation(public.ID, ai.FallbackScore("p"), "stub")
	require.NoError(t, evaluations.SaveEvaluation(ctx, &first))

	rescored := ai.FallbackScore("p")
	rescored.Overall = 9
	rescored.Category = ai.CategoryTechnical
	second := models.NewPromptEvaluation(public.ID, rescored, "stub")
	require.NoError(t, evaluations.SaveEvaluations(ctx, []models.PromptEvaluation{
		second,
		models.NewPromptEvaluation(private.ID, ai.FallbackScore("q"), "stub"),
		models.NewPromptEvaluation(other.ID, ai.BatchFailureScore(), "stub"),
	}))

	latest, err := evaluations.LatestEvaluation(ctx, public.ID)
	require.NoError(t, err)
	require.Equal(t, 9, latest.Overall)
	require.Equal(t, rescored, latest.Score())

	degraded := models.NewPromptEvaluation(public.ID, ai.BatchFailureScore(), "stub")
	degraded.Error = "provider timeout"
	require.NoError(t, evaluations.SaveEvaluation(ctx, &degraded))

	publicScores, err := evaluations.ListLatestScores(ctx, ScoreFilter{})
	require.NoError(t, err)
	require.Len(t, publicScores, 2)
	require.Equal(t, 9, publicScores[0].Overall)
	require.Equal(t, 1, publicScores[1].Overall)

	owner := uint(1)
	mine, err := evaluations.ListLatestScores(ctx, ScoreFilter{OwnerID: &owner})
	require.NoError(t, err)
	require.Len(t, mine, 2)

	technical, err := evaluations.ListLatestScores(ctx, ScoreFilter{Category: "technical"})
	require.NoError(t, err)
	require.Len(t, technical, 1)
	require.Equal(t, public.ID, technical[0].PromptID)
}

func TestEvaluationRepositoryAutoTags(t *testing.T) {
	db := setupTestDB(t)
	evaluations := NewEvaluationRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Prompt{UserID: 1, Title: "t", Content: "c"}).Error)

	record := models.NewPromptAutoTag(1, ai.AutoTagResult{Tags: []string{"email"}, Confidence: 0.7, Reasoning: "ok"}, "stub")
	require.NoError(t, evaluations.SaveAutoTags(ctx, &record))

	stored, err := evaluations.LatestAutoTags(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"email"}, []string(stored.Tags))
	require.InDelta(t, 0.7, stored.Confidence, 0.0001)

	_, err = evaluations.LatestAutoTags(ctx, 2)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
