package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/model"
	"github.com/user/cinefam/internal/utils"
)

const openAIAPIBase = "https://api.openai.com/v1"

// EmbeddingService converts text and movie metadata into fixed-length
// vectors through the embedding provider. Identical blobs are served from an
// in-process LRU so repeated ensure-movie paths skip the paid API.
type EmbeddingService struct {
	client  *utils.BoundedClient
	baseURL string
	apiKey  string
	model   string
	dims    int
	cache   *lru.Cache[string, []float32]
}

// NewEmbeddingService creates the embedding gateway.
func NewEmbeddingService(client *utils.BoundedClient, apiKey, embeddingModel string, dims int) *EmbeddingService {
	cache, _ := lru.New[string, []float32](2048)
	return &EmbeddingService{
		client:  client,
		baseURL: openAIAPIBase,
		apiKey:  apiKey,
		model:   embeddingModel,
		dims:    dims,
		cache:   cache,
	}
}

type embeddingRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedText generates an embedding for arbitrary text. Blank or
// whitespace-only input is a validation error, not an upstream call.
func (s *EmbeddingService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.Validationf("cannot generate an embedding for empty text")
	}

	key := cacheKey(text)
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}

	var resp embeddingResponse
	err := s.client.PostJSON(ctx, s.baseURL+"/embeddings",
		map[string]string{"Authorization": "Bearer " + s.apiKey},
		embeddingRequest{Input: text, Model: s.model, Dimensions: s.dims},
		&resp,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errs.Upstream("openai", 0, fmt.Errorf("no embeddings in response"))
	}

	vec := resp.Data[0].Embedding
	s.cache.Add(key, vec)
	return vec, nil
}

// EmbedMovie embeds a weighted text blob built from the movie's metadata.
// Weighting is by repetition and field order: the title appears twice, then
// the synopsis, genres and top-10 keywords.
func (s *EmbeddingService) EmbedMovie(ctx context.Context, movie *model.Movie) ([]float32, error) {
	text := buildEmbeddingText(movie)
	if text == "" {
		return nil, errs.Validationf("cannot embed movie %d: no text content available", movie.TMDBID)
	}
	return s.EmbedText(ctx, text)
}

func buildEmbeddingText(movie *model.Movie) string {
	var parts []string

	if movie.Title != "" {
		parts = append(parts, movie.Title, movie.Title)
	}
	if movie.Overview != "" {
		parts = append(parts, movie.Overview)
	}
	if len(movie.Genres) > 0 {
		parts = append(parts, "Genres: "+strings.Join(movie.Genres, ", "))
	}
	if len(movie.Keywords) > 0 {
		top := movie.Keywords
		if len(top) > 10 {
			top = top[:10]
		}
		parts = append(parts, "Themes: "+strings.Join(top, ", "))
	}

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CosineSimilarity returns the cosine of the angle between two vectors, in
// [-1, 1]. Vectors of different lengths cannot be compared.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errs.Validationf("embeddings must have the same dimensions (%d vs %d)", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, errs.Validationf("cannot compare a zero vector")
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
