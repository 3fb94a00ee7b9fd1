package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/iwtcode/railmon/internal/config"
	"github.com/iwtcode/railmon/internal/domain/models"
	"github.com/iwtcode/railmon/internal/interfaces"
	"github.com/iwtcode/railmon/internal/middleware/logging"
)

// HTTPScorer обращается к внешнему сервису классификации дефектов.
// Получает вектор признаков показания, возвращает метку и вероятности.
type HTTPScorer struct {
	url    string
	client *http.Client
	log    *logging.Logger
}

// NewHTTPScorer создает клиент скорера. Пустой URL означает, что скоринг
// отключен: возвращается nil без ошибки.
func NewHTTPScorer(cfg *config.AppConfig, logger *logging.Logger) (interfaces.MLScorer, error) {
	if cfg.MLScorerURL == "" {
		return nil, nil
	}
	return &HTTPScorer{
		url:    cfg.MLScorerURL,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    logger.WithPrefix("ML"),
	}, nil
}

type predictRequest struct {
	Features []float64 `json:"features"`
}

type predictResponse struct {
	OK            bool      `json:"ok"`
	Error         string    `json:"error,omitempty"`
	Label         string    `json:"label"`
	ClassIndex    int       `json:"class_index"`
	Confidence    float64   `json:"confidence"`
	Probabilities []float64 `json:"probabilities"`
}

// Score отправляет вектор признаков на классификацию.
func (s *HTTPScorer) Score(ctx context.Context, features []float64) (*models.MLPrediction, error) {
	body, err := json.Marshal(predictRequest{Features: features})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scorer returned status %d", resp.StatusCode)
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if !parsed.OK {
		return nil, fmt.Errorf("scorer error: %s", parsed.Error)
	}

	return &models.MLPrediction{
		Label:         parsed.Label,
		ClassIndex:    parsed.ClassIndex,
		Confidence:    parsed.Confidence,
		Probabilities: parsed.Probabilities,
	}, nil
}
