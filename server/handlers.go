package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nocaplabs/claimcheck/core"
)

const (
	defaultHistoryLimit  = 20
	defaultTrendingLimit = 10
	maxListLimit         = 100
)

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

type evidenceResponse struct {
	Type    string  `json:"type"`
	Title   string  `json:"title,omitempty"`
	Ref     string  `json:"ref,omitempty"`
	Excerpt string  `json:"excerpt,omitempty"`
	Score   float64 `json:"score"`
}

type askResponse struct {
	Answer     string             `json:"answer"`
	Verdict    core.Verdict       `json:"verdict"`
	Confidence int                `json:"confidence"`
	SourceType core.SourceType    `json:"source_type"`
	Sources    []evidenceResponse `json:"sources"`
	SessionID  string             `json:"session_id"`
	CreatedAt  time.Time          `json:"created_at"`
}

func (s *Server) ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result, err := s.app.Verify(c.Request().Context(), req.Question, req.SessionID)
	if err != nil {
		if errors.Is(err, core.ErrInvalidQuestion) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}

	sources := make([]evidenceResponse, 0, len(result.Sources))
	for _, ev := range result.Sources {
		sources = append(sources, evidenceResponse{
			Type:    ev.Type,
			Title:   ev.Title,
			Ref:     ev.Ref,
			Excerpt: ev.Excerpt,
			Score:   ev.Score,
		})
	}

	return c.JSON(http.StatusOK, askResponse{
		Answer:     result.Answer,
		Verdict:    result.Verdict,
		Confidence: result.Confidence,
		SourceType: result.SourceType,
		Sources:    sources,
		SessionID:  result.SessionID,
		CreatedAt:  result.CreatedAt,
	})
}

type ingestWebRequest struct {
	Content   string `json:"content"`
	URL       string `json:"url"`
	SessionID string `json:"session_id,omitempty"`
}

type ingestDocumentRequest struct {
	Content   string `json:"content"`
	Document  string `json:"document"`
	Page      int    `json:"page"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) ingestWeb(c echo.Context) error {
	var req ingestWebRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.app.IngestWeb(c.Request().Context(), req.Content, req.URL, req.SessionID)
	if err != nil {
		if errors.Is(err, core.ErrEmptyContent) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) ingestDocument(c echo.Context) error {
	var req ingestDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.app.IngestDocument(c.Request().Context(), req.Content, req.Document, req.Page, req.SessionID)
	if err != nil {
		if errors.Is(err, core.ErrEmptyContent) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) stats(c echo.Context) error {
	stats, err := s.app.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

type historyItem struct {
	ID         core.ID         `json:"id"`
	SessionID  string          `json:"session_id"`
	Question   string          `json:"question"`
	Answer     string          `json:"answer"`
	Verdict    core.Verdict    `json:"verdict"`
	Confidence int             `json:"confidence"`
	SourceType core.SourceType `json:"source_type"`
	Timestamp  time.Time       `json:"timestamp"`
}

func historyItems(records []*core.HistoryRecord) []historyItem {
	items := make([]historyItem, 0, len(records))
	for _, r := range records {
		items = append(items, historyItem{
			ID:         r.Id,
			SessionID:  r.SessionID,
			Question:   r.Question,
			Answer:     r.Answer,
			Verdict:    r.Verdict,
			Confidence: r.Confidence,
			SourceType: r.SourceType,
			Timestamp:  r.Timestamp,
		})
	}
	return items
}

func (s *Server) recentHistory(c echo.Context) error {
	limit := queryLimit(c, defaultHistoryLimit)
	records, err := s.app.HistoryRepository().RecentRecords(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, historyItems(records))
}

func (s *Server) sessionHistory(c echo.Context) error {
	sessionID := c.Param("id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session id is required")
	}

	limit := queryLimit(c, defaultHistoryLimit)
	records, err := s.app.HistoryRepository().RecordsBySession(c.Request().Context(), sessionID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, historyItems(records))
}

func (s *Server) trending(c echo.Context) error {
	limit := queryLimit(c, defaultTrendingLimit)
	topics, err := s.app.HistoryRepository().Trending(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, topics)
}

type sessionResponse struct {
	SessionID  string    `json:"session_id"`
	Requests   int       `json:"requests"`
	LastActive time.Time `json:"last_active"`
}

func (s *Server) sessions(c echo.Context) error {
	activities, err := s.app.HistoryRepository().Sessions(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]sessionResponse, 0, len(activities))
	for _, a := range activities {
		out = append(out, sessionResponse{
			SessionID:  a.SessionID,
			Requests:   a.Requests,
			LastActive: a.LastActive,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// queryLimit parses the limit query parameter, clamped to maxListLimit.
func queryLimit(c echo.Context, fallback int) int {
	raw := c.QueryParam("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
