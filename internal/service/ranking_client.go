package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

// RankRequest is what a ranker sees about one substitution.
type RankRequest struct {
	AbsentTeacher string
	Subject       string
	Day           string
	Period        int
	Candidates    []models.Teacher
}

// RankResult is a ranker's choice. Name is validated by the caller.
type RankResult struct {
	Name      string
	Reasoning string
}

// Ranker picks one candidate for a substitution.
type Ranker interface {
	Rank(ctx context.Context, req RankRequest) (RankResult, error)
}

type loadSource interface {
	WeeklyLoad() map[string]int
}

// DeterministicRanker prefers the candidate with the lightest weekly load,
// breaking ties by name.
type DeterministicRanker struct {
	load loadSource
}

// NewDeterministicRanker constructs a DeterministicRanker. A nil source ranks by name only.
func NewDeterministicRanker(load loadSource) *DeterministicRanker {
	return &DeterministicRanker{load: load}
}

// Rank implements Ranker.
func (r *DeterministicRanker) Rank(ctx context.Context, req RankRequest) (RankResult, error) {
	if len(req.Candidates) == 0 {
		return RankResult{}, appErrors.ErrNoCandidates
	}
	load := map[string]int{}
	if r.load != nil {
		load = r.load.WeeklyLoad()
	}

	ranked := make([]models.Teacher, len(req.Candidates))
	copy(ranked, req.Candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		li, lj := load[ranked[i].Name], load[ranked[j].Name]
		if li != lj {
			return li < lj
		}
		return ranked[i].Name < ranked[j].Name
	})

	choice := ranked[0]
	reason := fmt.Sprintf("%s is free in period %d on %s and has the lightest weekly load (%d periods)",
		choice.Name, req.Period, req.Day, load[choice.Name])
	if choice.Teaches(req.Subject) {
		reason = fmt.Sprintf("%s teaches %s, is free in period %d on %s and has the lightest weekly load (%d periods)",
			choice.Name, req.Subject, req.Period, req.Day, load[choice.Name])
	}
	return RankResult{Name: choice.Name, Reasoning: reason}, nil
}

type remoteCandidate struct {
	Name     string   `json:"name"`
	Subjects []string `json:"subjects"`
}

type remoteRankRequest struct {
	AbsentTeacher string            `json:"absentTeacher"`
	Subject       string            `json:"subject"`
	Day           string            `json:"day"`
	Period        int               `json:"period"`
	Candidates    []remoteCandidate `json:"candidates"`
}

type remoteRankResponse struct {
	SubstituteTeacherName string `json:"substituteTeacherName"`
	Reasoning             string `json:"reasoning"`
}

// RemoteRanker delegates ranking to an HTTP suggestion service.
type RemoteRanker struct {
	url    string
	apiKey string
	client *http.Client
	logger *zap.Logger
}

// NewRemoteRanker constructs a RemoteRanker bounded by timeout.
func NewRemoteRanker(url, apiKey string, timeout time.Duration, logger *zap.Logger) *RemoteRanker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteRanker{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Rank implements Ranker. Every transport, status or decode failure maps to
// SELECTOR_UNAVAILABLE.
func (r *RemoteRanker) Rank(ctx context.Context, req RankRequest) (RankResult, error) {
	body := remoteRankRequest{
		AbsentTeacher: req.AbsentTeacher,
		Subject:       req.Subject,
		Day:           req.Day,
		Period:        req.Period,
		Candidates:    make([]remoteCandidate, 0, len(req.Candidates)),
	}
	for _, c := range req.Candidates {
		body.Candidates = append(body.Candidates, remoteCandidate{Name: c.Name, Subjects: c.Subjects})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return RankResult{}, unavailable(err, "encode suggestion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return RankResult{}, unavailable(err, "build suggestion request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return RankResult{}, unavailable(err, "suggestion service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		r.logger.Warn("suggestion service rejected request", zap.Int("status", resp.StatusCode))
		return RankResult{}, unavailable(fmt.Errorf("status %d", resp.StatusCode), "suggestion service returned an error")
	}

	var decoded remoteRankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return RankResult{}, unavailable(err, "invalid suggestion response")
	}
	if decoded.SubstituteTeacherName == "" {
		return RankResult{}, unavailable(fmt.Errorf("empty substitute name"), "invalid suggestion response")
	}
	return RankResult{Name: decoded.SubstituteTeacherName, Reasoning: decoded.Reasoning}, nil
}

func unavailable(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrSelectorUnavailable.Code, appErrors.ErrSelectorUnavailable.Status, message)
}
