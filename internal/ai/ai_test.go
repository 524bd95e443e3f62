package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type stubAnalyzer struct {
	feedback models.Feedback
	err      error
	delay    time.Duration
	panics   bool
}

func (s stubAnalyzer) Analyze(ctx context.Context, req Request) (models.Feedback, error) {
	if s.panics {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return models.Feedback{}, ctx.Err()
		}
	}
	return s.feedback, s.err
}

// genai loads opencensus, which starts its stats worker on init
var leakOptions = []goleak.Option{
	goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
}

var sampleFeedback = models.Feedback{
	Strengths:    []string{"Asked a clear question"},
	Improvements: []string{"Hold eye contact longer"},
	NextFocus:    "Ask one follow-up question.",
}

func TestRunReturnsAnalyzerResult(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)

	task := Run(context.Background(), stubAnalyzer{feedback: sampleFeedback}, Request{Reflection: "ok"}, time.Second, zap.NewNop())
	res := task.Wait(context.Background())

	assert.False(t, res.Fallback)
	assert.NoError(t, res.Err)
	assert.Equal(t, sampleFeedback, res.Feedback)

	again, ok := task.Result()
	require.True(t, ok)
	assert.Equal(t, res, again)
}

func TestRunFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		analyzer Analyzer
		timeout  time.Duration
		wantErr  error
	}{
		{"error", stubAnalyzer{err: errors.New("transport down")}, time.Second, nil},
		{"timeout", stubAnalyzer{feedback: sampleFeedback, delay: time.Minute}, 20 * time.Millisecond, context.DeadlineExceeded},
		{"panic", stubAnalyzer{panics: true}, time.Second, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t, leakOptions...)

			res := Run(context.Background(), tt.analyzer, Request{Reflection: "x"}, tt.timeout, nil).Wait(context.Background())
			assert.True(t, res.Fallback)
			assert.Error(t, res.Err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
			}
			assert.Equal(t, Fallback(), res.Feedback)
		})
	}
}

func TestTaskCanBeAbandoned(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)

	task := Run(context.Background(), stubAnalyzer{delay: time.Minute}, Request{Reflection: "x"}, time.Minute, nil)
	_, ok := task.Result()
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := task.Wait(ctx)
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, context.Canceled)

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop after being abandoned")
	}
}

func TestParseFeedback(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"plain", `{"strengths":["a"],"improvements":["b"],"nextFocus":"c"}`, false},
		{"fenced", "```json\n{\"strengths\":[\"a\"],\"improvements\":[\"b\"],\"nextFocus\":\"c\"}\n```", false},
		{"chatty", "Sure! {\"strengths\":[\"a\"],\"improvements\":[\"b\"],\"nextFocus\":\"c\"} Hope it helps", false},
		{"missing focus", `{"strengths":["a"],"improvements":["b"]}`, true},
		{"empty lists", `{"strengths":[" "],"improvements":["b"],"nextFocus":"c"}`, true},
		{"not json", "great job", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, err := parseFeedback(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.Feedback{Strengths: []string{"a"}, Improvements: []string{"b"}, NextFocus: "c"}, fb)
		})
	}
}

func TestParseFeedbackCapsLists(t *testing.T) {
	fb, err := parseFeedback(`{"strengths":["1","2","3","4"],"improvements":["x"],"nextFocus":"y"}`)
	require.NoError(t, err)
	assert.Len(t, fb.Strengths, 3)
}

func TestHeuristic(t *testing.T) {
	h := NewHeuristic(1)

	short, err := h.Analyze(context.Background(), Request{Reflection: "I made eye contact and nodded"})
	require.NoError(t, err)
	assert.Len(t, short.Strengths, 1)
	assert.Len(t, short.Improvements, 1)
	assert.Equal(t, nextFocusTemplates[0], short.NextFocus)

	long := "I was nervous at first but I asked the barista how her day was going and she smiled " +
		"and we talked for a while about coffee and music and it felt surprisingly natural and easy " +
		"even though my voice shook a little at the start of the conversation"
	fb, err := h.Analyze(context.Background(), Request{Reflection: long})
	require.NoError(t, err)
	assert.Len(t, fb.Strengths, 3)
	assert.Len(t, fb.Improvements, 3)
	assert.Equal(t, nextFocusTemplates[1], fb.NextFocus)

	quiet, _ := h.Analyze(context.Background(), Request{Reflection: "I stayed quiet"})
	assert.Equal(t, nextFocusTemplates[5], quiet.NextFocus)

	other, _ := h.Analyze(context.Background(), Request{Reflection: "went well"})
	assert.Contains(t, nextFocusTemplates, other.NextFocus)
}

func TestHeuristicIsSeeded(t *testing.T) {
	req := Request{Reflection: "it went well today"}
	a, _ := NewHeuristic(9).Analyze(context.Background(), req)
	b, _ := NewHeuristic(9).Analyze(context.Background(), req)
	assert.Equal(t, a, b)
}

func TestChatGPTAnalyze(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"` +
			"```json\\n{\\\"strengths\\\":[\\\"s\\\"],\\\"improvements\\\":[\\\"i\\\"],\\\"nextFocus\\\":\\\"n\\\"}\\n```" +
			`"}}]}`))
	}))
	defer srv.Close()

	c, err := NewChatGPT("test-key", "", WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	fb, err := c.Analyze(context.Background(), Request{Reflection: "hello", Challenge: "Say hi"})
	require.NoError(t, err)
	assert.Equal(t, models.Feedback{Strengths: []string{"s"}, Improvements: []string{"i"}, NextFocus: "n"}, fb)

	assert.Equal(t, defaultOpenAIModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "Challenge: Say hi")
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestChatGPTErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"api error", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, nil},
		{"no choices", http.StatusOK, `{"choices":[]}`, nil},
		{"garbage", http.StatusBadGateway, `<html>`, nil},
		{"malformed content", http.StatusOK, `{"choices":[{"message":{"content":"nice"}}]}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewChatGPT("k", "m", WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
			require.NoError(t, err)
			_, err = c.Analyze(context.Background(), Request{Reflection: "x"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			// Through a task the failure becomes the fallback
			res := Analyze(context.Background(), c, Request{Reflection: "x"}, time.Second, nil)
			assert.True(t, res.Fallback)
			assert.Equal(t, Fallback(), res.Feedback)
		})
	}
}

func TestNewChatGPTRequiresKey(t *testing.T) {
	_, err := NewChatGPT("", "")
	assert.Error(t, err)
}

func TestGeminiAnalyze(t *testing.T) {
	g := &Gemini{model: "m", generate: func(ctx context.Context, system, prompt string) (string, error) {
		assert.Equal(t, systemPrompt, system)
		assert.Contains(t, prompt, "Reflection: hi")
		return `{"strengths":["a"],"improvements":["b"],"nextFocus":"c"}`, nil
	}}
	fb, err := g.Analyze(context.Background(), Request{Reflection: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "c", fb.NextFocus)

	g.generate = func(context.Context, string, string) (string, error) { return "", errors.New("quota") }
	_, err = g.Analyze(context.Background(), Request{Reflection: "hi"})
	assert.Error(t, err)
}

func TestNewAnalyzer(t *testing.T) {
	ctx := context.Background()

	a, err := NewAnalyzer(ctx, Options{Provider: ProviderAuto}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Heuristic{}, a)

	a, err = NewAnalyzer(ctx, Options{Provider: ProviderAuto, OpenAIKey: "k", RequestsPerMinute: 30}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ChatGPT{}, a)

	a, err = NewAnalyzer(ctx, Options{Provider: ProviderOpenAI}, nil)
	require.NoError(t, err)
	fb, err := a.Analyze(ctx, Request{Reflection: "x"})
	require.NoError(t, err)
	assert.Contains(t, fb.NextFocus, "OPENAI_API_KEY")

	a, err = NewAnalyzer(ctx, Options{Provider: ProviderGemini}, nil)
	require.NoError(t, err)
	assert.Equal(t, Unconfigured{Provider: ProviderGemini}, a)

	_, err = NewAnalyzer(ctx, Options{Provider: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}
