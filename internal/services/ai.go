package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"satforge/internal/models"
)

var (
	// ErrAIUnavailable is returned when the OpenAI integration is not configured.
	ErrAIUnavailable = errors.New("openai integration is not configured")
)

type AIService struct {
	client *openai.Client
	model  string
}

func NewAIService(apiKey string, model string, apiEndpoint string) *AIService {
	if apiKey == "" {
		return &AIService{}
	}

	cfg := openai.DefaultConfig(apiKey)
	if apiEndpoint != "" {
		cfg.BaseURL = apiEndpoint
	}
	return &AIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Model reports the configured model name for metadata blocks.
func (s *AIService) Model() string {
	return s.model
}

func (s *AIService) disabled() bool {
	return s.client == nil || s.model == ""
}

// extractedQuestion mirrors the JSON shape the extraction prompt demands.
type extractedQuestion struct {
	ID            string          `json:"id"`
	QuestionText  string          `json:"question_text"`
	HasFigure     bool            `json:"has_figure"`
	CorrectAnswer string          `json:"correct_answer"`
	Explanation   string          `json:"explanation"`
	Difficulty    string          `json:"difficulty_level"`
	QuestionType  string          `json:"question_type"`
	Domain        string          `json:"domain"`
	Skill         string          `json:"skill"`
	IsComplete    bool            `json:"is_complete"`
	Notes         string          `json:"notes"`
	Options       []models.Option `json:"options"`
}

type questionsPayload struct {
	TotalCount int                 `json:"totalCount"`
	Questions  []extractedQuestion `json:"questions"`
}

type extractedExplanation struct {
	ID            string `json:"id"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	IsComplete    bool   `json:"is_complete"`
	Notes         string `json:"notes"`
}

type explanationsPayload struct {
	Explanations []extractedExplanation `json:"explanations"`
}

// extractJSON removes markdown code block formatting if present and extracts the JSON
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	// Remove markdown code blocks like ```json ... ``` or ``` ... ```
	if strings.HasPrefix(content, "```") {
		start := 3
		if newlineIdx := strings.Index(content[start:], "\n"); newlineIdx != -1 {
			start += newlineIdx + 1
		}
		if endIdx := strings.Index(content[start:], "```"); endIdx != -1 {
			content = content[start : start+endIdx]
		} else {
			content = content[start:]
		}
	}

	content = strings.TrimSpace(content)

	// Additional safety: find the first { and last } to extract just the JSON object
	if startIdx := strings.Index(content, "{"); startIdx != -1 {
		if endIdx := strings.LastIndex(content, "}"); endIdx != -1 && endIdx > startIdx {
			content = content[startIdx : endIdx+1]
		}
	}

	return strings.TrimSpace(content)
}

var controlCharRE = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// scrubControlChars drops control characters that break JSON decoding.
func scrubControlChars(content string) string {
	return controlCharRE.ReplaceAllString(content, "")
}

const questionPromptTemplate = `TASK: Extract ALL SAT questions from this text chunk (%s, pages %d-%d).

The chunk is part of a larger split document: question text may continue
from a previous chunk or run into the next one. Extract complete
questions AND fragments:
- Complete questions with full text and 4 options
- Questions cut off mid-sentence (ending on words like "may", "would", "the")
- Fragments that start mid-sentence without a question header
- Option lists (A, B, C, D) appearing without question text above them

COMPLETENESS DETECTION:
- is_complete: true only when the question text ends properly and all options are present
- is_complete: false for fragments and cut-off questions; explain why in notes

RETURN FORMAT - valid JSON only, no markdown:
{"totalCount": <n>, "questions": [{"id": "q_001", "question_text": "...",
"has_figure": false, "correct_answer": "A", "explanation": "",
"difficulty_level": "easy|medium|hard", "question_type": "math|reading_and_writing",
"domain": "...", "skill": "...", "is_complete": true, "notes": "",
"options": [{"id": "A", "text": "..."}]}]}

RULES:
1. Use MathJax \( \) for inline math, \[ \] for display math
2. Use [FIGURE] placeholders for diagrams
3. correct_answer must be exactly "A", "B", "C" or "D" when determinable
4. Over-extract rather than miss fragments; do not merge anything
5. Sequential ids q_001, q_002, ... within this chunk

TEXT CHUNK:
%s`

const explanationPromptTemplate = `TASK: Extract ALL answer explanations from this text chunk (%s, pages %d-%d).

Each explanation typically starts with "Choice [A-D] is ..." or
"The answer is [A-D] ...". Also extract fragments that continue an
explanation from a previous chunk (text starting mid-sentence) and
explanations cut off at the end of the chunk.

COMPLETENESS DETECTION:
- complete: ends with proper punctuation and full reasoning
- incomplete: ends abruptly on a connective word; mark is_complete false

RETURN FORMAT - valid JSON only, no markdown:
{"explanations": [{"id": "q_001", "correct_answer": "A",
"explanation": "...", "is_complete": true, "notes": ""}]}

RULES:
1. Use MathJax \( \) for inline math
2. correct_answer must be exactly "A", "B", "C" or "D"
3. Sequential ids q_001, q_002, ... within this chunk
4. Extract fragments too; never ignore partial content

TEXT CHUNK:
%s`

// ExtractQuestions asks the model for every question in one chunk and
// returns them as raw records positioned by chunk and in-chunk order.
func (s *AIService) ExtractQuestions(ctx context.Context, chunk PDFChunk, sourceFile string, fileIndex int) ([]models.RawRecord, error) {
	if s.disabled() {
		return nil, ErrAIUnavailable
	}

	prompt := fmt.Sprintf(questionPromptTemplate, sourceFile, chunk.StartPage, chunk.EndPage, chunk.Text)
	content, err := s.complete(ctx, prompt, "You extract SAT questions from exam PDFs into structured JSON, preserving fragments split across pages.")
	if err != nil {
		return nil, err
	}

	jsonStr := scrubControlChars(extractJSON(content))
	if err := validateAgainstSchema(questionsSchema, jsonStr); err != nil {
		fmt.Fprintf(os.Stderr, "Rejected question extraction. Raw response:\n%s\n", content)
		return nil, err
	}

	var payload questionsPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal questions json: %w", err)
	}

	records := make([]models.RawRecord, 0, len(payload.Questions))
	for i, q := range payload.Questions {
		records = append(records, models.RawRecord{
			SourceFile:    sourceFile,
			FileIndex:     fileIndex,
			SequenceIndex: chunk.Index*1000 + i,
			Type:          models.RecordQuestion,
			Text:          q.QuestionText,
			CorrectAnswer: q.CorrectAnswer,
			Options:       q.Options,
			Explanation:   q.Explanation,
			QuestionType:  q.QuestionType,
			Domain:        q.Domain,
			Skill:         q.Skill,
			Difficulty:    q.Difficulty,
			HasFigure:     q.HasFigure,
			IsComplete:    q.IsComplete,
			Notes:         q.Notes,
		})
	}
	return records, nil
}

// ExtractExplanations asks the model for every answer explanation in one chunk.
func (s *AIService) ExtractExplanations(ctx context.Context, chunk PDFChunk, sourceFile string, fileIndex int) ([]models.RawRecord, error) {
	if s.disabled() {
		return nil, ErrAIUnavailable
	}

	prompt := fmt.Sprintf(explanationPromptTemplate, sourceFile, chunk.StartPage, chunk.EndPage, chunk.Text)
	content, err := s.complete(ctx, prompt, "You extract SAT answer explanations from exam PDFs into structured JSON, preserving fragments split across pages.")
	if err != nil {
		return nil, err
	}

	jsonStr := scrubControlChars(extractJSON(content))
	if err := validateAgainstSchema(explanationsSchema, jsonStr); err != nil {
		fmt.Fprintf(os.Stderr, "Rejected explanation extraction. Raw response:\n%s\n", content)
		return nil, err
	}

	var payload explanationsPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal explanations json: %w", err)
	}

	records := make([]models.RawRecord, 0, len(payload.Explanations))
	for i, e := range payload.Explanations {
		records = append(records, models.RawRecord{
			SourceFile:    sourceFile,
			FileIndex:     fileIndex,
			SequenceIndex: chunk.Index*1000 + i,
			Type:          models.RecordExplanation,
			Text:          e.Explanation,
			CorrectAnswer: e.CorrectAnswer,
			IsComplete:    e.IsComplete,
			Notes:         e.Notes,
		})
	}
	return records, nil
}

func (s *AIService) complete(ctx context.Context, prompt, system string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   8192,
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("request chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
