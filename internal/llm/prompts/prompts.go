// Package prompts builds the system instructions and user prompts for each
// generation task. User prompts carry data only; all behavioral instructions
// live in the per-task system instruction.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AnchitSingh/AI-Study-Coach/internal/model"
)

// Per-task caps on prompt material, in characters.
const (
	QuizSourceCap      = 5500
	StorySourceCap     = 8000
	EvaluateFieldCap   = 1200
	EvaluateAnswerCap  = 1500
	DefaultQuestionCap = 5
)

// QuizSystem instructs the model to produce strict quiz JSON.
const QuizSystem = `You are an expert educational quiz generator. Your role is to create high-quality quiz questions from any provided content.

CORE CAPABILITIES:
- Generate questions based on user-specified count and distribution
- Support multiple question types: MCQ, True/False, Fill in Blank, Short Answer
- Adjust difficulty levels: easy, medium, hard
- Extract key concepts and create targeted questions

OUTPUT REQUIREMENTS:
- Return ONLY valid JSON with no markdown code fences, no prose, no explanations outside JSON
- Use sequential IDs starting from q1
- Ensure all required fields are present
- For MCQ and True/False: include options array with isCorrect boolean
- For Short Answer and Fill in Blank: include answer field
- Always include explanation field with brief reasoning

JSON SCHEMA (strict):
{
  "questions": [
    {
      "id": "q1",
      "type": "MCQ",
      "question": "Clear, unambiguous question text",
      "options": [
        {"text": "Option text", "isCorrect": true},
        {"text": "Option text", "isCorrect": false}
      ],
      "answer": "Only for Short Answer/Fill in Blank types",
      "explanation": "Brief explanation or feedback",
      "difficulty": "easy",
      "topic": "Main topic from content",
      "tags": ["relevant-tag-1", "relevant-tag-2"]
    }
  ]
}

QUESTION TYPE RULES:
- MCQ: 4 options, exactly 1 correct
- True/False: 2 options (True/False), exactly 1 correct
- Fill in Blank: Use "answer" field, no options array
- Short Answer: Use "answer" field for reference answer, no options array

QUALITY STANDARDS:
- Questions must be directly answerable from the provided content
- Avoid ambiguous or trick questions
- Explanations should clarify why the answer is correct
- Distribute questions evenly across the content
- Match specified difficulty level consistently`

// StorySystem instructs the model to explain a topic in simple language.
const StorySystem = `You are an expert educator and storyteller. Your role is to explain complex topics in engaging, easy-to-understand language using rich Markdown formatting.

CORE APPROACH:
- Break down complex concepts into digestible chunks
- Use analogies and real-world examples
- Build from simple foundations to advanced ideas
- Explain jargon immediately when it appears
- Make abstract concepts concrete and relatable

OUTPUT STYLE:
- Write in Markdown format with proper structure
- Use headers (##, ###) to organize sections
- Use **bold** for key terms (first mention only)
- Use bullet points for lists
- Use > blockquotes for important takeaways
- Keep paragraphs short (3-4 sentences max)

TARGET LENGTH:
- Aim for 600-900 words
- Cover the topic thoroughly but concisely
- Don't pad with fluff

OUTPUT FORMAT:
Return ONLY the Markdown content. No JSON, no code fences around the entire output.`

// EvaluateSystem instructs the model to grade a subjective answer.
const EvaluateSystem = `You are a fair and constructive grader for subjective/short-answer questions. Your role is to evaluate student answers against reference answers and provide helpful feedback.

EVALUATION CRITERIA:
- Check if the core concept is understood, not exact wording
- Award credit for partially correct answers
- Identify misconceptions or missing key points
- Provide constructive, specific feedback
- Be encouraging while being honest

OUTPUT REQUIREMENTS:
- Return ONLY valid JSON
- No markdown code fences, no additional text
- Include all three required fields

JSON SCHEMA (strict):
{
  "isCorrect": true,
  "feedback": "Specific feedback on the student's answer - what was good, what was missing, what could be improved",
  "explanation": "What a complete answer should include and why it matters"
}

SCORING GUIDELINES:
- isCorrect: true if answer demonstrates understanding of core concept (even if incomplete)
- isCorrect: false if answer is wrong, irrelevant, or shows fundamental misunderstanding
- Partial understanding: mark true but note gaps in feedback`

// FeedbackSystem instructs the model to coach from performance statistics.
const FeedbackSystem = `You are a supportive and insightful study coach. Your role is to provide personalized, actionable feedback based on quiz performance statistics.

ANALYSIS APPROACH:
- Review all provided metrics carefully
- Identify patterns in performance (strengths and weaknesses)
- Spot specific topic gaps or misconceptions
- Provide concrete, actionable study recommendations
- Balance encouragement with honest assessment

OUTPUT STRUCTURE:
Write 5-7 short paragraphs covering: overall performance, strengths (3 specific points), weaknesses (3 specific points), misconceptions revealed by wrong answers, and 3-4 immediate next steps.

TONE GUIDELINES:
- Be encouraging and supportive
- Be honest about gaps without discouraging
- Use "you" to make it personal
- Avoid generic advice like "study harder"

OUTPUT FORMAT:
Return plain text ONLY. No markdown formatting, no JSON, no bullet points. Write in complete paragraphs with natural transitions between them.

IMPORTANT:
Base your feedback ONLY on the metrics provided. Do not make assumptions or add information not present in the statistics.`

// SummarizeSystem primes the summarization capability; the shared context
// string is appended at instance creation.
const SummarizeSystem = `You are a precise summarization engine for study material. Produce a dense plain-text summary that preserves key concepts, definitions, facts, and relationships. No preamble, no commentary, no markdown.`

// TrimAndCap bounds prompt material to max characters.
func TrimAndCap(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

// TypeCount is one entry of a question-type distribution.
type TypeCount struct {
	Type  string
	Count int
}

// DistributeQuestionTypes splits total questions evenly across the requested
// types: each type gets the base share, and the remainder goes to the
// earliest types in request order. Types are normalized and deduplicated
// first; an empty request defaults to MCQ.
func DistributeQuestionTypes(types []string, total int) []TypeCount {
	if total <= 0 {
		total = DefaultQuestionCap
	}

	var finalTypes []string
	seen := map[string]bool{}
	for _, t := range types {
		n := normalizeType(t)
		if !seen[n] {
			seen[n] = true
			finalTypes = append(finalTypes, n)
		}
	}
	if len(finalTypes) == 0 {
		finalTypes = []string{"MCQ"}
	}

	base := total / len(finalTypes)
	remainder := total % len(finalTypes)
	out := make([]TypeCount, 0, len(finalTypes))
	for i, t := range finalTypes {
		count := base
		if i < remainder {
			count++
		}
		out = append(out, TypeCount{Type: t, Count: count})
	}
	return out
}

func normalizeType(t string) string {
	lower := strings.ToLower(t)
	switch {
	case strings.Contains(lower, "mcq"), strings.Contains(lower, "multiple"):
		return "MCQ"
	case strings.Contains(lower, "true"), strings.Contains(lower, "false"):
		return "True/False"
	case strings.Contains(lower, "fill"), strings.Contains(lower, "blank"):
		return "Fill in Blank"
	case strings.Contains(lower, "short"), strings.Contains(lower, "subjective"):
		return "Short Answer"
	}
	return t
}

// QuizRequest is the data for one quiz prompt.
type QuizRequest struct {
	Source        model.FinalizedSource
	QuestionCount int
	Difficulty    string
	QuestionTypes []string
}

// BuildQuizPrompt assembles the data-only quiz prompt.
func BuildQuizPrompt(req QuizRequest) string {
	count := req.QuestionCount
	if count <= 0 {
		count = DefaultQuestionCap
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}
	title := req.Source.Title
	if title == "" {
		title = "General"
	}

	distribution := DistributeQuestionTypes(req.QuestionTypes, count)
	parts := make([]string, 0, len(distribution))
	for _, d := range distribution {
		parts = append(parts, fmt.Sprintf("%d %s", d.Count, d.Type))
	}

	var b strings.Builder
	b.WriteString("CONTENT TO ANALYZE:\n")
	b.WriteString(TrimAndCap(req.Source.Text, QuizSourceCap))
	b.WriteString("\n\nREQUIREMENTS FOR THIS REQUEST:\n")
	fmt.Fprintf(&b, "- Total questions needed: %d\n", count)
	fmt.Fprintf(&b, "- Question distribution: %s\n", strings.Join(parts, ", "))
	fmt.Fprintf(&b, "- Difficulty level: %s\n", difficulty)
	fmt.Fprintf(&b, "- Topic/Subject: %s\n", title)
	fmt.Fprintf(&b, "- Question IDs: q1 through q%d\n", count)
	b.WriteString("\nGenerate the quiz now.")
	return b.String()
}

// BuildStoryPrompt assembles the data-only explanation prompt.
func BuildStoryPrompt(src model.FinalizedSource, storyStyle string) string {
	title := src.Title
	if title == "" {
		title = "the selected topic"
	}
	if storyStyle == "" {
		storyStyle = "Simple Words"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "TOPIC: %s\n\n", title)
	fmt.Fprintf(&b, "STYLE PREFERENCE: %s\n\n", storyStyle)
	b.WriteString("SOURCE CONTENT:\n")
	b.WriteString(TrimAndCap(src.Text, StorySourceCap))
	b.WriteString("\n\nExplain this topic now using the specified style.")
	return b.String()
}

// BuildEvaluatePrompt assembles the data-only grading prompt. The question's
// explanation stands in as the reference answer.
func BuildEvaluatePrompt(q model.Question, userAnswer string) string {
	var b strings.Builder
	b.WriteString("QUESTION:\n")
	b.WriteString(TrimAndCap(q.Question, EvaluateFieldCap))
	b.WriteString("\n\nREFERENCE ANSWER:\n")
	b.WriteString(TrimAndCap(q.Explanation, EvaluateFieldCap))
	b.WriteString("\n\nSTUDENT'S ANSWER:\n")
	b.WriteString(TrimAndCap(userAnswer, EvaluateAnswerCap))
	b.WriteString("\n\nEvaluate this answer now.")
	return b.String()
}

// BuildFeedbackPrompt assembles the data-only performance feedback prompt.
func BuildFeedbackPrompt(title, subject string, stats map[string]any) string {
	if title == "" {
		title = "Quiz"
	}
	if subject == "" {
		subject = "General"
	}
	compact, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		compact = []byte("{}")
	}
	var b strings.Builder
	b.WriteString("QUIZ INFORMATION:\n")
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Title: %s\n\n", title)
	b.WriteString("PERFORMANCE METRICS:\n")
	b.Write(compact)
	b.WriteString("\n\nProvide personalized feedback now.")
	return b.String()
}

// RepairSystem instructs the model to fix malformed JSON without changing
// its content.
const RepairSystem = `You repair malformed JSON. Return ONLY the corrected JSON document with the exact same content and structure. No code fences, no commentary.`
