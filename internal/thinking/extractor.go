package thinking

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// Step is one titled segment of a model's reasoning narrative.
type Step struct {
	Step       int    `json:"step"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Status     string `json:"status"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

const (
	// summaryMax bounds step content length in runes.
	summaryMax = 120
	// singleNewlineMin: a lone newline only counts as a boundary cue once
	// this much content has accumulated.
	singleNewlineMin = 150
	// minStepChars: below this, a chunk without a paragraph break can
	// never open a new step.
	minStepChars = 200
	// forceAdvanceChars: past this, advance to the next default phase even
	// without a keyword match.
	forceAdvanceChars = 350
	// progressInterval throttles processing snapshots so we do not emit on
	// every token.
	progressInterval = 80
)

type phaseRule struct {
	pattern *regexp.Regexp
	title   string
}

// phaseRules are scanned in order; the first pattern matching the current
// chunk with a title different from the current one wins.
var phaseRules = []phaseRule{
	{regexp.MustCompile(`首先|让我|我需要|理解|先看|看看`), "理解问题"},
	{regexp.MustCompile(`价格|市场|数据|指标|成交量|趋势|K线|RSI|MACD`), "分析数据"},
	{regexp.MustCompile(`策略|方案|参数|设计|买入|卖出|网格`), "设计方案"},
	{regexp.MustCompile(`风险|止损|止盈|回撤|仓位`), "评估风险"},
	{regexp.MustCompile(`总结|结论|综上|建议|最终`), "生成结论"},
}

var defaultTitles = []string{"理解问题", "分析数据", "设计方案", "评估风险", "生成结论"}

func defaultTitle(step int) string {
	if step < 1 {
		step = 1
	}
	if step > len(defaultTitles) {
		step = len(defaultTitles)
	}
	return defaultTitles[step-1]
}

// Extractor segments one stream's reasoning text into titled steps. One
// instance per stream; never shared.
type Extractor struct {
	currentStep  int
	currentTitle string
	content      string
	stepStart    time.Time
	emitted      map[int]bool
	lastEmitLen  int
	received     bool
	now          func() time.Time
}

func NewExtractor() *Extractor {
	return &Extractor{
		emitted: make(map[int]bool),
		now:     time.Now,
	}
}

// ProcessChunk feeds one chunk of reasoning text and returns a step to
// emit, or nil.
func (e *Extractor) ProcessChunk(chunk string) *Step {
	if chunk == "" {
		return nil
	}
	prev := e.content
	e.content += chunk
	e.received = true

	title, boundary := e.detectNewStep(chunk)

	if boundary && e.currentStep > 0 && !e.emitted[e.currentStep] {
		step := &Step{
			Step:       e.currentStep,
			Title:      title,
			Content:    StepSummary(prev),
			Status:     StatusCompleted,
			DurationMs: e.now().Sub(e.stepStart).Milliseconds(),
		}
		e.emitted[e.currentStep] = true
		e.currentStep++
		e.currentTitle = title
		e.content = chunk
		e.stepStart = e.now()
		e.lastEmitLen = 0
		return step
	}

	if e.currentStep == 0 {
		if title == "" {
			title = matchPhase(chunk, "")
		}
		if title == "" {
			title = defaultTitles[0]
		}
		e.currentStep = 1
		e.currentTitle = title
		e.stepStart = e.now()
		e.lastEmitLen = utf8.RuneCountInString(e.content)
		return &Step{
			Step:    1,
			Title:   title,
			Content: StepSummary(chunk),
			Status:  StatusProcessing,
		}
	}

	if n := utf8.RuneCountInString(e.content); n-e.lastEmitLen >= progressInterval {
		e.lastEmitLen = n
		return &Step{
			Step:    e.currentStep,
			Title:   e.currentTitle,
			Content: StepSummary(e.content),
			Status:  StatusProcessing,
		}
	}

	return nil
}

// detectNewStep decides whether chunk opens a new step and with what title.
func (e *Extractor) detectNewStep(chunk string) (string, bool) {
	total := utf8.RuneCountInString(e.content)
	hasParagraph := strings.Contains(chunk, "\n\n")
	hasNewline := strings.Contains(chunk, "\n") && total > singleNewlineMin
	if !hasParagraph && !hasNewline && total < minStepChars {
		return "", false
	}

	if title := matchPhase(chunk, e.currentTitle); title != "" {
		return title, true
	}

	if total > forceAdvanceChars {
		if next := defaultTitle(e.currentStep + 1); next != e.currentTitle {
			return next, true
		}
	}

	return "", false
}

func matchPhase(chunk, currentTitle string) string {
	for _, r := range phaseRules {
		if r.title != currentTitle && r.pattern.MatchString(chunk) {
			return r.title
		}
	}
	return ""
}

// Finalize flushes the in-flight step at stream end, if any.
func (e *Extractor) Finalize() *Step {
	if e.currentStep == 0 || e.emitted[e.currentStep] {
		return nil
	}
	e.emitted[e.currentStep] = true
	return &Step{
		Step:       e.currentStep,
		Title:      e.currentTitle,
		Content:    StepSummary(e.content),
		Status:     StatusCompleted,
		DurationMs: e.now().Sub(e.stepStart).Milliseconds(),
	}
}

// HasContent reports whether any reasoning text was ever fed in.
func (e *Extractor) HasContent() bool {
	return e.received
}

// StepSummary bounds text to 120 runes, preferring to cut at the last
// sentence end inside the window.
func StepSummary(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= summaryMax {
		return text
	}
	for i := summaryMax - 1; i > 60; i-- {
		switch runes[i] {
		case '。', '？', '！':
			return string(runes[:i+1])
		case '.', '?', '!':
			if runes[i+1] == ' ' {
				return string(runes[:i+1])
			}
		}
	}
	return string(runes[:117]) + "..."
}
