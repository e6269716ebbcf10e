package chat

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected Complexity
	}{
		{name: "greeting", message: "안녕", expected: Simple},
		{name: "polite greeting", message: "안녕하세요!", expected: Simple},
		{name: "english greeting", message: "Hello there", expected: Simple},
		{name: "thanks", message: "고마워요", expected: Simple},
		{name: "english thanks", message: "thank you so much", expected: Simple},
		{name: "definition", message: "황달이 뭐야?", expected: Simple},
		{name: "english definition", message: "What is colic?", expected: Simple},
		{name: "developmental timing", message: "뒤집기는 언제 해요?", expected: Simple},
		{name: "english timing", message: "when do babies start crawling", expected: Simple},
		{name: "feeding count today", message: "오늘 수유 몇 번 했어?", expected: Complex},
		{name: "formula volume", message: "오늘 분유 얼마나 먹었어?", expected: Complex},
		{name: "greeting with data keyword", message: "안녕, 어제 낮잠 기록 알려줘", expected: Complex},
		{name: "thanks with data keyword", message: "고마워, 오늘 기저귀는?", expected: Complex},
		{name: "definition containing data keyword", message: "모유수유가 뭐야?", expected: Complex},
		{name: "english data keyword", message: "What is the average sleep time?", expected: Complex},
		{name: "open question defaults to complex", message: "아기가 자꾸 보채는데 어떻게 해야 할까요", expected: Complex},
		{name: "empty message", message: "   ", expected: Complex},
		{name: "keyword inside another word", message: "thanks for the speedy reply", expected: Simple},
		{name: "nap inside snap", message: "Hello, that was a snappy answer", expected: Simple},
		{name: "keyword next to punctuation", message: "thanks! how long did she nap?", expected: Complex},
		{name: "inflected keyword", message: "hi, when was he last fed", expected: Complex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyComplexity(tt.message))
		})
	}
}

func TestClassifyComplexityIsIdempotentOverNormalization(t *testing.T) {
	messages := []string{"  Hello  ", "오늘 수유 몇 번 했어?", "WHAT IS COLIC?", "모유수유가 뭐야?"}
	for _, msg := range messages {
		assert.Equal(t, ClassifyComplexity(msg), ClassifyComplexity(normalize(msg)), msg)
	}
}

func TestDataKeywordAlwaysComplex(t *testing.T) {
	prefixes := []string{"안녕 ", "고마워 ", "", "what is "}
	for _, kw := range append(append([]string{}, dataKeywords...), englishDataKeywords...) {
		for _, p := range prefixes {
			msg := p + kw + " 뭐야?"
			assert.Equal(t, Complex, ClassifyComplexity(msg), msg)
		}
	}
}

func TestSelectHistoryTier(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected HistoryDecision
	}{
		{
			name:     "self-contained data question",
			message:  "오늘 분유 얼마나 먹었어?",
			expected: HistoryDecision{Count: 0, Tier: 1},
		},
		{
			name:     "average question",
			message:  "평균 수면 시간이 어떻게 돼?",
			expected: HistoryDecision{Count: 0, Tier: 1},
		},
		{
			name:     "trend question",
			message:  "분유 먹는 양이 늘었나요?",
			expected: HistoryDecision{Count: 0, Tier: 1},
		},
		{
			name:     "is it normal",
			message:  "Is it normal to sleep 16 hours?",
			expected: HistoryDecision{Count: 0, Tier: 1},
		},
		{
			name:     "refers to previous answer",
			message:  "방금 말한거 다시 설명해줘",
			expected: HistoryDecision{Count: 3, Tier: 3},
		},
		{
			name:     "what do you mean",
			message:  "그게 무슨 뜻이야?",
			expected: HistoryDecision{Count: 3, Tier: 3},
		},
		{
			name:     "why",
			message:  "왜?",
			expected: HistoryDecision{Count: 3, Tier: 3},
		},
		{
			name:     "leading demonstrative",
			message:  "그럼 몇 시에 재워야 해?",
			expected: HistoryDecision{Count: 3, Tier: 3},
		},
		{
			name:     "english follow-up",
			message:  "What do you mean by that?",
			expected: HistoryDecision{Count: 3, Tier: 3},
		},
		{
			name:     "fever",
			message:  "아기가 열이 나는 것 같아",
			expected: HistoryDecision{Count: 2, Tier: 2},
		},
		{
			name:     "crying",
			message:  "아기가 계속 울어요",
			expected: HistoryDecision{Count: 2, Tier: 2},
		},
		{
			name:     "cough",
			message:  "기침을 해요",
			expected: HistoryDecision{Count: 2, Tier: 2},
		},
		{
			name:     "english worry",
			message:  "I'm worried about the rash",
			expected: HistoryDecision{Count: 2, Tier: 2},
		},
		{
			name:     "self-contained wins over health keyword",
			message:  "오늘 열이 몇 번 났어?",
			expected: HistoryDecision{Count: 0, Tier: 1},
		},
		{
			name:     "previous turn wins over health keyword",
			message:  "왜 열이 나요?",
			expected: HistoryDecision{Count: 3, Tier: 3},
		},
		{
			name:     "default",
			message:  "안녕",
			expected: HistoryDecision{Count: 0, Tier: 1},
		},
		{
			name:     "empty",
			message:  "",
			expected: HistoryDecision{Count: 0, Tier: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectHistoryTier(tt.message)
			if diff := cmp.Diff(tt.expected, got, cmpopts.IgnoreFields(HistoryDecision{}, "Reason")); diff != "" {
				t.Errorf("SelectHistoryTier(%q) mismatch (-want +got):\n%s", tt.message, diff)
			}
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestHistoryTierCountPairs(t *testing.T) {
	messages := []string{
		"오늘 분유 얼마나 먹었어?",
		"방금 말한거 다시 설명해줘",
		"아기가 열이 나는 것 같아",
		"안녕",
		"random text",
	}
	expectedCount := map[int]int{1: 0, 2: 2, 3: 3}

	for _, msg := range messages {
		d := SelectHistoryTier(msg)
		assert.Contains(t, expectedCount, d.Tier, msg)
		assert.Equal(t, expectedCount[d.Tier], d.Count, msg)
	}
}
