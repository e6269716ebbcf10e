package chat

import (
	"regexp"
	"strings"
)

// Complexity selects the generation path for a chat message.
type Complexity string

const (
	// Simple messages are answered by a single call to the cheap model.
	Simple Complexity = "simple"
	// Complex messages go through the tool-augmented path that can read care records.
	Complex Complexity = "complex"
)

// HistoryDecision says how many previous turns to prepend to a request.
type HistoryDecision struct {
	Count  int
	Tier   int
	Reason string
}

var (
	historyNone   = HistoryDecision{Count: 0, Tier: 1}
	historyHealth = HistoryDecision{Count: 2, Tier: 2}
	historyFull   = HistoryDecision{Count: 3, Tier: 3}
)

// dataKeywords mark questions that should be answered from the baby's records.
var dataKeywords = []string{
	// feeding
	"수유", "분유", "모유", "유축", "이유식", "젖병", "먹은", "먹었",
	// sleep
	"수면", "낮잠", "밤잠", "잠을", "잤", "재웠",
	// diaper
	"기저귀", "대변", "소변", "배변", "응가", "쉬야",
	// temperature, medicine
	"체온", "투약", "해열제",
	// growth
	"몸무게", "체중", "키가", "머리둘레",
	// time ranges and aggregates
	"오늘", "어제", "이번 주", "이번주", "지난 주", "지난주", "최근",
	"평균", "통계", "기록", "패턴", "몇 번", "몇번", "횟수",
}

// englishDataKeywords only match whole words, so "pee" does not fire on "speedy".
var englishDataKeywords = []string{
	"feed", "feeds", "feeding", "fed", "formula", "bottle", "bottles",
	"sleep", "sleeps", "sleeping", "slept", "nap", "naps", "napping", "napped",
	"diaper", "diapers", "poop", "pooped", "pee", "peed",
	"temperature", "weight", "height", "today", "yesterday", "this week", "last week",
	"average", "stats", "record", "records",
}

var (
	koreanDataMatch    = containsAny(dataKeywords)
	englishDataPattern = wordPattern(englishDataKeywords)
)

func wordPattern(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
}

func hasDataKeyword(msg string) bool {
	return koreanDataMatch(msg) || englishDataPattern.MatchString(msg)
}

var (
	greetingPattern   = regexp.MustCompile(`^(안녕|하이|헬로|반가워|반갑|좋은\s*(아침|밤|하루)|hi\b|hello|hey\b|good (morning|evening|night))`)
	thanksPattern     = regexp.MustCompile(`(고마워|고맙|감사해|감사합니다|땡큐|thank|thx)`)
	definitionPattern = regexp.MustCompile(`(뭐야|뭐예요|뭐에요|뭔가요|뭐지|무엇인가요|무엇이에요)\s*[?!.]*$|^what (is|are|does) `)
	timingPattern     = regexp.MustCompile(`언제|몇\s*개월\s*(부터|쯤|에)|^when (do|does|should|can|will) `)
)

type complexityRule struct {
	name   string
	match  func(msg string) bool
	result Complexity
}

// complexityRules are evaluated in order and the first match wins.
// The data keyword rule must stay first: a data-bearing question is never simple.
var complexityRules = []complexityRule{
	{name: "data keyword", match: hasDataKeyword, result: Complex},
	{name: "greeting", match: greetingPattern.MatchString, result: Simple},
	{name: "thanks", match: thanksPattern.MatchString, result: Simple},
	{name: "definition", match: definitionPattern.MatchString, result: Simple},
	{name: "timing", match: timingPattern.MatchString, result: Simple},
}

// ClassifyComplexity labels a chat message simple or complex. Unmatched messages are complex.
func ClassifyComplexity(message string) Complexity {
	msg := normalize(message)
	for _, rule := range complexityRules {
		if rule.match(msg) {
			return rule.result
		}
	}
	return Complex
}

// Self-contained data, statistics, comparison and trend questions.
var selfContainedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(오늘|어제|이번\s*주|지난\s*주|최근|요즘).*(몇|얼마|횟수|총|언제|기록|시간)`),
	regexp.MustCompile(`평균|보통\s*(얼마|몇)`),
	regexp.MustCompile(`정상(이야|인가|일까|이에요|인지|범위)|괜찮은\s*(건가|거야|건지)|적당한\s*(양|건가|가요)`),
	regexp.MustCompile(`늘었|줄었|늘어났|줄어들|증가|감소|많아졌|적어졌|변화|추이|추세`),
	regexp.MustCompile(`비교|보다\s*(많|적|더|덜)`),
	regexp.MustCompile(`\b(today|yesterday|average|increas|decreas|trend|compare)|is (it|this|that) normal`),
}

// Phrases that cannot be resolved without the previous exchange.
var previousTurnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(방금|아까|위에서|앞에서|이전에|전에)\s*(말|얘기|이야기|답|설명|한\s*(말|거))`),
	regexp.MustCompile(`(무슨|어떤)\s*(말|뜻|의미)`),
	regexp.MustCompile(`(^|\s)(왜|어째서)(요)?(\s|\?|$)`),
	regexp.MustCompile(`(다시|한\s*번\s*더)\s*(말해|설명|알려|얘기|해\s*줘)`),
	regexp.MustCompile(`^(그거|그건|그게|그걸|그럼|그러면|그래서|그런데|이거|이건|이게|저거|저건)`),
	regexp.MustCompile(`더\s*자세히|자세하게`),
	regexp.MustCompile(`what did you (just )?say|what do you mean|^why\b|(say|explain) (that|it) again|^(that|this|it)\b|more detail`),
}

var healthKeywords = []string{
	"열이", "열나", "열도", "발열", "고열", "미열",
	"울어", "울고", "울음", "우는", "울면", "보채",
	"토했", "토해", "토를", "구토", "게워",
	"설사", "변비", "기침", "콧물", "발진", "두드러기", "경련",
	"아파", "아프", "통증", "걱정", "불안", "힘들",
	"fever", "cry", "vomit", "diarrhea", "cough", "rash", "pain", "worr", "anxious", "sick",
}

type historyRule struct {
	name   string
	match  func(msg string) bool
	result HistoryDecision
}

// historyRules are evaluated in order and the first match wins.
var historyRules = []historyRule{
	{name: "self-contained data question", match: matchesAny(selfContainedPatterns), result: historyNone},
	{name: "refers to previous turn", match: matchesAny(previousTurnPatterns), result: historyFull},
	{name: "health or emotional state", match: containsAny(healthKeywords), result: historyHealth},
}

// SelectHistoryTier decides how many previous turns to include for message.
func SelectHistoryTier(message string) HistoryDecision {
	msg := normalize(message)
	for _, rule := range historyRules {
		if rule.match(msg) {
			d := rule.result
			d.Reason = rule.name
			return d
		}
	}

	d := historyNone
	d.Reason = "no pattern matched"
	return d
}

func normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

func containsAny(words []string) func(string) bool {
	return func(msg string) bool {
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}
}

func matchesAny(patterns []*regexp.Regexp) func(string) bool {
	return func(msg string) bool {
		for _, p := range patterns {
			if p.MatchString(msg) {
				return true
			}
		}
		return false
	}
}
