package lipsync

import (
	"regexp"
	"strings"
	"time"
)

// tokenPattern matches ASCII words (with apostrophes) and the punctuation
// marks that pause the mouth. Everything else separates tokens.
var tokenPattern = regexp.MustCompile(`[\w']+|[.,!?;]`)

// GeneratePattern lowers text into the viseme steps that animate it.
func GeneratePattern(text string) []Step {
	if text == "" {
		return nil
	}

	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	steps := make([]Step, 0, len(text)+len(tokens))

	for _, token := range tokens {
		if isPunctuation(token) {
			steps = append(steps, Step{Viseme: VisemeSil, Duration: punctuationSilence})
			continue
		}

		steps = appendWord(steps, []rune(token))
		steps = append(steps, Step{Viseme: VisemeSil, Duration: wordGapSilence})
	}

	return steps
}

func appendWord(steps []Step, word []rune) []Step {
	for i := 0; i < len(word); i++ {
		key := string(word[i])
		if i+1 < len(word) {
			if pair := string(word[i : i+2]); digraphs[pair] {
				if _, ok := letterVisemes[pair]; ok {
					key = pair
				}
				i++
			}
		}

		v, ok := letterVisemes[key]
		if !ok {
			continue
		}
		steps = append(steps, Step{Viseme: v, Duration: DurationOf(v)})
	}
	return steps
}

func isPunctuation(token string) bool {
	return len(token) == 1 && strings.ContainsAny(token, ".,!?;")
}

// TotalDuration sums the hold times of steps at playback rate 1.
func TotalDuration(steps []Step) time.Duration {
	var total time.Duration
	for _, s := range steps {
		total += s.Duration
	}
	return total
}
