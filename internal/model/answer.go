package model

import (
	"strings"
	"unicode"
)

// Answer is a guest's reply to a yes/no prompt.
type Answer int

// Yes/no answers.
const (
	AnswerNone Answer = iota
	AnswerYes
	AnswerNo
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	default:
		return "none"
	}
}

var (
	yesPhrases = map[string]bool{
		"yes": true, "yeah": true, "yep": true, "yup": true, "ya": true, "sure": true,
		"correct": true, "right": true, "ok": true, "okay": true, "confirm": true,
		"absolutely": true, "definitely": true, "perfect": true, "affirmative": true,
		"sounds good": true, "that's right": true, "thats right": true, "that is right": true,
		"that's correct": true, "thats correct": true, "that is correct": true,
		"looks good": true, "please do": true, "go ahead": true, "place it": true,
		"place the order": true, "of course": true, "yes it is": true,
	}
	noPhrases = map[string]bool{
		"no": true, "nope": true, "nah": true, "negative": true, "wrong": true,
		"not really": true, "no thanks": true, "no thank you": true, "none": true,
		"nothing": true, "that's wrong": true, "thats wrong": true, "that's not right": true,
		"thats not right": true, "i'm good": true, "im good": true, "i'm fine": true,
		"im fine": true, "that's all": true, "thats all": true, "nothing else": true,
		"no drink": true, "no drinks": true, "not today": true, "not correct": true,
	}
	fillerWords = map[string]bool{
		"please": true, "thanks": true, "thank": true, "you": true, "it": true, "is": true,
		"that's": true, "thats": true, "right": true, "correct": true, "sir": true, "ma'am": true,
		"so": true, "much": true, "i'm": true, "good": true, "fine": true, "for": true, "now": true,
	}
)

// ParseAnswer classifies a short reply as yes or no. Anything longer than a bare
// answer plus pleasantries ("no, add a coke") is AnswerNone so it can be handled as
// an order or a modification instead.
func ParseAnswer(utterance string) Answer {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) || r == '\'' {
			return unicode.ToLower(r)
		}
		return ' '
	}, strings.ReplaceAll(utterance, "’", "'"))
	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return AnswerNone
	}

	phrase := strings.Join(words, " ")
	switch {
	case yesPhrases[phrase]:
		return AnswerYes
	case noPhrases[phrase]:
		return AnswerNo
	}

	// Longest leading phrase followed only by filler words
	for n := len(words) - 1; n >= 1; n-- {
		head := strings.Join(words[:n], " ")
		var answer Answer
		switch {
		case yesPhrases[head]:
			answer = AnswerYes
		case noPhrases[head]:
			answer = AnswerNo
		default:
			continue
		}
		for _, w := range words[n:] {
			if !fillerWords[w] {
				return AnswerNone
			}
		}
		return answer
	}

	return AnswerNone
}
