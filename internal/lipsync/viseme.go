package lipsync

import "time"

// Viseme is a mouth-shape symbol understood by the avatar renderers.
type Viseme string

const (
	VisemeSil Viseme = "sil"
	VisemeAA  Viseme = "aa"
	VisemeE   Viseme = "E"
	VisemeI   Viseme = "I"
	VisemeO   Viseme = "O"
	VisemeU   Viseme = "U"
	VisemePP  Viseme = "PP"
	VisemeFF  Viseme = "FF"
	VisemeTH  Viseme = "TH"
	VisemeDD  Viseme = "DD"
	VisemeKK  Viseme = "kk"
	VisemeCH  Viseme = "CH"
	VisemeSS  Viseme = "SS"
	VisemeNN  Viseme = "nn"
	VisemeRR  Viseme = "RR"
)

// Visemes lists the closed symbol set.
var Visemes = []Viseme{
	VisemeSil, VisemeAA, VisemeE, VisemeI, VisemeO, VisemeU,
	VisemePP, VisemeFF, VisemeTH, VisemeDD, VisemeKK,
	VisemeCH, VisemeSS, VisemeNN, VisemeRR,
}

// Valid reports whether v belongs to the symbol set.
func (v Viseme) Valid() bool {
	for _, known := range Visemes {
		if v == known {
			return true
		}
	}
	return false
}

// Step is one viseme held for Duration at playback rate 1.
type Step struct {
	Viseme   Viseme        `json:"viseme"`
	Duration time.Duration `json:"duration"`
}

const (
	punctuationSilence = 300 * time.Millisecond
	wordGapSilence     = 40 * time.Millisecond
	defaultDuration    = 100 * time.Millisecond
)

// letterVisemes maps lowercase letters and digraphs to visemes. Letters
// missing here are silent inside a word.
var letterVisemes = map[string]Viseme{
	"a": VisemeAA, "e": VisemeE, "i": VisemeI, "o": VisemeO, "u": VisemeU,
	"b": VisemePP, "p": VisemePP, "m": VisemePP,
	"f": VisemeFF, "v": VisemeFF,
	"th": VisemeTH,
	"t":  VisemeDD, "d": VisemeDD, "n": VisemeDD, "l": VisemeDD,
	"k": VisemeKK, "g": VisemeKK, "c": VisemeKK, "q": VisemeKK,
	"s": VisemeSS, "z": VisemeSS, "x": VisemeSS,
	"ch": VisemeCH, "sh": VisemeCH, "j": VisemeCH,
	"ng": VisemeNN,
	"r":  VisemeRR,
	"w":  VisemeU, "h": VisemeAA,
}

// digraphs are matched before single letters. "ph" has no entry of its own
// and takes the viseme of its first letter.
var digraphs = map[string]bool{"th": true, "ch": true, "sh": true, "ph": true, "ng": true}

var visemeDurations = map[Viseme]time.Duration{
	VisemeAA:  150 * time.Millisecond,
	VisemeE:   150 * time.Millisecond,
	VisemeI:   150 * time.Millisecond,
	VisemeO:   180 * time.Millisecond,
	VisemeU:   150 * time.Millisecond,
	VisemePP:  60 * time.Millisecond,
	VisemeFF:  70 * time.Millisecond,
	VisemeTH:  80 * time.Millisecond,
	VisemeDD:  70 * time.Millisecond,
	VisemeKK:  70 * time.Millisecond,
	VisemeCH:  100 * time.Millisecond,
	VisemeSS:  100 * time.Millisecond,
	VisemeNN:  80 * time.Millisecond,
	VisemeRR:  100 * time.Millisecond,
	VisemeSil: 50 * time.Millisecond,
}

// DurationOf returns the hold time of v at playback rate 1.
func DurationOf(v Viseme) time.Duration {
	if d, ok := visemeDurations[v]; ok {
		return d
	}
	return defaultDuration
}
